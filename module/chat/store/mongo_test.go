package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestChatDocDecodesMixedLog(t *testing.T) {
	owner := primitive.NewObjectID()
	sender := primitive.NewObjectID()
	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	raw, err := bson.Marshal(bson.M{
		"_id":              primitive.NewObjectID(),
		"serviceOwnerId":   owner,
		"interestedUserId": "legacy-user",
		"serviceId":        primitive.NewObjectID(),
		"status":           "active",
		"messages": bson.A{
			"hello from the old client",
			bson.M{"message": "structured", "senderId": sender, "timestamp": ts},
		},
		"createdAt": ts,
	})
	if err != nil {
		t.Fatal(err)
	}

	var doc chatDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sc, err := doc.toModel()
	if err != nil {
		t.Fatalf("toModel: %v", err)
	}
	if sc.ServiceOwnerID != owner.Hex() || sc.InterestedUserID != "legacy-user" {
		t.Fatalf("ids = %q/%q", sc.ServiceOwnerID, sc.InterestedUserID)
	}
	if len(sc.Entries) != 2 {
		t.Fatalf("entries = %d", len(sc.Entries))
	}
	if text, ok := sc.Entries[0].Legacy(); !ok || text != "hello from the old client" {
		t.Fatalf("entry 0 = %+v", sc.Entries[0])
	}
	rec, ok := sc.Entries[1].Record()
	if !ok || rec.SenderID != sender.Hex() || rec.Text != "structured" || !rec.Timestamp.Equal(ts) {
		t.Fatalf("entry 1 = %+v", rec)
	}
}

func TestDecodeEntryRejectsUnknownShape(t *testing.T) {
	_, raw, err := bson.MarshalValue(int32(7))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeEntry(bson.RawValue{Type: bson.TypeInt32, Value: raw}); err == nil {
		t.Fatal("expected error for numeric entry")
	}
}

func TestIDHelpers(t *testing.T) {
	oid := primitive.NewObjectID()
	if v, ok := IDValue(oid.Hex()).(primitive.ObjectID); !ok || v != oid {
		t.Fatalf("IDValue(hex) = %#v", IDValue(oid.Hex()))
	}
	if v, ok := IDValue("u-42").(string); !ok || v != "u-42" {
		t.Fatalf("IDValue(plain) = %#v", IDValue("u-42"))
	}

	f := IDFilter("serviceOwnerId", oid.Hex())
	in, ok := f["serviceOwnerId"].(bson.M)["$in"].(bson.A)
	if !ok || len(in) != 2 || in[0] != oid || in[1] != oid.Hex() {
		t.Fatalf("IDFilter(hex) = %#v", f)
	}
	if f := IDFilter("serviceOwnerId", "u-42"); f["serviceOwnerId"] != "u-42" {
		t.Fatalf("IDFilter(plain) = %#v", f)
	}

	typ, val, _ := bson.MarshalValue(oid)
	if IDString(bson.RawValue{Type: typ, Value: val}) != oid.Hex() {
		t.Fatal("IDString(oid)")
	}
	if IDString(bson.RawValue{}) != "" {
		t.Fatal("IDString(missing)")
	}
}
