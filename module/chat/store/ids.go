package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDValue stores ids that look like ObjectIds as ObjectIds and anything else
// as plain strings.
func IDValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// IDFilter matches field against both stored forms of id.
func IDFilter(field, id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{field: bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{field: id}
}

// IDString renders a stored id back to its string form.
func IDString(v bson.RawValue) string {
	switch v.Type {
	case bsontype.ObjectID:
		return v.ObjectID().Hex()
	case bsontype.String:
		return v.StringValue()
	default:
		return ""
	}
}
