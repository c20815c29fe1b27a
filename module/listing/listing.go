package listing

import (
	"context"
	"sync"

	chatstore "HoodChat/module/chat/store"
	"HoodChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Listing is the part of a service listing the chat core needs: who owns it.
type Listing struct {
	ID      string
	OwnerID string
	Title   string
}

const serviceCollection = "services"

type listingDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	RequesterID bson.RawValue      `bson:"requesterId"`
	Title       string             `bson:"title"`
}

// MongoReader reads listings from the services collection, which is owned by
// the listing module of the wider application.
type MongoReader struct {
	db *mongo.Database
}

func NewMongoReader(db *mongo.Database) *MongoReader {
	return &MongoReader{db: db}
}

func (r *MongoReader) GetTableName() string { return serviceCollection }

func (r *MongoReader) Collection() *mongo.Collection {
	return r.db.Collection(serviceCollection)
}

func (r *MongoReader) FindListing(ctx context.Context, id string) (*Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrRecordNotFound.WrapMsg("service not found", "serviceId", id)
	}
	var doc listingDoc
	opts := options.FindOne().SetProjection(bson.M{"requesterId": 1, "title": 1})
	err = r.Collection().FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("service not found", "serviceId", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find service", "serviceId", id)
	}
	return &Listing{ID: doc.ID.Hex(), OwnerID: chatstore.IDString(doc.RequesterID), Title: doc.Title}, nil
}

// MemReader is an in-process listing source for tests and local runs.
type MemReader struct {
	mu       sync.RWMutex
	listings map[string]Listing
}

func NewMemReader(listings ...Listing) *MemReader {
	m := &MemReader{listings: make(map[string]Listing)}
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return m
}

func (m *MemReader) Put(l Listing) {
	m.mu.Lock()
	m.listings[l.ID] = l
	m.mu.Unlock()
}

func (m *MemReader) FindListing(_ context.Context, id string) (*Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("service not found", "serviceId", id)
	}
	return &l, nil
}
