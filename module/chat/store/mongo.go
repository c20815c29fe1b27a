package store

import (
	"context"
	"time"

	"HoodChat/module/chat/model"
	"HoodChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatCollection = "chats"

// chatDoc mirrors a document of the chats collection. Participant and
// listing ids were written as ObjectIds by some clients and as strings by
// others, so they are read raw.
type chatDoc struct {
	ID               primitive.ObjectID `bson:"_id"`
	ServiceOwnerID   bson.RawValue      `bson:"serviceOwnerId"`
	InterestedUserID bson.RawValue      `bson:"interestedUserId"`
	ServiceID        bson.RawValue      `bson:"serviceId"`
	Messages         []bson.RawValue    `bson:"messages"`
	Status           string             `bson:"status"`
	LastMessage      string             `bson:"lastMessage"`
	LastMessageAt    *time.Time         `bson:"lastMessageAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

type messageDoc struct {
	Message   string        `bson:"message"`
	SenderID  bson.RawValue `bson:"senderId"`
	Timestamp time.Time     `bson:"timestamp"`
}

type messageWrite struct {
	Message   string    `bson:"message"`
	SenderID  any       `bson:"senderId"`
	Timestamp time.Time `bson:"timestamp"`
}

type MongoRepo struct {
	db *mongo.Database
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{db: db}
}

func (r *MongoRepo) GetTableName() string { return chatCollection }

func (r *MongoRepo) Collection() *mongo.Collection {
	return r.db.Collection(chatCollection)
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "serviceOwnerId", Value: 1}, {Key: "serviceId", Value: 1}}},
		{Keys: bson.D{{Key: "interestedUserId", Value: 1}, {Key: "serviceId", Value: 1}}},
		{Keys: bson.D{{Key: "serviceId", Value: 1}}},
		{Keys: bson.D{{Key: "lastMessageAt", Value: -1}}},
	})
	return errs.WrapMsg(err, "create chat indexes")
}

func (r *MongoRepo) Create(ctx context.Context, c *model.Chat) error {
	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":              oid,
		"serviceOwnerId":   IDValue(c.ServiceOwnerID),
		"interestedUserId": IDValue(c.InterestedUserID),
		"serviceId":        IDValue(c.ServiceID),
		"messages":         bson.A{},
		"status":           string(c.Status),
		"lastMessage":      c.LastMessage,
		"createdAt":        c.CreatedAt,
		"updatedAt":        c.UpdatedAt,
	}
	if c.LastMessageAt != nil {
		doc["lastMessageAt"] = *c.LastMessageAt
	}
	if _, err := r.Collection().InsertOne(ctx, doc); err != nil {
		return errs.WrapMsg(err, "insert chat", "serviceId", c.ServiceID)
	}
	c.ID = oid.Hex()
	return nil
}

func (r *MongoRepo) FindByID(ctx context.Context, id string) (*model.StoredChat, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", id)
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepo) FindActive(ctx context.Context, serviceID, interestedUserID string) (*model.StoredChat, error) {
	filter := bson.M{"$and": bson.A{
		IDFilter("serviceId", serviceID),
		IDFilter("interestedUserId", interestedUserID),
		bson.M{"status": string(model.StatusActive)},
	}}
	return r.findOne(ctx, filter)
}

func (r *MongoRepo) findOne(ctx context.Context, filter any) (*model.StoredChat, error) {
	var doc chatDoc
	err := r.Collection().FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("chat not found")
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find chat")
	}
	return doc.toModel()
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", id)
	}
	_, err = r.Collection().DeleteOne(ctx, bson.M{"_id": oid})
	return errs.WrapMsg(err, "delete chat", "chatId", id)
}

func (r *MongoRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.StoredChat, error) {
	return r.list(ctx, IDFilter("serviceOwnerId", ownerID))
}

func (r *MongoRepo) ListByInterested(ctx context.Context, userID string) ([]*model.StoredChat, error) {
	return r.list(ctx, IDFilter("interestedUserId", userID))
}

func (r *MongoRepo) ListByService(ctx context.Context, serviceID string) ([]*model.StoredChat, error) {
	return r.list(ctx, IDFilter("serviceId", serviceID))
}

func (r *MongoRepo) list(ctx context.Context, filter bson.M) ([]*model.StoredChat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := r.Collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "list chats")
	}
	defer cur.Close(ctx)

	var out []*model.StoredChat
	for cur.Next(ctx) {
		var doc chatDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.WrapMsg(err, "decode chat")
		}
		sc, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, errs.WrapMsg(cur.Err(), "iterate chats")
}

func (r *MongoRepo) Append(ctx context.Context, chatID string, msg model.Message, upgraded []model.Message) error {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", chatID)
	}
	set := bson.M{
		"lastMessage":   msg.Text,
		"lastMessageAt": msg.Timestamp,
		"updatedAt":     msg.Timestamp,
	}
	update := bson.M{"$set": set}
	if upgraded == nil {
		update["$push"] = bson.M{"messages": toWrite(msg)}
	} else {
		log := make(bson.A, 0, len(upgraded)+1)
		for _, m := range upgraded {
			log = append(log, toWrite(m))
		}
		set["messages"] = append(log, toWrite(msg))
	}
	res, err := r.Collection().UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return errs.WrapMsg(err, "append message", "chatId", chatID)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", chatID)
	}
	return nil
}

func (r *MongoRepo) UpdateStatus(ctx context.Context, chatID string, status model.Status, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", chatID)
	}
	res, err := r.Collection().UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": string(status), "updatedAt": at}})
	if err != nil {
		return errs.WrapMsg(err, "update chat status", "chatId", chatID)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", chatID)
	}
	return nil
}

func toWrite(m model.Message) messageWrite {
	return messageWrite{Message: m.Text, SenderID: IDValue(m.SenderID), Timestamp: m.Timestamp}
}

func (d *chatDoc) toModel() (*model.StoredChat, error) {
	entries := make([]model.StoredMessage, 0, len(d.Messages))
	for i, raw := range d.Messages {
		e, err := decodeEntry(raw)
		if err != nil {
			return nil, errs.WrapMsg(err, "decode message", "chatId", d.ID.Hex(), "index", i)
		}
		entries = append(entries, e)
	}
	return &model.StoredChat{
		Chat: model.Chat{
			ID:               d.ID.Hex(),
			ServiceOwnerID:   IDString(d.ServiceOwnerID),
			InterestedUserID: IDString(d.InterestedUserID),
			ServiceID:        IDString(d.ServiceID),
			Status:           model.Status(d.Status),
			LastMessage:      d.LastMessage,
			LastMessageAt:    d.LastMessageAt,
			CreatedAt:        d.CreatedAt,
			UpdatedAt:        d.UpdatedAt,
		},
		Entries: entries,
	}, nil
}

// decodeEntry reads one log entry in either the legacy string shape or the
// structured document shape.
func decodeEntry(raw bson.RawValue) (model.StoredMessage, error) {
	switch raw.Type {
	case bsontype.String:
		return model.LegacyEntry(raw.StringValue()), nil
	case bsontype.EmbeddedDocument:
		var m messageDoc
		if err := raw.Unmarshal(&m); err != nil {
			return model.StoredMessage{}, err
		}
		return model.RecordEntry(model.Message{
			Text:      m.Message,
			SenderID:  IDString(m.SenderID),
			Timestamp: m.Timestamp,
		}), nil
	default:
		return model.StoredMessage{}, errs.New("unexpected message type", "bsonType", raw.Type.String())
	}
}
