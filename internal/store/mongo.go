package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Document IDs are UUID strings kept
// in _id, increments use $inc, array ops use $addToSet/$pull and transactions
// ride on driver sessions (requires a replica set).
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps a connected Mongo database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStore) Get(ctx context.Context, ref Ref) (Document, error) {
	var raw bson.M
	err := s.coll(ref.Collection).FindOne(ctx, bson.M{"_id": ref.ID}).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Document{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return Document{}, err
	}
	return Document{Ref: ref, Data: fromBson(raw)}, nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	filter := bson.M{}
	for _, c := range conds {
		switch c.Op {
		case "==", "array-contains":
			filter[c.Field] = c.Value
		case "<":
			filter[c.Field] = bson.M{"$lt": c.Value}
		case "<=":
			filter[c.Field] = bson.M{"$lte": c.Value}
		case ">":
			filter[c.Field] = bson.M{"$gt": c.Value}
		case ">=":
			filter[c.Field] = bson.M{"$gte": c.Value}
		default:
			return nil, fmt.Errorf("unsupported query op %q", c.Op)
		}
	}
	cursor, err := s.coll(collection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		id, _ := raw["_id"].(string)
		docs = append(docs, Document{
			Ref:  Ref{Collection: collection, ID: id},
			Data: fromBson(raw),
		})
	}
	return docs, cursor.Err()
}

func (s *MongoStore) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	id := uuid.NewString()
	doc := bson.M{"_id": id}
	for k, v := range data {
		doc[k] = v
	}
	if _, err := s.coll(collection).InsertOne(ctx, doc); err != nil {
		return Ref{}, err
	}
	return Ref{Collection: collection, ID: id}, nil
}

func (s *MongoStore) Set(ctx context.Context, ref Ref, data map[string]any) error {
	doc := bson.M{"_id": ref.ID}
	for k, v := range data {
		doc[k] = v
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll(ref.Collection).ReplaceOne(ctx, bson.M{"_id": ref.ID}, doc, opts)
	return err
}

func (s *MongoStore) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	update := bson.M{}
	for _, op := range ops {
		switch op.Kind {
		case OpIncrement:
			merge(update, "$inc", op.Field, op.Value)
		case OpArrayUnion:
			merge(update, "$addToSet", op.Field, bson.M{"$each": op.Value})
		case OpArrayRemove:
			merge(update, "$pull", op.Field, bson.M{"$in": op.Value})
		default:
			merge(update, "$set", op.Field, op.Value)
		}
	}
	res, err := s.coll(ref.Collection).UpdateOne(ctx, bson.M{"_id": ref.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, ref Ref) error {
	_, err := s.coll(ref.Collection).DeleteOne(ctx, bson.M{"_id": ref.ID})
	return err
}

func (s *MongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		// Operations issued with the session context join the transaction,
		// so the store itself doubles as the Tx view.
		return nil, fn(sc, &mongoTx{s})
	})
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type mongoTx struct {
	*MongoStore
}

func merge(update bson.M, operator, field string, value any) {
	m, ok := update[operator].(bson.M)
	if !ok {
		m = bson.M{}
		update[operator] = m
	}
	m[field] = value
}

// fromBson rewrites driver-native container types into plain maps and slices
// so Document.DataTo sees the same shapes as the other backends.
func fromBson(raw bson.M) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		out[k] = fromBsonValue(v)
	}
	return out
}

func fromBsonValue(v any) any {
	switch t := v.(type) {
	case primitive.A:
		arr := make([]any, len(t))
		for i, e := range t {
			arr[i] = fromBsonValue(e)
		}
		return arr
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = fromBsonValue(e)
		}
		return m
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = fromBsonValue(e.Value)
		}
		return m
	default:
		return v
	}
}
