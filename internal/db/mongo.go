package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	SchedulesCollection = "schedules"
	ServicesCollection  = "services"
	ClientsCollection   = "clients"
	ProductsCollection  = "products"
	UsersCollection     = "users"
)

// ErrNotFound is returned when a document addressed by id does not exist.
var ErrNotFound = errors.New("not found")

var errNilCollection = errors.New("mongo collection is nil")

// ConnectMongo connects to MongoDB and pings it before returning.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		SchedulesCollection: {
			{Keys: bson.D{{Key: "vin", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "client", Value: 1}}},
		},
		ServicesCollection: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "client", Value: 1}}},
		},
		ClientsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, ErrNotFound)
	}
	return oid, nil
}

// notFound maps the driver's empty-result error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// namesLookup joins client and product names onto schedule-shaped documents.
func namesLookup() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{"from": ClientsCollection, "localField": "client", "foreignField": "_id", "as": "client_doc"}}},
		{{Key: "$lookup", Value: bson.M{"from": ProductsCollection, "localField": "product", "foreignField": "_id", "as": "product_doc"}}},
		{{Key: "$addFields", Value: bson.M{
			"client_name":  bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$client_doc.name", 0}}, ""}},
			"product_name": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$product_doc.name", 0}}, ""}},
		}}},
		{{Key: "$project", Value: bson.M{"client_doc": 0, "product_doc": 0}}},
	}
}
