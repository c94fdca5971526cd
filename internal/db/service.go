package db

import (
	"context"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoServiceCollection stores completed service records.
type MongoServiceCollection struct {
	Collection *mongo.Collection
}

// InsertService inserts one service. An id already set by the caller is kept.
func (c *MongoServiceCollection) InsertService(ctx context.Context, service *models.Service) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if service.ID.IsZero() {
		service.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if service.CreatedAt.IsZero() {
		service.CreatedAt = now
	}
	service.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, service)
	return err
}

// InsertServices bulk-inserts an imported batch.
func (c *MongoServiceCollection) InsertServices(ctx context.Context, services []models.Service) (models.BulkResult, error) {
	docs := make([]any, len(services))
	ids := make([]primitive.ObjectID, len(services))
	vins := make([]string, len(services))
	for i := range services {
		if services[i].ID.IsZero() {
			services[i].ID = primitive.NewObjectID()
		}
		ids[i] = services[i].ID
		vins[i] = services[i].VIN
		docs[i] = services[i]
	}
	return insertMany(ctx, c.Collection, docs, ids, vins)
}

// FindServices lists services newest first, optionally for one client.
func (c *MongoServiceCollection) FindServices(ctx context.Context, clientID *primitive.ObjectID) ([]models.ServiceView, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	match := bson.M{}
	if clientID != nil {
		match["client"] = *clientID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
	}
	pipeline = append(pipeline, namesLookup()...)
	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	views := []models.ServiceView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// FindServiceByID returns ErrNotFound for unknown or malformed ids.
func (c *MongoServiceCollection) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var service models.Service
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&service); err != nil {
		return nil, notFound(err)
	}
	return &service, nil
}

// DeleteService removes a service by id.
func (c *MongoServiceCollection) DeleteService(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
