package db

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nameLookup resolves catalog references by id or by name fragment. It is
// shared by clients and products.
type nameLookup struct {
	coll *mongo.Collection
}

// ExistsByID reports whether a document with this id exists.
func (l nameLookup) ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if l.coll == nil {
		return false, errNilCollection
	}
	n, err := l.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindIDByName returns the oldest document whose name contains fragment,
// case-insensitively.
func (l nameLookup) FindIDByName(ctx context.Context, fragment string) (primitive.ObjectID, bool, error) {
	if l.coll == nil {
		return primitive.NilObjectID, false, errNilCollection
	}
	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	opts := options.FindOne().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	err := l.coll.FindOne(ctx, nameFilter(fragment), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	return doc.ID, true, nil
}

func nameFilter(query string) bson.M {
	query = strings.TrimSpace(query)
	if query == "" {
		return bson.M{}
	}
	return bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
}

func findByName[T any](ctx context.Context, coll *mongo.Collection, query string) ([]T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	cursor, err := coll.Find(ctx, nameFilter(query), options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func updateByID(ctx context.Context, coll *mongo.Collection, id string, update bson.M) error {
	if coll == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	if coll == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoClientCollection stores clients.
type MongoClientCollection struct {
	nameLookup
	Collection *mongo.Collection
}

// NewClientCollection wraps the clients collection.
func NewClientCollection(coll *mongo.Collection) *MongoClientCollection {
	return &MongoClientCollection{nameLookup: nameLookup{coll: coll}, Collection: coll}
}

// InsertClient inserts a client, assigning its id and timestamps.
func (c *MongoClientCollection) InsertClient(ctx context.Context, client *models.Client) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now()
	client.ID = primitive.NewObjectID()
	if client.Image == nil {
		client.Image = []string{}
	}
	client.CreatedAt = now
	client.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, client)
	return err
}

// FindClients lists clients by name, optionally filtered by a name fragment.
func (c *MongoClientCollection) FindClients(ctx context.Context, query string) ([]models.Client, error) {
	return findByName[models.Client](ctx, c.Collection, query)
}

// FindClientByID returns ErrNotFound for unknown or malformed ids.
func (c *MongoClientCollection) FindClientByID(ctx context.Context, id string) (*models.Client, error) {
	return findByID[models.Client](ctx, c.Collection, id)
}

// UpdateClient replaces the editable fields of a client. Images are managed
// through AddClientImages.
func (c *MongoClientCollection) UpdateClient(ctx context.Context, id string, client models.Client) error {
	return updateByID(ctx, c.Collection, id, bson.M{"$set": bson.M{
		"name":        client.Name,
		"description": client.Description,
		"type":        client.Type,
		"updated_at":  time.Now(),
	}})
}

// DeleteClient removes a client by id.
func (c *MongoClientCollection) DeleteClient(ctx context.Context, id string) error {
	return deleteByID(ctx, c.Collection, id)
}

// AddClientImages appends stored image paths to a client.
func (c *MongoClientCollection) AddClientImages(ctx context.Context, id string, paths []string) error {
	return updateByID(ctx, c.Collection, id, bson.M{
		"$push": bson.M{"image": bson.M{"$each": paths}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// MongoProductCollection stores products.
type MongoProductCollection struct {
	nameLookup
	Collection *mongo.Collection
}

// NewProductCollection wraps the products collection.
func NewProductCollection(coll *mongo.Collection) *MongoProductCollection {
	return &MongoProductCollection{nameLookup: nameLookup{coll: coll}, Collection: coll}
}

// InsertProduct inserts a product, assigning its id and timestamps.
func (c *MongoProductCollection) InsertProduct(ctx context.Context, product *models.Product) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, product)
	return err
}

// FindProducts lists products by name, optionally filtered by a name fragment.
func (c *MongoProductCollection) FindProducts(ctx context.Context, query string) ([]models.Product, error) {
	return findByName[models.Product](ctx, c.Collection, query)
}

// FindProductByID returns ErrNotFound for unknown or malformed ids.
func (c *MongoProductCollection) FindProductByID(ctx context.Context, id string) (*models.Product, error) {
	return findByID[models.Product](ctx, c.Collection, id)
}

// UpdateProduct replaces the editable fields of a product.
func (c *MongoProductCollection) UpdateProduct(ctx context.Context, id string, product models.Product) error {
	return updateByID(ctx, c.Collection, id, bson.M{"$set": bson.M{
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category,
		"updated_at":  time.Now(),
	}})
}

// DeleteProduct removes a product by id.
func (c *MongoProductCollection) DeleteProduct(ctx context.Context, id string) error {
	return deleteByID(ctx, c.Collection, id)
}
