package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoScheduleCollection stores schedules and implements both the handler
// interface and the batch importer's store.
type MongoScheduleCollection struct {
	Collection *mongo.Collection
}

// InsertSchedule inserts one schedule, assigning its id and timestamps.
func (c *MongoScheduleCollection) InsertSchedule(ctx context.Context, schedule *models.Schedule) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now()
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	if schedule.Status == "" {
		schedule.Status = models.StatusCreated
	}
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, schedule)
	return err
}

// FindSchedules lists schedules newest first with client and product names.
func (c *MongoScheduleCollection) FindSchedules(ctx context.Context, filter ScheduleFilter) ([]models.ScheduleView, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: scheduleMatch(filter)}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
	}
	pipeline = append(pipeline, namesLookup()...)
	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	views := []models.ScheduleView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func scheduleMatch(f ScheduleFilter) bson.M {
	m := bson.M{}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.ServiceType != "" {
		m["service_type"] = f.ServiceType
	}
	if f.ClientID != nil {
		m["client"] = *f.ClientID
	}
	if vin := strings.TrimSpace(f.VIN); vin != "" {
		m["vin"] = primitive.Regex{Pattern: regexp.QuoteMeta(vin), Options: "i"}
	}
	return m
}

// FindScheduleByID returns ErrNotFound for unknown or malformed ids.
func (c *MongoScheduleCollection) FindScheduleByID(ctx context.Context, id string) (*models.Schedule, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var schedule models.Schedule
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&schedule); err != nil {
		return nil, notFound(err)
	}
	return &schedule, nil
}

// UpdateSchedule replaces the editable fields of a schedule.
func (c *MongoScheduleCollection) UpdateSchedule(ctx context.Context, id string, schedule models.Schedule) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	set := bson.M{
		"plate":          schedule.Plate,
		"vin":            schedule.VIN,
		"model":          schedule.Model,
		"scheduled_date": schedule.ScheduledDate,
		"service_type":   schedule.ServiceType,
		"notes":          schedule.Notes,
		"product":        schedule.Product,
		"client":         schedule.Client,
		"status":         schedule.Status,
		"provider":       schedule.Provider,
		"order_number":   schedule.OrderNumber,
		"location":       schedule.Location,
		"updated_at":     time.Now(),
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScheduleStatus sets only the status of a schedule.
func (c *MongoScheduleCollection) UpdateScheduleStatus(ctx context.Context, id string, status models.Status) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule by id.
func (c *MongoScheduleCollection) DeleteSchedule(ctx context.Context, id string) error {
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

// InsertSchedules bulk-inserts a validated batch. Rows rejected by the
// database come back in Failed, keyed by their index in schedules.
func (c *MongoScheduleCollection) InsertSchedules(ctx context.Context, schedules []models.Schedule) (models.BulkResult, error) {
	docs := make([]any, len(schedules))
	ids := make([]primitive.ObjectID, len(schedules))
	vins := make([]string, len(schedules))
	for i := range schedules {
		if schedules[i].ID.IsZero() {
			schedules[i].ID = primitive.NewObjectID()
		}
		ids[i] = schedules[i].ID
		vins[i] = schedules[i].VIN
		docs[i] = schedules[i]
	}
	return insertMany(ctx, c.Collection, docs, ids, vins)
}

// UpdateSchedules applies a validated batch of partial updates.
func (c *MongoScheduleCollection) UpdateSchedules(ctx context.Context, updates []models.ScheduleUpdate) (models.BulkResult, error) {
	return updateMany(ctx, c.Collection, updates)
}

// LatestIDsByVIN maps each vin that exists to the id of its most recently
// created schedule. Unknown vins are absent from the map.
func (c *MongoScheduleCollection) LatestIDsByVIN(ctx context.Context, vins []string) (map[string]primitive.ObjectID, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	out := make(map[string]primitive.ObjectID, len(vins))
	if len(vins) == 0 {
		return out, nil
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "vin": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"vin": bson.M{"$in": vins}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find schedules by vin: %w", err)
	}
	var rows []struct {
		ID  primitive.ObjectID `bson:"_id"`
		VIN string             `bson:"vin"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	// ascending order, so the newest schedule per vin is written last
	for _, r := range rows {
		out[r.VIN] = r.ID
	}
	return out, nil
}
