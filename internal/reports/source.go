package reports

import (
	"context"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filter narrows the filtered report sections.
type Filter struct {
	From     *time.Time
	To       *time.Time // exclusive
	ClientID *primitive.ObjectID
}

// StatusCount is a raw count of schedules in one status.
type StatusCount struct {
	Status models.Status `bson:"_id"`
	Count  int64         `bson:"count"`
}

// TypeCount is a raw count of records of one service type.
type TypeCount struct {
	ServiceType models.ServiceType `bson:"_id"`
	Count       int64              `bson:"count"`
}

// ClientTypeCount is a raw count per (client, service type).
type ClientTypeCount struct {
	ClientID    primitive.ObjectID `bson:"client_id"`
	ClientName  string             `bson:"client_name"`
	ServiceType models.ServiceType `bson:"service_type"`
	Count       int64              `bson:"count"`
}

// ProviderCount is a raw count per provider.
type ProviderCount struct {
	Provider string `bson:"_id"`
	Count    int64  `bson:"count"`
}

// PeriodCount is a raw count per calendar bucket and service type. Day is 0
// for monthly buckets.
type PeriodCount struct {
	Year        int                `bson:"year"`
	Month       int                `bson:"month"`
	Day         int                `bson:"day"`
	ServiceType models.ServiceType `bson:"service_type"`
	Count       int64              `bson:"count"`
}

// Source runs the grouped queries the aggregator reshapes.
type Source interface {
	SchedulesByStatus(ctx context.Context, f Filter) ([]StatusCount, error)
	CompletedSchedulesByType(ctx context.Context, f Filter) ([]TypeCount, error)
	PendingSchedulesByClient(ctx context.Context, f Filter) ([]ClientTypeCount, error)
	PendingSchedulesByProvider(ctx context.Context, f Filter) ([]ProviderCount, error)
	CompletedServicesByPeriod(ctx context.Context, daily bool) ([]PeriodCount, error)
	ServicesByClient(ctx context.Context, f Filter) ([]ClientTypeCount, error)
}
