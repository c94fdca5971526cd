package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/reports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoReportSource runs the report aggregations over schedules and services.
type MongoReportSource struct {
	Schedules *mongo.Collection
	Services  *mongo.Collection
}

var _ reports.Source = (*MongoReportSource)(nil)

// reportMatch builds the $match stage for the filtered report sections.
func reportMatch(f reports.Filter, extra bson.M) bson.M {
	m := bson.M{}
	for k, v := range extra {
		m[k] = v
	}
	if f.ClientID != nil {
		m["client"] = *f.ClientID
	}
	window := bson.M{}
	if f.From != nil {
		window["$gte"] = *f.From
	}
	if f.To != nil {
		window["$lt"] = *f.To
	}
	if len(window) > 0 {
		m["created_at"] = window
	}
	return m
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func countBy(field string) bson.D {
	return bson.D{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}}
}

func pendingFilter() bson.M {
	return bson.M{"status": bson.M{"$in": models.PendingStatuses}}
}

// SchedulesByStatus counts schedules per status.
func (s *MongoReportSource) SchedulesByStatus(ctx context.Context, f reports.Filter) ([]reports.StatusCount, error) {
	return aggregate[reports.StatusCount](ctx, s.Schedules, mongo.Pipeline{
		{{Key: "$match", Value: reportMatch(f, nil)}},
		countBy("status"),
	})
}

// CompletedSchedulesByType counts completed schedules per service type.
func (s *MongoReportSource) CompletedSchedulesByType(ctx context.Context, f reports.Filter) ([]reports.TypeCount, error) {
	return aggregate[reports.TypeCount](ctx, s.Schedules, mongo.Pipeline{
		{{Key: "$match", Value: reportMatch(f, bson.M{"status": models.StatusCompleted})}},
		countBy("service_type"),
	})
}

// PendingSchedulesByClient counts pending schedules per client and type.
func (s *MongoReportSource) PendingSchedulesByClient(ctx context.Context, f reports.Filter) ([]reports.ClientTypeCount, error) {
	return aggregate[reports.ClientTypeCount](ctx, s.Schedules, byClient(reportMatch(f, pendingFilter())))
}

// PendingSchedulesByProvider counts pending schedules per non-empty provider.
func (s *MongoReportSource) PendingSchedulesByProvider(ctx context.Context, f reports.Filter) ([]reports.ProviderCount, error) {
	match := reportMatch(f, pendingFilter())
	match["provider"] = bson.M{"$nin": bson.A{"", nil}}
	return aggregate[reports.ProviderCount](ctx, s.Schedules, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		countBy("provider"),
	})
}

// CompletedServicesByPeriod counts completed services per month, or per day,
// and service type across all data.
func (s *MongoReportSource) CompletedServicesByPeriod(ctx context.Context, daily bool) ([]reports.PeriodCount, error) {
	key := bson.M{
		"year":         bson.M{"$year": "$created_at"},
		"month":        bson.M{"$month": "$created_at"},
		"service_type": "$service_type",
	}
	if daily {
		key["day"] = bson.M{"$dayOfMonth": "$created_at"}
	}
	return aggregate[reports.PeriodCount](ctx, s.Services, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusCompleted}}},
		{{Key: "$group", Value: bson.M{"_id": key, "count": bson.M{"$sum": 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"year":         "$_id.year",
			"month":        "$_id.month",
			"day":          bson.M{"$ifNull": bson.A{"$_id.day", 0}},
			"service_type": "$_id.service_type",
			"count":        1,
		}}},
	})
}

// ServicesByClient counts services per client and type within the filter.
func (s *MongoReportSource) ServicesByClient(ctx context.Context, f reports.Filter) ([]reports.ClientTypeCount, error) {
	return aggregate[reports.ClientTypeCount](ctx, s.Services, byClient(reportMatch(f, nil)))
}

func byClient(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"client": "$client", "service_type": "$service_type"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$lookup", Value: bson.M{"from": ClientsCollection, "localField": "_id.client", "foreignField": "_id", "as": "client_doc"}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"client_id":    "$_id.client",
			"service_type": "$_id.service_type",
			"count":        1,
			"client_name":  bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$client_doc.name", 0}}, ""}},
		}}},
	}
}
