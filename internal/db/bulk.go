package db

import (
	"context"
	"errors"

	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// insertMany writes docs unordered, so one bad document does not stop the
// rest. ids and inputs are parallel to docs.
func insertMany(ctx context.Context, coll *mongo.Collection, docs []any, ids []primitive.ObjectID, inputs []string) (models.BulkResult, error) {
	if coll == nil {
		return models.BulkResult{}, errNilCollection
	}
	if len(docs) == 0 {
		return emptyResult(), nil
	}
	_, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return insertResult(ids, inputs, err)
}

// insertResult splits a batch into written and rejected documents. Errors
// other than per-document write errors are returned as is.
func insertResult(ids []primitive.ObjectID, inputs []string, err error) (models.BulkResult, error) {
	res := emptyResult()
	failed, err := writeErrors(err)
	if err != nil {
		return res, err
	}
	for i, id := range ids {
		if reason, ok := failed[i]; ok {
			res.Failed = append(res.Failed, models.BulkFailure{Index: i, Input: inputs[i], Reason: reason})
			continue
		}
		res.Succeeded = append(res.Succeeded, id.Hex())
	}
	return res, nil
}

// updateMany applies each update's $set to the schedule it addresses, unordered.
func updateMany(ctx context.Context, coll *mongo.Collection, updates []models.ScheduleUpdate) (models.BulkResult, error) {
	if coll == nil {
		return models.BulkResult{}, errNilCollection
	}
	if len(updates) == 0 {
		return emptyResult(), nil
	}
	writes := make([]mongo.WriteModel, len(updates))
	for i, u := range updates {
		writes[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.ID}).
			SetUpdate(bson.M{"$set": u.Set})
	}
	r, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return updateResult(updates, r, err)
}

func updateResult(updates []models.ScheduleUpdate, r *mongo.BulkWriteResult, err error) (models.BulkResult, error) {
	res := emptyResult()
	failed, err := writeErrors(err)
	if err != nil {
		return res, err
	}
	if r != nil {
		res.Matched = r.MatchedCount
		res.Modified = r.ModifiedCount
	}
	for i, u := range updates {
		if reason, ok := failed[i]; ok {
			res.Failed = append(res.Failed, models.BulkFailure{Index: i, Input: u.VIN, Reason: reason})
			continue
		}
		res.Succeeded = append(res.Succeeded, u.VIN)
	}
	return res, nil
}

// writeErrors extracts per-document failures by batch index. It returns err
// untouched when the failure is not attributable to individual documents.
func writeErrors(err error) (map[int]string, error) {
	failed := map[int]string{}
	if err == nil {
		return failed, nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		return nil, err
	}
	for _, we := range bwe.WriteErrors {
		failed[we.Index] = we.Message
	}
	return failed, nil
}

func emptyResult() models.BulkResult {
	return models.BulkResult{Succeeded: []string{}, Failed: []models.BulkFailure{}}
}
