package models

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BulkFailure is one document the store refused during a bulk write. Index
// is the position in the batch; Line is the row number shown to the user.
type BulkFailure struct {
	Index  int    `json:"index"`
	Line   int    `json:"line"`
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// BulkResult is the outcome of a bulk write: per-document, never all-or-nothing.
type BulkResult struct {
	// Succeeded holds inserted ids (create) or matched vins (update).
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
	Matched   int64         `json:"matched"`
	Modified  int64         `json:"modified"`
}

// Count is the number of documents the store accepted.
func (r BulkResult) Count() int {
	return len(r.Succeeded)
}

// Partial reports whether some, but not necessarily all, documents failed.
func (r BulkResult) Partial() bool {
	return len(r.Failed) > 0
}

// ScheduleUpdate is one row of a bulk update, already matched to a document.
type ScheduleUpdate struct {
	Row int
	ID  primitive.ObjectID
	VIN string
	Set bson.M
}
