package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestScheduleMatch(t *testing.T) {
	client := primitive.NewObjectID()
	m := scheduleMatch(ScheduleFilter{
		Status:      models.StatusScheduled,
		ServiceType: models.ServiceRemoval,
		ClientID:    &client,
		VIN:         " 9bw.* ",
	})
	assert.Equal(t, models.StatusScheduled, m["status"])
	assert.Equal(t, models.ServiceRemoval, m["service_type"])
	assert.Equal(t, client, m["client"])
	assert.Equal(t, primitive.Regex{Pattern: `9bw\.\*`, Options: "i"}, m["vin"])

	assert.Empty(t, scheduleMatch(ScheduleFilter{}))
}

func TestMongoScheduleCollection_BulkLifecycle(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	clients := NewClientCollection(database.Collection(ClientsCollection))
	schedules := &MongoScheduleCollection{Collection: database.Collection(SchedulesCollection)}

	acme := &models.Client{Name: "Acme Transportes"}
	require.NoError(t, clients.InsertClient(ctx, acme))

	older := time.Now().Add(-time.Hour)
	batch := []models.Schedule{
		{VIN: "VIN1", Model: "Onix", ServiceType: models.ServiceRemoval, Client: acme.ID, Status: models.StatusCreated, CreatedAt: older},
		{VIN: "VIN1", Model: "Onix", ServiceType: models.ServiceRemoval, Client: acme.ID, Status: models.StatusCreated, CreatedAt: time.Now()},
		{VIN: "VIN2", Model: "HB20", ServiceType: models.ServiceMaintenance, Client: acme.ID, Status: models.StatusScheduled, CreatedAt: time.Now()},
	}
	res, err := schedules.InsertSchedules(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count())
	assert.Empty(t, res.Failed)

	latest, err := schedules.LatestIDsByVIN(ctx, []string{"VIN1", "VIN2", "VIN9"})
	require.NoError(t, err)
	assert.Equal(t, batch[1].ID, latest["VIN1"])
	assert.Equal(t, batch[2].ID, latest["VIN2"])
	assert.NotContains(t, latest, "VIN9")

	upd, err := schedules.UpdateSchedules(ctx, []models.ScheduleUpdate{
		{Row: 1, ID: latest["VIN1"], VIN: "VIN1", Set: bson.M{"status": models.StatusCompleted, "updated_at": time.Now()}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), upd.Modified)

	views, err := schedules.FindSchedules(ctx, ScheduleFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Acme Transportes", views[0].ClientName)
	assert.Equal(t, batch[1].ID, views[0].ID)

	// The duplicate _id is rejected while the rest of the batch is written.
	dup := []models.Schedule{
		{ID: batch[0].ID, VIN: "VIN1", Client: acme.ID},
		{VIN: "VIN3", Client: acme.ID},
	}
	res, err = schedules.InsertSchedules(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count())
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 0, res.Failed[0].Index)
}

func TestMongoScheduleCollection_CRUD(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	schedules := &MongoScheduleCollection{Collection: database.Collection(SchedulesCollection)}

	s := &models.Schedule{VIN: "VINX", Model: "Strada", ServiceType: models.ServiceInstallation}
	require.NoError(t, schedules.InsertSchedule(ctx, s))
	assert.Equal(t, models.StatusCreated, s.Status)

	require.NoError(t, schedules.UpdateScheduleStatus(ctx, s.ID.Hex(), models.StatusScheduled))
	found, err := schedules.FindScheduleByID(ctx, s.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, found.Status)

	require.NoError(t, schedules.DeleteSchedule(ctx, s.ID.Hex()))
	_, err = schedules.FindScheduleByID(ctx, s.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, schedules.UpdateScheduleStatus(ctx, s.ID.Hex(), models.StatusLate), ErrNotFound)
}
