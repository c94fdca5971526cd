package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) SchedulesByStatus(ctx context.Context, f Filter) ([]StatusCount, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]StatusCount), args.Error(1)
}

func (m *MockSource) CompletedSchedulesByType(ctx context.Context, f Filter) ([]TypeCount, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]TypeCount), args.Error(1)
}

func (m *MockSource) PendingSchedulesByClient(ctx context.Context, f Filter) ([]ClientTypeCount, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]ClientTypeCount), args.Error(1)
}

func (m *MockSource) PendingSchedulesByProvider(ctx context.Context, f Filter) ([]ProviderCount, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]ProviderCount), args.Error(1)
}

func (m *MockSource) CompletedServicesByPeriod(ctx context.Context, daily bool) ([]PeriodCount, error) {
	args := m.Called(ctx, daily)
	return args.Get(0).([]PeriodCount), args.Error(1)
}

func (m *MockSource) ServicesByClient(ctx context.Context, f Filter) ([]ClientTypeCount, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]ClientTypeCount), args.Error(1)
}

func TestSummarizeStatus(t *testing.T) {
	s := SummarizeStatus([]StatusCount{
		{Status: models.StatusCreated, Count: 2},
		{Status: models.StatusScheduled, Count: 3},
		{Status: models.StatusCompleted, Count: 7},
		{Status: models.StatusCancelled, Count: 1},
	})
	assert.Equal(t, int64(5), s.Pendentes)
	assert.Equal(t, int64(13), s.Total)
	assert.Equal(t, int64(7), s.Concluido)
	assert.Zero(t, s.Atrasado)

	assert.Equal(t, StatusSummary{}, SummarizeStatus(nil))
}

func TestBucketTypes(t *testing.T) {
	b := BucketTypes([]TypeCount{
		{ServiceType: models.ServiceInstallation, Count: 4},
		{ServiceType: models.ServiceRemoval, Count: 1},
		{ServiceType: "vistoria", Count: 9},
	})
	assert.Equal(t, TypeBuckets{Installation: 4, Removal: 1}, b)
}

func TestPivotClients(t *testing.T) {
	acme, globex := primitive.NewObjectID(), primitive.NewObjectID()
	rows := PivotClients([]ClientTypeCount{
		{ClientID: acme, ClientName: "Acme", ServiceType: models.ServiceInstallation, Count: 1},
		{ClientID: globex, ClientName: "Globex", ServiceType: models.ServiceMaintenance, Count: 3},
		{ClientID: acme, ClientName: "Acme", ServiceType: models.ServiceRemoval, Count: 1},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "Globex", rows[0].Client)
	assert.Equal(t, int64(3), rows[0].Maintenance)
	assert.Equal(t, "Acme", rows[1].Client)
	assert.Equal(t, int64(1), rows[1].Installation)
	assert.Equal(t, int64(1), rows[1].Removal)
	assert.Equal(t, int64(2), rows[1].Total)

	assert.Empty(t, PivotClients(nil))
}

func TestRankProviders_ExcludesEmpty(t *testing.T) {
	rows := RankProviders([]ProviderCount{
		{Provider: "Tec Sul", Count: 2},
		{Provider: "", Count: 10},
		{Provider: "Alfa", Count: 5},
	})
	assert.Equal(t, []ProviderRow{{Provider: "Alfa", Total: 5}, {Provider: "Tec Sul", Total: 2}}, rows)
}

func TestPeriods(t *testing.T) {
	counts := []PeriodCount{
		{Year: 2024, Month: 3, Day: 5, ServiceType: models.ServiceInstallation, Count: 2},
		{Year: 2024, Month: 2, Day: 28, ServiceType: models.ServiceRemoval, Count: 1},
		{Year: 2024, Month: 3, Day: 5, ServiceType: models.ServiceMaintenance, Count: 1},
	}
	daily := Periods(counts, true)
	require.Len(t, daily, 2)
	assert.Equal(t, "2024-02-28", daily[0].Period)
	assert.Equal(t, "2024-03-05", daily[1].Period)
	assert.Equal(t, int64(3), daily[1].Total)

	monthly := Periods(counts, false)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-02", monthly[0].Period)
	assert.Equal(t, int64(2), monthly[1].Installation)
}

func TestParseQuery(t *testing.T) {
	t.Run("invalid client id is ignored", func(t *testing.T) {
		f, applied := ParseQuery(Query{ClientID: "acme"})
		assert.Nil(t, f.ClientID)
		assert.True(t, applied.ClientIDIgnored)
	})

	t.Run("valid client id and dates", func(t *testing.T) {
		id := primitive.NewObjectID()
		f, applied := ParseQuery(Query{ClientID: id.Hex(), StartDate: "01/03/2024", EndDate: "2024-03-31"})
		require.NotNil(t, f.ClientID)
		assert.Equal(t, id, *f.ClientID)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
		assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *f.To)
		assert.Equal(t, id.Hex(), applied.ClientID)
		assert.False(t, applied.ClientIDIgnored)
	})

	t.Run("bad dates are dropped", func(t *testing.T) {
		f, _ := ParseQuery(Query{StartDate: "yesterday"})
		assert.Nil(t, f.From)
	})
}

func TestDailyWindow_DefaultsToToday(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	w := dailyWindow(Filter{}, now)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), *w.From)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), *w.To)
}

func TestBuilder_Build(t *testing.T) {
	src := new(MockSource)
	acme := primitive.NewObjectID()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	src.On("CompletedSchedulesByType", mock.Anything, mock.Anything).
		Return([]TypeCount{{ServiceType: models.ServiceInstallation, Count: 3}}, nil)
	src.On("SchedulesByStatus", mock.Anything, mock.Anything).
		Return([]StatusCount{{Status: models.StatusCreated, Count: 1}, {Status: models.StatusScheduled, Count: 1}}, nil)
	src.On("PendingSchedulesByClient", mock.Anything, mock.Anything).
		Return([]ClientTypeCount{{ClientID: acme, ClientName: "Acme", ServiceType: models.ServiceRemoval, Count: 2}}, nil)
	src.On("PendingSchedulesByProvider", mock.Anything, mock.Anything).
		Return([]ProviderCount{{Provider: "Alfa", Count: 2}}, nil)
	src.On("CompletedServicesByPeriod", mock.Anything, false).
		Return([]PeriodCount{{Year: 2024, Month: 5, ServiceType: models.ServiceInstallation, Count: 3}}, nil)
	src.On("CompletedServicesByPeriod", mock.Anything, true).
		Return([]PeriodCount{{Year: 2024, Month: 5, Day: 10, ServiceType: models.ServiceInstallation, Count: 3}}, nil)
	src.On("ServicesByClient", mock.Anything, mock.MatchedBy(func(f Filter) bool {
		return f.From != nil && f.From.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	})).Return([]ClientTypeCount{{ClientID: acme, ClientName: "Acme", ServiceType: models.ServiceInstallation, Count: 3}}, nil)

	b := NewBuilder(src)
	b.now = func() time.Time { return now }

	report, err := b.Build(context.Background(), Query{ClientID: "not-an-id"})
	require.NoError(t, err)
	assert.True(t, report.Filters.ClientIDIgnored)
	assert.Equal(t, int64(3), report.ServicesByType.Installation)
	assert.Equal(t, int64(2), report.SchedulesByStatus.Pendentes)
	require.Len(t, report.PendingByClient, 1)
	assert.Equal(t, int64(2), report.PendingByClient[0].Removal)
	assert.Equal(t, "2024-05", report.EvolutionByMonth[0].Period)
	assert.Equal(t, "2024-05-10", report.EvolutionByDay[0].Period)
	assert.Equal(t, int64(3), report.ReportDaily.Totals.Installation)
	src.AssertExpectations(t)
}

func TestBuilder_Build_SourceError(t *testing.T) {
	src := new(MockSource)
	src.On("CompletedSchedulesByType", mock.Anything, mock.Anything).
		Return([]TypeCount(nil), errors.New("boom"))

	_, err := NewBuilder(src).Build(context.Background(), Query{})
	assert.ErrorContains(t, err, "boom")
}
