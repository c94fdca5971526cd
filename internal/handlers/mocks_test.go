package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fieldops/internal/auth"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/reports"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockScheduleCollection struct {
	mock.Mock
}

func (m *MockScheduleCollection) InsertSchedule(ctx context.Context, schedule *models.Schedule) error {
	return m.Called(ctx, schedule).Error(0)
}

func (m *MockScheduleCollection) FindSchedules(ctx context.Context, filter db.ScheduleFilter) ([]models.ScheduleView, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScheduleView), args.Error(1)
}

func (m *MockScheduleCollection) FindScheduleByID(ctx context.Context, id string) (*models.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *MockScheduleCollection) UpdateSchedule(ctx context.Context, id string, schedule models.Schedule) error {
	return m.Called(ctx, id, schedule).Error(0)
}

func (m *MockScheduleCollection) UpdateScheduleStatus(ctx context.Context, id string, status models.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockScheduleCollection) DeleteSchedule(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockServiceCollection struct {
	mock.Mock
}

func (m *MockServiceCollection) InsertService(ctx context.Context, service *models.Service) error {
	return m.Called(ctx, service).Error(0)
}

func (m *MockServiceCollection) FindServices(ctx context.Context, clientID *primitive.ObjectID) ([]models.ServiceView, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ServiceView), args.Error(1)
}

func (m *MockServiceCollection) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *MockServiceCollection) DeleteService(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockClientCollection struct {
	mock.Mock
}

func (m *MockClientCollection) InsertClient(ctx context.Context, client *models.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *MockClientCollection) FindClients(ctx context.Context, query string) ([]models.Client, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *MockClientCollection) FindClientByID(ctx context.Context, id string) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientCollection) UpdateClient(ctx context.Context, id string, client models.Client) error {
	return m.Called(ctx, id, client).Error(0)
}

func (m *MockClientCollection) DeleteClient(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClientCollection) AddClientImages(ctx context.Context, id string, paths []string) error {
	return m.Called(ctx, id, paths).Error(0)
}

type MockProductCollection struct {
	mock.Mock
}

func (m *MockProductCollection) InsertProduct(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductCollection) FindProducts(ctx context.Context, query string) ([]models.Product, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductCollection) FindProductByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductCollection) UpdateProduct(ctx context.Context, id string, product models.Product) error {
	return m.Called(ctx, id, product).Error(0)
}

func (m *MockProductCollection) DeleteProduct(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockImporter keeps the line numbers of the last batch in lines.
type MockImporter struct {
	mock.Mock
	lines []int
}

func (m *MockImporter) CreateSchedules(ctx context.Context, rows []batch.Row, lines []int, createdBy string) (models.BulkResult, error) {
	m.lines = lines
	args := m.Called(ctx, rows, createdBy)
	return args.Get(0).(models.BulkResult), args.Error(1)
}

func (m *MockImporter) UpdateSchedules(ctx context.Context, rows []batch.Row, lines []int) (models.BulkResult, error) {
	m.lines = lines
	args := m.Called(ctx, rows)
	return args.Get(0).(models.BulkResult), args.Error(1)
}

func (m *MockImporter) UpdateSchedule(ctx context.Context, id primitive.ObjectID, row batch.Row) (models.BulkResult, error) {
	args := m.Called(ctx, id, row)
	return args.Get(0).(models.BulkResult), args.Error(1)
}

func (m *MockImporter) ImportServices(ctx context.Context, rows []batch.Row, lines []int, importedBy string) (models.BulkResult, error) {
	m.lines = lines
	args := m.Called(ctx, rows, importedBy)
	return args.Get(0).(models.BulkResult), args.Error(1)
}

type MockReportBuilder struct {
	mock.Mock
}

func (m *MockReportBuilder) Build(ctx context.Context, q reports.Query) (reports.Report, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(reports.Report), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []string
	data   []any
}

func (p *recordingPublisher) Publish(_ context.Context, event string, data any) error {
	p.events = append(p.events, event)
	p.data = append(p.data, data)
	return nil
}

func (p *recordingPublisher) Close() {}

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	s, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return s
}

// jsonRequest builds a request carrying body as JSON, the given chi URL
// params and an authenticated user.
func jsonRequest(method, target string, body any, params map[string]string, claims *models.Claims) *http.Request {
	var r io.Reader = http.NoBody
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	if claims != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), claims))
	}
	return req
}

var operator = &models.Claims{UserID: primitive.NewObjectID().Hex(), Email: "ops@example.com", Role: models.RoleScheduling}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
