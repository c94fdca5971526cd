package db

import (
	"context"

	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleFilter narrows schedule listings. Zero fields do not filter.
type ScheduleFilter struct {
	Status      models.Status
	ServiceType models.ServiceType
	ClientID    *primitive.ObjectID
	VIN         string
}

// ScheduleCollection defines the schedule operations the handlers need.
type ScheduleCollection interface {
	InsertSchedule(ctx context.Context, schedule *models.Schedule) error
	FindSchedules(ctx context.Context, filter ScheduleFilter) ([]models.ScheduleView, error)
	FindScheduleByID(ctx context.Context, id string) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, schedule models.Schedule) error
	UpdateScheduleStatus(ctx context.Context, id string, status models.Status) error
	DeleteSchedule(ctx context.Context, id string) error
}

// ServiceCollection defines the service operations the handlers need.
type ServiceCollection interface {
	InsertService(ctx context.Context, service *models.Service) error
	FindServices(ctx context.Context, clientID *primitive.ObjectID) ([]models.ServiceView, error)
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
	DeleteService(ctx context.Context, id string) error
}

// ClientCollection defines client catalog operations.
type ClientCollection interface {
	InsertClient(ctx context.Context, client *models.Client) error
	FindClients(ctx context.Context, query string) ([]models.Client, error)
	FindClientByID(ctx context.Context, id string) (*models.Client, error)
	UpdateClient(ctx context.Context, id string, client models.Client) error
	DeleteClient(ctx context.Context, id string) error
	AddClientImages(ctx context.Context, id string, paths []string) error
}

// ProductCollection defines product catalog operations.
type ProductCollection interface {
	InsertProduct(ctx context.Context, product *models.Product) error
	FindProducts(ctx context.Context, query string) ([]models.Product, error)
	FindProductByID(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, product models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}
