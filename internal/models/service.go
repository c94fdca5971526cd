package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service is a completed, validated service record.
type Service struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Schedule             *primitive.ObjectID `bson:"schedule,omitempty" json:"schedule,omitempty"`
	Plate                string              `bson:"plate" json:"plate"`
	VIN                  string              `bson:"vin" json:"vin"`
	Model                string              `bson:"model" json:"model"`
	ScheduledDate        *time.Time          `bson:"scheduled_date,omitempty" json:"scheduledDate,omitempty"`
	ServiceType          ServiceType         `bson:"service_type" json:"serviceType"`
	Notes                string              `bson:"notes" json:"notes"`
	Product              *primitive.ObjectID `bson:"product,omitempty" json:"product,omitempty"`
	Client               primitive.ObjectID  `bson:"client" json:"client"`
	Status               Status              `bson:"status" json:"status"`
	Provider             string              `bson:"provider" json:"provider"`
	OrderNumber          string              `bson:"order_number" json:"orderNumber"`
	Location             Location            `bson:"location" json:"location"`
	DeviceID             string              `bson:"device_id" json:"deviceId"`
	Technician           string              `bson:"technician" json:"technician"`
	InstallationLocation string              `bson:"installation_location" json:"installationLocation"`
	ServiceAddress       string              `bson:"service_address" json:"serviceAddress"`
	Odometer             float64             `bson:"odometer" json:"odometer"`
	BlockingEnabled      bool                `bson:"blocking_enabled" json:"blockingEnabled"`
	ProtocolNumber       string              `bson:"protocol_number" json:"protocolNumber"`
	ValidationNotes      string              `bson:"validation_notes" json:"validationNotes"`
	SecondaryDevice      string              `bson:"secondary_device" json:"secondaryDevice"`
	ValidatedBy          string              `bson:"validated_by" json:"validatedBy"`
	ValidatedAt          *time.Time          `bson:"validated_at,omitempty" json:"validatedAt,omitempty"`
	Source               ServiceSource       `bson:"source" json:"source"`
	CreatedAt            time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ValidationData is what the field operator confirms when closing a Schedule.
type ValidationData struct {
	DeviceID             string  `json:"deviceId"`
	Technician           string  `json:"technician"`
	InstallationLocation string  `json:"installationLocation"`
	ServiceAddress       string  `json:"serviceAddress"`
	Odometer             float64 `json:"odometer"`
	BlockingEnabled      bool    `json:"blockingEnabled"`
	ProtocolNumber       string  `json:"protocolNumber"`
	ValidationNotes      string  `json:"validationNotes"`
	SecondaryDevice      string  `json:"secondaryDevice"`
}

// NewServiceFromSchedule builds the Service that records the validation of s.
// The schedule's own status is not touched here.
func NewServiceFromSchedule(s Schedule, data ValidationData, validatedBy string, now time.Time) Service {
	scheduleID := s.ID
	validatedAt := now
	return Service{
		ID:                   primitive.NewObjectID(),
		Schedule:             &scheduleID,
		Plate:                s.Plate,
		VIN:                  s.VIN,
		Model:                s.Model,
		ScheduledDate:        s.ScheduledDate,
		ServiceType:          s.ServiceType,
		Notes:                s.Notes,
		Product:              s.Product,
		Client:               s.Client,
		Status:               StatusCompleted,
		Provider:             s.Provider,
		OrderNumber:          s.OrderNumber,
		Location:             s.Location,
		DeviceID:             data.DeviceID,
		Technician:           data.Technician,
		InstallationLocation: data.InstallationLocation,
		ServiceAddress:       data.ServiceAddress,
		Odometer:             data.Odometer,
		BlockingEnabled:      data.BlockingEnabled,
		ProtocolNumber:       data.ProtocolNumber,
		ValidationNotes:      data.ValidationNotes,
		SecondaryDevice:      data.SecondaryDevice,
		ValidatedBy:          validatedBy,
		ValidatedAt:          &validatedAt,
		Source:               SourceValidation,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// ServiceView is a Service with its client and product names joined in.
type ServiceView struct {
	Service     `bson:",inline"`
	ClientName  string `bson:"client_name" json:"clientName"`
	ProductName string `bson:"product_name" json:"productName"`
}
