package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location holds the place and responsible party for on-site maintenance work.
type Location struct {
	Address          string `bson:"address,omitempty" json:"address,omitempty"`
	City             string `bson:"city,omitempty" json:"city,omitempty"`
	State            string `bson:"state,omitempty" json:"state,omitempty"`
	ResponsibleName  string `bson:"responsible_name,omitempty" json:"responsibleName,omitempty"`
	ResponsiblePhone string `bson:"responsible_phone,omitempty" json:"responsiblePhone,omitempty"`
}

// Schedule is a planned service visit for a vehicle.
type Schedule struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Plate         string              `bson:"plate" json:"plate"`
	VIN           string              `bson:"vin" json:"vin"`
	Model         string              `bson:"model" json:"model"`
	ScheduledDate *time.Time          `bson:"scheduled_date,omitempty" json:"scheduledDate,omitempty"`
	ServiceType   ServiceType         `bson:"service_type" json:"serviceType"`
	Notes         string              `bson:"notes" json:"notes"`
	CreatedBy     string              `bson:"created_by" json:"createdBy"`
	Product       *primitive.ObjectID `bson:"product,omitempty" json:"product,omitempty"`
	Client        primitive.ObjectID  `bson:"client" json:"client"`
	Status        Status              `bson:"status" json:"status"`
	Provider      string              `bson:"provider" json:"provider"`
	OrderNumber   string              `bson:"order_number" json:"orderNumber"`
	Location      Location            `bson:"location" json:"location"`
	CreatedAt     time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ScheduleView is a Schedule with its client and product names joined in.
type ScheduleView struct {
	Schedule    `bson:",inline"`
	ClientName  string `bson:"client_name" json:"clientName"`
	ProductName string `bson:"product_name" json:"productName"`
}
