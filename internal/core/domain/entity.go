package domain

import "time"

// Entity is implemented by every persisted record that goes through the
// generic repository and resource service.
type Entity interface {
	EntityID() int64
	SetEntityID(id int64)
	Touch(now time.Time)
}

// EntityPtr constrains a type parameter to a pointer whose element is T and
// which implements Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}

// Record carries the fields shared by all entities.
type Record struct {
	ID        int64     `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (r *Record) EntityID() int64 { return r.ID }
func (r *Record) SetEntityID(id int64) { r.ID = id }

// Touch sets UpdatedAt, and CreatedAt on first write.
func (r *Record) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

type Pet struct {
	Record       `bson:",inline"`
	Name         string     `json:"name" bson:"name"`
	Species      string     `json:"species" bson:"species"`
	Breed        string     `json:"breed,omitempty" bson:"breed,omitempty"`
	BirthDate    *time.Time `json:"birth_date,omitempty" bson:"birth_date,omitempty"`
	Allergies    string     `json:"allergies,omitempty" bson:"allergies,omitempty"`
	SpecialNeeds string     `json:"special_needs,omitempty" bson:"special_needs,omitempty"`
	UserID       int64      `json:"user_id" bson:"user_id"`
}

// ServiceType values accepted by the catalog.
const (
	ServiceTypeBoarding = "boarding"
	ServiceTypeDaycare  = "daycare"
	ServiceTypeGrooming = "grooming"
	ServiceTypeTraining = "training"
	ServiceTypeVet      = "veterinary"
	ServiceTypeOther    = "other"
)

// Service is a catalog entry offered by the boarding facility.
type Service struct {
	Record       `bson:",inline"`
	ServiceType  string  `json:"service_type" bson:"service_type"`
	OtherService string  `json:"other_service,omitempty" bson:"other_service,omitempty"`
	Lodging      bool    `json:"lodging" bson:"lodging"`
	Notes        string  `json:"notes,omitempty" bson:"notes,omitempty"`
	BasePrice    float64 `json:"base_price" bson:"base_price"`
	// Duration in minutes.
	Duration int `json:"duration" bson:"duration"`
}

type Reservation struct {
	Record      `bson:",inline"`
	UserID      int64     `json:"user_id" bson:"user_id"`
	ServiceID   int64     `json:"service_id" bson:"service_id"`
	PetID       int64     `json:"pet_id,omitempty" bson:"pet_id,omitempty"`
	StartDate   time.Time `json:"start_date" bson:"start_date"`
	EndDate     time.Time `json:"end_date" bson:"end_date"`
	IsConfirmed bool      `json:"is_confirmed" bson:"is_confirmed"`
}

type Invoice struct {
	Record                  `bson:",inline"`
	UserID                  int64   `json:"user_id" bson:"user_id"`
	ServiceID               int64   `json:"service_id" bson:"service_id"`
	PaymentID               int64   `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	TaxIdentificationNumber string  `json:"tax_identification_number" bson:"tax_identification_number"`
	Discounts               float64 `json:"discounts" bson:"discounts"`
	AdditionalPrice         float64 `json:"additional_price" bson:"additional_price"`
	VAT                     float64 `json:"vat" bson:"vat"`
	IncludedService         string  `json:"included_service,omitempty" bson:"included_service,omitempty"`
	Completed               bool    `json:"completed" bson:"completed"`
}

// Payment methods and statuses.
const (
	PaymentCash         = "Cash"
	PaymentCard         = "Card"
	PaymentBankTransfer = "Bank_Transfer"
	PaymentIoTDevices   = "IoT_Devices"

	PaymentPending   = "Pending"
	PaymentApproved  = "Approved"
	PaymentRejected  = "Rejected"
	PaymentCancelled = "Cancelled"
)

type Payment struct {
	Record        `bson:",inline"`
	UserID        int64     `json:"user_id" bson:"user_id"`
	Amount        float64   `json:"amount" bson:"amount"`
	Method        string    `json:"method" bson:"method"`
	PaymentDate   time.Time `json:"payment_date" bson:"payment_date"`
	PaymentStatus string    `json:"payment_status" bson:"payment_status"`
	RefundReturn  bool      `json:"refund_return" bson:"refund_return"`
}

// MedicalRecord is one entry of a pet's medical history. Ownership resolves
// through the pet.
type MedicalRecord struct {
	Record      `bson:",inline"`
	PetID       int64  `json:"pet_id" bson:"pet_id"`
	Type        string `json:"type" bson:"type"`
	Description string `json:"description" bson:"description"`
	Status      string `json:"status,omitempty" bson:"status,omitempty"`
	Notes       string `json:"notes,omitempty" bson:"notes,omitempty"`
}

type Employee struct {
	Record    `bson:",inline"`
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Specialty string `json:"specialty,omitempty" bson:"specialty,omitempty"`
	IsActive  bool   `json:"is_active" bson:"is_active"`
}

// Assignment links an employee to a service on a given day.
type Assignment struct {
	Record         `bson:",inline"`
	ServiceID      int64     `json:"service_id" bson:"service_id"`
	EmployeeID     int64     `json:"employee_id" bson:"employee_id"`
	AssignmentDate time.Time `json:"assignment_date" bson:"assignment_date"`
}

type ActivityLog struct {
	Record       `bson:",inline"`
	EmployeeID   int64      `json:"employee_id" bson:"employee_id"`
	PetID        int64      `json:"pet_id" bson:"pet_id"`
	ActivityType string     `json:"activity_type" bson:"activity_type"`
	Description  string     `json:"description,omitempty" bson:"description,omitempty"`
	StartTime    time.Time  `json:"start_time" bson:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Notes        string     `json:"notes,omitempty" bson:"notes,omitempty"`
}
