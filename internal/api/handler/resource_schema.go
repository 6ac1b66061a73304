package handler

import (
	"time"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// Create requests carry every writable field; update requests carry
// pointers so that absent fields keep their stored value.

// --- pets ---

type createPetRequest struct {
	Name         string     `json:"name"          validate:"required,max=100"`
	Species      string     `json:"species"       validate:"required,max=50"`
	Breed        string     `json:"breed"         validate:"max=50"`
	BirthDate    *time.Time `json:"birth_date"`
	Allergies    string     `json:"allergies"     validate:"max=500"`
	SpecialNeeds string     `json:"special_needs" validate:"max=500"`
	// Ignored for users, who always own what they create.
	UserID int64 `json:"user_id" validate:"gte=0"`
}

func (r createPetRequest) entity() *domain.Pet {
	return &domain.Pet{
		Name:         r.Name,
		Species:      r.Species,
		Breed:        r.Breed,
		BirthDate:    r.BirthDate,
		Allergies:    r.Allergies,
		SpecialNeeds: r.SpecialNeeds,
		UserID:       r.UserID,
	}
}

type updatePetRequest struct {
	Name         *string    `json:"name"          validate:"omitempty,min=1,max=100"`
	Species      *string    `json:"species"       validate:"omitempty,min=1,max=50"`
	Breed        *string    `json:"breed"         validate:"omitempty,max=50"`
	BirthDate    *time.Time `json:"birth_date"`
	Allergies    *string    `json:"allergies"     validate:"omitempty,max=500"`
	SpecialNeeds *string    `json:"special_needs" validate:"omitempty,max=500"`
	UserID       *int64     `json:"user_id"       validate:"omitempty,gt=0"`
}

func (r updatePetRequest) apply(p *domain.Pet) {
	set(&p.Name, r.Name)
	set(&p.Species, r.Species)
	set(&p.Breed, r.Breed)
	if r.BirthDate != nil {
		p.BirthDate = r.BirthDate
	}
	set(&p.Allergies, r.Allergies)
	set(&p.SpecialNeeds, r.SpecialNeeds)
	set(&p.UserID, r.UserID)
}

// --- services ---

type createServiceRequest struct {
	ServiceType  string  `json:"service_type"  validate:"required,oneof=boarding daycare grooming training veterinary other"`
	OtherService string  `json:"other_service" validate:"max=100"`
	Lodging      bool    `json:"lodging"`
	Notes        string  `json:"notes"         validate:"max=500"`
	BasePrice    float64 `json:"base_price"    validate:"gte=0"`
	Duration     int     `json:"duration"      validate:"gte=0"`
}

func (r createServiceRequest) entity() *domain.Service {
	return &domain.Service{
		ServiceType:  r.ServiceType,
		OtherService: r.OtherService,
		Lodging:      r.Lodging,
		Notes:        r.Notes,
		BasePrice:    r.BasePrice,
		Duration:     r.Duration,
	}
}

type updateServiceRequest struct {
	ServiceType  *string  `json:"service_type"  validate:"omitempty,oneof=boarding daycare grooming training veterinary other"`
	OtherService *string  `json:"other_service" validate:"omitempty,max=100"`
	Lodging      *bool    `json:"lodging"`
	Notes        *string  `json:"notes"         validate:"omitempty,max=500"`
	BasePrice    *float64 `json:"base_price"    validate:"omitempty,gte=0"`
	Duration     *int     `json:"duration"      validate:"omitempty,gte=0"`
}

func (r updateServiceRequest) apply(s *domain.Service) {
	set(&s.ServiceType, r.ServiceType)
	set(&s.OtherService, r.OtherService)
	set(&s.Lodging, r.Lodging)
	set(&s.Notes, r.Notes)
	set(&s.BasePrice, r.BasePrice)
	set(&s.Duration, r.Duration)
}

// --- reservations ---

type createReservationRequest struct {
	UserID      int64     `json:"user_id"    validate:"gte=0"`
	ServiceID   int64     `json:"service_id" validate:"required,gt=0"`
	PetID       int64     `json:"pet_id"     validate:"gte=0"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date"   validate:"required"`
	IsConfirmed bool      `json:"is_confirmed"`
}

func (r createReservationRequest) entity() *domain.Reservation {
	return &domain.Reservation{
		UserID:      r.UserID,
		ServiceID:   r.ServiceID,
		PetID:       r.PetID,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		IsConfirmed: r.IsConfirmed,
	}
}

type updateReservationRequest struct {
	ServiceID   *int64     `json:"service_id" validate:"omitempty,gt=0"`
	PetID       *int64     `json:"pet_id"     validate:"omitempty,gte=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsConfirmed *bool      `json:"is_confirmed"`
}

func (r updateReservationRequest) apply(res *domain.Reservation) {
	set(&res.ServiceID, r.ServiceID)
	set(&res.PetID, r.PetID)
	set(&res.StartDate, r.StartDate)
	set(&res.EndDate, r.EndDate)
	set(&res.IsConfirmed, r.IsConfirmed)
}

// --- invoices ---

type createInvoiceRequest struct {
	UserID                  int64   `json:"user_id"                   validate:"gte=0"`
	ServiceID               int64   `json:"service_id"                validate:"required,gt=0"`
	PaymentID               int64   `json:"payment_id"                validate:"gte=0"`
	TaxIdentificationNumber string  `json:"tax_identification_number" validate:"max=50"`
	Discounts               float64 `json:"discounts"                 validate:"gte=0"`
	AdditionalPrice         float64 `json:"additional_price"          validate:"gte=0"`
	VAT                     float64 `json:"vat"                       validate:"gte=0"`
	IncludedService         string  `json:"included_service"          validate:"max=200"`
	Completed               bool    `json:"completed"`
}

func (r createInvoiceRequest) entity() *domain.Invoice {
	return &domain.Invoice{
		UserID:                  r.UserID,
		ServiceID:               r.ServiceID,
		PaymentID:               r.PaymentID,
		TaxIdentificationNumber: r.TaxIdentificationNumber,
		Discounts:               r.Discounts,
		AdditionalPrice:         r.AdditionalPrice,
		VAT:                     r.VAT,
		IncludedService:         r.IncludedService,
		Completed:               r.Completed,
	}
}

type updateInvoiceRequest struct {
	PaymentID               *int64   `json:"payment_id"                validate:"omitempty,gte=0"`
	TaxIdentificationNumber *string  `json:"tax_identification_number" validate:"omitempty,max=50"`
	Discounts               *float64 `json:"discounts"                 validate:"omitempty,gte=0"`
	AdditionalPrice         *float64 `json:"additional_price"          validate:"omitempty,gte=0"`
	VAT                     *float64 `json:"vat"                       validate:"omitempty,gte=0"`
	IncludedService         *string  `json:"included_service"          validate:"omitempty,max=200"`
	Completed               *bool    `json:"completed"`
}

func (r updateInvoiceRequest) apply(i *domain.Invoice) {
	set(&i.PaymentID, r.PaymentID)
	set(&i.TaxIdentificationNumber, r.TaxIdentificationNumber)
	set(&i.Discounts, r.Discounts)
	set(&i.AdditionalPrice, r.AdditionalPrice)
	set(&i.VAT, r.VAT)
	set(&i.IncludedService, r.IncludedService)
	set(&i.Completed, r.Completed)
}

// --- payments ---

type createPaymentRequest struct {
	UserID        int64     `json:"user_id"        validate:"gte=0"`
	Amount        float64   `json:"amount"         validate:"gt=0"`
	Method        string    `json:"method"         validate:"required,oneof=Cash Card Bank_Transfer IoT_Devices"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentStatus string    `json:"payment_status" validate:"omitempty,oneof=Pending Approved Rejected Cancelled"`
	RefundReturn  bool      `json:"refund_return"`
}

func (r createPaymentRequest) entity() *domain.Payment {
	p := &domain.Payment{
		UserID:        r.UserID,
		Amount:        r.Amount,
		Method:        r.Method,
		PaymentDate:   r.PaymentDate,
		PaymentStatus: r.PaymentStatus,
		RefundReturn:  r.RefundReturn,
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	return p
}

type updatePaymentRequest struct {
	Amount        *float64 `json:"amount"         validate:"omitempty,gt=0"`
	Method        *string  `json:"method"         validate:"omitempty,oneof=Cash Card Bank_Transfer IoT_Devices"`
	PaymentStatus *string  `json:"payment_status" validate:"omitempty,oneof=Pending Approved Rejected Cancelled"`
	RefundReturn  *bool    `json:"refund_return"`
}

func (r updatePaymentRequest) apply(p *domain.Payment) {
	set(&p.Amount, r.Amount)
	set(&p.Method, r.Method)
	set(&p.PaymentStatus, r.PaymentStatus)
	set(&p.RefundReturn, r.RefundReturn)
}

// --- medical history ---

type createMedicalRecordRequest struct {
	PetID       int64  `json:"pet_id"      validate:"required,gt=0"`
	Type        string `json:"type"        validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=1000"`
	Status      string `json:"status"      validate:"max=50"`
	Notes       string `json:"notes"       validate:"max=1000"`
}

func (r createMedicalRecordRequest) entity() *domain.MedicalRecord {
	return &domain.MedicalRecord{
		PetID:       r.PetID,
		Type:        r.Type,
		Description: r.Description,
		Status:      r.Status,
		Notes:       r.Notes,
	}
}

type updateMedicalRecordRequest struct {
	Type        *string `json:"type"        validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,min=1,max=1000"`
	Status      *string `json:"status"      validate:"omitempty,max=50"`
	Notes       *string `json:"notes"       validate:"omitempty,max=1000"`
}

func (r updateMedicalRecordRequest) apply(m *domain.MedicalRecord) {
	set(&m.Type, r.Type)
	set(&m.Description, r.Description)
	set(&m.Status, r.Status)
	set(&m.Notes, r.Notes)
}

// --- employees ---

type createEmployeeRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	Specialty string `json:"specialty"  validate:"max=100"`
	IsActive  *bool  `json:"is_active"`
}

func (r createEmployeeRequest) entity() *domain.Employee {
	e := &domain.Employee{FirstName: r.FirstName, LastName: r.LastName, Specialty: r.Specialty, IsActive: true}
	set(&e.IsActive, r.IsActive)
	return e
}

type updateEmployeeRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=1,max=100"`
	Specialty *string `json:"specialty"  validate:"omitempty,max=100"`
	IsActive  *bool   `json:"is_active"`
}

func (r updateEmployeeRequest) apply(e *domain.Employee) {
	set(&e.FirstName, r.FirstName)
	set(&e.LastName, r.LastName)
	set(&e.Specialty, r.Specialty)
	set(&e.IsActive, r.IsActive)
}

// --- assignments ---

type createAssignmentRequest struct {
	ServiceID      int64     `json:"service_id"      validate:"required,gt=0"`
	EmployeeID     int64     `json:"employee_id"     validate:"required,gt=0"`
	AssignmentDate time.Time `json:"assignment_date" validate:"required"`
}

func (r createAssignmentRequest) entity() *domain.Assignment {
	return &domain.Assignment{ServiceID: r.ServiceID, EmployeeID: r.EmployeeID, AssignmentDate: r.AssignmentDate}
}

type updateAssignmentRequest struct {
	ServiceID      *int64     `json:"service_id"  validate:"omitempty,gt=0"`
	EmployeeID     *int64     `json:"employee_id" validate:"omitempty,gt=0"`
	AssignmentDate *time.Time `json:"assignment_date"`
}

func (r updateAssignmentRequest) apply(a *domain.Assignment) {
	set(&a.ServiceID, r.ServiceID)
	set(&a.EmployeeID, r.EmployeeID)
	set(&a.AssignmentDate, r.AssignmentDate)
}

// --- activity logs ---

type createActivityLogRequest struct {
	EmployeeID   int64      `json:"employee_id"   validate:"required,gt=0"`
	PetID        int64      `json:"pet_id"        validate:"required,gt=0"`
	ActivityType string     `json:"activity_type" validate:"required,max=50"`
	Description  string     `json:"description"   validate:"max=1000"`
	StartTime    time.Time  `json:"start_time"    validate:"required"`
	EndTime      *time.Time `json:"end_time"`
	Notes        string     `json:"notes"         validate:"max=1000"`
}

func (r createActivityLogRequest) entity() *domain.ActivityLog {
	return &domain.ActivityLog{
		EmployeeID:   r.EmployeeID,
		PetID:        r.PetID,
		ActivityType: r.ActivityType,
		Description:  r.Description,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Notes:        r.Notes,
	}
}

type updateActivityLogRequest struct {
	ActivityType *string    `json:"activity_type" validate:"omitempty,min=1,max=50"`
	Description  *string    `json:"description"   validate:"omitempty,max=1000"`
	EndTime      *time.Time `json:"end_time"`
	Notes        *string    `json:"notes"         validate:"omitempty,max=1000"`
}

func (r updateActivityLogRequest) apply(l *domain.ActivityLog) {
	set(&l.ActivityType, r.ActivityType)
	set(&l.Description, r.Description)
	if r.EndTime != nil {
		l.EndTime = r.EndTime
	}
	set(&l.Notes, r.Notes)
}

func set[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}
