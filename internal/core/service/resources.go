package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
	"github.com/pawhaus/boarding-api/internal/infrastructure/cache"
)

// Repositories bundles the storage collaborators of every family.
type Repositories struct {
	Users          ports.UserRepository
	Pets           ports.Repository[domain.Pet]
	Services       ports.Repository[domain.Service]
	Reservations   ports.Repository[domain.Reservation]
	Invoices       ports.Repository[domain.Invoice]
	Payments       ports.Repository[domain.Payment]
	MedicalHistory ports.Repository[domain.MedicalRecord]
	Employees      ports.Repository[domain.Employee]
	Assignments    ports.Repository[domain.Assignment]
	ActivityLogs   ports.Repository[domain.ActivityLog]
}

// Resources holds one ResourceService per family.
type Resources struct {
	Pets           *ResourceService[domain.Pet, *domain.Pet]
	Services       *ResourceService[domain.Service, *domain.Service]
	Reservations   *ResourceService[domain.Reservation, *domain.Reservation]
	Invoices       *ResourceService[domain.Invoice, *domain.Invoice]
	Payments       *ResourceService[domain.Payment, *domain.Payment]
	MedicalHistory *ResourceService[domain.MedicalRecord, *domain.MedicalRecord]
	Employees      *ResourceService[domain.Employee, *domain.Employee]
	Assignments    *ResourceService[domain.Assignment, *domain.Assignment]
	ActivityLogs   *ResourceService[domain.ActivityLog, *domain.ActivityLog]
}

func NewResources(repos Repositories, c *cache.Service, n ports.Notifier, ttl CacheTTLs, log zerolog.Logger) *Resources {
	refs := references{repos: repos}

	return &Resources{
		Pets: NewResourceService[domain.Pet, *domain.Pet](FamilyRules[domain.Pet]{
			Family:     "pets",
			Singular:   "pet",
			OwnerField: "user_id",
			OwnerOf:    func(_ context.Context, p *domain.Pet) (int64, error) { return p.UserID, nil },
			Claim:      func(p *domain.Pet, actor domain.Identity) { p.UserID = actor.ID },
			Validate: func(ctx context.Context, p *domain.Pet) error {
				return refs.user(ctx, p.UserID)
			},
			Summary: func(p *domain.Pet) any {
				return map[string]any{"pet_id": p.ID, "pet_name": p.Name}
			},
			// Medical history lists are scoped by the owner's pets.
			Related: []string{"medical_history"},
		}, repos.Pets, c, n, ttl, log),

		Services: NewResourceService[domain.Service, *domain.Service](FamilyRules[domain.Service]{
			Family:   "services",
			Singular: "service",
			Validate: func(_ context.Context, s *domain.Service) error {
				if s.ServiceType == domain.ServiceTypeOther && s.OtherService == "" {
					return fmt.Errorf("%w: other_service is required when service_type is other", domain.ErrInvalidInput)
				}
				return nil
			},
		}, repos.Services, c, n, ttl, log),

		Reservations: NewResourceService[domain.Reservation, *domain.Reservation](FamilyRules[domain.Reservation]{
			Family:     "reservations",
			Singular:   "reservation",
			OwnerField: "user_id",
			OwnerOf:    func(_ context.Context, r *domain.Reservation) (int64, error) { return r.UserID, nil },
			Claim:      func(r *domain.Reservation, actor domain.Identity) { r.UserID = actor.ID },
			Validate:   refs.reservation,
			Summary: func(r *domain.Reservation) any {
				return map[string]any{
					"reservation_id": r.ID,
					"service_id":     r.ServiceID,
					"pet_id":         r.PetID,
					"start_date":     r.StartDate,
					"end_date":       r.EndDate,
					"is_confirmed":   r.IsConfirmed,
				}
			},
		}, repos.Reservations, c, n, ttl, log),

		Invoices: NewResourceService[domain.Invoice, *domain.Invoice](FamilyRules[domain.Invoice]{
			Family:     "invoices",
			Singular:   "invoice",
			OwnerField: "user_id",
			OwnerOf:    func(_ context.Context, i *domain.Invoice) (int64, error) { return i.UserID, nil },
			Claim:      func(i *domain.Invoice, actor domain.Identity) { i.UserID = actor.ID },
			Validate:   refs.invoice,
			Summary: func(i *domain.Invoice) any {
				return map[string]any{"invoice_id": i.ID, "service_id": i.ServiceID, "completed": i.Completed}
			},
		}, repos.Invoices, c, n, ttl, log),

		Payments: NewResourceService[domain.Payment, *domain.Payment](FamilyRules[domain.Payment]{
			Family:     "payments",
			Singular:   "payment",
			OwnerField: "user_id",
			OwnerOf:    func(_ context.Context, p *domain.Payment) (int64, error) { return p.UserID, nil },
			// Users record payments; only staff settle them.
			Claim: func(p *domain.Payment, actor domain.Identity) {
				p.UserID = actor.ID
				p.PaymentStatus = domain.PaymentPending
			},
			Validate: refs.payment,
			Summary: func(p *domain.Payment) any {
				return map[string]any{"payment_id": p.ID, "amount": p.Amount, "payment_status": p.PaymentStatus}
			},
		}, repos.Payments, c, n, ttl, log),

		MedicalHistory: NewResourceService[domain.MedicalRecord, *domain.MedicalRecord](FamilyRules[domain.MedicalRecord]{
			Family:   "medical_history",
			Singular: "medical_record",
			OwnerOf:  refs.petOwner,
			Scope: func(ctx context.Context, actor domain.Identity) (*ports.OwnerScope, error) {
				ids, err := refs.petIDsOf(ctx, actor.ID)
				if err != nil {
					return nil, err
				}
				return &ports.OwnerScope{Field: "pet_id", IDs: ids}, nil
			},
			Validate: func(ctx context.Context, m *domain.MedicalRecord) error {
				_, err := refs.pet(ctx, m.PetID)
				return err
			},
			Summary: func(m *domain.MedicalRecord) any {
				return map[string]any{"record_id": m.ID, "pet_id": m.PetID, "type": m.Type}
			},
		}, repos.MedicalHistory, c, n, ttl, log),

		Employees: NewResourceService[domain.Employee, *domain.Employee](FamilyRules[domain.Employee]{
			Family:   "employees",
			Singular: "employee",
		}, repos.Employees, c, n, ttl, log),

		Assignments: NewResourceService[domain.Assignment, *domain.Assignment](FamilyRules[domain.Assignment]{
			Family:   "assignments",
			Singular: "assignment",
			Validate: refs.assignment,
		}, repos.Assignments, c, n, ttl, log),

		ActivityLogs: NewResourceService[domain.ActivityLog, *domain.ActivityLog](FamilyRules[domain.ActivityLog]{
			Family:   "activity_logs",
			Singular: "activity_log",
			Validate: refs.activityLog,
		}, repos.ActivityLogs, c, n, ttl, log),
	}
}

// references checks that ids named by a record point at stored records.
// Dangling references are reported as domain.ErrNotFound.
type references struct {
	repos Repositories
}

func (r references) exists(ctx context.Context, what string, id int64, find func(context.Context, int64) error) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s_id is required", domain.ErrInvalidInput, what)
	}
	err := find(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return err
}

func (r references) user(ctx context.Context, id int64) error {
	return r.exists(ctx, "user", id, func(ctx context.Context, id int64) error {
		_, err := r.repos.Users.FindByID(ctx, id)
		return err
	})
}

func (r references) service(ctx context.Context, id int64) error {
	return r.exists(ctx, "service", id, func(ctx context.Context, id int64) error {
		_, err := r.repos.Services.FindByID(ctx, id)
		return err
	})
}

func (r references) employee(ctx context.Context, id int64) error {
	return r.exists(ctx, "employee", id, func(ctx context.Context, id int64) error {
		_, err := r.repos.Employees.FindByID(ctx, id)
		return err
	})
}

func (r references) pet(ctx context.Context, id int64) (*domain.Pet, error) {
	var pet *domain.Pet
	err := r.exists(ctx, "pet", id, func(ctx context.Context, id int64) error {
		p, err := r.repos.Pets.FindByID(ctx, id)
		pet = p
		return err
	})
	return pet, err
}

func (r references) petOwner(ctx context.Context, m *domain.MedicalRecord) (int64, error) {
	pet, err := r.repos.Pets.FindByID(ctx, m.PetID)
	if err != nil {
		return 0, err
	}
	return pet.UserID, nil
}

// petIDsOf collects the ids of every pet owned by userID.
func (r references) petIDsOf(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	filter := ports.ListFilter{
		Scope: &ports.OwnerScope{Field: "user_id", IDs: []int64{userID}},
		Page:  1,
		Limit: ports.MaxPageLimit,
	}
	for {
		pets, total, err := r.repos.Pets.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, p := range pets {
			ids = append(ids, p.ID)
		}
		if len(pets) == 0 || int64(len(ids)) >= total {
			return ids, nil
		}
		filter.Page++
	}
}

func (r references) reservation(ctx context.Context, res *domain.Reservation) error {
	if !res.EndDate.After(res.StartDate) {
		return fmt.Errorf("%w: end_date must be after start_date", domain.ErrInvalidInput)
	}
	if err := r.user(ctx, res.UserID); err != nil {
		return err
	}
	if err := r.service(ctx, res.ServiceID); err != nil {
		return err
	}
	if res.PetID == 0 {
		return nil
	}
	pet, err := r.pet(ctx, res.PetID)
	if err != nil {
		return err
	}
	if pet.UserID != res.UserID {
		return fmt.Errorf("%w: pet %d does not belong to user %d", domain.ErrInvalidInput, pet.ID, res.UserID)
	}
	return nil
}

func (r references) invoice(ctx context.Context, inv *domain.Invoice) error {
	if err := r.user(ctx, inv.UserID); err != nil {
		return err
	}
	if err := r.service(ctx, inv.ServiceID); err != nil {
		return err
	}
	if inv.PaymentID == 0 {
		return nil
	}
	var payment *domain.Payment
	if err := r.exists(ctx, "payment", inv.PaymentID, func(ctx context.Context, id int64) error {
		p, err := r.repos.Payments.FindByID(ctx, id)
		payment = p
		return err
	}); err != nil {
		return err
	}
	if payment.UserID != inv.UserID {
		return fmt.Errorf("%w: payment %d does not belong to user %d", domain.ErrInvalidInput, payment.ID, inv.UserID)
	}
	return nil
}

func (r references) payment(ctx context.Context, p *domain.Payment) error {
	switch p.Method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentBankTransfer, domain.PaymentIoTDevices:
	default:
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, p.Method)
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = domain.PaymentPending
	}
	switch p.PaymentStatus {
	case domain.PaymentPending, domain.PaymentApproved, domain.PaymentRejected, domain.PaymentCancelled:
	default:
		return fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidInput, p.PaymentStatus)
	}
	return r.user(ctx, p.UserID)
}

func (r references) assignment(ctx context.Context, a *domain.Assignment) error {
	if err := r.employee(ctx, a.EmployeeID); err != nil {
		return err
	}
	return r.service(ctx, a.ServiceID)
}

func (r references) activityLog(ctx context.Context, l *domain.ActivityLog) error {
	if l.EndTime != nil && l.EndTime.Before(l.StartTime) {
		return fmt.Errorf("%w: end_time must not precede start_time", domain.ErrInvalidInput)
	}
	if err := r.employee(ctx, l.EmployeeID); err != nil {
		return err
	}
	_, err := r.pet(ctx, l.PetID)
	return err
}
