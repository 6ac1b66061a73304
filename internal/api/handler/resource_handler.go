package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pawhaus/boarding-api/internal/api/middleware"
	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

type creator[T any] interface {
	entity() *T
}

type patcher[T any] interface {
	apply(*T)
}

// ResourceHandler serves CRUD routes of one family. C and U are the create
// and update request bodies.
type ResourceHandler[T any, C creator[T], U patcher[T]] struct {
	service ports.ResourceService[T]
}

func NewResourceHandler[T any, C creator[T], U patcher[T]](service ports.ResourceService[T]) *ResourceHandler[T, C, U] {
	return &ResourceHandler[T, C, U]{service: service}
}

// pageResponse mirrors ports.Page for the API docs.
type pageResponse struct {
	Items []any `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// List handles GET /{family}. Staff see every record; users see their own.
//
// @Summary      List records of a family
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        family  path      string  true   "pets, services, reservations, invoices, payments, medical_history, employees, assignments, activity_logs"
// @Param        page    query     int     false  "1-based page"
// @Param        limit   query     int     false  "page size (max 100)"
// @Success      200     {object}  pageResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      422     {object}  errorResponse
// @Router       /{family} [get]
func (h *ResourceHandler[T, C, U]) List(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := listFilter(c)
	if err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /{family}/:id. Records the caller may not see are 404.
//
// @Summary      Get a record by id
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        family  path      string  true  "resource family"
// @Param        id      path      int     true  "record id"
// @Success      200     {object}  map[string]any
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /{family}/{id} [get]
func (h *ResourceHandler[T, C, U]) Get(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	e, err := h.service.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Create handles POST /{family}.
//
// @Summary      Create a record
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        family  path      string  true  "resource family"
// @Success      201     {object}  map[string]any
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Failure      422     {object}  errorResponse
// @Router       /{family} [post]
func (h *ResourceHandler[T, C, U]) Create(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req C
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := h.service.Create(c.Request().Context(), actor, req.entity())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// Update handles PUT /{family}/:id. Absent fields keep their value.
//
// @Summary      Update a record
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        family  path      string  true  "resource family"
// @Param        id      path      int     true  "record id"
// @Success      200     {object}  map[string]any
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Failure      422     {object}  errorResponse
// @Router       /{family}/{id} [put]
func (h *ResourceHandler[T, C, U]) Update(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req U
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.service.Update(c.Request().Context(), actor, id, func(e *T) error {
		req.apply(e)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /{family}/:id.
//
// @Summary      Delete a record
// @Tags         resources
// @Security     BearerAuth
// @Param        family  path  string  true  "resource family"
// @Param        id      path  int     true  "record id"
// @Success      204
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /{family}/{id} [delete]
func (h *ResourceHandler[T, C, U]) Delete(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- family constructors ---

func NewPetHandler(s ports.ResourceService[domain.Pet]) *ResourceHandler[domain.Pet, createPetRequest, updatePetRequest] {
	return NewResourceHandler[domain.Pet, createPetRequest, updatePetRequest](s)
}

func NewServiceHandler(s ports.ResourceService[domain.Service]) *ResourceHandler[domain.Service, createServiceRequest, updateServiceRequest] {
	return NewResourceHandler[domain.Service, createServiceRequest, updateServiceRequest](s)
}

func NewReservationHandler(s ports.ResourceService[domain.Reservation]) *ResourceHandler[domain.Reservation, createReservationRequest, updateReservationRequest] {
	return NewResourceHandler[domain.Reservation, createReservationRequest, updateReservationRequest](s)
}

func NewInvoiceHandler(s ports.ResourceService[domain.Invoice]) *ResourceHandler[domain.Invoice, createInvoiceRequest, updateInvoiceRequest] {
	return NewResourceHandler[domain.Invoice, createInvoiceRequest, updateInvoiceRequest](s)
}

func NewPaymentHandler(s ports.ResourceService[domain.Payment]) *ResourceHandler[domain.Payment, createPaymentRequest, updatePaymentRequest] {
	return NewResourceHandler[domain.Payment, createPaymentRequest, updatePaymentRequest](s)
}

func NewMedicalRecordHandler(s ports.ResourceService[domain.MedicalRecord]) *ResourceHandler[domain.MedicalRecord, createMedicalRecordRequest, updateMedicalRecordRequest] {
	return NewResourceHandler[domain.MedicalRecord, createMedicalRecordRequest, updateMedicalRecordRequest](s)
}

func NewEmployeeHandler(s ports.ResourceService[domain.Employee]) *ResourceHandler[domain.Employee, createEmployeeRequest, updateEmployeeRequest] {
	return NewResourceHandler[domain.Employee, createEmployeeRequest, updateEmployeeRequest](s)
}

func NewAssignmentHandler(s ports.ResourceService[domain.Assignment]) *ResourceHandler[domain.Assignment, createAssignmentRequest, updateAssignmentRequest] {
	return NewResourceHandler[domain.Assignment, createAssignmentRequest, updateAssignmentRequest](s)
}

func NewActivityLogHandler(s ports.ResourceService[domain.ActivityLog]) *ResourceHandler[domain.ActivityLog, createActivityLogRequest, updateActivityLogRequest] {
	return NewResourceHandler[domain.ActivityLog, createActivityLogRequest, updateActivityLogRequest](s)
}

// --- shared request helpers ---

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// identity fails fast when the Auth middleware did not run.
func identity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "id must be a positive integer")
	}
	return id, nil
}

func listFilter(c echo.Context) (ports.ListFilter, error) {
	var page, limit int
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError(); err != nil {
		return ports.ListFilter{}, echo.NewHTTPError(http.StatusUnprocessableEntity, "page and limit must be integers")
	}
	return ports.ListFilter{Page: page, Limit: limit}.Normalize(), nil
}

// bindAndValidate reports malformed and invalid bodies alike as 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
