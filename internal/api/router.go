package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/pawhaus/boarding-api/docs"
	"github.com/pawhaus/boarding-api/internal/api/handler"
	"github.com/pawhaus/boarding-api/internal/api/middleware"
	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
	"github.com/pawhaus/boarding-api/internal/core/service"
	"github.com/pawhaus/boarding-api/internal/infrastructure/realtime"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Log       zerolog.Logger
	Tokens    ports.TokenValidator
	Auth      ports.AuthService
	Users     ports.UserService
	Resources *service.Resources
	Registry  *realtime.Registry
	Notifier  ports.Notifier
	WS        handler.WSOptions
	// Health lists the dependencies probed by /health/ready.
	Health []handler.Dependency
	// Metrics mounts the prometheus middleware and /metrics.
	Metrics bool
	// Swagger mounts /swagger/*.
	Swagger bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	if deps.Metrics {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace: "boarding",
			Subsystem: "http",
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandler())
	}
	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	auth := middleware.Auth(deps.Tokens)
	perm := middleware.RequirePermission

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me, auth)
	e.PUT("/auth/users/:id/role", authHandler.UpdateRole, auth, middleware.RequireAdmin())

	// --- Users ---
	userHandler := handler.NewUserHandler(deps.Users)
	users := e.Group("/users", auth)
	users.GET("", userHandler.List, perm(domain.PermReadUser))
	users.GET("/:id", userHandler.Get, perm(domain.PermReadUser))
	users.DELETE("/:id", userHandler.Delete, perm(domain.PermDeleteUser))

	// --- Resource families ---
	r := deps.Resources
	mount(e.Group("/pets", auth), handler.NewPetHandler(r.Pets),
		crud(domain.PermCreatePet, domain.PermReadPet, domain.PermUpdatePet, domain.PermDeletePet))
	mount(e.Group("/services", auth), handler.NewServiceHandler(r.Services),
		crud(domain.PermCreateService, domain.PermReadService, domain.PermUpdateService, domain.PermDeleteService))
	mount(e.Group("/reservations", auth), handler.NewReservationHandler(r.Reservations),
		crud(domain.PermCreateReservation, domain.PermReadReservation, domain.PermUpdateReservation, domain.PermDeleteReservation))
	mount(e.Group("/invoices", auth), handler.NewInvoiceHandler(r.Invoices),
		crud(domain.PermCreateInvoice, domain.PermReadInvoice, domain.PermUpdateInvoice, domain.PermDeleteInvoice))
	mount(e.Group("/payments", auth), handler.NewPaymentHandler(r.Payments),
		crud(domain.PermCreatePayment, domain.PermReadPayment, domain.PermUpdatePayment, domain.PermDeletePayment))
	mount(e.Group("/medical_history", auth), handler.NewMedicalRecordHandler(r.MedicalHistory),
		crud(domain.PermCreateMedicalHistory, domain.PermReadMedicalHistory, domain.PermUpdateMedicalHistory, domain.PermDeleteMedicalHistory))
	mount(e.Group("/employees", auth), handler.NewEmployeeHandler(r.Employees),
		crud(domain.PermCreateEmployee, domain.PermReadEmployee, domain.PermUpdateEmployee, domain.PermDeleteEmployee))
	mount(e.Group("/assignments", auth), handler.NewAssignmentHandler(r.Assignments),
		crud(domain.PermCreateAssignment, domain.PermReadAssignment, domain.PermUpdateAssignment, domain.PermDeleteAssignment))
	// Logs have no update/delete permissions: editing stays with whoever may
	// write logs or configure the system, removal is admin only.
	mount(e.Group("/activity_logs", auth), handler.NewActivityLogHandler(r.ActivityLogs),
		gates{
			create: perm(domain.PermCreateActivityLog),
			read:   perm(domain.PermViewLogs),
			update: middleware.RequireAnyPermission(domain.PermCreateActivityLog, domain.PermSystemConfig),
			remove: middleware.RequireAdmin(),
		})

	// --- Realtime ---
	wsHandler := handler.NewWSHandler(deps.Registry, deps.WS, deps.Log)
	e.GET("/ws/user/:id", wsHandler.Personal, auth)
	for _, ch := range domain.Channels {
		if ch == domain.ChannelUsers {
			// Reached through /ws/user/:id only.
			continue
		}
		wsGates := []echo.MiddlewareFunc{auth}
		if domain.OwnedChannel(ch) {
			wsGates = append(wsGates, middleware.RequireEmployeeOrAdmin())
		}
		wsGates = append(wsGates, perm(domain.ChannelReadPermission(ch)))
		for _, path := range domain.ChannelPaths(ch) {
			e.GET("/ws/"+path, wsHandler.Subscribe(ch), wsGates...)
		}
	}
	if deps.Notifier != nil {
		systemHandler := handler.NewSystemHandler(deps.Notifier)
		e.POST("/system/notifications", systemHandler.Notify, auth, perm(domain.PermSystemConfig))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Health...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}

type crudHandler interface {
	List(echo.Context) error
	Get(echo.Context) error
	Create(echo.Context) error
	Update(echo.Context) error
	Delete(echo.Context) error
}

type gates struct {
	create, read, update, remove echo.MiddlewareFunc
}

func crud(create, read, update, remove domain.Permission) gates {
	return gates{
		create: middleware.RequirePermission(create),
		read:   middleware.RequirePermission(read),
		update: middleware.RequirePermission(update),
		remove: middleware.RequirePermission(remove),
	}
}

func mount(g *echo.Group, h crudHandler, gt gates) {
	g.GET("", h.List, gt.read)
	g.POST("", h.Create, gt.create)
	g.GET("/:id", h.Get, gt.read)
	g.PUT("/:id", h.Update, gt.update)
	g.DELETE("/:id", h.Delete, gt.remove)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency.Round(time.Microsecond)).
				Str("request_id", v.RequestID).
				Msg("request completed")
			return nil
		},
	})
}
