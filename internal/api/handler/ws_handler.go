package handler

import (
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/infrastructure/realtime"
)

// WSOptions tunes websocket connections.
type WSOptions struct {
	// AllowedOrigins are host patterns accepted besides the request host.
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// WSHandler upgrades authenticated requests and registers the connection
// with the realtime registry until the peer goes away.
type WSHandler struct {
	registry *realtime.Registry
	opts     WSOptions
	log      zerolog.Logger
}

func NewWSHandler(registry *realtime.Registry, opts WSOptions, log zerolog.Logger) *WSHandler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &WSHandler{
		registry: registry,
		opts:     opts,
		log:      log.With().Str("component", "ws").Logger(),
	}
}

// Subscribe returns the handler for GET /ws/<channel>. Access checks run
// in the route's middleware.
//
// @Summary      Subscribe to a channel
// @Description  pets, reservations, payments, invoices and medical_history are staff only
// @Tags         realtime
// @Security     BearerAuth
// @Param        channel  path   string  true   "pets, reservations, payments, invoices, medical_history, services, employees, activity_logs"
// @Param        token    query  string  false  "bearer token when headers cannot be set"
// @Success      101
// @Failure      401      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /ws/{channel} [get]
func (h *WSHandler) Subscribe(ch domain.Channel) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := identity(c)
		if err != nil {
			return err
		}
		return h.serve(c, actor, func(conn *realtime.WSConn) func() {
			h.registry.Join(conn, ch)
			return func() { h.registry.Remove(conn) }
		})
	}
}

// Personal handles GET /ws/user/:id. It carries the identity's private
// notifications and the users channel. Only the identity itself or staff
// may open it.
//
// @Summary      Subscribe to personal notifications
// @Tags         realtime
// @Security     BearerAuth
// @Param        id     path   int     true   "identity id"
// @Param        token  query  string  false  "bearer token when headers cannot be set"
// @Success      101
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /ws/user/{id} [get]
func (h *WSHandler) Personal(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	target, err := pathID(c)
	if err != nil {
		return err
	}
	if actor.ID != target && !actor.IsStaff() {
		return domain.ErrForbidden
	}

	return h.serve(c, actor, func(conn *realtime.WSConn) func() {
		h.registry.Join(conn, domain.ChannelUsers)
		h.registry.JoinIdentity(conn, target)
		return func() {
			h.registry.Leave(conn, domain.ChannelUsers)
			h.registry.LeaveIdentity(conn, target)
		}
	})
}

// serve upgrades the request, runs join, and blocks until the read loop or
// the keepalive ends. Returning nil leaves the hijacked response alone.
func (h *WSHandler) serve(c echo.Context, actor domain.Identity, join func(*realtime.WSConn) (leave func())) error {
	ws, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.opts.AllowedOrigins,
	})
	if err != nil {
		// Accept has already written the rejection.
		h.log.Warn().Err(err).Str("path", c.Path()).Msg("websocket upgrade failed")
		return nil
	}

	conn := realtime.NewWSConn(ws, actor, h.opts.WriteTimeout, h.log)
	leave := join(conn)
	h.log.Info().
		Str("conn_id", conn.ID()).
		Int64("identity_id", actor.ID).
		Str("path", c.Request().URL.Path).
		Msg("websocket connected")

	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error { return conn.ReadLoop(ctx) })
	g.Go(func() error { return conn.KeepAlive(ctx, h.opts.PingInterval) })
	err = g.Wait()

	leave()
	conn.Close("bye")
	h.log.Info().
		Str("conn_id", conn.ID()).
		Str("state", conn.State().String()).
		AnErr("reason", err).
		Msg("websocket disconnected")
	return nil
}
