package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pawhaus/boarding-api/internal/api/middleware"
	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn   func(ctx context.Context, in ports.RegisterInput) (*ports.Session, error)
	loginFn      func(ctx context.Context, email, password string) (*ports.Session, error)
	meFn         func(ctx context.Context, id domain.Identity) (*domain.User, error)
	updateRoleFn func(ctx context.Context, actor domain.Identity, userID int64, role string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.Session, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Me(ctx context.Context, id domain.Identity) (*domain.User, error) {
	return s.meFn(ctx, id)
}

func (s *stubAuthService) UpdateRole(ctx context.Context, actor domain.Identity, userID int64, role string) (*domain.User, error) {
	return s.updateRoleFn(ctx, actor, userID, role)
}

var (
	userIdentity  = domain.Identity{ID: 7, Email: "alice@example.com", Role: domain.RoleUser}
	adminIdentity = domain.Identity{ID: 1, Email: "root@example.com", Role: domain.RoleAdmin}
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func session(id domain.Identity) *ports.Session {
	return &ports.Session{
		AccessToken: "token123",
		ExpiresAt:   time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC),
		Identity:    id,
	}
}

// ---- register ----

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.Session, error) {
			if in.Email != "alice@example.com" || in.FirstName != "Alice" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return session(userIdentity), nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/register", `{"first_name":"Alice","email":"alice@example.com","password":"secret1","role":"admin"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["access_token"] != "token123" || resp["token_type"] != "bearer" {
		t.Fatalf("unexpected token fields: %+v", resp)
	}
	if resp["role"] != "user" {
		t.Fatalf("role must come from the session, got %v", resp["role"])
	}
	if resp["expires_at"] != "2026-05-01T11:00:00Z" {
		t.Fatalf("unexpected expires_at %v", resp["expires_at"])
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.Session, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/register", `{"first_name":"Bob","email":"bob@example.com","password":"secret1"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := handler.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	cases := map[string]string{
		"malformed":     "not-json",
		"missing email": `{"first_name":"Bob","password":"secret1"}`,
		"bad email":     `{"first_name":"Bob","email":"nope","password":"secret1"}`,
		"short pass":    `{"first_name":"Bob","email":"bob@example.com","password":"123"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				registerFn: func(context.Context, ports.RegisterInput) (*ports.Session, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			}
			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", body), httptest.NewRecorder())

			err := NewAuthHandler(stub).Register(c)
			if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
		})
	}
}

// ---- login ----

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*ports.Session, error) {
			if email != "root@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return session(adminIdentity), nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"root@example.com","password":"secret"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["access_token"] != "token123" || resp["role"] != "admin" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	routes, ok := resp["available_routes"].(map[string]any)
	if !ok || routes["admin"] != true {
		t.Fatalf("expected admin routes, got %+v", resp["available_routes"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.Session, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.Session, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", "{"), httptest.NewRecorder())

	if code := httpCode(t, NewAuthHandler(stub).Login(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

// ---- me ----

func TestAuthHandler_Me_UsesTokenRole(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		meFn: func(_ context.Context, id domain.Identity) (*domain.User, error) {
			// The stored role already changed; the response follows the token.
			return &domain.User{ID: id.ID, Email: id.Email, Role: domain.RoleAdmin}, nil
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), rec)
	middleware.SetIdentity(c, userIdentity)

	if err := NewAuthHandler(stub).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	resp := decode(t, rec)
	if resp["role"] != "user" || resp["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["access_token"]; ok {
		t.Fatalf("me must not mint a token")
	}
	perms, _ := resp["permissions"].([]any)
	if len(perms) != len(domain.Permissions(domain.RoleUser)) {
		t.Fatalf("expected user permissions, got %v", perms)
	}
}

func TestAuthHandler_Me_WithoutIdentity(t *testing.T) {
	e := newEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), httptest.NewRecorder())

	if err := NewAuthHandler(&stubAuthService{}).Me(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

// ---- role update ----

func TestAuthHandler_UpdateRole(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		updateRoleFn: func(_ context.Context, actor domain.Identity, userID int64, role string) (*domain.User, error) {
			if actor != adminIdentity || userID != 7 || role != "employee" {
				t.Fatalf("unexpected args: %+v %d %s", actor, userID, role)
			}
			return &domain.User{ID: 7, Email: "alice@example.com", Role: domain.RoleEmployee, PasswordHash: "hash"}, nil
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"role":"employee"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("7")
	middleware.SetIdentity(c, adminIdentity)

	if err := NewAuthHandler(stub).UpdateRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
	if resp := decode(t, rec); resp["role"] != "employee" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_UpdateRole_RejectsUnknownRole(t *testing.T) {
	e := newEcho()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"role":"owner"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("7")
	middleware.SetIdentity(c, adminIdentity)

	if code := httpCode(t, NewAuthHandler(&stubAuthService{}).UpdateRole(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

// ---- users ----

type stubUserService struct {
	deleted []int64
}

func (s *stubUserService) List(_ context.Context, _ domain.Identity, f ports.ListFilter) (*ports.Page[domain.UserView], error) {
	return &ports.Page[domain.UserView]{Items: []domain.UserView{{ID: 1}}, Total: 1, Page: f.Page, Limit: f.Limit}, nil
}

func (s *stubUserService) Get(_ context.Context, actor domain.Identity, id int64) (*domain.UserView, error) {
	if !actor.IsStaff() && actor.ID != id {
		return nil, domain.ErrNotFound
	}
	return &domain.UserView{ID: id}, nil
}

func (s *stubUserService) Delete(_ context.Context, _ domain.Identity, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func TestUserHandler_ListDefaultsPaging(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users", nil), rec)
	middleware.SetIdentity(c, adminIdentity)

	if err := NewUserHandler(&stubUserService{}).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["page"] != float64(1) || resp["limit"] != float64(ports.DefaultPageLimit) {
		t.Fatalf("unexpected paging: %+v", resp)
	}
}

func TestUserHandler_GetOtherUserIsNotFound(t *testing.T) {
	e := newEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("8")
	middleware.SetIdentity(c, userIdentity)

	if err := NewUserHandler(&stubUserService{}).Get(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("9")
	middleware.SetIdentity(c, adminIdentity)

	if err := NewUserHandler(stub).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || len(stub.deleted) != 1 || stub.deleted[0] != 9 {
		t.Fatalf("unexpected result: code=%d deleted=%v", rec.Code, stub.deleted)
	}
}
