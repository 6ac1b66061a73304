package ports

import (
	"context"
	"time"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// RegisterInput carries the fields accepted at self-registration. The role is
// never taken from the caller.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	Address     string
}

// Session is returned by login and registration.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Identity    domain.Identity
}

// TokenValidator decodes a bearer token into an identity.
type TokenValidator interface {
	Validate(token string) (domain.Identity, error)
}

// AuthService defines account use cases exposed under /auth.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Me(ctx context.Context, id domain.Identity) (*domain.User, error)
	UpdateRole(ctx context.Context, actor domain.Identity, userID int64, role string) (*domain.User, error)
}

// UserService covers user administration outside /auth.
type UserService interface {
	List(ctx context.Context, actor domain.Identity, filter ListFilter) (*Page[domain.UserView], error)
	Get(ctx context.Context, actor domain.Identity, id int64) (*domain.UserView, error)
	Delete(ctx context.Context, actor domain.Identity, id int64) error
}
