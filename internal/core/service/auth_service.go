package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
	"github.com/pawhaus/boarding-api/internal/infrastructure/cache"
)

const usersFamily = "users"

// AuthService implements registration, login and role administration.
type AuthService struct {
	users    ports.UserRepository
	tokens   *TokenService
	cache    *cache.Service
	notifier ports.Notifier
	log      zerolog.Logger
	cost     int
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(users ports.UserRepository, tokens *TokenService, c *cache.Service, n ports.Notifier, log zerolog.Logger) *AuthService {
	if n == nil {
		n = NopNotifier{}
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		cache:    c,
		notifier: n,
		log:      log.With().Str("component", "auth").Logger(),
		cost:     bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost used for new passwords.
func (s *AuthService) SetHashCost(cost int) {
	s.cost = cost
}

// Register creates an account with the user role and signs it in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if err := cache.Invalidate(ctx, s.cache, usersFamily, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	}); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	s.notifier.NotifyEntityChange(ctx, usersFamily, domain.ActionCreated, user.View())
	return s.session(user)
}

// Login verifies credentials. Unknown email and wrong password are the same
// failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.session(user)
}

// Me returns the stored account behind a token.
func (s *AuthService) Me(ctx context.Context, id domain.Identity) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// The account went away after the token was issued.
		return nil, domain.ErrUnauthenticated
	}
	return user, err
}

// UpdateRole changes a user's role. The change applies from the next token
// the user obtains; outstanding tokens keep their role until they expire.
func (s *AuthService) UpdateRole(ctx context.Context, actor domain.Identity, userID int64, role string) (*domain.User, error) {
	if !actor.Can(domain.PermManageRoles) {
		return nil, &domain.PermissionError{Required: string(domain.PermManageRoles)}
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	var updated *domain.User
	if err := cache.Invalidate(ctx, s.cache, usersFamily, func(ctx context.Context) error {
		u, err := s.users.UpdateRole(ctx, userID, r)
		updated = u
		return err
	}); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Int64("actor_id", actor.ID).
		Str("role", string(r)).
		Msg("role updated")

	s.notifier.NotifyEntityChange(ctx, usersFamily, domain.ActionUpdated, updated.View())
	s.notifier.NotifyIdentity(ctx, userID, "role_updated", map[string]any{
		"user_id": userID,
		"role":    r,
	})
	return updated, nil
}

// EnsureAdmin makes sure an admin account exists for email, creating it with
// password when missing and promoting it otherwise.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return nil
		}
		_, err = s.users.UpdateRole(ctx, existing.ID, domain.RoleAdmin)
		if err == nil {
			s.cache.InvalidateFamily(ctx, usersFamily)
			s.log.Info().Int64("user_id", existing.ID).Msg("bootstrap account promoted to admin")
		}
		return err
	case !errors.Is(err, domain.ErrUserNotFound):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		FirstName:    "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.cache.InvalidateFamily(ctx, usersFamily)
	s.log.Info().Int64("user_id", admin.ID).Msg("bootstrap admin created")
	return nil
}

func (s *AuthService) session(u *domain.User) (*ports.Session, error) {
	id := u.Identity()
	token, exp, err := s.tokens.IssueDefault(id)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.Session{AccessToken: token, ExpiresAt: exp, Identity: id}, nil
}

// UserService lists and removes accounts.
type UserService struct {
	users    ports.UserRepository
	cache    *cache.Service
	notifier ports.Notifier
	ttl      CacheTTLs
}

var _ ports.UserService = (*UserService)(nil)

func NewUserService(users ports.UserRepository, c *cache.Service, n ports.Notifier, ttl CacheTTLs) *UserService {
	if n == nil {
		n = NopNotifier{}
	}
	return &UserService{users: users, cache: c, notifier: n, ttl: ttl}
}

func (s *UserService) List(ctx context.Context, _ domain.Identity, filter ports.ListFilter) (*ports.Page[domain.UserView], error) {
	filter = filter.Normalize()
	filter.Scope = nil

	key := cache.GenerateKey(usersFamily+":all", map[string]any{"page": filter.Page, "limit": filter.Limit})
	page, err := cache.Read(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) (ports.Page[domain.UserView], error) {
		users, total, err := s.users.List(ctx, filter)
		if err != nil {
			return ports.Page[domain.UserView]{}, err
		}
		views := make([]domain.UserView, 0, len(users))
		for _, u := range users {
			views = append(views, u.View())
		}
		return ports.Page[domain.UserView]{Items: views, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *UserService) Get(ctx context.Context, actor domain.Identity, id int64) (*domain.UserView, error) {
	if !actor.IsStaff() && actor.ID != id {
		return nil, domain.ErrNotFound
	}
	key := cache.GenerateKey(usersFamily+":by_id", map[string]any{"id": id})
	view, err := cache.Read(ctx, s.cache, key, s.ttl.Item, func(ctx context.Context) (domain.UserView, error) {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return domain.UserView{}, err
		}
		return u.View(), nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *UserService) Delete(ctx context.Context, actor domain.Identity, id int64) error {
	if actor.ID == id {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrInvalidInput)
	}
	if err := cache.Invalidate(ctx, s.cache, usersFamily, func(ctx context.Context) error {
		return s.users.Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.notifier.NotifyEntityChange(ctx, usersFamily, domain.ActionDeleted, map[string]any{"id": id, "deleted_at": time.Now().UTC()})
	return nil
}
