package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	FirstName   string `json:"first_name"   validate:"required,max=100"`
	LastName    string `json:"last_name"    validate:"max=100"`
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=6,max=72"`
	PhoneNumber string `json:"phone_number" validate:"max=30"`
	Address     string `json:"address"      validate:"max=200"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin employee user"`
}

// identityResponse is the access summary shared by login, register and me.
type identityResponse struct {
	AccessToken     string              `json:"access_token,omitempty"`
	TokenType       string              `json:"token_type,omitempty"`
	ExpiresAt       string              `json:"expires_at,omitempty"`
	IdentityID      int64               `json:"identity_id"`
	Email           string              `json:"email"`
	Role            domain.Role         `json:"role"`
	Permissions     []domain.Permission `json:"permissions"`
	AvailableRoutes map[string]bool     `json:"available_routes"`
}

func summary(id domain.Identity) identityResponse {
	return identityResponse{
		IdentityID:      id.ID,
		Email:           id.Email,
		Role:            id.Role,
		Permissions:     domain.Permissions(id.Role),
		AvailableRoutes: domain.AvailableRoutes(id.Role),
	}
}

func sessionResponse(s *ports.Session) identityResponse {
	resp := summary(s.Identity)
	resp.AccessToken = s.AccessToken
	resp.TokenType = "bearer"
	resp.ExpiresAt = s.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	return resp
}

// Register creates a new account with the user role and returns a token.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  identityResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sessionResponse(session))
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  identityResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse(session))
}

// Me returns the caller's identity, permissions and available routes.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	if _, err := h.authService.Me(c.Request().Context(), actor); err != nil {
		return err
	}
	// Permissions follow the token, not the stored role.
	return c.JSON(http.StatusOK, summary(actor))
}

// UpdateRole changes a user's role. Admin only.
//
// @Summary      Update a user's role
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "user id"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  domain.UserView
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/users/{id}/role [put]
func (h *AuthHandler) UpdateRole(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.UpdateRole(c.Request().Context(), actor, id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.View())
}

// UserHandler serves account administration outside /auth.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "1-based page"
// @Param        limit  query     int  false  "page size (max 100)"
// @Success      200    {object}  pageResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "user id"
// @Success      200  {object}  domain.UserView
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := h.users.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "user id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
