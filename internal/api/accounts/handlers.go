// Package accounts implements signup, password login, logout, and the caller's own
// account endpoints. Identity is a stateless HS256 bearer token; logout only
// acknowledges, the client discards the token.
package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/outstaff/outstaff/internal/auth"
	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/middleware"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/validation"
)

// AccountHandlers handles account endpoints
type AccountHandlers struct {
	cfg      *config.Config
	db       *sqlx.DB
	userRepo *repositories.UserRepository
	orgRepo  *repositories.OrganizationRepository
}

// NewAccountHandlers creates a new AccountHandlers instance
func NewAccountHandlers(cfg *config.Config, db *sqlx.DB) *AccountHandlers {
	return &AccountHandlers{
		cfg:      cfg,
		db:       db,
		userRepo: repositories.NewUserRepository(db),
		orgRepo:  repositories.NewOrganizationRepository(db),
	}
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// TokenResponse carries a freshly issued bearer token
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func issueToken(user *models.User, rememberMe bool) (*TokenResponse, error) {
	ttl := auth.SessionDuration(rememberMe)
	token, err := auth.GenerateJWT(user.ID, user.Email, ttl)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: time.Now().Add(ttl), User: user}, nil
}

// @Summary      Sign up
// @Description  Create an account and return a bearer token for it.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  SignupRequest  true  "Account details"
// @Success      201  {object}  TokenResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid input"
// @Failure      403  {object}  map[string]interface{}  "Signup disabled"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Router       /api/v1/auth/signup [post]
// SignupHandler registers a new user
// POST /api/v1/auth/signup
func (h *AccountHandlers) SignupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.cfg.Auth.AllowSignup {
			c.JSON(http.StatusForbidden, gin.H{"error": "Signup is disabled"})
			return
		}

		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		name := strings.TrimSpace(req.Name)
		email := models.NormalizeEmail(req.Email)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required."})
			return
		}
		if err := validation.MaxLength("Name", name, validation.MaxNameLength); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateEmail(email); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords must match"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if errors.Is(err, auth.ErrPasswordTooShort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters."})
			return
		}
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}

		user := &models.User{Name: name, Email: email, PasswordHash: hash}
		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered. Please sign in."})
				return
			}
			slog.Error("failed to create user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}

		resp, err := issueToken(user, false)
		if err != nil {
			slog.Error("failed to issue token", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary      Log in
// @Description  Exchange email and password for a bearer token. remember_me extends the token to 30 days.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  TokenResponse
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates with email and password
// POST /api/v1/auth/login
func (h *AccountHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			slog.Error("failed to look up user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
			return
		}
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials. Try again."})
			return
		}

		resp, err := issueToken(user, req.RememberMe)
		if err != nil {
			slog.Error("failed to issue token", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary      Log out
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/auth/logout [post]
// LogoutHandler acknowledges a logout; tokens are stateless
// POST /api/v1/auth/logout
func (h *AccountHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Signed out."})
	}
}

// @Summary      Current user
// @Description  The authenticated user and their active memberships.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user: models.User, memberships: []models.UserMembership"
// @Failure      403  {object}  map[string]interface{}  "Not authenticated"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the caller's account
// GET /api/v1/auth/me
func (h *AccountHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUser(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "User not authenticated"})
			return
		}

		memberships, err := h.orgRepo.ListUserMemberships(c.Request.Context(), user.ID)
		if err != nil {
			slog.Error("failed to list memberships", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load memberships"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":        user,
			"memberships": memberships,
		})
	}
}

// @Summary      Delete my account
// @Description  Deletes the caller and everything they own. Refused while the caller is the only admin of an organization.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "Last admin of an organization"
// @Router       /api/v1/users/me [delete]
// DeleteMeHandler deletes the caller's account
// DELETE /api/v1/users/me
func (h *AccountHandlers) DeleteMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "User not authenticated"})
			return
		}
		ctx := c.Request.Context()

		memberships, err := h.orgRepo.ListUserMemberships(ctx, userID)
		if err != nil {
			slog.Error("failed to list memberships", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
			return
		}
		for _, m := range memberships {
			if !m.IsActiveAdmin() {
				continue
			}
			admins, err := h.orgRepo.CountActiveAdmins(ctx, m.OrgID)
			if err != nil {
				slog.Error("failed to count admins", "org_id", m.OrgID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
				return
			}
			if admins <= 1 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":        services.MsgLastAdmin,
					"organization": m.OrganizationSlug,
				})
				return
			}
		}

		if err := h.userRepo.DeleteUser(ctx, userID); err != nil {
			slog.Error("failed to delete user", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
	}
}
