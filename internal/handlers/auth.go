package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/repository"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users     UserStore
	jwtSecret string
	jwtTTL    time.Duration
	logger    *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserStore, jwtSecret string, jwtTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL, logger: logger}
}

// CredentialsRequest is the request body for registration and login
type CredentialsRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
}

// AuthResponse is the response for auth endpoints
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register creates a new user account
// @Summary Register a user
// @Tags auth
// @Accept json
// @Produce json
// @Param body body CredentialsRequest true "credentials"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} middleware.APIError
// @Failure 409 {object} middleware.APIError
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "username must be 3-50 characters and password at least 6")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		middleware.InternalError(c, "internal server error")
		return
	}

	user, err := h.users.RegisterUser(c.Request.Context(), req.Username, string(hashedPassword), models.DefaultSessionName)
	if errors.Is(err, repository.ErrConflict) {
		middleware.Conflict(c, "username already exists")
		return
	}
	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		middleware.InternalError(c, "internal server error")
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	h.respondWithToken(c, http.StatusCreated, user)
}

// Login authenticates a user
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body CredentialsRequest true "credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} middleware.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "username and password are required")
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Error("failed to load user", zap.Error(err))
		}
		middleware.Unauthorized(c, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		middleware.Unauthorized(c, "invalid credentials")
		return
	}

	now := time.Now()
	if err := h.users.TouchLastLogin(c.Request.Context(), user.ID, now); err != nil {
		h.logger.Warn("failed to record last login", zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Logout is stateless; the client discards its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

// GetCurrentUser returns the current authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} models.User
// @Router /auth/current [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		middleware.NotFound(c, "user not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := middleware.IssueToken(h.jwtSecret, user.ID, user.Username, h.jwtTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		middleware.InternalError(c, "internal server error")
		return
	}

	c.JSON(status, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}
