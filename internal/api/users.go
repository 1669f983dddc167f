package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/RichardoC/lovegpt/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type conflictResponse struct {
	Error  string `json:"error"`
	UserID int64  `json:"user_id,omitempty"`
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Incomplete data")
	}

	ctx := c.Request().Context()
	existing, err := h.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return c.JSON(http.StatusConflict, conflictResponse{Error: "User already exists", UserID: existing.ID})
	}
	if !errors.Is(err, models.ErrNotFound) {
		return h.fail(c, err, "Failed to register user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.passwordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return badRequest(c, "Password too long")
	}
	if err != nil {
		return h.fail(c, err, "Failed to register user")
	}

	user, err := h.store.CreateUser(ctx, req.Email, string(hash))
	if errors.Is(err, models.ErrConflict) {
		// lost a race with a concurrent registration
		return c.JSON(http.StatusConflict, conflictResponse{Error: "User already exists"})
	}
	if err != nil {
		return h.fail(c, err, "Failed to register user")
	}

	h.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		UserID:  user.ID,
	})
}

// GetUser returns the user record; the password hash is never serialized.
func (h *Handler) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	user, err := h.store.GetUser(c.Request().Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("User id: %d not found", id)})
	}
	if err != nil {
		return h.fail(c, err, "Failed to fetch user")
	}
	return c.JSON(http.StatusOK, user)
}
