package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/RichardoC/lovegpt/internal/models"
)

// Store is the persistence the handlers depend on.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateRobot(ctx context.Context, name, description string) (*models.Robot, error)
	GetRobot(ctx context.Context, id int64) (*models.Robot, error)
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	SaveExchange(ctx context.Context, userMsg, reply *models.ChatMessage) error
	MessagesForConversations(ctx context.Context, userID int64, conversationIDs []int64) ([]models.ChatMessage, error)
	ConversationHistory(ctx context.Context, userID, robotID, conversationID int64) ([]models.ChatMessage, error)
	Ping(ctx context.Context) error
}

// Completer produces the robot's next reply for a conversation.
type Completer interface {
	Reply(ctx context.Context, persona string, history []models.ChatMessage, message string) (string, error)
}

type Handler struct {
	store        Store
	llm          Completer
	logger       *zap.Logger
	passwordCost int
}

func NewHandler(store Store, llm Completer, logger *zap.Logger) *Handler {
	return &Handler{
		store:        store,
		llm:          llm,
		logger:       logger,
		passwordCost: bcrypt.DefaultCost,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RegisterRoutes mounts the API under /api/v1. Hyphenated aliases sit next
// to the original underscore paths.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.POST("/register", h.Register)
	g.GET("/user/:id", h.GetUser)

	g.POST("/robot/create", h.CreateRobot)
	g.POST("/robot-create", h.CreateRobot)
	g.GET("/robot/:id", h.GetRobot)

	g.POST("/store_message", h.StoreMessage)
	g.POST("/store-message", h.StoreMessage)

	g.GET("/rooms/get_history", h.RoomsHistory)
	g.POST("/rooms/get_history", h.RoomsHistory)
	g.GET("/rooms-history", h.RoomsHistory)
	g.POST("/rooms-history", h.RoomsHistory)

	g.POST("/get_response", h.GetResponse)
	g.POST("/get-response", h.GetResponse)
}

func (h *Handler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// decodeBody reads a JSON body regardless of method or content type. An
// empty body leaves v untouched.
func decodeBody(c echo.Context, v any) error {
	err := json.NewDecoder(c.Request().Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes msg with the status matching err. Server-side failures are
// logged; client errors only at debug.
func (h *Handler) fail(c echo.Context, err error, msg string) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()))
	} else {
		h.logger.Debug(msg, zap.Error(err), zap.Int("status", status))
	}
	return c.JSON(status, errorResponse{Error: msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
