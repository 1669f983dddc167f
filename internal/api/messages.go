package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/RichardoC/lovegpt/internal/models"
	"github.com/RichardoC/lovegpt/internal/transcript"
)

type StoreMessageRequest struct {
	Message        *string `json:"message"`
	ConversationID *int64  `json:"conversation_id"`
	UserID         *int64  `json:"user_id"`
	RobotID        *int64  `json:"robot_id"`
	IsRobot        *bool   `json:"is_robot"`
}

type RoomsHistoryRequest struct {
	UserID             *int64          `json:"user_id"`
	ConversationIDList json.RawMessage `json:"conversation_id_list"`
}

type GetResponseRequest struct {
	Message        *string `json:"message"`
	UserID         *int64  `json:"user_id"`
	RobotID        *int64  `json:"robot_id"`
	ConversationID *int64  `json:"conversation_id"`
}

type GetResponseResponse struct {
	Response string `json:"response"`
}

type unsavedReplyResponse struct {
	Error           string `json:"error"`
	UnsavedResponse string `json:"unsaved_response"`
}

func (h *Handler) StoreMessage(c echo.Context) error {
	var req StoreMessageRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Message == nil || req.UserID == nil || req.RobotID == nil || req.IsRobot == nil || req.ConversationID == nil {
		return badRequest(c, "Incomplete data")
	}
	if utf8.RuneCountInString(*req.Message) > models.MaxMessageLength {
		return badRequest(c, "Message too long")
	}

	msg := &models.ChatMessage{
		Message:        *req.Message,
		ConversationID: *req.ConversationID,
		UserID:         *req.UserID,
		RobotID:        *req.RobotID,
		IsRobot:        *req.IsRobot,
	}
	if err := h.store.SaveMessage(c.Request().Context(), msg); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return h.fail(c, err, "User or robot not found")
		}
		return h.fail(c, err, "Failed to store chat history")
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Chat history stored successfully"})
}

// RoomsHistory returns the messages of the requested conversations grouped
// per conversation. Clients send the query as a JSON body, on GET or POST.
func (h *Handler) RoomsHistory(c echo.Context) error {
	var req RoomsHistoryRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "Invalid request data")
	}

	userID, conversationIDs, err := transcript.ParseRequest(req.UserID, req.ConversationIDList)
	if errors.Is(err, transcript.ErrIncompleteRequest) {
		return badRequest(c, "Incomplete request data")
	}
	if err != nil {
		return badRequest(c, "Invalid request data")
	}

	rows, err := h.store.MessagesForConversations(c.Request().Context(), userID, conversationIDs)
	if err != nil {
		return h.fail(c, err, "Failed to load conversation history")
	}

	return c.JSON(http.StatusOK, transcript.Assemble(rows))
}

// GetResponse sends the user's message to the completion API with the
// robot persona and the conversation so far, then stores the message and
// the reply together.
func (h *Handler) GetResponse(c echo.Context) error {
	var req GetResponseRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Message == nil || strings.TrimSpace(*req.Message) == "" ||
		req.UserID == nil || req.RobotID == nil || req.ConversationID == nil {
		return badRequest(c, "Incomplete data")
	}
	if utf8.RuneCountInString(*req.Message) > models.MaxMessageLength {
		return badRequest(c, "Message too long")
	}

	ctx := c.Request().Context()
	userID, robotID, conversationID := *req.UserID, *req.RobotID, *req.ConversationID

	robot, err := h.store.GetRobot(ctx, robotID)
	if errors.Is(err, models.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Robot id: %d not found", robotID)})
	}
	if err != nil {
		return h.fail(c, err, "Failed to fetch robot")
	}

	if _, err := h.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("User id: %d not found", userID)})
		}
		return h.fail(c, err, "Failed to fetch user")
	}

	history, err := h.store.ConversationHistory(ctx, userID, robotID, conversationID)
	if err != nil {
		return h.fail(c, err, "Failed to load conversation history")
	}

	receivedAt := time.Now().UTC()
	reply, err := h.llm.Reply(ctx, robot.Description, history, *req.Message)
	if err != nil {
		return h.fail(c, err, "Failed to get completion response")
	}

	userMsg := &models.ChatMessage{
		Message:        *req.Message,
		ConversationID: conversationID,
		UserID:         userID,
		RobotID:        robotID,
		IsRobot:        false,
		UpdateTime:     receivedAt,
	}
	robotMsg := &models.ChatMessage{
		Message:        reply,
		ConversationID: conversationID,
		UserID:         userID,
		RobotID:        robotID,
		IsRobot:        true,
		UpdateTime:     time.Now().UTC(),
	}
	if err := h.store.SaveExchange(ctx, userMsg, robotMsg); err != nil {
		h.logger.Error("Failed to store exchange",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Int64("robot_id", robotID),
			zap.Int64("conversation_id", conversationID),
			zap.String("unsaved_response", reply))
		return c.JSON(http.StatusInternalServerError, unsavedReplyResponse{
			Error:           "Failed to store user message or response, please try again",
			UnsavedResponse: reply,
		})
	}

	return c.JSON(http.StatusOK, GetResponseResponse{Response: reply})
}
