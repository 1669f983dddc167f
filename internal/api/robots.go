package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/RichardoC/lovegpt/internal/models"
)

type CreateRobotRequest struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
}

func (h *Handler) CreateRobot(c echo.Context) error {
	var req CreateRobotRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Personality) == "" {
		return badRequest(c, "Incomplete data")
	}

	robot, err := h.store.CreateRobot(c.Request().Context(), req.Name, req.Personality)
	if err != nil {
		return h.fail(c, err, "Failed to create New Robot")
	}

	h.logger.Info("Robot created", zap.Int64("robot_id", robot.ID), zap.String("name", robot.Name))
	return c.JSON(http.StatusCreated, robot)
}

func (h *Handler) GetRobot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid robot id")
	}

	robot, err := h.store.GetRobot(c.Request().Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Robot id: %d not found", id)})
	}
	if err != nil {
		return h.fail(c, err, "Failed to fetch robot")
	}
	return c.JSON(http.StatusOK, robot)
}
