package http

import (
	"net/http"

	"market-attention/internal/supervisor/dto"
	"market-attention/internal/supervisor/service"
	"market-attention/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ProcessHandler exposes the supervisor process table.
type ProcessHandler struct {
	supervisor service.SupervisorService
	logger     *logger.Logger
}

// NewProcessHandler creates a new ProcessHandler.
func NewProcessHandler(supervisor service.SupervisorService, logger *logger.Logger) *ProcessHandler {
	return &ProcessHandler{supervisor: supervisor, logger: logger}
}

// RegisterRoutes registers the process routes to the Echo group.
func (h *ProcessHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAllProcesses)
	g.GET("/:name", h.GetProcessByName)
}

// GetAllProcesses returns every supervised process in configuration order.
func (h *ProcessHandler) GetAllProcesses(c echo.Context) error {
	return c.JSON(http.StatusOK, h.supervisor.Processes())
}

// GetProcessByName returns a single supervised process.
func (h *ProcessHandler) GetProcessByName(c echo.Context) error {
	name := c.Param("name")
	for _, p := range h.supervisor.Processes() {
		if p.Name == name {
			return c.JSON(http.StatusOK, p)
		}
	}
	return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "process not found"})
}

// Healthz reports that the supervisor is serving.
func Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
