package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/soarhub-io/helios-connector/pkg/commands"
	"github.com/soarhub-io/helios-connector/pkg/services"
)

// APIHandler handles HTTP API requests from the host platform
type APIHandler struct {
	dispatcher *commands.Dispatcher
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(dispatcher *commands.Dispatcher) *APIHandler {
	return &APIHandler{
		dispatcher: dispatcher,
	}
}

// SetupRoutes registers the API routes on the Echo server
func (h *APIHandler) SetupRoutes(e *echo.Echo) {
	e.POST("/api/commands/:name", h.ExecuteCommand)
	e.GET("/api/alerts", h.GetAlerts)
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// ExecuteCommand runs one named command with the posted argument mapping
func (h *APIHandler) ExecuteCommand(c echo.Context) error {
	name := c.Param("name")

	args := commands.Args{}
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&args); err != nil {
			logrus.Errorf("Error binding command args: %v", err)
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		}
	}

	result, err := h.dispatcher.Execute(c.Request().Context(), name, args)
	if err != nil {
		return h.commandError(c, name, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetAlerts is a convenience route for the get-ransomware-alerts command
func (h *APIHandler) GetAlerts(c echo.Context) error {
	args := commands.Args{
		"created_after":       c.QueryParam("created_after"),
		"created_before":      c.QueryParam("created_before"),
		"alert_id_list":       c.QueryParam("alert_id_list"),
		"alert_severity_list": c.QueryParam("alert_severity_list"),
		"limit":               c.QueryParam("limit"),
	}

	result, err := h.dispatcher.Execute(c.Request().Context(), commands.CmdGetRansomwareAlerts, args)
	if err != nil {
		return h.commandError(c, commands.CmdGetRansomwareAlerts, err)
	}

	return c.JSON(http.StatusOK, result.Outputs)
}

// Health reports liveness
func (h *APIHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) commandError(c echo.Context, name string, err error) error {
	logrus.Errorf("Error executing command %s: %v", name, err)

	var userErr *commands.UserError
	if errors.As(err, &userErr) {
		status := http.StatusBadRequest
		if services.IsNotFound(err) {
			status = http.StatusNotFound
		}
		return c.JSON(status, map[string]string{"error": userErr.Message})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": fmt.Sprintf("Failed to execute command %s: %v", name, err),
	})
}
