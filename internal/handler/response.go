package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// APIResponse describes the standard envelope returned by the API.
type APIResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, APIResponse{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, APIResponse{
		Status:  statusError,
		Message: message,
	})
}

// ValidationError reports a 400 with per-field messages.
func ValidationError(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, APIResponse{
		Status:  statusError,
		Message: "invalid payload",
		Fields:  fields,
	})
}
