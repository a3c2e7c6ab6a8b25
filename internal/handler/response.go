package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse describes the standard envelope returned by the API. The
// request id mirrors the X-Request-ID header so dashboard error reports can
// be matched against server logs.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	payload := APIResponse{
		Status:    "success",
		Message:   message,
		RequestID: c.Response().Header().Get("X-Request-ID"),
		Data:      data,
	}
	return c.JSON(status, payload)
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	payload := APIResponse{
		Status:    "error",
		Message:   message,
		RequestID: c.Response().Header().Get("X-Request-ID"),
	}
	return c.JSON(status, payload)
}
