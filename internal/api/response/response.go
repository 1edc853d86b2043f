// Package response defines the canonical JSON envelopes shared by all
// handlers and the central error handler.
package response

import "github.com/labstack/echo/v4"

// Envelope wraps every successful response body.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// JSON writes a success envelope with the given status.
func JSON(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// Error writes an error envelope with the given status.
func Error(c echo.Context, status int, message string, errs ...string) error {
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(status, ErrorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     errs,
	})
}
