// Package adapterutil holds the HTTP plumbing shared by the platform adapters.
package adapterutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/adapters/api"
)

// ErrNotConfigured marks an adapter whose platform credentials are missing.
var ErrNotConfigured = errors.New("platform client not configured")

// Error is a platform failure with the HTTP status the adapter should answer with.
type Error struct {
	Status int
	// VendorCode is the platform's own error id, relayed to the caller.
	VendorCode int
	Message    string
}

func (e *Error) Error() string {
	if e.VendorCode != 0 {
		return fmt.Sprintf("platform error %d: %s", e.VendorCode, e.Message)
	}
	return e.Message
}

// NewError creates an Error.
func NewError(status int, vendorCode int, format string, args ...any) *Error {
	return &Error{Status: status, VendorCode: vendorCode, Message: fmt.Sprintf(format, args...)}
}

// WriteError answers with the api.ErrorResponse for err. Unknown errors are 502.
func WriteError(c echo.Context, log *slog.Logger, err error) error {
	var pe *Error
	switch {
	case errors.As(err, &pe):
	case errors.Is(err, ErrNotConfigured):
		pe = &Error{Status: http.StatusServiceUnavailable, Message: err.Error()}
	default:
		pe = &Error{Status: http.StatusBadGateway, Message: err.Error()}
	}
	if log != nil && pe.Status >= 500 {
		log.Warn("platform call failed",
			slog.String("path", c.Path()),
			slog.Int("status", pe.Status),
			slog.Int("vendor_code", pe.VendorCode),
			slog.String("message", pe.Message),
		)
	}
	return c.JSON(pe.Status, api.ErrorResponse{Message: pe.Message, ErrorID: pe.VendorCode})
}

// BadRequest answers 400 with msg.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: msg})
}

// WriteResult answers a mutating call.
func WriteResult(c echo.Context, applied bool) error {
	res := api.ResultResponse{Result: api.ResultApplied}
	if !applied {
		res.Result = api.ResultAlready
	}
	return c.JSON(http.StatusOK, res)
}
