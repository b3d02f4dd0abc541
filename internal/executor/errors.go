package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is an unexpected HTTP status from an adapter.
type StatusError struct {
	Code    int
	Message string
	// VendorCode is the platform error id relayed by the adapter, if any.
	VendorCode int
}

func (e *StatusError) Error() string {
	if e.VendorCode != 0 {
		return fmt.Sprintf("adapter returned %d (vendor error %d): %s", e.Code, e.VendorCode, e.Message)
	}
	return fmt.Sprintf("adapter returned %d: %s", e.Code, e.Message)
}

// ErrNotConfigured marks an executor with no adapter URL.
var ErrNotConfigured = errors.New("adapter not configured")

// Classify turns an error from a downstream call into a failed or unavailable Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return Applied()
	}
	if errors.Is(err, ErrNotConfigured) {
		return Unavailable(err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Failed(FailureTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Failed(FailureTimeout, err.Error())
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusServiceUnavailable {
			o := Unavailable(statusErr.Message)
			o.HTTPStatus = statusErr.Code
			return o
		}
		kind := FailureStatus
		if statusErr.VendorCode != 0 {
			kind = FailureVendor
		}
		o := Failed(kind, statusErr.Message)
		o.HTTPStatus = statusErr.Code
		o.VendorCode = statusErr.VendorCode
		return o
	}
	return Failed(FailureTransport, err.Error())
}
