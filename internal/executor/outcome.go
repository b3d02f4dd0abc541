// Package executor performs single idempotent grant/revoke calls against the
// document-storage and voice-server adapters and normalizes every result into
// an Outcome. Nothing in this package returns a downstream failure as an error.
package executor

import (
	"fmt"
)

// Status is the coarse result of one downstream call.
type Status string

const (
	StatusApplied     Status = "applied"
	StatusAlready     Status = "already_in_desired_state"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
)

// FailureKind tags why a call failed.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureTimeout   FailureKind = "timeout"
	FailureStatus    FailureKind = "status"
	FailureVendor    FailureKind = "vendor"
	FailureInvalid   FailureKind = "invalid"
	FailureInternal  FailureKind = "internal"
)

// Outcome is the normalized result of one downstream call.
type Outcome struct {
	Status     Status      `json:"status"`
	Kind       FailureKind `json:"kind,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	HTTPStatus int         `json:"http_status,omitempty"`
	VendorCode int         `json:"vendor_code,omitempty"`
}

// Applied reports that the call changed downstream state.
func Applied() Outcome { return Outcome{Status: StatusApplied} }

// Already reports that the downstream state already matched the request.
func Already(reason string) Outcome { return Outcome{Status: StatusAlready, Reason: reason} }

// Unavailable reports that the downstream service could not be reached in a
// meaningful way, e.g. it is not configured or not authenticated.
func Unavailable(reason string) Outcome { return Outcome{Status: StatusUnavailable, Reason: reason} }

// Failed reports a failed call.
func Failed(kind FailureKind, reason string) Outcome {
	return Outcome{Status: StatusFailed, Kind: kind, Reason: reason}
}

// Succeeded is true for Applied and Already.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusApplied || o.Status == StatusAlready
}

// Retryable is true for failures that may clear on their own.
func (o Outcome) Retryable() bool {
	if o.Status != StatusFailed {
		return false
	}
	switch o.Kind {
	case FailureTransport:
		return true
	case FailureStatus:
		return o.HTTPStatus >= 500 || o.HTTPStatus == 429
	default:
		return false
	}
}

func (o Outcome) String() string {
	switch {
	case o.Status == StatusFailed && o.Reason != "":
		return fmt.Sprintf("%s(%s: %s)", o.Status, o.Kind, o.Reason)
	case o.Status == StatusFailed:
		return fmt.Sprintf("%s(%s)", o.Status, o.Kind)
	case o.Reason != "":
		return fmt.Sprintf("%s(%s)", o.Status, o.Reason)
	default:
		return string(o.Status)
	}
}
