package executor

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/guildsync/guildsync/internal/adapters/api"
)

// GDriveClient is the DocumentStorage executor backed by the Drive adapter.
type GDriveClient struct {
	client jsonClient
}

// NewGDriveClient creates a client for the Drive adapter at baseURL.
// An empty baseURL yields Unavailable outcomes.
func NewGDriveClient(baseURL string, httpClient *http.Client) *GDriveClient {
	return &GDriveClient{client: newJSONClient(baseURL, httpClient)}
}

// Grant gives email the permission level on itemID. 409 means the grant already holds.
func (c *GDriveClient) Grant(ctx context.Context, email, itemID, level string) Outcome {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(itemID) == "" {
		return Failed(FailureInvalid, "email and item id are required")
	}
	var res api.ResultResponse
	err := c.client.do(ctx, http.MethodPost, "/permissions", api.PermissionRequest{
		Email:  email,
		ItemID: itemID,
		Role:   level,
	}, &res)
	if err != nil {
		if isStatus(err, http.StatusConflict) {
			return Already("permission already granted")
		}
		return Classify(err)
	}
	return resultOutcome(res)
}

// Revoke removes every permission email holds on itemID. 404 means there was none.
func (c *GDriveClient) Revoke(ctx context.Context, email, itemID string) Outcome {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(itemID) == "" {
		return Failed(FailureInvalid, "email and item id are required")
	}
	var res api.ResultResponse
	err := c.client.do(ctx, http.MethodDelete, "/permissions", api.PermissionRequest{
		Email:  email,
		ItemID: itemID,
	}, &res)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return Already("permission not present")
		}
		return Classify(err)
	}
	return resultOutcome(res)
}

func isStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
