package executor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/guildsync/guildsync/internal/adapters/api"
)

// TeamSpeak ServerQuery error ids that mean the requested state already holds.
const (
	TS3ErrDuplicateEntry = 2561
	TS3ErrEmptyResultSet = 1281
)

// TeamSpeakClient is the VoiceServer executor backed by the TeamSpeak adapter.
type TeamSpeakClient struct {
	client jsonClient
}

// NewTeamSpeakClient creates a client for the TeamSpeak adapter at baseURL.
// An empty baseURL yields Unavailable outcomes.
func NewTeamSpeakClient(baseURL string, httpClient *http.Client) *TeamSpeakClient {
	return &TeamSpeakClient{client: newJSONClient(baseURL, httpClient)}
}

// AddToGroup adds uniqueID to groupID. A duplicate-entry vendor error means it already was a member.
func (c *TeamSpeakClient) AddToGroup(ctx context.Context, uniqueID, groupID string) Outcome {
	if strings.TrimSpace(uniqueID) == "" || strings.TrimSpace(groupID) == "" {
		return Failed(FailureInvalid, "unique id and group id are required")
	}
	var res api.ResultResponse
	path := "/groups/" + url.PathEscape(groupID) + "/members"
	err := c.client.do(ctx, http.MethodPost, path, api.MemberRequest{UniqueID: uniqueID}, &res)
	if err != nil {
		if vendorCode(err) == TS3ErrDuplicateEntry {
			return Already("already a member of the group")
		}
		return Classify(err)
	}
	return resultOutcome(res)
}

// RemoveFromGroup removes uniqueID from groupID. An empty-result-set vendor error means it was not a member.
func (c *TeamSpeakClient) RemoveFromGroup(ctx context.Context, uniqueID, groupID string) Outcome {
	if strings.TrimSpace(uniqueID) == "" || strings.TrimSpace(groupID) == "" {
		return Failed(FailureInvalid, "unique id and group id are required")
	}
	var res api.ResultResponse
	path := "/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(uniqueID)
	err := c.client.do(ctx, http.MethodDelete, path, nil, &res)
	if err != nil {
		if vendorCode(err) == TS3ErrEmptyResultSet {
			return Already("not a member of the group")
		}
		return Classify(err)
	}
	return resultOutcome(res)
}

func vendorCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.VendorCode
	}
	return 0
}
