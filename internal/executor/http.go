package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/guildsync/guildsync/internal/adapters/api"
)

// maxErrorBody bounds how much of an error body is kept as the failure reason.
const maxErrorBody = 4 << 10

// jsonClient is the transport shared by the adapter clients.
type jsonClient struct {
	baseURL string
	http    *http.Client
}

func newJSONClient(baseURL string, client *http.Client) jsonClient {
	if client == nil {
		client = http.DefaultClient
	}
	return jsonClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    client,
	}
}

func (c jsonClient) configured() bool {
	return c.baseURL != ""
}

// do sends body as JSON and decodes a 2xx response into out. Non-2xx responses
// come back as *StatusError carrying the adapter's message and vendor code.
// The response body is always drained and closed before returning.
func (c jsonClient) do(ctx context.Context, method, path string, body, out any) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && (apiErr.Message != "" || apiErr.ErrorID != 0) {
			statusErr.Message = apiErr.Message
			statusErr.VendorCode = apiErr.ErrorID
		}
		return statusErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// resultOutcome maps an adapter ResultResponse to an Outcome.
func resultOutcome(res api.ResultResponse) Outcome {
	if res.Result == api.ResultAlready {
		return Already("adapter reported no change")
	}
	return Applied()
}
