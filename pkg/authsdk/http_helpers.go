package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// payload is a request body with its content type.
type payload struct {
	r           io.Reader
	contentType string
}

// jsonPayload encodes v as a JSON request body.
func jsonPayload(v any) (*payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return &payload{r: bytes.NewReader(b), contentType: "application/json"}, nil
}

// roundTrip sends one request and returns the status and raw body. token is
// sent as a bearer credential when set.
func (c *SDKClient) roundTrip(ctx context.Context, method, path, token string, body *payload) (*http.Response, []byte, error) {
	var r io.Reader
	if body != nil {
		r = body.r
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, raw, nil
}

// call performs a request and decodes a 200 body into out. Any other
// status becomes an *APIError.
func (c *SDKClient) call(ctx context.Context, method, path, token string, body *payload, out any) error {
	resp, raw, err := c.roundTrip(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		if err := parseErrorResponse(resp, raw); err != nil {
			return err
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postJSON is call for the unauthenticated JSON endpoints.
func (c *SDKClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := jsonPayload(in)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, path, "", body, out)
}

// call is SDKClient.call with the session's access token, refreshed first
// when it has expired.
func (s *Session) call(ctx context.Context, method, path string, body *payload, out any) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return s.client.call(ctx, method, path, token, body, out)
}
