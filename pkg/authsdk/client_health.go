package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetLiveness calls /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.call(ctx, http.MethodGet, "/livez", "", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness calls /readyz. A degraded service answers 503 with the same
// body, so the checks are returned alongside the *APIError.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, raw, err := c.roundTrip(ctx, http.MethodGet, "/readyz", "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := json.Unmarshal(raw, &health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return &health, nil
	}
	return &health, &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeInternal,
		Message:    "service not ready: " + health.Status,
	}
}
