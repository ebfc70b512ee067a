package bitbucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// HealthStatus summarizes whether the server is reachable and whether the
// configured credential is accepted.
type HealthStatus struct {
	Healthy       bool   `json:"healthy"`
	StatusCode    int    `json:"status_code"`
	Authenticated bool   `json:"authenticated"`
	Version       string `json:"version,omitempty"`
	Message       string `json:"message"`
}

// Health probes the server with a minimal project listing and classifies
// the outcome. An authentication failure still counts as reachable: the
// server answered, the credential did not.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	query := url.Values{}
	query.Set("limit", "1")
	var probe json.RawMessage
	err := c.get(ctx, apiBase+"/projects", query, &probe)
	if err == nil {
		status := HealthStatus{
			Healthy:       true,
			StatusCode:    200,
			Authenticated: true,
			Message:       "Bitbucket API reachable and authenticated",
		}
		if props, infoErr := c.ServerInfo(ctx); infoErr == nil && props.Version != nil {
			status.Version = *props.Version
		}
		return status, nil
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return HealthStatus{
			Healthy:       true,
			StatusCode:    authErr.StatusCode,
			Authenticated: false,
			Message:       "Bitbucket reachable but credentials are missing or insufficient",
		}, nil
	}
	return HealthStatus{}, fmt.Errorf("health probe failed: %w", err)
}

// ServerInfo fetches the server's build information.
func (c *Client) ServerInfo(ctx context.Context) (*ApplicationProperties, error) {
	var props ApplicationProperties
	if err := c.get(ctx, apiBase+"/application-properties", nil, &props); err != nil {
		return nil, err
	}
	return &props, nil
}
