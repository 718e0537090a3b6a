// Package command sends service calls to the upstream automation host: dismissing and restoring
// Trafikinfo events, and the call-service action of a card.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/interaction"
)

// ErrDispatchFailed is returned when the command could not be delivered or was rejected.
var ErrDispatchFailed = errors.New("command dispatch failed")

// Services of the Trafikinfo integration.
const (
	Domain         = "trafikinfo_se"
	ServiceDismiss = "dismiss_event"
	ServiceRestore = "restore_events"
)

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
}

// Client posts service calls as JSON to "<base>/api/services/<domain>/<service>".
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger
}

// NewClient creates a Client. token is sent as a bearer token when set.
func NewClient(baseURL, token string, logger Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Dismiss implements interaction.Commander.
func (c *Client) Dismiss(ctx context.Context, req interaction.DismissRequest) error {
	data := map[string]any{
		"entry_id":  req.EntryID,
		"event_key": req.EventKey,
	}
	if req.Signature != "" {
		data["signature"] = req.Signature
	}
	return c.CallService(ctx, Domain, ServiceDismiss, data)
}

// RestoreAll implements interaction.Commander.
func (c *Client) RestoreAll(ctx context.Context, entryID string) error {
	return c.CallService(ctx, Domain, ServiceRestore, map[string]any{"entry_id": entryID})
}

// CallService invokes domain.service with data. The response body is not used.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: no command URL configured", ErrDispatchFailed)
	}
	if domain == "" || service == "" {
		return fmt.Errorf("%w: invalid service %q", ErrDispatchFailed, domain+"."+service)
	}

	if data == nil {
		data = map[string]any{}
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode service data: %w", err)
	}

	serviceURL := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, url.PathEscape(domain), url.PathEscape(service))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Success
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: authentication error (HTTP 401)", ErrDispatchFailed)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: bad request (HTTP 400) for %s.%s", ErrDispatchFailed, domain, service)
	default:
		return fmt.Errorf("%w: unexpected HTTP status %d", ErrDispatchFailed, resp.StatusCode)
	}

	if c.logger != nil {
		c.logger.Debug("Service called", "domain", domain, "service", service)
	}
	return nil
}
