// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the HTTP client for the knowledge-base chat backend.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors.
type ErrorType int

const (
	ErrTypeConnection ErrorType = iota
	ErrTypeHTTPStatus
	ErrTypeInvalidResponse
	ErrTypeTimeout
)

// ClientError is a typed error with an underlying cause.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparison against sentinels by error type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for errors.Is checks.
var (
	// ErrBackendUnavailable indicates the backend could not be reached.
	ErrBackendUnavailable = &ClientError{
		Type:    ErrTypeConnection,
		Message: "knowledge-base backend is not reachable",
	}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultRequestTimeout = 30 * time.Second
)

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	// Timeout applies to non-streaming requests (health checks).
	// Streaming requests have no overall deadline; cancellation comes
	// from the caller's context.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultRequestTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client communicates with the knowledge-base chat backend.
type Client struct {
	config ClientConfig

	httpClient *http.Client
	// streamClient carries no Timeout; a deadline would sever
	// long-running streams mid-answer.
	streamClient *http.Client
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with the given configuration.
// Zero-valued fields are filled with defaults.
func NewClientWithConfig(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultRequestTimeout
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// CheckRunning verifies the backend is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to build health request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "knowledge-base backend is not reachable", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ClientError{
			Type:    ErrTypeHTTPStatus,
			Message: fmt.Sprintf("backend health check returned status %d", resp.StatusCode),
		}
	}
	return nil
}

// ChatStream opens a chat stream and dispatches decoded events to the
// handler in arrival order. If the backend answers with a plain JSON
// body instead of a stream, the body is decoded once and delivered as a
// single message event. The response body is always closed.
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest, handler EventHandler) error {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to encode chat request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/stream", bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to build chat request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ClientError{Type: ErrTypeConnection, Message: "failed to reach knowledge-base backend", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp)
	}

	if !isEventStream(resp.Header.Get("Content-Type")) {
		return c.handleSingleResponse(resp.Body, handler)
	}

	parser := NewFrameParser(resp.Body)
	return parser.Process(ctx, handler)
}

// handleErrorResponse converts a non-2xx response into a ClientError.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := fmt.Sprintf("chat request failed with status %d", resp.StatusCode)
	if detail := strings.TrimSpace(string(body)); detail != "" {
		msg += ": " + detail
	}
	return &ClientError{Type: ErrTypeHTTPStatus, Message: msg}
}

// handleSingleResponse decodes a non-streamed JSON answer and delivers
// it through the same event path as a streamed message snapshot.
func (c *Client) handleSingleResponse(body io.Reader, handler EventHandler) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to read chat response", Cause: err}
	}

	// DecodeEventLine accepts both the {"type":"message"} envelope and
	// the legacy bare {content} object.
	ev, decodeErr := DecodeEventLine(raw)
	if decodeErr != nil || ev.Type != EventMessage {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "chat response is neither a stream nor a known JSON shape", Cause: decodeErr}
	}
	handler(ev)
	handler(StreamEvent{Type: EventEnd})
	return nil
}

// isEventStream reports whether a Content-Type header denotes a stream.
// Some proxies rewrite the media type, so anything that is not
// explicitly JSON is treated as a stream.
func isEventStream(contentType string) bool {
	return !strings.Contains(contentType, "application/json")
}
