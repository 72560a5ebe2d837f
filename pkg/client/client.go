// Package client provides HTTP access to the ESG backend services with a
// uniform error shape across all of them.
package client

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
)

const defaultTimeout = 10 * time.Second

var (
	errServiceUnavailable = errors.New("service unavailable")
)

// APIError is the uniform error produced for any non-2xx response. Data
// holds the parsed error body when the service returned one.
type APIError struct {
	Status  int
	Data    any
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// RequestOptions carries the optional correlation metadata attached to a
// request as transport-level headers or query parameters, never as body
// fields.
type RequestOptions struct {
	RequestID       string
	SourceID        string
	IngestionSource string
	APIKey          string
	Query           url.Values
}

// Client issues requests against a single service base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the service rooted at baseURL,
// e.g. http://localhost:8090/api/telemetry.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Fetch issues the request and returns the response body parsed as JSON,
// falling back to the raw text when a successful body does not parse.
// Non-2xx responses surface as *APIError.
func (c *Client) Fetch(ctx context.Context, method, path string, body any, opts *RequestOptions) (any, error) {
	status, raw, statusText, err := c.do(ctx, method, path, body, opts)
	if err != nil {
		return nil, err
	}

	parsed, parseErr := parseBody(raw)

	if status < 200 || status >= 300 {
		if parseErr != nil {
			parsed = strings.TrimSpace(string(raw))
		}

		return nil, apiError(status, parsed, statusText)
	}

	if parseErr != nil {
		// Successful response with a non-JSON body: the raw text is the result.
		return strings.TrimSpace(string(raw)), nil
	}

	return parsed, nil
}

// FetchInto behaves like Fetch but decodes a successful JSON body into out.
func (c *Client) FetchInto(ctx context.Context, method, path string, body, out any, opts *RequestOptions) error {
	status, raw, statusText, err := c.do(ctx, method, path, body, opts)
	if err != nil {
		return err
	}

	if status < 200 || status >= 300 {
		parsed, parseErr := parseBody(raw)
		if parseErr != nil {
			parsed = strings.TrimSpace(string(raw))
		}

		return apiError(status, parsed, statusText)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts *RequestOptions) (status int, raw []byte, statusText string, err error) {
	var reader io.Reader

	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return 0, nil, "", fmt.Errorf("failed to marshal request body: %w", merr)
		}

		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if opts != nil && len(opts.Query) > 0 {
		u += "?" + opts.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	setOptionHeaders(req, opts)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure: no response, no status.
		return 0, nil, "", fmt.Errorf("%w: %w", errServiceUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, raw, http.StatusText(resp.StatusCode), nil
}

func setOptionHeaders(req *http.Request, opts *RequestOptions) {
	if opts == nil {
		return
	}

	if opts.RequestID != "" {
		req.Header.Set("X-Request-ID", opts.RequestID)
	}

	if opts.SourceID != "" {
		req.Header.Set("X-Source-ID", opts.SourceID)
	}

	if opts.IngestionSource != "" {
		req.Header.Set("X-Ingestion-Source", opts.IngestionSource)
	}

	if opts.APIKey != "" {
		req.Header.Set("X-API-KEY", opts.APIKey)
	}
}

func parseBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	return parsed, nil
}

// apiError builds the uniform error: message priority is the nested
// error.message, then a string error field, then a top-level message,
// then the transport status text.
func apiError(status int, data any, statusText string) *APIError {
	msg := statusText

	if m, ok := data.(map[string]any); ok {
		switch e := m["error"].(type) {
		case map[string]any:
			if s, ok := e["message"].(string); ok && s != "" {
				return &APIError{Status: status, Data: data, Message: s}
			}
		case string:
			if e != "" {
				return &APIError{Status: status, Data: data, Message: e}
			}
		}

		if s, ok := m["message"].(string); ok && s != "" {
			msg = s
		}
	}

	return &APIError{Status: status, Data: data, Message: msg}
}

// AsAPIError unwraps err to an *APIError if one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}
