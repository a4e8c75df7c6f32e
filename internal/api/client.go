// Package api provides HTTP client functionality for the FortiGate REST API.
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 32 << 20

// ErrInvalidJSON is returned when a successful response does not carry a JSON document.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// StatusError reports a response with a status other than 200 OK.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// sharedTransport is reused by every client so connections to the same
// appliance are pooled across categories.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 8,
	IdleConnTimeout:     30 * time.Second,
	TLSHandshakeTimeout: 5 * time.Second,
	// Appliances ship self-signed management certificates.
	TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
}

// Client talks to the management API of one appliance at one address.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for baseURL that authenticates every request
// with the given bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
				Base:   sharedTransport,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the absolute URL for an API path.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Probe performs the liveness check. It returns nil only for a 200 answer.
// The deadline is taken from ctx.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.get(ctx, types.StatusPath)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Fetch retrieves path and returns the verbatim body of a 200 response.
// Non-200 answers yield a *StatusError and bodies that are not JSON yield
// ErrInvalidJSON.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) handleAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
