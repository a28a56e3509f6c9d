// Package apiclient calls the checkclass HTTP API on behalf of the command line client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"checkclass/internal/domain"
)

// Client calls the session store API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token is the bearer access token sent with every request when set.
	Token string
}

// New creates a client with configurable timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

// errorFor turns an error response into a domain error of the matching kind.
func errorFor(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	msg := http.StatusText(status)
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	kind := domain.ErrPersistence
	switch status {
	case http.StatusNotFound:
		kind = domain.ErrNotFound
	case http.StatusGone:
		kind = domain.ErrExpired
	case http.StatusBadRequest:
		kind = domain.ErrValidation
	case http.StatusConflict:
		kind = domain.ErrConflict
	case http.StatusForbidden:
		kind = domain.ErrPermission
	case http.StatusUnauthorized:
		kind = domain.ErrUnauthenticated
	}
	return &domain.Error{Kind: kind, Msg: msg}
}

// ErrUnreachable wraps transport failures, so callers can fall back to the local cache.
var ErrUnreachable = errors.New("api unreachable")

func (c *Client) request(ctx context.Context, method, path string, query url.Values, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, errorFor(resp.StatusCode, b)
	}
	return resp, nil
}

// do sends in as JSON and decodes the response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	resp, err := c.request(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// download streams a binary response body into w and returns the server-chosen file name.
func (c *Client) download(ctx context.Context, path string, query url.Values, w io.Writer) (string, error) {
	resp, err := c.request(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	return fileName(resp.Header.Get("Content-Disposition")), nil
}
