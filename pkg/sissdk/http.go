package sissdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const jsonContentType = "application/json"

// Options tweak a single request.
type Options struct {
	// Query parameters appended to the request URL.
	Query url.Values

	// AllowRetry opts this request into the transport retry policy even
	// though its method is not idempotent. Use only when the endpoint
	// tolerates duplicate submission.
	AllowRetry bool
}

// Do performs one logical API call and decodes the response envelope.
// Authentication expiry is recovered transparently; every other failure
// comes back as a typed *Error.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	return c.DoOpts(ctx, method, path, body, Options{})
}

// DoOpts is Do with per-request options.
func (c *Client) DoOpts(ctx context.Context, method, path string, body any, opts Options) (*Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("encode request body: %v", err), cause: err}
		}
		payload = b
	}
	return c.execute(ctx, method, path, payload, jsonContentType, opts, true)
}

// Get issues a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.DoOpts(ctx, http.MethodGet, path, nil, Options{Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete issues a DELETE request. body may be nil; bulk endpoints take one.
func (c *Client) Delete(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, body)
}

// execute is the bounded send loop behind every call: transport retries per
// the retry policy, plus at most one refresh and one re-login per call.
// Recovery is an explicit flag and counter, never recursion, so termination
// is structural.
func (c *Client) execute(
	ctx context.Context,
	method, path string,
	payload []byte,
	contentType string,
	opts Options,
	allowAuthRecovery bool,
) (*Response, error) {
	if allowAuthRecovery {
		c.refreshAhead(ctx)
	}

	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	transportRetryable := opts.AllowRetry || isIdempotent(method)

	authRecovered := false
	var lastNetErr *Error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return nil, networkError(err)
			}
		}

		// Capture the token the attempt will carry: it keys the
		// single-flight recovery if the server rejects it.
		tokenUsed := c.AccessToken()

		status, respBody, err := c.send(ctx, method, path, payload, contentType, opts.Query, tokenUsed)
		if err != nil {
			lastNetErr = networkError(err)
			if !transportRetryable {
				return nil, lastNetErr
			}
			c.log.Debug("transport failure",
				"method", method, "path", path,
				"attempt", attempt+1, "error", err,
			)
			continue
		}

		if status == http.StatusUnauthorized && allowAuthRecovery && !authRecovered && c.canRecover() {
			authRecovered = true
			if rerr := c.recoverAuth(ctx, tokenUsed); rerr == nil {
				// Replay exactly once with the rotated token.
				status2, body2, err2 := c.send(ctx, method, path, payload, contentType, opts.Query, c.AccessToken())
				if err2 != nil {
					return nil, networkError(err2)
				}
				status, respBody = status2, body2
			} else {
				c.log.Debug("auth recovery failed, surfacing original 401", "error", rerr)
			}
		}

		if status >= 200 && status < 300 {
			return parseEnvelope(status, respBody), nil
		}
		return nil, parseError(status, respBody)
	}

	return nil, lastNetErr
}

// send performs a single HTTP round trip and drains the body.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	payload []byte,
	contentType string,
	query url.Values,
	token string,
) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	c.setHeaders(req, contentType, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// setHeaders attaches auth, tenant and content headers. The token is passed
// in explicitly so a replay after recovery carries the rotated one.
func (c *Client) setHeaders(req *http.Request, contentType, token string) {
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" && req.Body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-Slug", c.tenant)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// sleepBackoff waits before retry number attempt (1-based past the first
// send), honoring cancellation.
func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := c.retry.Backoff
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	if c.retry.Exponential {
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseEnvelope decodes a 2xx body. Endpoints answering 204 or non-envelope
// payloads degrade to a raw-data response rather than an error.
func parseEnvelope(status int, body []byte) *Response {
	resp := &Response{Status: status, Success: true}
	if len(body) == 0 {
		return resp
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		resp.Data = body
		return resp
	}

	resp.Success = env.Success || env.Data != nil
	resp.Message = env.Message
	resp.Data = env.Data
	resp.Pagination = env.Pagination
	return resp
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// mustJSON marshals bodies whose encoding cannot fail (string maps).
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
