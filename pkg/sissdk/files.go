package sissdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Upload posts a multipart form with one file part plus optional extra
// fields. The form is buffered so the single auth-recovery replay can
// re-send it; uploads are never retried at the transport level.
func (c *Client) Upload(ctx context.Context, path, fileName string, file io.Reader, fields map[string]string) (*Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("build multipart form: %v", err), cause: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("read upload source: %v", err), cause: err}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("build multipart form: %v", err), cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("build multipart form: %v", err), cause: err}
	}

	return c.execute(ctx, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType(), Options{}, true)
}

// Download streams a GET response body into w, bypassing the JSON envelope.
// A 401 is recovered once, like any other call.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) error {
	tokenUsed := c.AccessToken()
	resp, err := c.stream(ctx, path, tokenUsed)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.canRecover() {
		resp.Body.Close()
		if rerr := c.recoverAuth(ctx, tokenUsed); rerr != nil {
			return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: "download unauthorized"}
		}
		if resp, err = c.stream(ctx, path, c.AccessToken()); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return parseError(resp.StatusCode, body)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return networkError(err)
	}
	return nil
}

func (c *Client) stream(ctx context.Context, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, networkError(err)
	}
	c.setHeaders(req, "", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	return resp, nil
}
