package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"leaveportal/internal/platform/metrics"
	"leaveportal/internal/requestctx"
)

const maxErrorBodyBytes = 64 * 1024

// Paths that never carry a bearer token.
var publicPaths = map[string]struct{}{
	"/auth/login":           {},
	"/auth/register":        {},
	"/auth/verify-2fa":      {},
	"/auth/public/register": {},
}

func IsPublic(path string) bool {
	_, ok := publicPaths[normalizePath(path)]
	return ok
}

type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Collector
}

func New(baseURL string, timeout time.Duration, collector *metrics.Collector) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		metrics: collector,
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// FilePart is an upload attached to a multipart request.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Blob is a binary response; the caller closes Body.
type Blob struct {
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}

// Raw receives the whole response body, envelope included.
type Raw []byte

// JSON sends in (if non-nil) as a JSON body and decodes the envelope's data
// into out (if non-nil).
func (c *Client) JSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	resp, err := c.do(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeInto(resp.Body, out)
}

// Multipart sends fields and an optional file as multipart/form-data.
func (c *Client) Multipart(ctx context.Context, method, path string, query url.Values, fields map[string]string, file *FilePart, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("encode field %s: %w", key, err)
		}
	}
	if file != nil && len(file.Data) > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.FileName))
		header.Set("Content-Type", file.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("encode file: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("encode file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("encode multipart: %w", err)
	}

	resp, err := c.do(ctx, method, path, query, &buf, writer.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeInto(resp.Body, out)
}

// Download fetches a binary resource.
func (c *Client) Download(ctx context.Context, path string, query url.Values) (*Blob, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, err
	}
	return &Blob{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// Ping checks that the API answers at all; any HTTP status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/actuator/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	path = normalizePath(path)
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if reqID := requestctx.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	public := IsPublic(path)
	store, hasStore := requestctx.GetTokenStore(ctx)
	if !public && hasStore {
		if token := store.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("api call failed", "method", method, "path", path, "err", err, "requestId", requestctx.GetRequestID(ctx))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.metrics.RecordUpstream(resp.StatusCode, time.Since(start))
	slog.Debug("api call", "method", method, "path", path, "status", resp.StatusCode,
		"durationMs", time.Since(start).Milliseconds(), "requestId", requestctx.GetRequestID(ctx))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !public {
		if hasStore {
			store.ClearToken()
		}
		return nil, ErrUnauthorized
	}
	return nil, decodeAPIError(resp.StatusCode, raw)
}

// decodeInto unwraps the {message,status,data} envelope when present and
// decodes the payload into out.
func decodeInto(r io.Reader, out any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if out == nil {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if dst, ok := out.(*Raw); ok {
		*dst = append((*dst)[:0], raw...)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	payload := raw
	if data, ok := envelopeData(raw); ok {
		payload = data
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func envelopeData(raw []byte) (json.RawMessage, bool) {
	if raw[0] != '{' {
		return nil, false
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false
	}
	data, hasData := envelope["data"]
	if !hasData {
		return nil, false
	}
	_, hasStatus := envelope["status"]
	_, hasMessage := envelope["message"]
	_, hasSuccess := envelope["success"]
	if !hasStatus && !hasMessage && !hasSuccess {
		return nil, false
	}
	return data, true
}

func normalizePath(path string) string {
	cleaned := strings.TrimSpace(path)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
