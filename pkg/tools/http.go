package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lyzr/orchestrator/pkg/httpsec"
)

// HTTPFetch is a built-in tool node kinds can call to issue an outbound
// HTTP request, guarded by httpsec's SSRF validator, adapted from
// cmd/http-worker's fetch handler.
type HTTPFetch struct {
	client    *http.Client
	validator *httpsec.URLValidator
}

// NewHTTPFetch returns an HTTPFetch tool with a bounded request timeout.
func NewHTTPFetch(timeout time.Duration) *HTTPFetch {
	return &HTTPFetch{
		client:    &http.Client{Timeout: timeout},
		validator: httpsec.NewURLValidator(),
	}
}

func (t *HTTPFetch) Name() string { return "http_fetch" }

// Run expects args: url (string, required), method (string, default GET),
// body (string, optional), headers (map[string]any, optional).
func (t *HTTPFetch) Run(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http_fetch: url is required")
	}
	if err := t.validator.Validate(url); err != nil {
		return nil, fmt.Errorf("http_fetch: %w", err)
	}

	method, _ := args["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if b, ok := args["body"].(string); ok && b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("http_fetch: building request: %w", err)
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http_fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBody = 1 << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("http_fetch: reading response: %w", err)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     flattenHeaders(resp.Header),
		"body":        string(data),
	}, nil
}

func flattenHeaders(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func (t *HTTPFetch) InputSchema() map[string]string {
	return map[string]string{"url": "string", "method": "string", "body": "string", "headers": "object"}
}

func (t *HTTPFetch) OutputSchema() map[string]string {
	return map[string]string{"status_code": "int", "headers": "object", "body": "string"}
}
