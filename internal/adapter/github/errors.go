package github

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
)

// statusTransport turns HTTP-level rejections into gateway error kinds
// before the GraphQL client sees the response, and asks GitHub for the
// current global node ID format.
type statusTransport struct {
	base http.RoundTripper
}

func newStatusTransport(base http.RoundTripper) *statusTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &statusTransport{base: base}
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Github-Next-Global-ID", "1")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", portgateway.ErrTransport, err)
	}

	kind := statusKind(resp)
	if kind == nil {
		return resp, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return nil, fmt.Errorf("%w: %s: %s", kind, resp.Status, strings.TrimSpace(string(body)))
}

func statusKind(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return portgateway.ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		return portgateway.ErrRateLimit
	case resp.StatusCode == http.StatusForbidden:
		// Secondary rate limits come back as 403 with Retry-After.
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "" {
			return portgateway.ErrRateLimit
		}
		return portgateway.ErrAuth
	case resp.StatusCode >= 500:
		return portgateway.ErrTransport
	}
	return nil
}

// classify wraps err with the gateway kind it represents.
func classify(op string, err error) error {
	if portgateway.IsKind(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	var kind error
	switch {
	case strings.Contains(msg, "Could not resolve to"):
		kind = portgateway.ErrNotFound
	case strings.Contains(lower, "rate limit") || strings.Contains(msg, "RATE_LIMITED"):
		kind = portgateway.ErrRateLimit
	case strings.Contains(msg, "doesn't exist in any of") || strings.Contains(msg, "cannot unmarshal"):
		kind = portgateway.ErrSchema
	default:
		kind = portgateway.ErrTransport
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func kindError(op string, kind error, detail string) error {
	return fmt.Errorf("%s: %w: %s", op, kind, detail)
}
