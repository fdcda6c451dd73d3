// Package upstream has the pieces shared by the converter and store clients.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfrelay/internal/domain"
)

const maxDetailLen = 200

// NewHTTPClient returns the fasthttp-backed client used for outbound calls.
func NewHTTPClient() *fiber.Client {
	return &fiber.Client{
		UserAgent:   "pdfrelay",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	}
}

// Timeout picks the tighter of the configured timeout and the context
// deadline. Zero means no explicit timeout.
func Timeout(ctx context.Context, configured time.Duration) time.Duration {
	d := configured
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			left = time.Millisecond
		}
		if d == 0 || left < d {
			d = left
		}
	}
	return d
}

// Do sends the request held by a and turns transport failures and non-2xx
// statuses into *domain.UpstreamError.
func Do(ctx context.Context, service string, a *fiber.Agent, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return nil, &domain.UpstreamError{Service: service, Err: err}
	}
	if d := Timeout(ctx, timeout); d > 0 {
		a.Timeout(d)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, &domain.UpstreamError{Service: service, Err: errors.Join(errs...)}
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, &domain.UpstreamError{Service: service, StatusCode: code, Detail: Detail(body)}
	}
	return body, nil
}

// Detail extracts a human readable reason from an upstream error body.
func Detail(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error_summary", "error", "message"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return truncate(s)
			}
		}
		if nested, ok := payload["error"].(map[string]any); ok {
			if s, ok := nested[".tag"].(string); ok {
				return truncate(s)
			}
		}
		return ""
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) > maxDetailLen {
		return s[:maxDetailLen] + "..."
	}
	return s
}
