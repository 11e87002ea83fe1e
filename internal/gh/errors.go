package gh

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GitHub API error: %d - %s", e.StatusCode, e.Message)
}

// RateLimitError is a 403 caused by an exhausted rate limit. It carries
// the reset time from the X-RateLimit-Reset header so callers can tell
// the user when to retry.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "GitHub API rate limit exceeded"
	}
	return fmt.Sprintf("GitHub API rate limit exceeded, resets at %s", e.ResetAt.Local().Format(time.RFC1123))
}

// responseError converts a non-2xx response into an APIError, or a
// RateLimitError when the rate-limit headers say the quota is spent.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		var resetAt time.Time
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
				resetAt = time.Unix(unix, 0)
			}
		}
		return &RateLimitError{ResetAt: resetAt}
	}

	message := ""
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		message = payload.Message
	}
	if message == "" {
		message = string(body)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
