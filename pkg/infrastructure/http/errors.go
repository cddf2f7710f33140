// Package httputil provides HTTP error handling for backend calls.
package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxErrorBodySize is the maximum size of error body to include in error messages
const MaxErrorBodySize = 500

// HTTPError is a non-2xx backend response with its (truncated) body.
type HTTPError struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	target := e.URL
	if e.Method != "" {
		target = e.Method + " " + target
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: %s (status %d): %s", target, e.Status, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s (status %d)", target, e.Status, e.StatusCode)
}

// IsStatus reports whether err wraps an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ParseErrorResponse returns an *HTTPError for 4xx/5xx responses and nil
// otherwise. The body is re-wrapped so the caller can still read it.
func ParseErrorResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	bodyStr := ""
	if err == nil && len(bodyBytes) > 0 {
		bodyStr = truncate(string(bodyBytes), MaxErrorBodySize)
	}

	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       bodyStr,
	}
	if resp.Request != nil {
		httpErr.Method = resp.Request.Method
		httpErr.URL = resp.Request.URL.String()
	}
	return httpErr
}

// DecodeJSON checks the status of resp, then decodes its body into v and
// returns the raw body for debug logging. The body is always closed.
func DecodeJSON(resp *http.Response, v interface{}) ([]byte, error) {
	if err := ParseErrorResponse(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return body, fmt.Errorf("decode response body: %w", err)
	}
	return body, nil
}
