package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// GetRoutePattern resolves the chi route pattern of the request so metrics are labeled by
// route template instead of raw path.
func GetRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}

	routePath := r.URL.Path
	if r.URL.RawPath != "" {
		routePath = r.URL.RawPath
	}

	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, routePath) {
		return "undefined"
	}

	// tctx has the updated pattern, since Match mutates it
	return tctx.RoutePattern()
}

// ExponentialBackoffInSeconds returns 2^retries seconds. It returns an error when retries is
// outside [0, 32].
func ExponentialBackoffInSeconds(retries int) (time.Duration, error) {
	if retries < 0 || retries > 32 {
		return 0, fmt.Errorf("retries must be in [0, 32], got %d", retries)
	}
	return time.Duration(1<<retries) * time.Second, nil
}

// ConvertType converts a value between two types through its JSON representation. Used to
// decode the generic message Data payload into its typed schema.
func ConvertType[S any, D any](src S) (D, error) {
	var dst D

	srcJSON, err := json.Marshal(src)
	if err != nil {
		return dst, fmt.Errorf("marshalling source value: %w", err)
	}

	if err = json.Unmarshal(srcJSON, &dst); err != nil {
		return dst, fmt.Errorf("unmarshalling into %T: %w", dst, err)
	}

	return dst, nil
}

// TruncateString returns str capped at maxLength characters. The cut lands on a rune
// boundary, so multi-byte characters are dropped whole rather than split into invalid UTF-8.
func TruncateString(str string, maxLength int) string {
	if maxLength < 0 {
		return str
	}
	runes := []rune(str)
	if len(runes) > maxLength {
		return string(runes[:maxLength])
	}
	return str
}

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to the given time.
func TimePtr(t time.Time) *time.Time {
	return &t
}
