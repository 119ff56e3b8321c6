// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// IntQueryParam reads a non-negative integer query parameter. A missing or
// blank parameter yields def.
func IntQueryParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: must be an integer", name)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s parameter: must not be negative", name)
	}
	return value, nil
}
