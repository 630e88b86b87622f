package shared

import (
	"net/http"
	"strconv"
	"strings"

	"leaveportal/internal/platform/apiclient"
)

// ParsePagination reads zero-based ?page and ?size for an upstream list.
func ParsePagination(r *http.Request, defaultSize, maxSize int) apiclient.PageParams {
	size := defaultSize
	page := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			size = v
		}
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			page = v
		}
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return apiclient.PageParams{Page: page, Size: size, Sort: strings.TrimSpace(r.URL.Query().Get("sort"))}
}
