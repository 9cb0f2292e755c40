package util

import "strconv"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxResultWindow matches the Elasticsearch index.max_result_window default.
	MaxResultWindow = 10000
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate turns a 1-based page and a size into an offset and a limit.
// Pages past the result window are clamped to the last reachable one.
func Calculate(page, size int) (from, limit int) {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if last := MaxResultWindow / size; page > last {
		page = last
	}
	return (page - 1) * size, size
}
