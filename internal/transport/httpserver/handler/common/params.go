package common

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDateParam parses a YYYY-MM-DD value as midnight in loc. An empty
// value yields nil.
func ParseDateParam(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
