package mapper

import (
	"strings"
	"time"
)

// instantLayouts are the textual date formats accepted across upstream API
// versions, tried in order.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
}

// dateOnlyLayout is the canonical deadline format.
const dateOnlyLayout = "2006-01-02"

// ParseInstant parses a date string in any known format and returns it in
// UTC. Reports false for empty or unparsable input.
func ParseInstant(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// NormalizeInstant parses a date string and renders it as an ISO-8601 UTC
// instant. Reports false when the input cannot be parsed.
func NormalizeInstant(value string) (string, bool) {
	t, ok := ParseInstant(value)
	if !ok {
		return "", false
	}
	return t.Format(time.RFC3339), true
}

// NormalizeDateOnly parses a date string and renders the date-only form used
// for deadlines. Reports false when the input cannot be parsed.
func NormalizeDateOnly(value string) (string, bool) {
	t, ok := ParseInstant(value)
	if !ok {
		return "", false
	}
	return t.Format(dateOnlyLayout), true
}
