package portal

import (
	"strings"
	"time"
)

// Date layouts the portal is known to render. Separator usage varies between
// grid themes, so slash, dash, and dot variants are all tried.
var dateTimeLayouts = []string{
	"2006/01/02 15:04",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
}

var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006.01.02",
}

// parseDateTime tries all known date-time layouts against s. It returns nil
// when no layout matches; callers leave the field unset rather than failing
// the row.
func parseDateTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseDate tries the date-only layouts, then falls back to the date-time
// layouts truncated to the day.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if t := parseDateTime(s); t != nil {
		day := t.Truncate(24 * time.Hour)
		return &day
	}
	return nil
}

// splitDateCell breaks the composite date cell into bid start, open, and
// close timestamps. The portal stacks up to three timestamps in one cell,
// newline separated, in that order; lines that match no known layout leave
// the corresponding field nil.
func splitDateCell(cell string) (start, open, closeAt *time.Time) {
	lines := strings.Split(cell, "\n")
	parsed := make([]*time.Time, 0, 3)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parsed = append(parsed, parseDateTime(line))
		if len(parsed) == 3 {
			break
		}
	}
	if len(parsed) > 0 {
		start = parsed[0]
	}
	if len(parsed) > 1 {
		open = parsed[1]
	}
	if len(parsed) > 2 {
		closeAt = parsed[2]
	}
	return start, open, closeAt
}
