package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// EpochMillis converts t to milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// TrailingWindow returns the half-open window [end-d, end).
func TrailingWindow(end time.Time, d time.Duration) (time.Time, time.Time) {
	if d < 0 {
		d = -d
	}
	return end.Add(-d), end
}
