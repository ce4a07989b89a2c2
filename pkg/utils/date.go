package utils

import "time"

// TimeNowUTC returns the current time normalized to UTC.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// ToUTC normalizes t to UTC, substituting now for the zero time.
func ToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return TimeNowUTC()
	}
	return t.UTC()
}
