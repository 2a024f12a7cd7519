package domain

import "time"

// Timestamp normalises t to UTC at microsecond precision, the resolution
// PostgreSQL keeps for TIMESTAMPTZ columns.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Now returns the current time as Timestamp would store it.
func Now() time.Time {
	return Timestamp(time.Now())
}
