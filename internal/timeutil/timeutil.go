// Package timeutil converts between the two time representations
// FleetTools uses: 64-bit milliseconds-since-epoch in the database and
// ISO-8601 strings at API boundaries (spec §4.1).
package timeutil

import "time"

// ToMillis converts t to milliseconds since the Unix epoch, UTC.
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis converts ms milliseconds since the Unix epoch into a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ToISO8601 formats t as an ISO-8601 / RFC3339 string with millisecond precision, UTC.
func ToISO8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FromISO8601 parses an ISO-8601 / RFC3339 string into a UTC time.
func FromISO8601(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// MillisToISO8601 converts ms directly to its ISO-8601 representation.
func MillisToISO8601(ms int64) string {
	return ToISO8601(FromMillis(ms))
}

// AddMillis adds a millisecond duration to t without local-time ambiguity.
func AddMillis(t time.Time, ms int64) time.Time {
	return t.UTC().Add(time.Duration(ms) * time.Millisecond)
}

// ExpiresAt computes reserved-at/acquired-at + ttl as a UTC time.
func ExpiresAt(from time.Time, ttl time.Duration) time.Time {
	return from.UTC().Add(ttl)
}

// IsExpired reports whether expiresAt has passed relative to now.
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
