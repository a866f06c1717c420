// Package clock supplies wall-clock time for ledger and snapshot rows.
package clock

import "time"

// Layout is the stored timestamp format. Fixed width UTC with nanoseconds,
// so lexical order in SQL equals chronological order.
const Layout = "2006-01-02T15:04:05.000000000Z"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System reads the host clock.
type System struct{}

// Now returns time.Now in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Format renders t in Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Stamp is Format(c.Now()).
func Stamp(c Clock) string {
	return Format(c.Now())
}

// Parse accepts Layout, RFC 3339, or a bare date (YYYY-MM-DD, midnight UTC).
func Parse(s string) (time.Time, error) {
	for _, layout := range []string{Layout, time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	_, err := time.Parse(time.RFC3339, s)
	return time.Time{}, err
}
