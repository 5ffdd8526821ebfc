// Package jsontime provides time types that serialize compactly in JSON and
// YAML: Milli as Unix milliseconds, Duration as a Go duration string.
package jsontime

import (
	"encoding/json"
	"time"
)

// Milli is a time.Time that serializes to/from Unix milliseconds.
type Milli time.Time

// NowEpochMilli returns the current time as Milli.
func NowEpochMilli() Milli {
	return Milli(time.Now())
}

// Time returns the underlying time.Time value.
func (ep Milli) Time() time.Time {
	return time.Time(ep)
}

// Before reports whether ep is before t.
func (ep Milli) Before(t Milli) bool {
	return time.Time(ep).Before(time.Time(t))
}

// After reports whether ep is after t.
func (ep Milli) After(t Milli) bool {
	return time.Time(ep).After(time.Time(t))
}

// String returns the time formatted as RFC 3339 with milliseconds.
func (ep Milli) String() string {
	return time.Time(ep).Format("2006-01-02T15:04:05.000Z07:00")
}

// UnmarshalJSON implements json.Unmarshaler.
func (ep *Milli) UnmarshalJSON(b []byte) error {
	var t int64
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*ep = Milli(time.UnixMilli(t))
	return nil
}

// MarshalJSON implements json.Marshaler. The zero time encodes as 0.
func (ep Milli) MarshalJSON() ([]byte, error) {
	if ep.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(time.Time(ep).UnixMilli())
}

// MarshalYAML renders the time as an RFC 3339 string, or "" when zero.
func (ep Milli) MarshalYAML() (any, error) {
	if ep.IsZero() {
		return "", nil
	}
	return ep.String(), nil
}

// IsZero reports whether ep represents the zero time instant.
func (ep Milli) IsZero() bool {
	return time.Time(ep).IsZero()
}

// Sub returns the duration ep-t.
func (ep Milli) Sub(t Milli) time.Duration {
	return time.Time(ep).Sub(time.Time(t))
}
