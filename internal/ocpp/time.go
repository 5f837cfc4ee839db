package ocpp

import "time"

// FormatTime renders t as the ISO-8601 wire format OCPP 1.6 uses on every
// outbound payload: UTC with a literal "Z" suffix.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Now is the canonical "current time" source for outbound payloads.
func Now() time.Time {
	return time.Now().UTC()
}

// ParseTime parses an inbound OCPP timestamp into the naive-UTC form used
// for storage (no zone suffix retained beyond the conversion). An empty
// string means "not supplied"; callers substitute Now() in that case.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errEmptyTimestamp
}

var errEmptyTimestamp = &parseTimeError{}

type parseTimeError struct{}

func (*parseTimeError) Error() string { return "ocpp: empty or unparseable timestamp" }
