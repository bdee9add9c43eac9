package format

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the layout of date-only ISO 8601 values ("2024-03-01").
const ISODate = "2006-01-02"

// longDate is the en-GB long form: day without padding, full month, four digit year.
const longDate = "2 January 2006"

// ParseISODate parses a date-only ISO string as midnight UTC.
func ParseISODate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.ParseInLocation(ISODate, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("format: invalid date %q: %w", value, err)
	}
	return t, nil
}

// LongDate formats t in the fixed en-GB long form, e.g. "1 March 2024".
// The value is converted to UTC first so the output never depends on time.Local.
func LongDate(t time.Time) string {
	return t.UTC().Format(longDate)
}

// ISOLongDate parses a date-only ISO string and formats it with LongDate.
// Example: ISOLongDate("2024-03-01") => "1 March 2024"
func ISOLongDate(value string) (string, error) {
	t, err := ParseISODate(value)
	if err != nil {
		return "", err
	}
	return LongDate(t), nil
}
