package dates

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput marks date-arithmetic arguments that cannot be computed
// with. Callers that iterate over many records use the soft variants instead.
var ErrInvalidInput = errors.New("invalid input")

// AddMonths adds a whole number of months to a date by constructing the
// target year/month directly, never by adding days. Month overflow follows
// time.Date normalization: 2025-01-31 plus one month is 2025-03-03.
func AddMonths(base time.Time, months int) (time.Time, error) {
	if base.IsZero() {
		return time.Time{}, fmt.Errorf("%w: base date is not set", ErrInvalidInput)
	}
	if months <= 0 {
		return time.Time{}, fmt.Errorf("%w: months must be positive, got %d", ErrInvalidInput, months)
	}
	return time.Date(base.Year(), base.Month()+time.Month(months), base.Day(), 0, 0, 0, 0, base.Location()), nil
}

// DaysRemaining returns the whole days between local midnight today and local
// midnight of the expiration date. Today yields 0, past dates go negative.
// A zero expiration yields 0 rather than an error; this is called from
// listing endpoints where one malformed row must not break the response.
func DaysRemaining(expiration time.Time) int {
	if expiration.IsZero() {
		return 0
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	exp := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Ceil(exp.Sub(today).Hours() / 24))
}

// ExtractMonths parses the leading run of digits out of a display duration
// such as "6 meses". Durations are stored as text, so parsing stays lenient:
// no digits means 0.
func ExtractMonths(duration string) int {
	months := 0
	seen := false
	for _, r := range duration {
		if r >= '0' && r <= '9' {
			months = months*10 + int(r-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	return months
}

// YearInRange reports whether a date falls inside the plausible contract
// window. Legacy rows carry garbage years; those degrade to N/A upstream.
func YearInRange(t time.Time, minYear, maxYear int) bool {
	if t.IsZero() {
		return false
	}
	return t.Year() >= minYear && t.Year() <= maxYear
}
