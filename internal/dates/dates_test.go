package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func TestAddMonthsYearRollover(t *testing.T) {
	got, err := AddMonths(d(2025, time.October, 15), 6)
	require.NoError(t, err)
	assert.Equal(t, d(2026, time.April, 15), got)
}

func TestAddMonthsWithinYear(t *testing.T) {
	got, err := AddMonths(d(2025, time.January, 1), 12)
	require.NoError(t, err)
	assert.Equal(t, d(2026, time.January, 1), got)
}

func TestAddMonthsShortMonthNormalizes(t *testing.T) {
	// Jan 31 + 1 month lands past Feb's end; time.Date normalization rolls
	// it into March. This is the documented behavior, not an accident.
	got, err := AddMonths(d(2025, time.January, 31), 1)
	require.NoError(t, err)
	assert.Equal(t, d(2025, time.March, 3), got)
}

func TestAddMonthsLeapYear(t *testing.T) {
	got, err := AddMonths(d(2024, time.January, 31), 1)
	require.NoError(t, err)
	assert.Equal(t, d(2024, time.March, 2), got)
}

func TestAddMonthsRejectsBadInput(t *testing.T) {
	_, err := AddMonths(time.Time{}, 6)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = AddMonths(d(2025, time.January, 1), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = AddMonths(d(2025, time.January, 1), -3)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 0, DaysRemaining(now))
	assert.Equal(t, 10, DaysRemaining(now.AddDate(0, 0, 10)))
	assert.Equal(t, -5, DaysRemaining(now.AddDate(0, 0, -5)))
}

func TestDaysRemainingZeroDateDegrades(t *testing.T) {
	assert.Equal(t, 0, DaysRemaining(time.Time{}))
}

func TestExtractMonths(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"6 meses", 6},
		{"12 meses", 12},
		{"", 0},
		{"sin duración", 0},
		{"18", 18},
		{"prorroga 3 meses", 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractMonths(tc.in), "input %q", tc.in)
	}
}

func TestYearInRange(t *testing.T) {
	assert.True(t, YearInRange(d(2025, time.June, 1), 2000, 2099))
	assert.False(t, YearInRange(d(1999, time.December, 31), 2000, 2099))
	assert.False(t, YearInRange(d(2100, time.January, 1), 2000, 2099))
	assert.False(t, YearInRange(time.Time{}, 2000, 2099))
}
