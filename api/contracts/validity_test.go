package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func TestComputeValidityNoRenewals(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(2025, time.January, 1),
		ContractDuration: 12,
	}

	v := ComputeValidity(client, nil)
	require.True(t, v.Determinate)
	assert.Equal(t, d(2026, time.January, 1), v.Snapshot.ExpirationDate)
	assert.Equal(t, 12, v.Snapshot.MonthsContracted)
	assert.Nil(t, v.Snapshot.LastRenewal)
}

func TestComputeValidityWithRenewal(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(2025, time.January, 1),
		ContractDuration: 12,
	}
	renewals := []Renewal{
		{RenewalID: "r1", RenewalDate: d(2025, time.October, 1), RenewalDuration: "6 meses"},
	}

	v := ComputeValidity(client, renewals)
	require.True(t, v.Determinate)
	// Basis is the renewal date plus its own duration, not the chained total.
	assert.Equal(t, d(2026, time.April, 1), v.Snapshot.ExpirationDate)
	// Months contracted accumulates: 12 original + 6 renewed.
	assert.Equal(t, 18, v.Snapshot.MonthsContracted)
	require.NotNil(t, v.Snapshot.LastRenewal)
	assert.Equal(t, 6, v.Snapshot.LastRenewal.Months)
	assert.Equal(t, d(2025, time.October, 1), v.Snapshot.LastRenewal.RenewalDate)
}

func TestComputeValiditySumsAllButBasisUsesLatest(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(2024, time.January, 15),
		ContractDuration: 12,
	}
	renewals := []Renewal{
		{RenewalID: "r2", RenewalDate: d(2025, time.June, 10), RenewalDuration: "3 meses"},
		{RenewalID: "r1", RenewalDate: d(2025, time.January, 10), RenewalDuration: "6 meses"},
	}

	v := ComputeValidity(client, renewals)
	require.True(t, v.Determinate)
	// 12 + 6 + 3 across the full history.
	assert.Equal(t, 21, v.Snapshot.MonthsContracted)
	// Expiration only chains off the newest renewal: 2025-06-10 + 3.
	assert.Equal(t, d(2025, time.September, 10), v.Snapshot.ExpirationDate)
}

func TestComputeValidityLatestByDateNotOrder(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(2024, time.January, 1),
		ContractDuration: 12,
	}
	// Oldest listed first: the basis must still follow the date.
	renewals := []Renewal{
		{RenewalID: "r1", RenewalDate: d(2025, time.January, 5), RenewalDuration: "6 meses"},
		{RenewalID: "r2", RenewalDate: d(2025, time.August, 5), RenewalDuration: "12 meses"},
	}

	v := ComputeValidity(client, renewals)
	require.True(t, v.Determinate)
	assert.Equal(t, d(2026, time.August, 5), v.Snapshot.ExpirationDate)
	require.NotNil(t, v.Snapshot.LastRenewal)
	assert.Equal(t, 12, v.Snapshot.LastRenewal.Months)
}

func TestComputeValidityPlacementDatePreferred(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		PlacementDate:    d(2025, time.March, 10),
		ContractDate:     d(2025, time.March, 1),
		ContractDuration: 6,
	}

	v := ComputeValidity(client, nil)
	require.True(t, v.Determinate)
	assert.Equal(t, d(2025, time.September, 10), v.Snapshot.ExpirationDate)
}

func TestComputeValidityDegradesOnMissingDates(t *testing.T) {
	v := ComputeValidity(ClientContract{ClientID: "c1", ContractDuration: 12}, nil)
	assert.False(t, v.Determinate)
	assert.False(t, v.Snapshot.IsActive)
	assert.NotEmpty(t, v.Reason)
}

func TestComputeValidityDegradesOnOutOfRangeYear(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(1999, time.December, 31),
		ContractDuration: 12,
	}
	v := ComputeValidity(client, nil)
	assert.False(t, v.Determinate)
}

func TestComputeValidityDegradesOnNonPositiveDuration(t *testing.T) {
	client := ClientContract{
		ClientID:     "c1",
		ContractDate: d(2025, time.January, 1),
	}
	v := ComputeValidity(client, nil)
	assert.False(t, v.Determinate)
}

func TestComputeValidityDegradesOnUnparseableRenewalDuration(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(2025, time.January, 1),
		ContractDuration: 12,
	}
	renewals := []Renewal{
		{RenewalID: "r1", RenewalDate: d(2025, time.October, 1), RenewalDuration: "sin duración"},
	}
	// The latest renewal contributes zero months, so no expiration can be
	// derived from it; the whole snapshot degrades rather than guessing.
	v := ComputeValidity(client, renewals)
	assert.False(t, v.Determinate)
}

func TestComputeValidityActiveFlag(t *testing.T) {
	now := time.Now()
	future := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(now.Year(), now.Month(), now.Day()),
		ContractDuration: 12,
	}
	v := ComputeValidity(future, nil)
	require.True(t, v.Determinate)
	assert.True(t, v.Snapshot.IsActive)
	assert.Greater(t, v.Snapshot.DaysRemaining, 0)

	expired := ClientContract{
		ClientID:         "c2",
		ContractDate:     d(2020, time.January, 1),
		ContractDuration: 12,
	}
	v = ComputeValidity(expired, nil)
	require.True(t, v.Determinate)
	assert.False(t, v.Snapshot.IsActive)
	assert.Less(t, v.Snapshot.DaysRemaining, 0)
}

func TestCurrentExpirationChainsForRenewal(t *testing.T) {
	client := ClientContract{
		ClientID:         "c1",
		ContractDate:     d(2025, time.January, 1),
		ContractDuration: 12,
	}
	exp, err := CurrentExpiration(client, nil)
	require.NoError(t, err)
	assert.Equal(t, d(2026, time.January, 1), exp)

	_, err = CurrentExpiration(ClientContract{ClientID: "c2"}, nil)
	assert.Error(t, err)
}

func TestValidityResponseNASentinels(t *testing.T) {
	resp := validityResponse(ComputeValidity(ClientContract{ClientID: "c1"}, nil))
	assert.Equal(t, "N/A", resp["expiration_date"])
	assert.Equal(t, "N/A", resp["months_contracted"])
	assert.Equal(t, "N/A", resp["days_remaining"])
	assert.Equal(t, false, resp["is_active"])
}
