package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenewalStore struct {
	client     ClientContract
	renewals   []Renewal
	existing   []time.Time
	checkedDay time.Time
	inserted   []fakeInsertedRenewal
}

type fakeInsertedRenewal struct {
	day          time.Time
	durationText string
	createdBy    string
}

func (f *fakeRenewalStore) LockClientContract(_ context.Context, _ string) (ClientContract, error) {
	return f.client, nil
}

func (f *fakeRenewalStore) HasRenewalOn(_ context.Context, _ string, day time.Time) (bool, error) {
	f.checkedDay = day
	for _, existing := range f.existing {
		if existing.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRenewalStore) ListClientRenewals(_ context.Context, _ string) ([]Renewal, error) {
	return f.renewals, nil
}

func (f *fakeRenewalStore) InsertRenewal(_ context.Context, _ string, day time.Time, durationText string, _ *string, createdBy string) (string, error) {
	f.inserted = append(f.inserted, fakeInsertedRenewal{day: day, durationText: durationText, createdBy: createdBy})
	return "ren-new", nil
}

func TestPerformRenewalRejectsSecondRenewalSameDay(t *testing.T) {
	store := &fakeRenewalStore{
		client:   ClientContract{ClientID: "c1", ContractDate: d(2025, time.January, 10), ContractDuration: 6},
		existing: []time.Time{d(2025, time.June, 5)},
	}

	_, err := performRenewal(context.Background(), store, "c1", 6, d(2025, time.June, 5), nil, "ana@custodialegal.hn")
	assert.ErrorIs(t, err, errDuplicateRenewal)
	assert.Empty(t, store.inserted, "a rejected renewal must not insert a row")
}

func TestPerformRenewalDuplicateCheckIgnoresTimeOfDay(t *testing.T) {
	store := &fakeRenewalStore{
		client:   ClientContract{ClientID: "c1", ContractDate: d(2025, time.January, 10), ContractDuration: 6},
		existing: []time.Time{d(2025, time.June, 5)},
	}

	// Same calendar day, different clock time: still a duplicate.
	afternoon := time.Date(2025, time.June, 5, 16, 45, 12, 0, time.Local)
	_, err := performRenewal(context.Background(), store, "c1", 6, afternoon, nil, "ana@custodialegal.hn")
	assert.ErrorIs(t, err, errDuplicateRenewal)
	assert.True(t, store.checkedDay.Equal(d(2025, time.June, 5)),
		"duplicate check must compare calendar days, saw %s", store.checkedDay)
	assert.Empty(t, store.inserted)
}

func TestPerformRenewalChainsFromCurrentExpiration(t *testing.T) {
	store := &fakeRenewalStore{
		client: ClientContract{ClientID: "c1", ContractDate: d(2025, time.January, 10), ContractDuration: 6},
		renewals: []Renewal{
			{RenewalID: "r1", RenewalDate: d(2025, time.June, 5), RenewalDuration: "6 meses"},
		},
	}

	res, err := performRenewal(context.Background(), store, "c1", 6, d(2025, time.November, 20), nil, "ana@custodialegal.hn")
	require.NoError(t, err)
	// Basis is the latest renewal's own date plus its own duration.
	assert.Equal(t, d(2025, time.December, 5), res.PreviousExpiration)
	assert.Equal(t, d(2026, time.June, 5), res.NewExpiration)
	assert.Equal(t, 6, res.MonthsAdded)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "6 meses", store.inserted[0].durationText)
	assert.Equal(t, "ana@custodialegal.hn", store.inserted[0].createdBy)
	assert.True(t, store.inserted[0].day.Equal(d(2025, time.November, 20)))
}

func TestPerformRenewalTruncatesRenewalDate(t *testing.T) {
	store := &fakeRenewalStore{
		client: ClientContract{ClientID: "c1", ContractDate: d(2025, time.January, 10), ContractDuration: 6},
	}

	evening := time.Date(2025, time.June, 5, 23, 59, 59, 0, time.Local)
	res, err := performRenewal(context.Background(), store, "c1", 3, evening, nil, "ana@custodialegal.hn")
	require.NoError(t, err)
	assert.True(t, res.RenewalDate.Equal(d(2025, time.June, 5)))
	require.Len(t, store.inserted, 1)
	assert.True(t, store.inserted[0].day.Equal(d(2025, time.June, 5)))
}

func TestPerformRenewalIndeterminateContract(t *testing.T) {
	store := &fakeRenewalStore{
		client: ClientContract{ClientID: "c1"},
	}

	_, err := performRenewal(context.Background(), store, "c1", 6, d(2025, time.June, 5), nil, "ana@custodialegal.hn")
	assert.ErrorIs(t, err, errExpirationIndeterminate)
	assert.Empty(t, store.inserted, "an indeterminate contract must not gain a renewal row")
}
