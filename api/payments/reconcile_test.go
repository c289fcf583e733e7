package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputePlanTotals(t *testing.T) {
	installments := []Installment{
		{ScheduledAmount: dec("500"), PaidAmount: dec("500")},
		{ScheduledAmount: dec("500"), PaidAmount: dec("250.50")},
		{ScheduledAmount: dec("500")},
	}

	totals := ComputePlanTotals(installments)
	assert.True(t, totals.Scheduled.Equal(dec("1500")), "scheduled = %s", totals.Scheduled)
	assert.True(t, totals.Paid.Equal(dec("750.50")), "paid = %s", totals.Paid)
	assert.True(t, totals.Pending.Equal(dec("749.50")), "pending = %s", totals.Pending)
}

func TestComputePlanTotalsPendingInvariant(t *testing.T) {
	cases := [][]Installment{
		{},
		{{ScheduledAmount: dec("1000"), PaidAmount: dec("400")}},
		{
			{ScheduledAmount: dec("333.33"), PaidAmount: dec("333.33")},
			{ScheduledAmount: dec("333.33"), PaidAmount: dec("100")},
			{ScheduledAmount: dec("333.34")},
		},
		{{ScheduledAmount: dec("200"), PaidAmount: dec("250")}}, // overpaid
	}

	for i, installments := range cases {
		totals := ComputePlanTotals(installments)
		assert.True(t, totals.Pending.Equal(totals.Scheduled.Sub(totals.Paid)),
			"case %d: pending %s != scheduled %s - paid %s", i, totals.Pending, totals.Scheduled, totals.Paid)
	}
}

func TestComputePlanTotalsIdempotent(t *testing.T) {
	installments := []Installment{
		{ScheduledAmount: dec("1000"), PaidAmount: dec("400")},
		{ScheduledAmount: dec("1000"), PaidAmount: dec("600")},
	}

	first := ComputePlanTotals(installments)
	second := ComputePlanTotals(installments)
	assert.True(t, first.Scheduled.Equal(second.Scheduled))
	assert.True(t, first.Paid.Equal(second.Paid))
	assert.True(t, first.Pending.Equal(second.Pending))
}

func TestComputePlanTotalsAfterDeletingOnlyInstallment(t *testing.T) {
	installments := []Installment{
		{ScheduledAmount: dec("1000"), PaidAmount: dec("400")},
	}
	before := ComputePlanTotals(installments)
	assert.True(t, before.Pending.Equal(dec("600")))

	after := ComputePlanTotals(nil)
	assert.True(t, after.Scheduled.IsZero())
	assert.True(t, after.Paid.IsZero())
	assert.True(t, after.Pending.IsZero())
}
