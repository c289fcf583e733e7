package payments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled or completed payment row of a plan.
type Installment struct {
	PaymentID       string
	PlanID          string
	ScheduledAmount decimal.Decimal
	ScheduledDate   time.Time
	PaidAmount      decimal.Decimal
	PaidDate        time.Time // zero when unpaid
	Status          string
	ReceiptNumber   string
}

// PlanTotals are the three derived aggregates of a payment plan.
type PlanTotals struct {
	Scheduled decimal.Decimal
	Paid      decimal.Decimal
	Pending   decimal.Decimal
}

// ComputePlanTotals derives the plan aggregates from a full set of
// installment rows. This mirrors the SQL in recomputePlanTotals; the tests
// pin the arithmetic here.
func ComputePlanTotals(installments []Installment) PlanTotals {
	scheduled := decimal.Zero
	paid := decimal.Zero
	for _, inst := range installments {
		scheduled = scheduled.Add(inst.ScheduledAmount)
		paid = paid.Add(inst.PaidAmount)
	}
	return PlanTotals{
		Scheduled: scheduled,
		Paid:      paid,
		Pending:   scheduled.Sub(paid),
	}
}

// recomputePlanTotals rewrites the plan's three totals from a full SUM over
// its installment rows. Always a full recomputation, never incremental
// arithmetic on the previous totals: every installment write path funnels
// through here inside its own transaction, so the totals cannot drift from
// the rows a reader sees.
func recomputePlanTotals(ctx context.Context, tx pgx.Tx, planID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payment_plans p SET
			total_scheduled_amount = t.sched,
			total_paid_amount      = t.paid,
			total_pending_amount   = t.sched - t.paid
		FROM (
			SELECT COALESCE(SUM(scheduled_amount), 0) AS sched,
			       COALESCE(SUM(COALESCE(paid_amount, 0)), 0) AS paid
			FROM plan_payments
			WHERE plan_id = $1
		) t
		WHERE p.plan_id = $1`, planID)
	return err
}
