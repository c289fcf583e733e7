package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/constants"
)

const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
)

func loadInstallments(ctx context.Context, pool *pgxpool.Pool, planID string) ([]Installment, error) {
	rows, err := pool.Query(ctx, `SELECT payment_id, plan_id, scheduled_amount::text, scheduled_date,
		COALESCE(paid_amount, 0)::text, paid_date, status, COALESCE(receipt_number, '')
		FROM plan_payments WHERE plan_id = $1 ORDER BY scheduled_date, payment_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []Installment
	for rows.Next() {
		var inst Installment
		var schedStr, paidStr string
		var paidDate *time.Time
		if err := rows.Scan(&inst.PaymentID, &inst.PlanID, &schedStr, &inst.ScheduledDate,
			&paidStr, &paidDate, &inst.Status, &inst.ReceiptNumber); err != nil {
			return nil, err
		}
		inst.ScheduledAmount, _ = decimal.NewFromString(schedStr)
		inst.PaidAmount, _ = decimal.NewFromString(paidStr)
		if paidDate != nil {
			inst.PaidDate = *paidDate
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func installmentResponse(inst Installment) map[string]interface{} {
	resp := map[string]interface{}{
		"payment_id":       inst.PaymentID,
		"plan_id":          inst.PlanID,
		"scheduled_amount": inst.ScheduledAmount,
		"scheduled_date":   inst.ScheduledDate.Format(constants.DateFormat),
		"paid_amount":      inst.PaidAmount,
		"status":           inst.Status,
		"receipt_number":   inst.ReceiptNumber,
	}
	if !inst.PaidDate.IsZero() {
		resp["paid_date"] = inst.PaidDate.Format(constants.DateFormat)
	}
	return resp
}

func planExists(ctx context.Context, tx pgx.Tx, planID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_plans WHERE plan_id = $1)`, planID).Scan(&exists)
	return exists, err
}

// AddInstallments handles POST /payments/installments/add. All rows insert
// in one transaction and the plan totals are recomputed before commit, so a
// reader never observes the new rows without matching totals.
func AddInstallments(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID       string `json:"user_id"`
			PlanID       string `json:"plan_id"`
			Installments []struct {
				ScheduledAmount decimal.Decimal  `json:"scheduled_amount"`
				ScheduledDate   string           `json:"scheduled_date"`
				PaidAmount      *decimal.Decimal `json:"paid_amount,omitempty"`
				PaidDate        string           `json:"paid_date,omitempty"`
				Status          string           `json:"status,omitempty"`
			} `json:"installments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" || len(req.Installments) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		for i, inst := range req.Installments {
			if inst.ScheduledAmount.IsNegative() {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatRowError(i+1, constants.ErrNegativeAmount))
				return
			}
			if _, err := time.ParseInLocation(constants.DateFormat, inst.ScheduledDate, time.Local); err != nil {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatRowError(i+1, constants.FormatError(constants.ErrInvalidDateFormat, "scheduled_date")))
				return
			}
		}

		ctx := r.Context()
		tx, err := pool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback(ctx)

		exists, err := planExists(ctx, tx, req.PlanID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !exists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPlanNotFound)
			return
		}

		created := make([]string, 0, len(req.Installments))
		for _, inst := range req.Installments {
			status := inst.Status
			if status == "" {
				status = StatusPending
			}
			var paidAmount *decimal.Decimal
			var paidDate *time.Time
			if inst.PaidAmount != nil && !inst.PaidAmount.IsZero() {
				paidAmount = inst.PaidAmount
				status = StatusPaid
				if inst.PaidDate != "" {
					parsed, err := time.ParseInLocation(constants.DateFormat, inst.PaidDate, time.Local)
					if err != nil {
						api.RespondWithError(w, http.StatusBadRequest,
							constants.FormatError(constants.ErrInvalidDateFormat, "paid_date"))
						return
					}
					paidDate = &parsed
				}
			}
			var paymentID string
			err = tx.QueryRow(ctx, `INSERT INTO plan_payments (
				plan_id, scheduled_amount, scheduled_date, paid_amount, paid_date, status, receipt_number
			) VALUES ($1, $2, $3::date, $4, $5, $6, $7) RETURNING payment_id`,
				req.PlanID, inst.ScheduledAmount, inst.ScheduledDate, paidAmount, paidDate, status, uuid.NewString(),
			).Scan(&paymentID)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			created = append(created, paymentID)
		}

		if err := recomputePlanTotals(ctx, tx, req.PlanID); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		api.WriteAuditTrail(pool, "plan_payment", strings.Join(created, ","), "CREATE",
			fmt.Sprintf("%d installments added to plan %s", len(created), req.PlanID), requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"created": created,
		})
	}
}

// UpdateInstallment handles POST /payments/installments/update. Updatable
// fields are an explicit enumeration; anything else in the payload is
// rejected by omission and an empty update is an error, not a no-op.
func UpdateInstallment(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID          string           `json:"user_id"`
			PlanID          string           `json:"plan_id"`
			PaymentID       string           `json:"payment_id"`
			ScheduledAmount *decimal.Decimal `json:"scheduled_amount,omitempty"`
			ScheduledDate   *string          `json:"scheduled_date,omitempty"`
			PaidAmount      *decimal.Decimal `json:"paid_amount,omitempty"`
			PaidDate        *string          `json:"paid_date,omitempty"`
			Status          *string          `json:"status,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" || req.PaymentID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		var sets []string
		var args []interface{}
		pos := 1
		addSet := func(column string, value interface{}) {
			sets = append(sets, fmt.Sprintf("%s = $%d", column, pos))
			args = append(args, value)
			pos++
		}

		if req.ScheduledAmount != nil {
			if req.ScheduledAmount.IsNegative() {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrNegativeAmount)
				return
			}
			addSet("scheduled_amount", *req.ScheduledAmount)
		}
		if req.ScheduledDate != nil {
			parsed, err := time.ParseInLocation(constants.DateFormat, *req.ScheduledDate, time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatError(constants.ErrInvalidDateFormat, "scheduled_date"))
				return
			}
			addSet("scheduled_date", parsed)
		}
		if req.PaidAmount != nil {
			if req.PaidAmount.IsNegative() {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrNegativeAmount)
				return
			}
			addSet("paid_amount", *req.PaidAmount)
		}
		if req.PaidDate != nil {
			parsed, err := time.ParseInLocation(constants.DateFormat, *req.PaidDate, time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatError(constants.ErrInvalidDateFormat, "paid_date"))
				return
			}
			addSet("paid_date", parsed)
		}
		if req.Status != nil {
			addSet("status", *req.Status)
		}

		if len(sets) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoFieldsToUpdate)
			return
		}

		ctx := r.Context()
		tx, err := pool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback(ctx)

		query := "UPDATE plan_payments SET " + strings.Join(sets, ", ") +
			fmt.Sprintf(" WHERE payment_id = $%d AND plan_id = $%d RETURNING payment_id", pos, pos+1)
		args = append(args, req.PaymentID, req.PlanID)

		var updatedID string
		if err := tx.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
			if err == pgx.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrInstallmentNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		if err := recomputePlanTotals(ctx, tx, req.PlanID); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		api.WriteAuditTrail(pool, "plan_payment", updatedID, "EDIT",
			"installment updated on plan "+req.PlanID, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"payment_id": updatedID,
		})
	}
}

// DeleteInstallment handles POST /payments/installments/delete.
func DeleteInstallment(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID    string `json:"user_id"`
			PlanID    string `json:"plan_id"`
			PaymentID string `json:"payment_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" || req.PaymentID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		ctx := r.Context()
		tx, err := pool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback(ctx)

		var deletedID string
		err = tx.QueryRow(ctx, `DELETE FROM plan_payments WHERE payment_id = $1 AND plan_id = $2 RETURNING payment_id`,
			req.PaymentID, req.PlanID).Scan(&deletedID)
		if err != nil {
			if err == pgx.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrInstallmentNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		if err := recomputePlanTotals(ctx, tx, req.PlanID); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		api.WriteAuditTrail(pool, "plan_payment", deletedID, "DELETE",
			"installment removed from plan "+req.PlanID, requestedBy)

		api.RespondWithResult(w, true, "")
	}
}
