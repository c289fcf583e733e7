package payments

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/api/constants"
)

const (
	ContractTypeOriginal = "original"
	ContractTypeRenewal  = "renewal"
)

func resolveSessionEmail(userID string) string {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Email
		}
	}
	return ""
}

// CreatePaymentPlan handles POST /payments/plans/create. One plan exists per
// contract instance: the original contract, or one specific renewal. A plan
// for a renewal is created lazily the first time its amount/frequency is
// set; if it already exists that call updates it instead. The two paths are
// selected by an existence check inside the transaction, not an upsert.
func CreatePaymentPlan(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID       string          `json:"user_id"`
			ClientID     string          `json:"client_id"`
			ContractType string          `json:"contract_type"`
			RenewalID    string          `json:"renewal_id,omitempty"`
			Amount       decimal.Decimal `json:"amount"`
			Frequency    string          `json:"frequency,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}
		if req.ContractType != ContractTypeOriginal && req.ContractType != ContractTypeRenewal {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidContractType)
			return
		}
		if req.ContractType == ContractTypeRenewal && req.RenewalID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrRenewalIDRequired)
			return
		}
		if req.Amount.IsNegative() {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNegativeAmount)
			return
		}

		ctx := r.Context()
		tx, err := pool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback(ctx)

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`, req.ClientID).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !exists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			return
		}

		var renewalID *string
		if req.ContractType == ContractTypeRenewal {
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM renewals WHERE renewal_id = $1 AND client_id = $2)`,
				req.RenewalID, req.ClientID).Scan(&exists); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !exists {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrRenewalNotFound)
				return
			}
			renewalID = &req.RenewalID
		}

		// Existence check decides between create and update.
		var planID string
		var findErr error
		if renewalID != nil {
			findErr = tx.QueryRow(ctx, `SELECT plan_id FROM payment_plans
				WHERE client_id = $1 AND contract_type = $2 AND renewal_id = $3`,
				req.ClientID, req.ContractType, *renewalID).Scan(&planID)
		} else {
			findErr = tx.QueryRow(ctx, `SELECT plan_id FROM payment_plans
				WHERE client_id = $1 AND contract_type = $2 AND renewal_id IS NULL`,
				req.ClientID, req.ContractType).Scan(&planID)
		}

		created := false
		switch findErr {
		case nil:
			_, err = tx.Exec(ctx, `UPDATE payment_plans SET amount = $1, frequency = $2 WHERE plan_id = $3`,
				req.Amount, req.Frequency, planID)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
		case pgx.ErrNoRows:
			err = tx.QueryRow(ctx, `INSERT INTO payment_plans (
				client_id, contract_type, renewal_id, amount, frequency,
				total_scheduled_amount, total_paid_amount, total_pending_amount, created_at
			) VALUES ($1, $2, $3, $4, $5, 0, 0, 0, now()) RETURNING plan_id`,
				req.ClientID, req.ContractType, renewalID, req.Amount, req.Frequency,
			).Scan(&planID)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			created = true
		default:
			api.RespondWithError(w, http.StatusInternalServerError, findErr.Error())
			return
		}

		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		action := "EDIT"
		if created {
			action = "CREATE"
		}
		api.WriteAuditTrail(pool, "payment_plan", planID, action,
			"plan for client "+req.ClientID+" ("+req.ContractType+")", requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"plan_id": planID,
			"created": created,
		})
	}
}

// GetPaymentPlan handles POST /payments/plans/get: the plan row, its totals
// and its installments ordered by scheduled date.
func GetPaymentPlan(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
			PlanID string `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if resolveSessionEmail(req.UserID) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		ctx := r.Context()
		var (
			clientID, contractType, frequency               string
			renewalID                                       *string
			amountStr, totalSchedStr, totalPaidStr, pendStr string
			createdAt                                       time.Time
		)
		err := pool.QueryRow(ctx, `SELECT client_id, contract_type, renewal_id, amount::text,
			COALESCE(frequency, ''), total_scheduled_amount::text, total_paid_amount::text, total_pending_amount::text, created_at
			FROM payment_plans WHERE plan_id = $1`, req.PlanID).Scan(
			&clientID, &contractType, &renewalID, &amountStr, &frequency,
			&totalSchedStr, &totalPaidStr, &pendStr, &createdAt)
		if err != nil {
			if err == pgx.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrPlanNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		amount, _ := decimal.NewFromString(amountStr)
		totalSched, _ := decimal.NewFromString(totalSchedStr)
		totalPaid, _ := decimal.NewFromString(totalPaidStr)
		totalPend, _ := decimal.NewFromString(pendStr)

		installments, err := loadInstallments(ctx, pool, req.PlanID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		rows := make([]map[string]interface{}, 0, len(installments))
		for _, inst := range installments {
			rows = append(rows, installmentResponse(inst))
		}

		plan := map[string]interface{}{
			"plan_id":                req.PlanID,
			"client_id":              clientID,
			"contract_type":          contractType,
			"amount":                 amount,
			"frequency":              frequency,
			"total_scheduled_amount": totalSched,
			"total_paid_amount":      totalPaid,
			"total_pending_amount":   totalPend,
			"created_at":             createdAt.Format(constants.DateTimeFormat),
			"installments":           rows,
		}
		if renewalID != nil {
			plan["renewal_id"] = *renewalID
		}
		api.RespondWithPayload(w, true, "", plan)
	}
}
