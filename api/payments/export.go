package payments

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xuri/excelize/v2"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/constants"
)

// ExportPlanXLSX handles POST /payments/plans/export and streams the plan's
// installment schedule as an xlsx workbook.
func ExportPlanXLSX(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
			PlanID string `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		ctx := r.Context()
		var clientID, contractType string
		err := pool.QueryRow(ctx, `SELECT client_id, contract_type FROM payment_plans WHERE plan_id = $1`,
			req.PlanID).Scan(&clientID, &contractType)
		if err != nil {
			if err == pgx.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrPlanNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		installments, err := loadInstallments(ctx, pool, req.PlanID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		f := excelize.NewFile()
		defer f.Close()
		sheet := "Installments"
		f.SetSheetName("Sheet1", sheet)

		headers := []interface{}{"Payment ID", "Scheduled Amount", "Scheduled Date", "Paid Amount", "Paid Date", "Status", "Receipt"}
		if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for i, inst := range installments {
			paidDate := ""
			if !inst.PaidDate.IsZero() {
				paidDate = inst.PaidDate.Format(constants.DateFormat)
			}
			row := []interface{}{
				inst.PaymentID,
				inst.ScheduledAmount.InexactFloat64(),
				inst.ScheduledDate.Format(constants.DateFormat),
				inst.PaidAmount.InexactFloat64(),
				paidDate,
				inst.Status,
				inst.ReceiptNumber,
			}
			cell := fmt.Sprintf("A%d", i+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		totals := ComputePlanTotals(installments)
		summaryRow := []interface{}{"TOTALS", totals.Scheduled.InexactFloat64(), "", totals.Paid.InexactFloat64(), "", "", ""}
		cell := fmt.Sprintf("A%d", len(installments)+3)
		if err := f.SetSheetRow(sheet, cell, &summaryRow); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		filename := fmt.Sprintf("plan_%s_%s.xlsx", clientID, contractType)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if err := f.Write(w); err != nil {
			api.LogError("xlsx export write failed: %v", err)
		}
	}
}
