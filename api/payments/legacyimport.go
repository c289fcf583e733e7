package payments

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/constants"
)

var legacyImportHeaders = []string{"plan_id", "scheduled_amount", "scheduled_date", "paid_amount", "paid_date", "receipt_number"}

// ImportLegacyPayments handles POST /payments/legacy-import. The legacy
// desktop system exported csv in windows-1252, so the upload is decoded
// before parsing. All rows land in one transaction and every touched plan is
// reconciled exactly once before commit.
func ImportLegacyPayments(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}
		requestedBy := resolveSessionEmail(r.FormValue("user_id"))
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}
		defer file.Close()

		reader := csv.NewReader(charmap.Windows1252.NewDecoder().Reader(file))
		reader.TrimLeadingSpace = true

		header, err := reader.Read()
		if err == io.EOF {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrEmptyFile)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParsingFailed)
			return
		}
		col := map[string]int{}
		for i, h := range header {
			col[strings.ToLower(strings.TrimSpace(h))] = i
		}
		for _, want := range legacyImportHeaders[:3] {
			if _, ok := col[want]; !ok {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidHeaders)
				return
			}
		}
		field := func(record []string, name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		ctx := r.Context()
		tx, err := pool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback(ctx)

		touchedPlans := map[string]bool{}
		inserted := 0
		rowNum := 1
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			rowNum++
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatRowError(rowNum, constants.ErrFileParsingFailed))
				return
			}

			planID := field(record, "plan_id")
			if planID == "" {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatRowError(rowNum, constants.FormatMissingFieldError("plan_id")))
				return
			}
			if !touchedPlans[planID] {
				exists, err := planExists(ctx, tx, planID)
				if err != nil {
					api.RespondWithError(w, http.StatusInternalServerError, err.Error())
					return
				}
				if !exists {
					api.RespondWithError(w, http.StatusBadRequest,
						constants.FormatRowError(rowNum, constants.ErrPlanNotFound))
					return
				}
			}

			scheduledAmount, err := decimal.NewFromString(field(record, "scheduled_amount"))
			if err != nil || scheduledAmount.IsNegative() {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatRowError(rowNum, constants.FormatFieldError("scheduled_amount", constants.ErrInvalidAmount)))
				return
			}
			scheduledDate, err := time.ParseInLocation(constants.DateFormat, field(record, "scheduled_date"), time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatRowError(rowNum, constants.FormatError(constants.ErrInvalidDateFormat, "scheduled_date")))
				return
			}

			var paidAmount *decimal.Decimal
			var paidDate *time.Time
			status := StatusPending
			if raw := field(record, "paid_amount"); raw != "" {
				parsed, err := decimal.NewFromString(raw)
				if err != nil || parsed.IsNegative() {
					api.RespondWithError(w, http.StatusBadRequest,
						constants.FormatRowError(rowNum, constants.FormatFieldError("paid_amount", constants.ErrInvalidAmount)))
					return
				}
				if !parsed.IsZero() {
					paidAmount = &parsed
					status = StatusPaid
					if rawDate := field(record, "paid_date"); rawDate != "" {
						d, err := time.ParseInLocation(constants.DateFormat, rawDate, time.Local)
						if err != nil {
							api.RespondWithError(w, http.StatusBadRequest,
								constants.FormatRowError(rowNum, constants.FormatError(constants.ErrInvalidDateFormat, "paid_date")))
							return
						}
						paidDate = &d
					}
				}
			}

			receipt := field(record, "receipt_number")
			if receipt == "" {
				receipt = uuid.NewString()
			}

			_, err = tx.Exec(ctx, `INSERT INTO plan_payments (
				plan_id, scheduled_amount, scheduled_date, paid_amount, paid_date, status, receipt_number
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				planID, scheduledAmount, scheduledDate, paidAmount, paidDate, status, receipt)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			touchedPlans[planID] = true
			inserted++
		}

		if inserted == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrEmptyFile)
			return
		}

		for planID := range touchedPlans {
			if err := recomputePlanTotals(ctx, tx, planID); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		plans := make([]string, 0, len(touchedPlans))
		for planID := range touchedPlans {
			plans = append(plans, planID)
		}
		api.WriteAuditTrail(pool, "payment_plan", strings.Join(plans, ","), "CREATE",
			fmt.Sprintf("legacy import of %d installments across %d plans", inserted, len(plans)), requestedBy)

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"inserted":         inserted,
			"plans_reconciled": len(plans),
		})
	}
}
