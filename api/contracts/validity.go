package contracts

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/api/constants"
	"CustodiaLegalSaas/internal/config"
	"CustodiaLegalSaas/internal/dates"
)

// ClientContract is the contract-bearing slice of a client row.
type ClientContract struct {
	ClientID         string
	PlacementDate    time.Time // zero when not set
	ContractDate     time.Time // zero when not set
	ContractDuration int       // months
}

// Renewal is one recorded contract extension.
type Renewal struct {
	RenewalID       string
	RenewalDate     time.Time
	RenewalDuration string // display text, e.g. "6 meses"
	DocumentRef     string
}

// RenewalSummary carries the latest renewal's own date and month count.
type RenewalSummary struct {
	RenewalDate time.Time
	Months      int
}

// ValiditySnapshot is the derived state of a determinate contract.
type ValiditySnapshot struct {
	ExpirationDate   time.Time
	MonthsContracted int
	DaysRemaining    int
	IsActive         bool
	LastRenewal      *RenewalSummary
}

// Validity is the result of the vigencia calculation. Indeterminate replaces
// the legacy "N/A" string sentinels: callers branch on Determinate instead of
// comparing strings, and the handler maps Indeterminate back to "N/A" on the
// wire for compatibility.
type Validity struct {
	Determinate bool
	Reason      string
	Snapshot    ValiditySnapshot
}

func indeterminate(reason string) Validity {
	return Validity{Determinate: false, Reason: reason}
}

// contractBaseDate picks the fallback basis date for a contract without
// renewals: placement date when plausible, else contract date.
func contractBaseDate(c ClientContract) (time.Time, bool) {
	if dates.YearInRange(c.PlacementDate, config.MinContractYear, config.MaxContractYear) {
		return c.PlacementDate, true
	}
	if dates.YearInRange(c.ContractDate, config.MinContractYear, config.MaxContractYear) {
		return c.ContractDate, true
	}
	return time.Time{}, false
}

// latestRenewal returns the renewal with the greatest renewal_date. The store
// returns rows ordered descending already, but the basis must follow the
// date, not the row order, so this scans the whole list.
func latestRenewal(renewals []Renewal) *Renewal {
	var latest *Renewal
	for i := range renewals {
		if latest == nil || renewals[i].RenewalDate.After(latest.RenewalDate) {
			latest = &renewals[i]
		}
	}
	return latest
}

// ComputeValidity derives the current vigencia of a contract from the client
// row and its full renewal history.
//
// Two numbers here are intentionally not the same: months contracted sums the
// durations of ALL renewals ever granted, while the expiration basis uses
// only the LATEST renewal's own duration added to its own date. Legal
// reporting depends on both as-is; do not merge them.
func ComputeValidity(c ClientContract, renewals []Renewal) Validity {
	base, ok := contractBaseDate(c)
	if !ok {
		return indeterminate("no valid placement or contract date")
	}
	if c.ContractDuration <= 0 {
		return indeterminate("contract duration is not a positive month count")
	}

	monthsContracted := c.ContractDuration
	for _, r := range renewals {
		monthsContracted += dates.ExtractMonths(r.RenewalDuration)
	}

	basisDate := base
	basisMonths := c.ContractDuration
	var last *RenewalSummary
	if latest := latestRenewal(renewals); latest != nil {
		basisDate = latest.RenewalDate
		basisMonths = dates.ExtractMonths(latest.RenewalDuration)
		last = &RenewalSummary{RenewalDate: latest.RenewalDate, Months: basisMonths}
	}

	expiration, err := dates.AddMonths(basisDate, basisMonths)
	if err != nil {
		// Malformed history (e.g. a renewal whose duration text has no
		// digits) degrades instead of erroring out a listing endpoint.
		return indeterminate("cannot compute expiration: " + err.Error())
	}

	remaining := dates.DaysRemaining(expiration)
	return Validity{
		Determinate: true,
		Snapshot: ValiditySnapshot{
			ExpirationDate:   expiration,
			MonthsContracted: monthsContracted,
			DaysRemaining:    remaining,
			IsActive:         remaining > 0,
			LastRenewal:      last,
		},
	}
}

// CurrentExpiration resolves the contract's present expiration date, the
// value a new renewal chains from.
func CurrentExpiration(c ClientContract, renewals []Renewal) (time.Time, error) {
	v := ComputeValidity(c, renewals)
	if !v.Determinate {
		return time.Time{}, dates.ErrInvalidInput
	}
	return v.Snapshot.ExpirationDate, nil
}

func loadClientContract(ctx context.Context, q pgx.Tx, clientID string, forUpdate bool) (ClientContract, error) {
	query := `SELECT client_id, placement_date, contract_date, contract_duration FROM clients WHERE client_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var c ClientContract
	var placement, contract *time.Time
	var duration *int
	err := q.QueryRow(ctx, query, clientID).Scan(&c.ClientID, &placement, &contract, &duration)
	if err != nil {
		return ClientContract{}, err
	}
	if placement != nil {
		c.PlacementDate = *placement
	}
	if contract != nil {
		c.ContractDate = *contract
	}
	if duration != nil {
		c.ContractDuration = *duration
	}
	return c, nil
}

func loadRenewals(ctx context.Context, q pgx.Tx, clientID string) ([]Renewal, error) {
	rows, err := q.Query(ctx, `SELECT renewal_id, renewal_date, renewal_duration, COALESCE(document_ref, '')
		FROM renewals WHERE client_id = $1 ORDER BY renewal_date DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renewals []Renewal
	for rows.Next() {
		var r Renewal
		if err := rows.Scan(&r.RenewalID, &r.RenewalDate, &r.RenewalDuration, &r.DocumentRef); err != nil {
			return nil, err
		}
		renewals = append(renewals, r)
	}
	return renewals, rows.Err()
}

// GetContractValidity handles POST /contracts/validity.
func GetContractValidity(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string `json:"user_id"`
			ClientID string `json:"client_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if req.UserID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUserID)
			return
		}
		sessionEmail := ""
		for _, s := range auth.GetActiveSessions() {
			if s.UserID == req.UserID {
				sessionEmail = s.Email
				break
			}
		}
		if sessionEmail == "" {
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

		client, err := loadClientContract(ctx, tx, req.ClientID, false)
		if err != nil {
			if err == pgx.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		renewals, err := loadRenewals(ctx, tx, req.ClientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		api.RespondWithPayload(w, true, "", validityResponse(ComputeValidity(client, renewals)))
	}
}

// validityResponse maps a Validity to the legacy wire shape: indeterminate
// results render every derived field as "N/A" with is_active false.
func validityResponse(v Validity) map[string]interface{} {
	if !v.Determinate {
		return map[string]interface{}{
			"expiration_date":   constants.ValidityNA,
			"months_contracted": constants.ValidityNA,
			"days_remaining":    constants.ValidityNA,
			"is_active":         false,
			"reason":            v.Reason,
		}
	}
	resp := map[string]interface{}{
		"expiration_date":   v.Snapshot.ExpirationDate.Format(constants.DateFormat),
		"months_contracted": v.Snapshot.MonthsContracted,
		"days_remaining":    v.Snapshot.DaysRemaining,
		"is_active":         v.Snapshot.IsActive,
	}
	if v.Snapshot.LastRenewal != nil {
		resp["last_renewal"] = map[string]interface{}{
			"renewal_date": v.Snapshot.LastRenewal.RenewalDate.Format(constants.DateFormat),
			"months":       v.Snapshot.LastRenewal.Months,
		}
	}
	return resp
}
