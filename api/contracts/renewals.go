package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/api/constants"
	"CustodiaLegalSaas/internal/dates"
)

var (
	errDuplicateRenewal        = errors.New("renewal already recorded for this calendar day")
	errExpirationIndeterminate = errors.New("contract data does not yield a current expiration date")
)

// renewalStore is the storage slice the renewal flow touches. A pgx
// transaction backs it in production; tests substitute an in-memory store.
type renewalStore interface {
	LockClientContract(ctx context.Context, clientID string) (ClientContract, error)
	HasRenewalOn(ctx context.Context, clientID string, day time.Time) (bool, error)
	ListClientRenewals(ctx context.Context, clientID string) ([]Renewal, error)
	InsertRenewal(ctx context.Context, clientID string, day time.Time, durationText string, documentRef *string, createdBy string) (string, error)
}

type txRenewalStore struct {
	tx pgx.Tx
}

func (s txRenewalStore) LockClientContract(ctx context.Context, clientID string) (ClientContract, error) {
	return loadClientContract(ctx, s.tx, clientID, true)
}

func (s txRenewalStore) HasRenewalOn(ctx context.Context, clientID string, day time.Time) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM renewals WHERE client_id = $1 AND renewal_date = $2::date)`,
		clientID, day,
	).Scan(&exists)
	return exists, err
}

func (s txRenewalStore) ListClientRenewals(ctx context.Context, clientID string) ([]Renewal, error) {
	return loadRenewals(ctx, s.tx, clientID)
}

func (s txRenewalStore) InsertRenewal(ctx context.Context, clientID string, day time.Time, durationText string, documentRef *string, createdBy string) (string, error) {
	var renewalID string
	err := s.tx.QueryRow(ctx, `INSERT INTO renewals (
		client_id, renewal_date, renewal_duration, document_ref, created_by, created_at
	) VALUES ($1, $2, $3, $4, $5, now()) RETURNING renewal_id`,
		clientID, day, durationText, documentRef, createdBy,
	).Scan(&renewalID)
	return renewalID, err
}

// RenewalResult is the outcome of a successful renewal.
type RenewalResult struct {
	RenewalID          string
	RenewalDate        time.Time
	PreviousExpiration time.Time
	NewExpiration      time.Time
	MonthsAdded        int
}

// performRenewal runs the renewal flow against a locked client: reject a
// second renewal on the same calendar day, chain the new expiration from the
// current one, insert the row. renewalDate is truncated to its calendar day
// before the duplicate check and the insert, so two renewals hours apart
// within one day still collide. Nothing is inserted on any error path.
func performRenewal(ctx context.Context, store renewalStore, clientID string, months int, renewalDate time.Time, documentRef *string, createdBy string) (RenewalResult, error) {
	day := time.Date(renewalDate.Year(), renewalDate.Month(), renewalDate.Day(), 0, 0, 0, 0, time.Local)

	client, err := store.LockClientContract(ctx, clientID)
	if err != nil {
		return RenewalResult{}, err
	}
	exists, err := store.HasRenewalOn(ctx, clientID, day)
	if err != nil {
		return RenewalResult{}, err
	}
	if exists {
		return RenewalResult{}, errDuplicateRenewal
	}

	renewals, err := store.ListClientRenewals(ctx, clientID)
	if err != nil {
		return RenewalResult{}, err
	}
	previousExpiration, err := CurrentExpiration(client, renewals)
	if err != nil {
		return RenewalResult{}, errExpirationIndeterminate
	}
	newExpiration, err := dates.AddMonths(previousExpiration, months)
	if err != nil {
		return RenewalResult{}, err
	}

	renewalID, err := store.InsertRenewal(ctx, clientID, day,
		fmt.Sprintf("%d meses", months), documentRef, createdBy)
	if err != nil {
		return RenewalResult{}, err
	}
	return RenewalResult{
		RenewalID:          renewalID,
		RenewalDate:        day,
		PreviousExpiration: previousExpiration,
		NewExpiration:      newExpiration,
		MonthsAdded:        months,
	}, nil
}

// RenewContract handles POST /contracts/renew. The duplicate check, basis
// resolution and insert all run inside one transaction; the client row is
// locked first so two concurrent renewals for the same client serialize
// instead of racing the same-day check.
func RenewContract(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID      string `json:"user_id"`
			ClientID    string `json:"client_id"`
			Months      int    `json:"months"`
			RenewalDate string `json:"renewal_date,omitempty"`
			DocumentRef string `json:"document_ref,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if req.UserID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUserID)
			return
		}
		if req.Months <= 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidMonths)
			return
		}
		requestedBy := ""
		for _, s := range auth.GetActiveSessions() {
			if s.UserID == req.UserID {
				requestedBy = s.Email
				break
			}
		}
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		renewalDate := time.Now()
		if req.RenewalDate != "" {
			parsed, err := time.ParseInLocation(constants.DateFormat, req.RenewalDate, time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest,
					constants.FormatError(constants.ErrInvalidDateFormat, "renewal_date"))
				return
			}
			renewalDate = parsed
		}
		var documentRef *string
		if req.DocumentRef != "" {
			documentRef = &req.DocumentRef
		}

		ctx := r.Context()
		tx, err := pool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback(ctx)

		res, err := performRenewal(ctx, txRenewalStore{tx}, req.ClientID, req.Months, renewalDate, documentRef, requestedBy)
		if err != nil {
			switch {
			case err == pgx.ErrNoRows:
				api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			case errors.Is(err, errDuplicateRenewal):
				api.RespondWithError(w, http.StatusConflict, constants.ErrDuplicateRenewal)
			case errors.Is(err, errExpirationIndeterminate):
				api.RespondWithError(w, http.StatusUnprocessableEntity,
					"cannot renew: contract data does not yield a current expiration date")
			default:
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		durationText := fmt.Sprintf("%d meses", res.MonthsAdded)
		api.WriteAuditTrail(pool, "renewal", res.RenewalID, "CREATE",
			fmt.Sprintf("client %s renewed %s from %s", req.ClientID, durationText,
				res.RenewalDate.Format(constants.DateFormat)),
			requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":                  true,
			"renewal_id":               res.RenewalID,
			"previous_expiration_date": res.PreviousExpiration.Format(constants.DateFormat),
			"new_expiration_date":      res.NewExpiration.Format(constants.DateFormat),
			"days_remaining":           dates.DaysRemaining(res.NewExpiration),
			"months_added":             res.MonthsAdded,
			"renewal_date":             res.RenewalDate.Format(constants.DateFormat),
		})
	}
}

// ListRenewals handles POST /contracts/renewals, newest first.
func ListRenewals(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string `json:"user_id"`
			ClientID string `json:"client_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		sessionOK := false
		for _, s := range auth.GetActiveSessions() {
			if s.UserID == req.UserID {
				sessionOK = true
				break
			}
		}
		if !sessionOK {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		ctx := r.Context()
		rows, err := pool.Query(ctx, `SELECT renewal_id, renewal_date, renewal_duration,
			COALESCE(document_ref, ''), created_by, created_at
			FROM renewals WHERE client_id = $1 ORDER BY renewal_date DESC`, req.ClientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer rows.Close()

		results := make([]map[string]interface{}, 0)
		for rows.Next() {
			var (
				renewalID, durationText, documentRef, createdBy string
				renewalDate, createdAt                          time.Time
			)
			if err := rows.Scan(&renewalID, &renewalDate, &durationText, &documentRef, &createdBy, &createdAt); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			results = append(results, map[string]interface{}{
				"renewal_id":       renewalID,
				"renewal_date":     renewalDate.Format(constants.DateFormat),
				"renewal_duration": durationText,
				"months":           dates.ExtractMonths(durationText),
				"document_ref":     documentRef,
				"created_by":       createdBy,
				"created_at":       createdAt.Format(constants.DateTimeFormat),
			})
		}
		api.RespondWithPayload(w, true, "", results)
	}
}
