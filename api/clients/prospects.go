package clients

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/constants"
)

// CreateProspect handles POST /clients/prospects/create.
func CreateProspect(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string `json:"user_id"`
			FullName string `json:"full_name"`
			Phone    string `json:"phone"`
			Court    string `json:"court"`
			Offense  string `json:"offense"`
			Notes    string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FullName == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		var prospectID string
		err := db.QueryRowContext(r.Context(), `INSERT INTO prospects (
			full_name, phone, court, offense, status, notes, created_at
		) VALUES ($1, $2, $3, $4, 'Open', $5, now()) RETURNING prospect_id`,
			req.FullName, req.Phone, req.Court, req.Offense, req.Notes,
		).Scan(&prospectID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		api.WriteAuditTrailDB(db, "prospect", prospectID, "CREATE", "prospect "+req.FullName, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"prospect_id": prospectID,
		})
	}
}

// GetProspects handles POST /clients/prospects/list.
func GetProspects(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
			Status string `json:"status,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if resolveSessionEmail(req.UserID) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		query := `SELECT prospect_id, full_name, phone, court, offense, status, notes, created_at
			FROM prospects`
		params := []interface{}{}
		if req.Status != "" {
			query += " WHERE status = $1"
			params = append(params, req.Status)
		}
		query += " ORDER BY created_at DESC"

		rows, err := db.QueryContext(r.Context(), query, params...)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		defer rows.Close()

		prospects := []map[string]interface{}{}
		for rows.Next() {
			var prospectID, fullName, phone, court, offense, status, notes string
			var createdAt time.Time
			if err := rows.Scan(&prospectID, &fullName, &phone, &court, &offense, &status, &notes, &createdAt); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			prospects = append(prospects, map[string]interface{}{
				"prospect_id": prospectID,
				"full_name":   fullName,
				"phone":       phone,
				"court":       court,
				"offense":     offense,
				"status":      status,
				"notes":       notes,
				"created_at":  createdAt.Format(constants.DateTimeFormat),
			})
		}
		if err := rows.Err(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		api.RespondWithPayload(w, true, "", prospects)
	}
}

// UpdateProspectStatus handles POST /clients/prospects/update-status.
func UpdateProspectStatus(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string `json:"user_id"`
			ProspectID string `json:"prospect_id"`
			Status     string `json:"status"`
			Notes      string `json:"notes,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProspectID == "" || req.Status == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		res, err := db.ExecContext(r.Context(),
			`UPDATE prospects SET status = $1, notes = COALESCE(NULLIF($2, ''), notes) WHERE prospect_id = $3`,
			req.Status, req.Notes, req.ProspectID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrProspectNotFound)
			return
		}

		api.WriteAuditTrailDB(db, "prospect", req.ProspectID, "EDIT", "status -> "+req.Status, requestedBy)
		api.RespondWithResult(w, true, "")
	}
}

// ConvertProspect handles POST /clients/prospects/convert: creates the
// client record from the prospect and closes the prospect, atomically. The
// contract fields arrive with the conversion because prospects never carry
// them.
func ConvertProspect(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID           string `json:"user_id"`
			ProspectID       string `json:"prospect_id"`
			IdentityNumber   string `json:"identity_number"`
			ProsecutorFile   string `json:"prosecutor_file"`
			PlacementDate    string `json:"placement_date,omitempty"`
			ContractDate     string `json:"contract_date,omitempty"`
			ContractDuration int    `json:"contract_duration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProspectID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}
		if req.PlacementDate == "" && req.ContractDate == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidContractDates)
			return
		}
		if req.ContractDuration <= 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidDuration)
			return
		}
		placementDate, err := parseOptionalDate(req.PlacementDate)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "placement_date"))
			return
		}
		contractDate, err := parseOptionalDate(req.ContractDate)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "contract_date"))
			return
		}

		tx, err := db.BeginTx(r.Context(), nil)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionFailed)
			return
		}
		defer tx.Rollback()

		var fullName, court string
		err = tx.QueryRow(`SELECT full_name, court FROM prospects WHERE prospect_id = $1 AND status <> 'Converted'`,
			req.ProspectID).Scan(&fullName, &court)
		if err != nil {
			if err == sql.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrProspectNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			}
			return
		}

		var clientID string
		err = tx.QueryRow(`INSERT INTO clients (
			full_name, identity_number, court, prosecutor_file,
			placement_date, contract_date, contract_duration, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'Active', now()) RETURNING client_id`,
			fullName, req.IdentityNumber, court, req.ProsecutorFile,
			placementDate, contractDate, req.ContractDuration,
		).Scan(&clientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrClientCreateFailed)
			return
		}

		_, err = tx.Exec(`UPDATE prospects SET status = 'Converted' WHERE prospect_id = $1`, req.ProspectID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		if err := tx.Commit(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTransactionCommitFailed)
			return
		}

		api.WriteAuditTrailDB(db, "client", clientID, "CREATE", "converted from prospect "+req.ProspectID, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"client_id": clientID,
		})
	}
}
