package clients

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/api/constants"
	"CustodiaLegalSaas/api/utils"
)

func resolveSessionEmail(userID string) string {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Email
		}
	}
	return ""
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(constants.DateFormat, value, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateClient handles POST /clients/create. Placement and contract dates
// are both optional in legacy data, but a new record needs at least one of
// them and a positive duration, otherwise its validity could never be
// computed.
func CreateClient(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID           string `json:"user_id"`
			FullName         string `json:"full_name"`
			IdentityNumber   string `json:"identity_number"`
			Court            string `json:"court"`
			ProsecutorFile   string `json:"prosecutor_file"`
			PlacementDate    string `json:"placement_date,omitempty"`
			ContractDate     string `json:"contract_date,omitempty"`
			ContractDuration int    `json:"contract_duration"`
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

		var clientID string
		err = db.QueryRowContext(r.Context(), `INSERT INTO clients (
			full_name, identity_number, court, prosecutor_file,
			placement_date, contract_date, contract_duration, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'Active', now()) RETURNING client_id`,
			req.FullName, req.IdentityNumber, req.Court, req.ProsecutorFile,
			placementDate, contractDate, req.ContractDuration,
		).Scan(&clientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrClientCreateFailed)
			return
		}

		api.WriteAuditTrailDB(db, "client", clientID, "CREATE", "client "+req.FullName, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"client_id": clientID,
		})
	}
}

// GetClients handles POST /clients/list. Each row carries the latest audit
// attribution, fetched in one query over the returned ids.
func GetClients(db *sql.DB) http.HandlerFunc {
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

		pagination, err := utils.ExtractPagination(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		query := `SELECT client_id, full_name, identity_number, court, prosecutor_file,
			placement_date, contract_date, contract_duration, status, created_at
			FROM clients`
		countQuery := "SELECT COUNT(*) FROM clients"
		params := []interface{}{}
		if req.Status != "" {
			query += " WHERE status = $1"
			countQuery += " WHERE status = $1"
			params = append(params, req.Status)
		}
		total, err := utils.CountTotal(db, countQuery, params...)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		pagination.SetPaginationStats(total)
		query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", pagination.Limit, pagination.Offset)

		rows, err := db.QueryContext(r.Context(), query, params...)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		defer rows.Close()

		var ids []string
		clients := []map[string]interface{}{}
		for rows.Next() {
			var (
				clientID, fullName, identityNumber, court, prosecutorFile, status string
				placementDate, contractDate                                       sql.NullTime
				contractDuration                                                  int
				createdAt                                                         time.Time
			)
			if err := rows.Scan(&clientID, &fullName, &identityNumber, &court, &prosecutorFile,
				&placementDate, &contractDate, &contractDuration, &status, &createdAt); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			row := map[string]interface{}{
				"client_id":         clientID,
				"full_name":         fullName,
				"identity_number":   identityNumber,
				"court":             court,
				"prosecutor_file":   prosecutorFile,
				"contract_duration": contractDuration,
				"status":            status,
				"created_at":        createdAt.Format(constants.DateTimeFormat),
			}
			if placementDate.Valid {
				row["placement_date"] = placementDate.Time.Format(constants.DateFormat)
			}
			if contractDate.Valid {
				row["contract_date"] = contractDate.Time.Format(constants.DateFormat)
			}
			ids = append(ids, clientID)
			clients = append(clients, row)
		}
		if err := rows.Err(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		if len(ids) > 0 {
			auditRows, err := db.QueryContext(r.Context(), `SELECT DISTINCT ON (entity_id)
				entity_id, actiontype, requested_by, requested_at
				FROM audit_trail
				WHERE entity_type = 'client' AND entity_id = ANY($1)
				ORDER BY entity_id, requested_at DESC`, pq.Array(ids))
			if err == nil {
				defer auditRows.Close()
				auditByID := map[string]api.ActionAuditInfo{}
				for auditRows.Next() {
					var entityID, actionType string
					var requestedBy *string
					var requestedAt *time.Time
					if err := auditRows.Scan(&entityID, &actionType, &requestedBy, &requestedAt); err != nil {
						continue
					}
					auditByID[entityID] = api.GetAuditInfo(actionType, requestedBy, requestedAt)
				}
				for _, row := range clients {
					if info, ok := auditByID[row["client_id"].(string)]; ok {
						row["audit"] = info
					}
				}
			} else {
				api.LogError("client audit lookup failed: %v", err)
			}
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"clients":    clients,
			"pagination": pagination,
		})
	}
}

// GetClientByID handles POST /clients/get.
func GetClientByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string `json:"user_id"`
			ClientID string `json:"client_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if resolveSessionEmail(req.UserID) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		var (
			fullName, identityNumber, court, prosecutorFile, status string
			placementDate, contractDate                             sql.NullTime
			contractDuration                                        int
			createdAt                                               time.Time
		)
		err := db.QueryRowContext(r.Context(), `SELECT full_name, identity_number, court, prosecutor_file,
			placement_date, contract_date, contract_duration, status, created_at
			FROM clients WHERE client_id = $1`, req.ClientID).Scan(
			&fullName, &identityNumber, &court, &prosecutorFile,
			&placementDate, &contractDate, &contractDuration, &status, &createdAt)
		if err != nil {
			if err == sql.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			}
			return
		}

		row := map[string]interface{}{
			"client_id":         req.ClientID,
			"full_name":         fullName,
			"identity_number":   identityNumber,
			"court":             court,
			"prosecutor_file":   prosecutorFile,
			"contract_duration": contractDuration,
			"status":            status,
			"created_at":        createdAt.Format(constants.DateTimeFormat),
		}
		if placementDate.Valid {
			row["placement_date"] = placementDate.Time.Format(constants.DateFormat)
		}
		if contractDate.Valid {
			row["contract_date"] = contractDate.Time.Format(constants.DateFormat)
		}
		api.RespondWithPayload(w, true, "", row)
	}
}

// UpdateClient handles POST /clients/update. Only the enumerated columns
// below can change; contract dates and duration stay subject to the same
// validation as creation.
func UpdateClient(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID           string  `json:"user_id"`
			ClientID         string  `json:"client_id"`
			FullName         *string `json:"full_name,omitempty"`
			IdentityNumber   *string `json:"identity_number,omitempty"`
			Court            *string `json:"court,omitempty"`
			ProsecutorFile   *string `json:"prosecutor_file,omitempty"`
			PlacementDate    *string `json:"placement_date,omitempty"`
			ContractDate     *string `json:"contract_date,omitempty"`
			ContractDuration *int    `json:"contract_duration,omitempty"`
			Status           *string `json:"status,omitempty"`
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

		var sets []string
		var args []interface{}
		pos := 1
		addSet := func(column string, value interface{}) {
			sets = append(sets, fmt.Sprintf("%s = $%d", column, pos))
			args = append(args, value)
			pos++
		}

		if req.FullName != nil {
			addSet("full_name", *req.FullName)
		}
		if req.IdentityNumber != nil {
			addSet("identity_number", *req.IdentityNumber)
		}
		if req.Court != nil {
			addSet("court", *req.Court)
		}
		if req.ProsecutorFile != nil {
			addSet("prosecutor_file", *req.ProsecutorFile)
		}
		if req.PlacementDate != nil {
			parsed, err := parseOptionalDate(*req.PlacementDate)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "placement_date"))
				return
			}
			addSet("placement_date", parsed)
		}
		if req.ContractDate != nil {
			parsed, err := parseOptionalDate(*req.ContractDate)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "contract_date"))
				return
			}
			addSet("contract_date", parsed)
		}
		if req.ContractDuration != nil {
			if *req.ContractDuration <= 0 {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidDuration)
				return
			}
			addSet("contract_duration", *req.ContractDuration)
		}
		if req.Status != nil {
			addSet("status", *req.Status)
		}

		if len(sets) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoFieldsToUpdate)
			return
		}

		query := "UPDATE clients SET " + strings.Join(sets, ", ") + fmt.Sprintf(" WHERE client_id = $%d", pos)
		args = append(args, req.ClientID)
		res, err := db.ExecContext(r.Context(), query, args...)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrClientUpdateFailed)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			return
		}

		api.WriteAuditTrailDB(db, "client", req.ClientID, "EDIT", "client updated", requestedBy)
		api.RespondWithResult(w, true, "")
	}
}

// DeleteClient handles POST /clients/delete.
func DeleteClient(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string `json:"user_id"`
			ClientID string `json:"client_id"`
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

		res, err := db.ExecContext(r.Context(), `UPDATE clients SET status = 'Deleted' WHERE client_id = $1`, req.ClientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			return
		}

		api.WriteAuditTrailDB(db, "client", req.ClientID, "DELETE", "client marked deleted", requestedBy)
		api.RespondWithResult(w, true, "")
	}
}
