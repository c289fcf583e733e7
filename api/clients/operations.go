package clients

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/constants"
)

// CreateOperation handles POST /clients/operations/create: schedules a
// field operation (installation visit, court hearing, device check) on a
// client.
func CreateOperation(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID        string `json:"user_id"`
			ClientID      string `json:"client_id"`
			OperationType string `json:"operation_type"`
			ScheduledAt   string `json:"scheduled_at"`
			PerformedBy   string `json:"performed_by,omitempty"`
			Notes         string `json:"notes,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" || req.OperationType == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}
		scheduledAt, err := time.ParseInLocation(constants.DateTimeFormat, req.ScheduledAt, time.Local)
		if err != nil {
			scheduledAt, err = time.ParseInLocation(constants.DateFormat, req.ScheduledAt, time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "scheduled_at"))
				return
			}
		}

		var exists bool
		if err := db.QueryRowContext(r.Context(), `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`,
			req.ClientID).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		if !exists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			return
		}

		var operationID string
		err = db.QueryRowContext(r.Context(), `INSERT INTO operations (
			client_id, operation_type, scheduled_at, performed_by, result, notes
		) VALUES ($1, $2, $3, $4, '', $5) RETURNING operation_id`,
			req.ClientID, req.OperationType, scheduledAt, req.PerformedBy, req.Notes,
		).Scan(&operationID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		api.WriteAuditTrailDB(db, "operation", operationID, "CREATE",
			req.OperationType+" for client "+req.ClientID, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"operation_id": operationID,
		})
	}
}

// GetOperations handles POST /clients/operations/list.
func GetOperations(db *sql.DB) http.HandlerFunc {
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

		rows, err := db.QueryContext(r.Context(), `SELECT operation_id, operation_type, scheduled_at,
			performed_by, result, notes
			FROM operations WHERE client_id = $1 ORDER BY scheduled_at DESC`, req.ClientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		defer rows.Close()

		operations := []map[string]interface{}{}
		for rows.Next() {
			var operationID, operationType, performedBy, result, notes string
			var scheduledAt time.Time
			if err := rows.Scan(&operationID, &operationType, &scheduledAt, &performedBy, &result, &notes); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			operations = append(operations, map[string]interface{}{
				"operation_id":   operationID,
				"operation_type": operationType,
				"scheduled_at":   scheduledAt.Format(constants.DateTimeFormat),
				"performed_by":   performedBy,
				"result":         result,
				"notes":          notes,
			})
		}
		if err := rows.Err(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		api.RespondWithPayload(w, true, "", operations)
	}
}

// RecordOperationResult handles POST /clients/operations/record-result.
func RecordOperationResult(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID      string `json:"user_id"`
			OperationID string `json:"operation_id"`
			Result      string `json:"result"`
			PerformedBy string `json:"performed_by,omitempty"`
			Notes       string `json:"notes,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OperationID == "" || req.Result == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		res, err := db.ExecContext(r.Context(), `UPDATE operations SET
			result = $1,
			performed_by = COALESCE(NULLIF($2, ''), performed_by),
			notes = COALESCE(NULLIF($3, ''), notes)
			WHERE operation_id = $4`,
			req.Result, req.PerformedBy, req.Notes, req.OperationID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrOperationNotFound)
			return
		}

		api.WriteAuditTrailDB(db, "operation", req.OperationID, "EDIT", "result recorded", requestedBy)
		api.RespondWithResult(w, true, "")
	}
}

// DeleteOperation handles POST /clients/operations/delete.
func DeleteOperation(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID      string `json:"user_id"`
			OperationID string `json:"operation_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OperationID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		res, err := db.ExecContext(r.Context(), `DELETE FROM operations WHERE operation_id = $1`, req.OperationID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrOperationNotFound)
			return
		}

		api.WriteAuditTrailDB(db, "operation", req.OperationID, "DELETE", "operation removed", requestedBy)
		api.RespondWithResult(w, true, "")
	}
}
