package clients

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/constants"
)

// AssignCarrier handles POST /clients/carriers/assign: registers a
// monitoring device on a client.
func AssignCarrier(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID       string `json:"user_id"`
			ClientID     string `json:"client_id"`
			DeviceSerial string `json:"device_serial"`
			InstalledAt  string `json:"installed_at,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" || req.DeviceSerial == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		installedAt := time.Now()
		if req.InstalledAt != "" {
			parsed, err := time.ParseInLocation(constants.DateFormat, req.InstalledAt, time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "installed_at"))
				return
			}
			installedAt = parsed
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

		var carrierID string
		err := db.QueryRowContext(r.Context(), `INSERT INTO carriers (
			client_id, device_serial, installed_at, status
		) VALUES ($1, $2, $3, 'Installed') RETURNING carrier_id`,
			req.ClientID, req.DeviceSerial, installedAt,
		).Scan(&carrierID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		api.WriteAuditTrailDB(db, "carrier", carrierID, "CREATE",
			"device "+req.DeviceSerial+" on client "+req.ClientID, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"carrier_id": carrierID,
		})
	}
}

// GetCarriers handles POST /clients/carriers/list.
func GetCarriers(db *sql.DB) http.HandlerFunc {
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

		rows, err := db.QueryContext(r.Context(), `SELECT carrier_id, device_serial, installed_at, removed_at, status
			FROM carriers WHERE client_id = $1 ORDER BY installed_at DESC`, req.ClientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		defer rows.Close()

		carriers := []map[string]interface{}{}
		for rows.Next() {
			var carrierID, deviceSerial, status string
			var installedAt time.Time
			var removedAt sql.NullTime
			if err := rows.Scan(&carrierID, &deviceSerial, &installedAt, &removedAt, &status); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			row := map[string]interface{}{
				"carrier_id":    carrierID,
				"device_serial": deviceSerial,
				"installed_at":  installedAt.Format(constants.DateFormat),
				"status":        status,
			}
			if removedAt.Valid {
				row["removed_at"] = removedAt.Time.Format(constants.DateFormat)
			}
			carriers = append(carriers, row)
		}
		if err := rows.Err(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}
		api.RespondWithPayload(w, true, "", carriers)
	}
}

// RemoveCarrier handles POST /clients/carriers/remove: marks the device
// removed. Removing twice is an error so field staff notice stale state.
func RemoveCarrier(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID    string `json:"user_id"`
			CarrierID string `json:"carrier_id"`
			RemovedAt string `json:"removed_at,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CarrierID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		removedAt := time.Now()
		if req.RemovedAt != "" {
			parsed, err := time.ParseInLocation(constants.DateFormat, req.RemovedAt, time.Local)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.FormatError(constants.ErrInvalidDateFormat, "removed_at"))
				return
			}
			removedAt = parsed
		}

		var alreadyRemoved bool
		err := db.QueryRowContext(r.Context(), `SELECT removed_at IS NOT NULL FROM carriers WHERE carrier_id = $1`,
			req.CarrierID).Scan(&alreadyRemoved)
		if err != nil {
			if err == sql.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrCarrierNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			}
			return
		}
		if alreadyRemoved {
			api.RespondWithError(w, http.StatusConflict, constants.ErrCarrierAlreadyFreed)
			return
		}

		_, err = db.ExecContext(r.Context(),
			`UPDATE carriers SET removed_at = $1, status = 'Removed' WHERE carrier_id = $2`,
			removedAt, req.CarrierID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed)
			return
		}

		api.WriteAuditTrailDB(db, "carrier", req.CarrierID, "EDIT", "device removed", requestedBy)
		api.RespondWithResult(w, true, "")
	}
}
