package dash

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/api/constants"
	"CustodiaLegalSaas/internal/dashboard"
)

func resolveSessionEmail(userID string) string {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Email
		}
	}
	return ""
}

// QueryAuditTrail handles POST /dash/audit: the recent audit history,
// optionally narrowed to an entity type or a specific entity id.
func QueryAuditTrail(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string `json:"user_id"`
			EntityType string `json:"entity_type,omitempty"`
			EntityID   string `json:"entity_id,omitempty"`
			Limit      int    `json:"limit,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if resolveSessionEmail(req.UserID) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}
		limit := req.Limit
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		query := `SELECT audit_id, entity_type, entity_id, actiontype, details, requested_by, requested_at
			FROM audit_trail`
		params := []interface{}{}
		var conds []string
		if req.EntityType != "" {
			params = append(params, req.EntityType)
			conds = append(conds, fmt.Sprintf("entity_type = $%d", len(params)))
		}
		if req.EntityID != "" {
			params = append(params, req.EntityID)
			conds = append(conds, fmt.Sprintf("entity_id = $%d", len(params)))
		}
		if len(conds) > 0 {
			query += " WHERE " + strings.Join(conds, " AND ")
		}
		params = append(params, limit)
		query += fmt.Sprintf(" ORDER BY requested_at DESC LIMIT $%d", len(params))

		rows, err := pool.Query(r.Context(), query, params...)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer rows.Close()

		entries := []map[string]interface{}{}
		for rows.Next() {
			var auditID, entityType, entityID, actionType, details, requestedBy string
			var requestedAt time.Time
			if err := rows.Scan(&auditID, &entityType, &entityID, &actionType, &details, &requestedBy, &requestedAt); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			entries = append(entries, map[string]interface{}{
				"audit_id":     auditID,
				"entity_type":  entityType,
				"entity_id":    entityID,
				"actiontype":   actionType,
				"details":      details,
				"requested_by": requestedBy,
				"requested_at": requestedAt.Format(constants.DateTimeFormat),
			})
		}
		if err := rows.Err(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", entries)
	}
}

// GetSummary handles POST /dash/summary: headline counts for the landing
// dashboard.
func GetSummary(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if resolveSessionEmail(req.UserID) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		ctx := r.Context()
		var activeClients, openProspects, installedCarriers, openPlans int
		err := pool.QueryRow(ctx, `SELECT
			(SELECT COUNT(*) FROM clients WHERE status = 'Active'),
			(SELECT COUNT(*) FROM prospects WHERE status = 'Open'),
			(SELECT COUNT(*) FROM carriers WHERE removed_at IS NULL),
			(SELECT COUNT(*) FROM payment_plans WHERE total_pending_amount > 0)`).Scan(
			&activeClients, &openProspects, &installedCarriers, &openPlans)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"active_clients":     activeClients,
			"open_prospects":     openProspects,
			"installed_carriers": installedCarriers,
			"plans_with_pending": openPlans,
			"live_dashboards":    dashboard.GetClientCount(),
		})
	}
}
