package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/internal/dashboard"
)

// ActionAuditInfo holds audit info for a record
type ActionAuditInfo struct {
	CreatedBy string
	CreatedAt string
	EditedBy  string
	EditedAt  string
	DeletedBy string
	DeletedAt string
}

// GetAuditInfo parses audit action fields and returns audit info for create/edit/delete
func GetAuditInfo(actionType string, requestedBy *string, requestedAt *time.Time) ActionAuditInfo {
	info := ActionAuditInfo{}
	switch actionType {
	case "CREATE":
		info.CreatedBy = getPtrString(requestedBy)
		info.CreatedAt = getPtrTime(requestedAt)
	case "EDIT":
		info.EditedBy = getPtrString(requestedBy)
		info.EditedAt = getPtrTime(requestedAt)
	case "DELETE":
		info.DeletedBy = getPtrString(requestedBy)
		info.DeletedAt = getPtrTime(requestedAt)
	}
	return info
}

func getPtrString(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

func getPtrTime(t *time.Time) string {
	if t != nil {
		return t.Format("2006-01-02 15:04:05")
	}
	return ""
}

// IsBulkSuccess reports whether every entry of a bulk result slice succeeded
func IsBulkSuccess(results []map[string]interface{}) bool {
	for _, r := range results {
		if success, ok := r["success"].(bool); !ok || !success {
			return false
		}
	}
	return true
}

// RespondWithError sends a JSON error response with the given status
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	log.Println("[ERROR]", errMsg)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithResult sends a consistent JSON response for success or error
func RespondWithResult(w http.ResponseWriter, success bool, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	if success {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	} else {
		log.Println("[ERROR] RespondWithResult", errMsg)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": errMsg})
	}
}

// RespondWithPayload sends a consistent JSON response and includes an arbitrary payload
func RespondWithPayload(w http.ResponseWriter, success bool, errMsg string, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{"success": success}
	if !success && errMsg != "" {
		resp["error"] = errMsg
		log.Println("[ERROR] RespondWithPayload", errMsg)
	}
	if payload != nil {
		resp["rows"] = payload
	}
	json.NewEncoder(w).Encode(resp)
}

// WriteAuditTrail records a mutation in audit_trail without blocking or
// failing the primary operation. A failed insert is logged and dropped.
func WriteAuditTrail(pool *pgxpool.Pool, entityType, entityID, actionType, details, requestedBy string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := pool.Exec(ctx, `INSERT INTO audit_trail (
			entity_type, entity_id, actiontype, details, requested_by, requested_at
		) VALUES ($1, $2, $3, $4, $5, now())`,
			entityType, entityID, actionType, details, requestedBy,
		)
		if err != nil {
			log.Println("[ERROR] audit trail write failed:", err)
			return
		}
		broadcastAuditEvent(entityType, entityID, actionType, details, requestedBy)
	}()
}

// WriteAuditTrailDB is the database/sql twin of WriteAuditTrail for services
// that hold a *sql.DB instead of a pgx pool.
func WriteAuditTrailDB(db *sql.DB, entityType, entityID, actionType, details, requestedBy string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := db.ExecContext(ctx, `INSERT INTO audit_trail (
			entity_type, entity_id, actiontype, details, requested_by, requested_at
		) VALUES ($1, $2, $3, $4, $5, now())`,
			entityType, entityID, actionType, details, requestedBy,
		)
		if err != nil {
			log.Println("[ERROR] audit trail write failed:", err)
			return
		}
		broadcastAuditEvent(entityType, entityID, actionType, details, requestedBy)
	}()
}

// broadcastAuditEvent pushes the committed audit row to the live dashboard
// feeds (SSE and websocket).
func broadcastAuditEvent(entityType, entityID, actionType, details, requestedBy string) {
	dashboard.BroadcastAuditEvent(entityType, entityID, actionType, details, requestedBy)
	payload, err := json.Marshal(map[string]interface{}{
		"type":         "audit",
		"entity_type":  entityType,
		"entity_id":    entityID,
		"actiontype":   actionType,
		"details":      details,
		"requested_by": requestedBy,
		"time":         time.Now().Format(time.RFC3339),
	})
	if err == nil {
		dashboard.BroadcastWS(payload)
	}
}

// LogInfo logs an informational message (wrapper for consistent logging)
func LogInfo(msg string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[INFO] "+msg, args...)
	} else {
		log.Println("[INFO]", msg)
	}
}

// LogError logs an error message (wrapper for consistent logging)
func LogError(msg string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[ERROR] "+msg, args...)
	} else {
		log.Println("[ERROR]", msg)
	}
}
