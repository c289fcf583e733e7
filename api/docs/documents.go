package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/api"
	"CustodiaLegalSaas/api/auth"
	"CustodiaLegalSaas/api/constants"
	"CustodiaLegalSaas/internal/checksum"
)

const (
	docsDefaultBucket = "custodialegal"
	docsPrefix        = "prosecutor-documents/"
	docsDefaultRegion = "us-east-1"
)

func docsBucket() string {
	if b := strings.TrimSpace(os.Getenv("DOCS_S3_BUCKET")); b != "" {
		return b
	}
	return docsDefaultBucket
}

func docsRegion() string {
	if r := strings.TrimSpace(os.Getenv("DOCS_S3_REGION")); r != "" {
		return r
	}
	return docsDefaultRegion
}

func sanitizePathSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return replacer.Replace(s)
}

func detectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	if len(data) > 512 {
		return http.DetectContentType(data[:512])
	}
	return http.DetectContentType(data)
}

func buildDocumentKey(clientID, fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s%s/%s%s", docsPrefix, sanitizePathSegment(clientID), uuid.NewString(), ext)
}

func s3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(docsRegion()))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func uploadDocumentToS3(ctx context.Context, key string, body []byte, contentType string) error {
	client, err := s3Client(ctx)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(docsBucket()),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload to s3 (bucket %s, key %s): %w", docsBucket(), key, err)
	}
	return nil
}

func deleteDocumentFromS3(ctx context.Context, key string) error {
	client, err := s3Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(docsBucket()),
		Key:    aws.String(key),
	})
	return err
}

func resolveSessionEmail(userID string) string {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Email
		}
	}
	return ""
}

// UploadDocument handles POST /docs/upload (multipart). The blob goes to S3
// first; the row insert only happens after a successful put, so a stored row
// always points at an existing object.
func UploadDocument(pool *pgxpool.Pool) http.HandlerFunc {
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
		clientID := r.FormValue("client_id")
		if clientID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.FormatMissingFieldError("client_id"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}
		if len(data) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrEmptyFile)
			return
		}

		ctx := r.Context()
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`, clientID).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !exists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrClientNotFound)
			return
		}

		contentHash := checksum.Sum(data)
		var duplicate bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM prosecutor_documents WHERE client_id = $1 AND content_sha256 = $2)`,
			clientID, contentHash).Scan(&duplicate); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if duplicate {
			api.RespondWithError(w, http.StatusConflict, constants.ErrDuplicateDocument)
			return
		}

		key := buildDocumentKey(clientID, header.Filename)
		contentType := detectContentType(data)
		if err := uploadDocumentToS3(ctx, key, data, contentType); err != nil {
			api.LogError("document upload failed: %v", err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrFileUploadFailed)
			return
		}

		var documentID string
		err = pool.QueryRow(ctx, `INSERT INTO prosecutor_documents (
			client_id, file_name, storage_key, content_type, content_sha256, uploaded_by, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, now()) RETURNING document_id`,
			clientID, header.Filename, key, contentType, contentHash, requestedBy,
		).Scan(&documentID)
		if err != nil {
			// orphaned object; removal is best-effort
			if delErr := deleteDocumentFromS3(ctx, key); delErr != nil {
				api.LogError("orphaned document cleanup failed for %s: %v", key, delErr)
			}
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		api.WriteAuditTrail(pool, "prosecutor_document", documentID, "CREATE",
			header.Filename+" for client "+clientID, requestedBy)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"document_id": documentID,
			"storage_key": key,
		})
	}
}

// ListDocuments handles POST /docs/list.
func ListDocuments(pool *pgxpool.Pool) http.HandlerFunc {
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

		rows, err := pool.Query(r.Context(), `SELECT document_id, file_name, storage_key, content_type,
			uploaded_by, uploaded_at
			FROM prosecutor_documents WHERE client_id = $1 ORDER BY uploaded_at DESC`, req.ClientID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer rows.Close()

		documents := []map[string]interface{}{}
		for rows.Next() {
			var documentID, fileName, storageKey, contentType, uploadedBy string
			var uploadedAt time.Time
			if err := rows.Scan(&documentID, &fileName, &storageKey, &contentType, &uploadedBy, &uploadedAt); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrDatabaseScanFailed)
				return
			}
			documents = append(documents, map[string]interface{}{
				"document_id":  documentID,
				"file_name":    fileName,
				"storage_key":  storageKey,
				"content_type": contentType,
				"uploaded_by":  uploadedBy,
				"uploaded_at":  uploadedAt.Format(constants.DateTimeFormat),
			})
		}
		if err := rows.Err(); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", documents)
	}
}

// DeleteDocument handles POST /docs/delete. The row is the source of truth:
// it is removed first and the S3 delete is best-effort afterwards. A failed
// S3 delete leaves an unreferenced object, which is logged and acceptable.
func DeleteDocument(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string `json:"user_id"`
			DocumentID string `json:"document_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		requestedBy := resolveSessionEmail(req.UserID)
		if requestedBy == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidSession)
			return
		}

		ctx := r.Context()
		var storageKey string
		err := pool.QueryRow(ctx, `DELETE FROM prosecutor_documents WHERE document_id = $1 RETURNING storage_key`,
			req.DocumentID).Scan(&storageKey)
		if err != nil {
			if err == pgx.ErrNoRows {
				api.RespondWithError(w, http.StatusNotFound, constants.ErrDocumentNotFound)
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		if err := deleteDocumentFromS3(ctx, storageKey); err != nil {
			api.LogError("s3 delete failed for %s: %v", storageKey, err)
		}

		api.WriteAuditTrail(pool, "prosecutor_document", req.DocumentID, "DELETE",
			"document removed", requestedBy)
		api.RespondWithResult(w, true, "")
	}
}
