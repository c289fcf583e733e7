package docs

import (
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/internal/serviceiface"
)

type DocsService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewDocsService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &DocsService{config: cfg, pool: pool}
}

func (s *DocsService) Name() string {
	return "docs"
}

func (s *DocsService) Start() error {
	go StartDocsService(s.pool)
	return nil
}

func (s *DocsService) Stop() error {
	return nil
}

func StartDocsService(pool *pgxpool.Pool) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/upload", UploadDocument(pool))
	mux.HandleFunc("/docs/list", ListDocuments(pool))
	mux.HandleFunc("/docs/delete", DeleteDocument(pool))
	log.Println("Docs Service started on :6143")
	err := http.ListenAndServe(":6143", mux)
	if err != nil {
		log.Fatalf("Docs Service failed: %v", err)
	}
}
