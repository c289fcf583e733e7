package clients

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"CustodiaLegalSaas/internal/serviceiface"
)

type ClientsService struct {
	config map[string]interface{}
	db     *sql.DB
}

func NewClientsService(cfg map[string]interface{}, db *sql.DB) serviceiface.Service {
	return &ClientsService{config: cfg, db: db}
}

func (s *ClientsService) Name() string {
	return "clients"
}

func (s *ClientsService) Start() error {
	go StartClientsService(s.db)
	return nil
}

func (s *ClientsService) Stop() error {
	return nil
}

func StartClientsService(db *sql.DB) {
	r := mux.NewRouter()
	r.HandleFunc("/clients/create", CreateClient(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/list", GetClients(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/get", GetClientByID(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/update", UpdateClient(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/delete", DeleteClient(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/prospects/create", CreateProspect(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/prospects/list", GetProspects(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/prospects/update-status", UpdateProspectStatus(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/prospects/convert", ConvertProspect(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/carriers/assign", AssignCarrier(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/carriers/list", GetCarriers(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/carriers/remove", RemoveCarrier(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/operations/create", CreateOperation(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/operations/list", GetOperations(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/operations/record-result", RecordOperationResult(db)).Methods(http.MethodPost)
	r.HandleFunc("/clients/operations/delete", DeleteOperation(db)).Methods(http.MethodPost)
	log.Println("Clients Service started on :3143")
	err := http.ListenAndServe(":3143", r)
	if err != nil {
		log.Fatalf("Clients Service failed: %v", err)
	}
}
