package payments

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/internal/serviceiface"
)

type PaymentsService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewPaymentsService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &PaymentsService{config: cfg, pool: pool}
}

func (s *PaymentsService) Name() string {
	return "payments"
}

func (s *PaymentsService) Start() error {
	go StartPaymentsService(s.pool)
	return nil
}

func (s *PaymentsService) Stop() error {
	return nil
}

func StartPaymentsService(pool *pgxpool.Pool) {
	r := mux.NewRouter()
	r.HandleFunc("/payments/plans/create", CreatePaymentPlan(pool)).Methods(http.MethodPost)
	r.HandleFunc("/payments/plans/get", GetPaymentPlan(pool)).Methods(http.MethodPost)
	r.HandleFunc("/payments/installments/add", AddInstallments(pool)).Methods(http.MethodPost)
	r.HandleFunc("/payments/installments/update", UpdateInstallment(pool)).Methods(http.MethodPost)
	r.HandleFunc("/payments/installments/delete", DeleteInstallment(pool)).Methods(http.MethodPost)
	r.HandleFunc("/payments/plans/export", ExportPlanXLSX(pool)).Methods(http.MethodPost)
	r.HandleFunc("/payments/legacy-import", ImportLegacyPayments(pool)).Methods(http.MethodPost)
	log.Println("Payments Service started on :5143")
	err := http.ListenAndServe(":5143", r)
	if err != nil {
		log.Fatalf("Payments Service failed: %v", err)
	}
}
