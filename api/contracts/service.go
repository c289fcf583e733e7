package contracts

import (
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/internal/serviceiface"
)

type ContractsService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewContractsService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &ContractsService{config: cfg, pool: pool}
}

func (s *ContractsService) Name() string {
	return "contracts"
}

func (s *ContractsService) Start() error {
	go StartContractsService(s.pool)
	return nil
}

func (s *ContractsService) Stop() error {
	return nil
}

func StartContractsService(pool *pgxpool.Pool) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contracts/validity", GetContractValidity(pool))
	mux.HandleFunc("/contracts/renew", RenewContract(pool))
	mux.HandleFunc("/contracts/renewals", ListRenewals(pool))
	log.Println("Contracts Service started on :4143")
	err := http.ListenAndServe(":4143", mux)
	if err != nil {
		log.Fatalf("Contracts Service failed: %v", err)
	}
}
