package dash

import (
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"CustodiaLegalSaas/internal/dashboard"
	"CustodiaLegalSaas/internal/serviceiface"
)

type DashService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	sse    *dashboard.SSEServer
	ws     *dashboard.WebSocketServer
}

func NewDashService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &DashService{config: cfg, pool: pool}
}

func (s *DashService) Name() string {
	return "dash"
}

func (s *DashService) Start() error {
	s.sse = dashboard.NewSSEServer()
	s.ws = dashboard.NewWebSocketServer()
	go s.ws.HandleMessages()
	go StartDashService(s.pool, s.sse, s.ws)
	return nil
}

func (s *DashService) Stop() error {
	if s.sse != nil {
		s.sse.Stop()
	}
	return nil
}

func StartDashService(pool *pgxpool.Pool, sse *dashboard.SSEServer, ws *dashboard.WebSocketServer) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dash/stream", sse.HandleSSE)
	mux.HandleFunc("/dash/ws", ws.HandleConnections)
	mux.HandleFunc("/dash/audit", QueryAuditTrail(pool))
	mux.HandleFunc("/dash/summary", GetSummary(pool))
	log.Println("Dash Service started on :7143")
	err := http.ListenAndServe(":7143", mux)
	if err != nil {
		log.Fatalf("Dash Service failed: %v", err)
	}
}
