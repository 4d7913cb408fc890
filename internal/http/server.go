// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"

	"splitledger/internal/middleware/metrics"
	"splitledger/internal/middleware/trace"
	"splitledger/internal/services"
)

type Server struct {
	http.Server
	ledger *services.LedgerService
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, ledger *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		ledger: ledger,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	route := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, metrics.Instrument(pattern, handler))
	}

	route("POST /api/users", s.handleCreateUser)
	route("GET /api/users/{id}", s.handleGetUser)
	route("GET /api/groups", s.handleListGroups)
	route("POST /api/groups", s.handleCreateGroup)
	route("POST /api/groups/{id}/join", s.handleJoinGroup)
	route("GET /api/groups/{id}/members", s.handleGroupMembers)
	route("GET /api/groups/{id}/expenses", s.handleListExpenses)
	route("POST /api/groups/{id}/expenses", s.handleAddExpense)
	route("DELETE /api/groups/{id}/expenses/{eid}", s.handleDeleteExpense)
	route("GET /api/groups/{id}/balances", s.handleGroupBalances)
	route("POST /api/groups/{id}/expenses/{eid}/payments", s.handleRecordPayment)
	route("POST /api/groups/{id}/balances/{uid}/mark-paid", s.handleMarkBalancePaid)

	s.Handler = trace.Middleware(mux)
	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
