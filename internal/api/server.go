// Package api exposes the driver daemon's HTTP surface. The daemon is the
// single writer: every mutation loads the latest state, applies exactly one
// operation, verifies the transition, then persists the successor.
package api

import (
	"context"
	"net/http"
	"time"

	"CirclePool/internal/circle"
	"CirclePool/internal/logger"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB
)

// StateStore is the persistence layer the server drives.
type StateStore interface {
	PutState(*circle.CircleState) error
	GetState(circleID [circle.CircleIDSize]byte) (*circle.CircleState, error)
	GetHistorical(circleID [circle.CircleIDSize]byte, stateHash [32]byte) (*circle.CircleState, error)
}

// Server is the HTTP API server.
type Server struct {
	addr   string       // addr is the HTTP listen address
	store  StateStore   // store persists circle states
	server *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, store StateStore) *Server {
	return &Server{
		addr:  addr,
		store: store,
	}
}

// Handler returns the route table. Exposed separately so tests can drive
// the handlers without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /circles", s.handleCreateCircle)
	mux.HandleFunc("GET /circles/{id}", s.handleGetCircle)
	mux.HandleFunc("GET /circles/{id}/history/{hash}", s.handleGetHistorical)
	mux.HandleFunc("POST /circles/{id}/members", s.handleAddMember)
	mux.HandleFunc("POST /circles/{id}/contributions", s.handleRecordContribution)
	mux.HandleFunc("POST /circles/{id}/payout", s.handleExecutePayout)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
