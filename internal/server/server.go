// Package server exposes the compliance service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"compliance/internal/domain"
	"compliance/internal/logger"
)

// ComplianceService is the subset of the service the API needs.
type ComplianceService interface {
	Rules() []domain.Rule
	Evaluate(ctx context.Context, ruleID int, contractText string) (domain.EvaluationResult, error)
	RunAll(ctx context.Context) domain.AuditSummary
}

// Server routes HTTP requests to the compliance service.
type Server struct {
	svc ComplianceService
	mux *http.ServeMux
}

// New registers the API routes.
func New(svc ComplianceService) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("GET /rules", s.rules)
	s.mux.HandleFunc("POST /evaluate", s.evaluate)
	s.mux.HandleFunc("POST /audit", s.audit)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

type evaluateRequest struct {
	RuleID       int    `json:"rule_id"`
	ContractText string `json:"contract_text"`
}

type rulesResponse struct {
	Rules []domain.Rule `json:"rules"`
	Total int           `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) rules(w http.ResponseWriter, _ *http.Request) {
	rules := s.svc.Rules()
	writeJSON(w, http.StatusOK, rulesResponse{Rules: rules, Total: len(rules)})
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.RuleID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rule_id must be a positive integer"})
		return
	}
	res, err := s.svc.Evaluate(r.Context(), req.RuleID, req.ContractText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.RunAll(r.Context()))
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrIndexNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrJudgeInvocation),
		errors.Is(err, domain.ErrEmbedding),
		errors.Is(err, domain.ErrEmbeddingMismatch):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
