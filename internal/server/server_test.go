package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/domain"
	"compliance/internal/server"
)

type stubService struct {
	err error
}

func (s stubService) Rules() []domain.Rule {
	return []domain.Rule{{ID: 1, Name: "Governing Law", Category: "Legal", Description: "governing law"}}
}

func (s stubService) Evaluate(_ context.Context, ruleID int, text string) (domain.EvaluationResult, error) {
	if s.err != nil {
		return domain.EvaluationResult{}, s.err
	}
	if ruleID != 1 {
		return domain.EvaluationResult{}, fmt.Errorf("%w: %d", domain.ErrRuleNotFound, ruleID)
	}
	return domain.EvaluationResult{RuleID: 1, RuleName: "Governing Law", Status: domain.StatusCompliant,
		Response: "Status: YES", Sources: []string{domain.SelectedContractSource}}, nil
}

func (s stubService) RunAll(context.Context) domain.AuditSummary {
	return domain.AuditSummary{RunID: "run-1", Results: []domain.EvaluationResult{
		{RuleID: 1, RuleName: "Governing Law", Status: domain.StatusError, Response: "boom", Sources: []string{}},
	}, Errors: 1}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return rr, m
}

func TestHealth(t *testing.T) {
	rr, body := do(t, server.New(stubService{}).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRules(t *testing.T) {
	rr, body := do(t, server.New(stubService{}).Handler(), http.MethodGet, "/rules", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["total"])
	rules := body["rules"].([]any)
	assert.Equal(t, "Legal", rules[0].(map[string]any)["category"])
}

func TestEvaluate(t *testing.T) {
	h := server.New(stubService{}).Handler()

	rr, body := do(t, h, http.MethodPost, "/evaluate", `{"rule_id": 1, "contract_text": "governed by Delaware law"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "COMPLIANT", body["status"])
	assert.Equal(t, []any{"selected_contract"}, body["sources"])
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestEvaluate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		svc  stubService
		body string
		want int
	}{
		{"bad json", stubService{}, `{"rule_id": `, http.StatusBadRequest},
		{"unknown field", stubService{}, `{"rule": 1}`, http.StatusBadRequest},
		{"missing rule id", stubService{}, `{"contract_text": "x"}`, http.StatusBadRequest},
		{"unknown rule", stubService{}, `{"rule_id": 7}`, http.StatusNotFound},
		{"judge failure", stubService{err: fmt.Errorf("%w: timeout", domain.ErrJudgeInvocation)}, `{"rule_id": 1}`, http.StatusBadGateway},
		{"embedding failure", stubService{err: fmt.Errorf("%w: down", domain.ErrEmbedding)}, `{"rule_id": 1}`, http.StatusBadGateway},
		{"invalid input", stubService{err: fmt.Errorf("%w: k", domain.ErrInvalidInput)}, `{"rule_id": 1}`, http.StatusBadRequest},
		{"no index", stubService{err: domain.ErrIndexNotFound}, `{"rule_id": 1}`, http.StatusServiceUnavailable},
		{"other", stubService{err: errors.New("disk on fire")}, `{"rule_id": 1}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, server.New(tt.svc).Handler(), http.MethodPost, "/evaluate", tt.body)
			assert.Equal(t, tt.want, rr.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAudit(t *testing.T) {
	rr, body := do(t, server.New(stubService{}).Handler(), http.MethodPost, "/audit", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, float64(1), body["errors"])
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/evaluate", nil)
	rr := httptest.NewRecorder()
	server.New(stubService{}).Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.New(stubService{}).Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
