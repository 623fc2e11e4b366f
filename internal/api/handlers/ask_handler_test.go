package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

type pipelineStub struct {
	result   *entities.AskResult
	err      error
	question string
	called   bool
}

func (s *pipelineStub) Ask(_ context.Context, question string) (*entities.AskResult, error) {
	s.called = true
	s.question = question
	return s.result, s.err
}

func (s *pipelineStub) ExamplePrompts() []string {
	return []string{"Who is the cheapest for DRG 470 within 25 miles of 10001?"}
}

func TestAsk_OK(t *testing.T) {
	stub := &pipelineStub{result: &entities.AskResult{
		Answer:       "Test Medical Center is the cheapest at $52,000.",
		GeneratedSQL: "SELECT provider_name FROM providers LIMIT 10",
	}}
	handler := NewAskHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"Who is cheapest for DRG 470?"}`))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Who is cheapest for DRG 470?", stub.question)

	var body entities.AskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Answer, "cheapest")
	assert.NotContains(t, body.GeneratedSQL, "DELETE")
	assert.NotContains(t, body.GeneratedSQL, ";")
}

func TestAsk_RejectsMalformedBody(t *testing.T) {
	stub := &pipelineStub{}
	handler := NewAskHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)
}

func TestAsk_RejectsEmptyQuestion(t *testing.T) {
	stub := &pipelineStub{}
	handler := NewAskHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"   "}`))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)
}

func TestAsk_RejectsOversizedQuestion(t *testing.T) {
	stub := &pipelineStub{}
	handler := NewAskHandler(stub)

	long := strings.Repeat("a", maxQuestionLength+1)
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"`+long+`"}`))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)
}

func TestAsk_StorageFailureMapsTo503(t *testing.T) {
	stub := &pipelineStub{err: apperrors.NewUnavailableError("database unavailable", nil)}
	handler := NewAskHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"cheapest hospital for surgery?"}`))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExamples_OK(t *testing.T) {
	handler := NewAskHandler(&pipelineStub{})

	req := httptest.NewRequest(http.MethodGet, "/ask/examples", nil)
	rec := httptest.NewRecorder()
	handler.Examples(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
}
