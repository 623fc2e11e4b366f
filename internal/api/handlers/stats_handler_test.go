package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

type providerRepoStub struct {
	count int64
	err   error
}

func (s *providerRepoStub) Search(context.Context, repositories.ProviderQuery) ([]*entities.Provider, error) {
	return nil, nil
}

func (s *providerRepoStub) CoordinatesForZip(context.Context, string) (*float64, *float64, error) {
	return nil, nil, nil
}

func (s *providerRepoStub) DRGDefinitions(context.Context) ([]string, error) { return nil, nil }

func (s *providerRepoStub) Count(context.Context) (int64, error) { return s.count, s.err }

type ratingCountStub struct {
	count int64
}

func (s *ratingCountStub) AverageByProviderIDs(context.Context, []string) (map[string]float64, error) {
	return nil, nil
}

func (s *ratingCountStub) Count(context.Context) (int64, error) { return s.count, nil }

type pingerStub struct {
	err error
}

func (s *pingerStub) Ping(context.Context) error { return s.err }

func TestHealth_Healthy(t *testing.T) {
	handler := NewStatsHandler(&providerRepoStub{}, &ratingCountStub{}, &pingerStub{})

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealth_DegradedWhenDatabaseUnreachable(t *testing.T) {
	handler := NewStatsHandler(&providerRepoStub{}, &ratingCountStub{}, &pingerStub{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStats_ReturnsCounts(t *testing.T) {
	handler := NewStatsHandler(&providerRepoStub{count: 1520}, &ratingCountStub{count: 7600}, &pingerStub{})

	rec := httptest.NewRecorder()
	handler.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1520), body["providers"])
	assert.Equal(t, float64(7600), body["ratings"])
}

func TestStats_StorageFailureMapsTo503(t *testing.T) {
	handler := NewStatsHandler(&providerRepoStub{err: apperrors.NewUnavailableError("database unavailable", nil)}, &ratingCountStub{}, &pingerStub{})

	rec := httptest.NewRecorder()
	handler.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
