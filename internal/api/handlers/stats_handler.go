package handlers

import (
	"context"
	"net/http"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
)

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsHandler serves the health and dataset-statistics endpoints, thin
// pass-throughs to storage counts.
type StatsHandler struct {
	providerRepo repositories.ProviderRepository
	ratingRepo   repositories.RatingRepository
	storage      Pinger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(providerRepo repositories.ProviderRepository, ratingRepo repositories.RatingRepository, storage Pinger) *StatsHandler {
	return &StatsHandler{
		providerRepo: providerRepo,
		ratingRepo:   ratingRepo,
		storage:      storage,
	}
}

// Health handles GET /health
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Stats handles GET /stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	providerCount, err := h.providerRepo.Count(r.Context())
	if err != nil {
		respondWithAppError(w, err, "failed to count providers")
		return
	}
	ratingCount, err := h.ratingRepo.Count(r.Context())
	if err != nil {
		respondWithAppError(w, err, "failed to count ratings")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providerCount,
		"ratings":   ratingCount,
	})
}
