package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

var zipCodePattern = regexp.MustCompile(`^\d{5}$`)

// ProviderSearcher defines the handler dependency for provider search.
type ProviderSearcher interface {
	Search(ctx context.Context, criteria entities.SearchCriteria) (*entities.SearchResult, error)
}

// ProviderHandler handles provider-search requests
type ProviderHandler struct {
	searcher ProviderSearcher
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(searcher ProviderSearcher) *ProviderHandler {
	return &ProviderHandler{searcher: searcher}
}

// SearchProviders handles GET /providers
func (h *ProviderHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	drg := q.Get("drg")
	if drg == "" {
		respondWithError(w, http.StatusBadRequest, "drg parameter is required")
		return
	}
	zip := q.Get("zip")
	if !zipCodePattern.MatchString(zip) {
		respondWithError(w, http.StatusBadRequest, "zip parameter must be a 5-digit ZIP code")
		return
	}

	criteria := entities.SearchCriteria{DRG: drg, ZipCode: zip}

	if raw := q.Get("radius_km"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			respondWithError(w, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
		criteria.RadiusKm = radius
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		criteria.Limit = limit
	}
	if raw := q.Get("intent"); raw != "" {
		intent := entities.SearchIntent(raw)
		switch intent {
		case entities.IntentCheapest, entities.IntentBestRated, entities.IntentNearest, entities.IntentBestValue:
			criteria.Intent = intent
		default:
			respondWithError(w, http.StatusBadRequest, "intent must be one of cheapest, best_rated, nearest, best_value")
			return
		}
	}

	result, err := h.searcher.Search(r.Context(), criteria)
	if err != nil {
		respondWithAppError(w, err, "failed to search providers")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": result.Providers,
		"count":     len(result.Providers),
		"radius_km": result.RadiusKm,
		"fallback":  result.Fallback,
	})
}
