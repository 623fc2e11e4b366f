package entities

// SearchCriteria carries one provider-search request.
type SearchCriteria struct {
	DRG      string
	ZipCode  string
	RadiusKm float64
	Limit    int
	Intent   SearchIntent
}

// FallbackTier labels which broaden-and-retry step produced a result set, so
// callers can report "results found outside requested radius".
type FallbackTier string

const (
	FallbackNone          FallbackTier = ""
	FallbackRadiusWidened FallbackTier = "radius_widened"
	FallbackDRGRelaxed    FallbackTier = "drg_relaxed"
	FallbackRadiusDropped FallbackTier = "radius_dropped"
)

// SearchResult is the outcome of a provider search, including which fallback
// tier (if any) was needed to find rows.
type SearchResult struct {
	Providers []RankedProvider `json:"providers"`
	Fallback  FallbackTier     `json:"fallback,omitempty"`
	RadiusKm  float64          `json:"radius_km"`
}
