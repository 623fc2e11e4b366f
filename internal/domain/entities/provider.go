package entities

// Provider is one row of the CMS inpatient charge dataset: a hospital's
// averaged billing figures for a single MS-DRG. The (ProviderID, DRGDefinition)
// pair is unique.
type Provider struct {
	ProviderID              string   `json:"provider_id"`
	ProviderName            string   `json:"provider_name"`
	ProviderCity            string   `json:"provider_city"`
	ProviderState           string   `json:"provider_state"`
	ProviderZipCode         string   `json:"provider_zip_code"`
	DRGDefinition           string   `json:"ms_drg_definition"`
	TotalDischarges         int      `json:"total_discharges"`
	AverageCoveredCharges   float64  `json:"average_covered_charges"`
	AverageTotalPayments    float64  `json:"average_total_payments"`
	AverageMedicarePayments float64  `json:"average_medicare_payments"`
	Latitude                *float64 `json:"latitude,omitempty"`
	Longitude               *float64 `json:"longitude,omitempty"`
}

// Rating is a quality score for a provider in one category, on a 1-10 scale.
// A provider has at most one rating per category.
type Rating struct {
	ProviderID string  `json:"provider_id"`
	Category   string  `json:"category"`
	Rating     float64 `json:"rating"`
}

// RankedProvider is a provider joined with its average rating, distance from
// the search center, and composite value score. Derived per request, never
// persisted.
type RankedProvider struct {
	Provider
	AverageRating *float64 `json:"average_rating"`
	DistanceKm    float64  `json:"distance_km"`
	ValueScore    float64  `json:"value_score"`
}
