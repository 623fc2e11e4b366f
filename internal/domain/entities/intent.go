package entities

// SearchIntent is the inferred user ranking preference.
type SearchIntent string

const (
	IntentCheapest  SearchIntent = "cheapest"
	IntentBestRated SearchIntent = "best_rated"
	IntentNearest   SearchIntent = "nearest"
	IntentBestValue SearchIntent = "best_value"
)

// ScoreWeights is the weight vector applied to the score components.
type ScoreWeights struct {
	Cost     float64
	Rating   float64
	Distance float64
	Volume   float64
}

// intentWeights is the closed dispatch table from intent to weight vector.
// The best-value weights sum to 1.0; the single-dimension intents collapse
// everything onto one component.
var intentWeights = map[SearchIntent]ScoreWeights{
	IntentBestValue: {Cost: 0.40, Rating: 0.35, Distance: 0.15, Volume: 0.10},
	IntentCheapest:  {Cost: 1.0},
	IntentBestRated: {Rating: 1.0},
	IntentNearest:   {Distance: 1.0},
}

// WeightsFor returns the score weights for an intent. Unknown intents get the
// best-value default.
func WeightsFor(intent SearchIntent) ScoreWeights {
	if w, ok := intentWeights[intent]; ok {
		return w
	}
	return intentWeights[IntentBestValue]
}
