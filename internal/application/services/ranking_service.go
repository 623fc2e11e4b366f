package services

import (
	"math"
	"sort"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

// Scoring constants. The cost constant and floor keep the reciprocal bounded;
// the distance score floors at zero so remote providers never score negative;
// the volume term is log-damped and capped so very high-volume hospitals stop
// gaining.
const (
	costConstant  = 10000.0
	costFloor     = 1000.0
	ratingScale   = 10.0
	ratingNeutral = 5.0
	distanceCap   = 100.0
	distancePenal = 1.0
	volumeScale   = 10.0
	volumeCap     = 50.0
)

// RankingService computes composite value scores and orders candidates by
// the active intent. Scoring is a pure function of its inputs.
type RankingService struct{}

// NewRankingService creates a new ranking service.
func NewRankingService() *RankingService {
	return &RankingService{}
}

// Score computes the composite value score for one candidate under the given
// intent's weight vector.
func (s *RankingService) Score(cost float64, avgRating *float64, distanceKm float64, volume int, intent entities.SearchIntent) float64 {
	w := entities.WeightsFor(intent)

	costScore := costConstant / math.Max(cost, costFloor)

	rating := ratingNeutral
	if avgRating != nil {
		rating = *avgRating
	}
	ratingScore := rating * ratingScale

	distanceScore := math.Max(0, distanceCap-distanceKm*distancePenal)

	volumeScore := math.Min(math.Log(float64(volume)+1)*volumeScale, volumeCap)

	return w.Cost*costScore + w.Rating*ratingScore + w.Distance*distanceScore + w.Volume*volumeScore
}

// Rank scores every candidate and sorts descending by value score. Ties break
// by lower cost, then higher rating, then lower distance, so the order is
// deterministic for any input.
func (s *RankingService) Rank(candidates []entities.RankedProvider, intent entities.SearchIntent) []entities.RankedProvider {
	ranked := make([]entities.RankedProvider, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		ranked[i].ValueScore = s.Score(
			ranked[i].AverageCoveredCharges,
			ranked[i].AverageRating,
			ranked[i].DistanceKm,
			ranked[i].TotalDischarges,
			intent,
		)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ValueScore != b.ValueScore {
			return a.ValueScore > b.ValueScore
		}
		if a.AverageCoveredCharges != b.AverageCoveredCharges {
			return a.AverageCoveredCharges < b.AverageCoveredCharges
		}
		ar, br := ratingOrNeutral(a.AverageRating), ratingOrNeutral(b.AverageRating)
		if ar != br {
			return ar > br
		}
		return a.DistanceKm < b.DistanceKm
	})

	return ranked
}

func ratingOrNeutral(r *float64) float64 {
	if r == nil {
		return ratingNeutral
	}
	return *r
}
