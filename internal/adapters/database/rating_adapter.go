package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

// RatingAdapter implements RatingRepository over Postgres
type RatingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRatingAdapter creates a new rating adapter
func NewRatingAdapter(client *postgres.Client) repositories.RatingRepository {
	return &RatingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// AverageByProviderIDs returns the mean rating per provider across all
// categories. Providers with no ratings are absent from the result.
func (a *RatingAdapter) AverageByProviderIDs(ctx context.Context, providerIDs []string) (map[string]float64, error) {
	averages := make(map[string]float64)
	if len(providerIDs) == 0 {
		return averages, nil
	}

	query, args, err := a.db.Select(
		"provider_id",
		goqu.AVG("rating").As("avg_rating"),
	).
		From("ratings").
		Where(goqu.Ex{"provider_id": providerIDs}).
		GroupBy("provider_id").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build rating average query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to query rating averages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var providerID string
		var avg float64
		if err := rows.Scan(&providerID, &avg); err != nil {
			return nil, apperrors.NewInternalError("failed to scan rating average", err)
		}
		averages[providerID] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to read rating averages", err)
	}

	return averages, nil
}

// Count returns the number of rating rows.
func (a *RatingAdapter) Count(ctx context.Context) (int64, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).From("ratings").ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build rating count query", err)
	}

	var count int64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewUnavailableError("failed to count ratings", err)
	}
	return count, nil
}
