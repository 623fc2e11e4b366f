package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

// candidateCap bounds how many rows a search pulls before exact distance
// filtering, so an unconstrained DRG never scans the whole table into memory.
const candidateCap = 500

var providerColumns = []interface{}{
	"provider_id", "provider_name", "provider_city", "provider_state",
	"provider_zip_code", "ms_drg_definition", "total_discharges",
	"average_covered_charges", "average_total_payments",
	"average_medicare_payments", "latitude", "longitude",
}

// ProviderAdapter implements ProviderRepository over Postgres
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Search returns providers matching the DRG constraint and bounding box,
// cheapest first.
func (a *ProviderAdapter) Search(ctx context.Context, q repositories.ProviderQuery) ([]*entities.Provider, error) {
	if len(q.Codes) == 0 && len(q.Patterns) == 0 {
		return nil, apperrors.NewValidationError("provider search requires a DRG code or pattern")
	}

	var drgConds []goqu.Expression
	for _, code := range q.Codes {
		drgConds = append(drgConds, goqu.I("ms_drg_definition").ILike(code+" %"))
	}
	for _, pattern := range q.Patterns {
		drgConds = append(drgConds, goqu.I("ms_drg_definition").ILike("%"+pattern+"%"))
	}

	ds := a.db.Select(providerColumns...).
		From("providers").
		Where(goqu.Or(drgConds...))

	if q.Box != nil {
		ds = ds.Where(
			goqu.I("latitude").IsNotNull(),
			goqu.I("longitude").IsNotNull(),
			goqu.I("latitude").Between(goqu.Range(q.Box.MinLat, q.Box.MaxLat)),
			goqu.I("longitude").Between(goqu.Range(q.Box.MinLon, q.Box.MaxLon)),
		)
	}

	limit := q.Limit
	if limit <= 0 || limit > candidateCap {
		limit = candidateCap
	}
	if q.Near != nil {
		// Squared degree distance is a coarse proxy, but it only orders the
		// candidate pull; exact haversine filtering happens in the caller.
		ds = ds.Where(
			goqu.I("latitude").IsNotNull(),
			goqu.I("longitude").IsNotNull(),
		).Order(goqu.L(
			"((latitude - ?) * (latitude - ?) + (longitude - ?) * (longitude - ?))",
			q.Near.Lat, q.Near.Lat, q.Near.Lon, q.Near.Lon,
		).Asc())
	} else {
		ds = ds.Order(goqu.I("average_covered_charges").Asc())
	}
	ds = ds.Limit(uint(limit))

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build provider search query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to search providers", err)
	}
	defer rows.Close()

	var result []*entities.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to read provider rows", err)
	}

	return result, nil
}

func scanProvider(rows *sql.Rows) (*entities.Provider, error) {
	p := &entities.Provider{}
	var lat, lon sql.NullFloat64

	err := rows.Scan(
		&p.ProviderID,
		&p.ProviderName,
		&p.ProviderCity,
		&p.ProviderState,
		&p.ProviderZipCode,
		&p.DRGDefinition,
		&p.TotalDischarges,
		&p.AverageCoveredCharges,
		&p.AverageTotalPayments,
		&p.AverageMedicarePayments,
		&lat,
		&lon,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan provider", err)
	}

	if lat.Valid {
		p.Latitude = &lat.Float64
	}
	if lon.Valid {
		p.Longitude = &lon.Float64
	}

	return p, nil
}

// CoordinatesForZip reuses coordinates already resolved for a provider in the
// same ZIP code.
func (a *ProviderAdapter) CoordinatesForZip(ctx context.Context, zipCode string) (*float64, *float64, error) {
	query, args, err := a.db.Select("latitude", "longitude").
		From("providers").
		Where(
			goqu.Ex{"provider_zip_code": zipCode},
			goqu.I("latitude").IsNotNull(),
			goqu.I("longitude").IsNotNull(),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to build zip coordinate query", err)
	}

	var lat, lon float64
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&lat, &lon)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.NewUnavailableError("failed to look up zip coordinates", err)
	}

	return &lat, &lon, nil
}

// DRGDefinitions returns the distinct DRG definition strings in the dataset.
func (a *ProviderAdapter) DRGDefinitions(ctx context.Context) ([]string, error) {
	query, args, err := a.db.Select("ms_drg_definition").
		From("providers").
		Distinct().
		Order(goqu.I("ms_drg_definition").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build DRG definition query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list DRG definitions", err)
	}
	defer rows.Close()

	var defs []string
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, apperrors.NewInternalError("failed to scan DRG definition", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to read DRG definitions", err)
	}

	return defs, nil
}

// Count returns the number of provider rows.
func (a *ProviderAdapter) Count(ctx context.Context) (int64, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).From("providers").ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build provider count query", err)
	}

	var count int64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewUnavailableError("failed to count providers", err)
	}
	return count, nil
}
