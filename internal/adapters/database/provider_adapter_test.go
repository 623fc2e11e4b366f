package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

func newMockAdapter(t *testing.T) (repositories.ProviderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProviderAdapter(postgres.NewClientFromDB(db)), mock
}

var providerRows = []string{
	"provider_id", "provider_name", "provider_city", "provider_state",
	"provider_zip_code", "ms_drg_definition", "total_discharges",
	"average_covered_charges", "average_total_payments",
	"average_medicare_payments", "latitude", "longitude",
}

func TestProviderAdapter_Search_ByCode(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	rows := sqlmock.NewRows(providerRows).
		AddRow("330101", "NYU Langone", "New York", "NY", "10016",
			"470 - MAJOR JOINT REPLACEMENT W/O MCC", 250,
			55000.0, 18000.0, 15000.0, 40.7420, -73.9740)

	mock.ExpectQuery(`SELECT .+ FROM "providers" WHERE .*ms_drg_definition.* ILIKE .*470 %.*`).
		WillReturnRows(rows)

	result, err := adapter.Search(context.Background(), repositories.ProviderQuery{
		Codes: []string{"470"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "330101", result[0].ProviderID)
	assert.Equal(t, "470 - MAJOR JOINT REPLACEMENT W/O MCC", result[0].DRGDefinition)
	require.NotNil(t, result[0].Latitude)
	assert.InDelta(t, 40.7420, *result[0].Latitude, 1e-9)
}

func TestProviderAdapter_Search_NearOrdersByDistance(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	rows := sqlmock.NewRows(providerRows).
		AddRow("330102", "Mount Sinai", "New York", "NY", "10029",
			"470 - MAJOR JOINT REPLACEMENT W/O MCC", 180,
			61000.0, 19500.0, 16000.0, 40.7900, -73.9441)

	mock.ExpectQuery(`SELECT .+ FROM "providers" WHERE .+ ORDER BY \(\(latitude - .+\) \* \(latitude - .+\) \+ \(longitude - .+\) \* \(longitude - .+\)\) ASC`).
		WillReturnRows(rows)

	result, err := adapter.Search(context.Background(), repositories.ProviderQuery{
		Codes: []string{"470"},
		Near:  &repositories.NearPoint{Lat: 40.7506, Lon: -73.9972},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "330102", result[0].ProviderID)
}

func TestProviderAdapter_Search_NullCoordinates(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	rows := sqlmock.NewRows(providerRows).
		AddRow("450505", "Rural General", "Smallville", "TX", "79936",
			"470 - MAJOR JOINT REPLACEMENT W/O MCC", 12,
			32000.0, 11000.0, 9000.0, nil, nil)

	mock.ExpectQuery(`SELECT .+ FROM "providers"`).WillReturnRows(rows)

	result, err := adapter.Search(context.Background(), repositories.ProviderQuery{
		Codes: []string{"470"},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Nil(t, result[0].Latitude)
	assert.Nil(t, result[0].Longitude)
}

func TestProviderAdapter_Search_RequiresConstraint(t *testing.T) {
	adapter, _ := newMockAdapter(t)

	_, err := adapter.Search(context.Background(), repositories.ProviderQuery{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestProviderAdapter_Search_BoundingBoxInQuery(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(`SELECT .+ FROM "providers" WHERE .*"latitude" IS NOT NULL.*BETWEEN.*`).
		WillReturnRows(sqlmock.NewRows(providerRows))

	_, err := adapter.Search(context.Background(), repositories.ProviderQuery{
		Patterns: []string{"joint replacement"},
		Box: &repositories.BoundingBox{
			MinLat: 40.0, MaxLat: 41.0, MinLon: -75.0, MaxLon: -73.0,
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_CoordinatesForZip(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(`SELECT "latitude", "longitude" FROM "providers"`).
		WillReturnRows(sqlmock.NewRows([]string{"latitude", "longitude"}).AddRow(40.75, -73.99))

	lat, lon, err := adapter.CoordinatesForZip(context.Background(), "10001")
	require.NoError(t, err)
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	assert.InDelta(t, 40.75, *lat, 1e-9)
	assert.InDelta(t, -73.99, *lon, 1e-9)
}

func TestProviderAdapter_CoordinatesForZip_NoRows(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(`SELECT "latitude", "longitude" FROM "providers"`).
		WillReturnRows(sqlmock.NewRows([]string{"latitude", "longitude"}))

	lat, lon, err := adapter.CoordinatesForZip(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, lat)
	assert.Nil(t, lon)
}

func TestProviderAdapter_Count(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "providers"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1542))

	count, err := adapter.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1542), count)
}
