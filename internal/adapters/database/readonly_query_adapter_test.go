package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
)

func TestReadOnlyQueryAdapter_Query(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	adapter := NewReadOnlyQueryAdapter(postgres.NewClientFromDB(db))

	mock.ExpectQuery(`SELECT provider_name, average_covered_charges FROM providers`).
		WillReturnRows(sqlmock.NewRows([]string{"provider_name", "average_covered_charges"}).
			AddRow([]byte("NYU Langone"), 55000.0).
			AddRow([]byte("Mount Sinai"), 61000.0))

	cols, rows, err := adapter.Query(context.Background(),
		"SELECT provider_name, average_covered_charges FROM providers LIMIT 10")
	require.NoError(t, err)

	assert.Equal(t, []string{"provider_name", "average_covered_charges"}, cols)
	require.Len(t, rows, 2)
	// []byte columns come back as strings so they serialize as JSON text
	assert.Equal(t, "NYU Langone", rows[0]["provider_name"])
	assert.Equal(t, 55000.0, rows[0]["average_covered_charges"])
}

func TestRatingAdapter_AverageByProviderIDs(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRatingAdapter(postgres.NewClientFromDB(db))

	mock.ExpectQuery(`SELECT "provider_id", AVG\("rating"\) AS "avg_rating" FROM "ratings"`).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "avg_rating"}).
			AddRow("330101", 8.5).
			AddRow("330202", 6.25))

	averages, err := adapter.AverageByProviderIDs(context.Background(), []string{"330101", "330202"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"330101": 8.5, "330202": 6.25}, averages)
}

func TestRatingAdapter_AverageByProviderIDs_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRatingAdapter(postgres.NewClientFromDB(db))

	averages, err := adapter.AverageByProviderIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, averages)
}
