package main

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/joho/godotenv"

	"github.com/costnav/healthcare-cost-navigator/internal/adapters/providers/geolocation"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
)

const insertBatchSize = 500

// ratingCategories matches the categories the ratings table carries.
var ratingCategories = []string{"overall", "cardiac", "orthopedic", "emergency", "surgical"}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS providers (
	id SERIAL PRIMARY KEY,
	provider_id TEXT NOT NULL,
	provider_name TEXT NOT NULL,
	provider_city TEXT NOT NULL,
	provider_state TEXT NOT NULL,
	provider_zip_code TEXT NOT NULL,
	ms_drg_definition TEXT NOT NULL,
	total_discharges INTEGER NOT NULL DEFAULT 0,
	average_covered_charges NUMERIC(12,2) NOT NULL DEFAULT 0,
	average_total_payments NUMERIC(12,2) NOT NULL DEFAULT 0,
	average_medicare_payments NUMERIC(12,2) NOT NULL DEFAULT 0,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	UNIQUE (provider_id, ms_drg_definition)
);
CREATE INDEX IF NOT EXISTS idx_providers_drg ON providers (ms_drg_definition);
CREATE INDEX IF NOT EXISTS idx_providers_coords ON providers (latitude, longitude);

CREATE TABLE IF NOT EXISTS ratings (
	id SERIAL PRIMARY KEY,
	provider_id TEXT NOT NULL,
	rating NUMERIC(3,1) NOT NULL CHECK (rating >= 1 AND rating <= 10),
	category TEXT NOT NULL,
	UNIQUE (provider_id, category)
);
CREATE INDEX IF NOT EXISTS idx_ratings_provider ON ratings (provider_id);
`

type providerRow struct {
	providerID     string
	name           string
	city           string
	state          string
	zip            string
	drg            string
	discharges     int
	coveredCharges float64
	totalPayments  float64
	medicarePay    float64
	latitude       float64
	longitude      float64
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("healthcare-cost-navigator-seed", cfg.Server.Env)
	log := observability.GetLogger()

	csvPath := os.Getenv("SEED_CSV_PATH")
	if csvPath == "" {
		csvPath = "data/sample_prices_ny.csv"
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	ctx := context.Background()

	if _, err := pgClient.DB().ExecContext(ctx, schemaDDL); err != nil {
		log.Fatal().Err(err).Msg("failed to create schema")
	}
	log.Info().Msg("schema ready")

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, "TRUNCATE TABLE providers, ratings RESTART IDENTITY"); err != nil {
			log.Fatal().Err(err).Msg("failed to truncate tables")
		}
	}

	rows, err := loadCSV(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", csvPath).Msg("failed to load csv")
	}
	log.Info().Int("rows", len(rows)).Msg("csv loaded")

	db := goqu.New("postgres", pgClient.DB())

	inserted, err := insertProviders(ctx, db, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to insert providers")
	}
	log.Info().Int("providers", inserted).Msg("providers seeded")

	ratings, err := insertMockRatings(ctx, db, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to insert ratings")
	}
	log.Info().Int("ratings", ratings).Msg("ratings seeded")
}

// loadCSV reads the CMS pricing export, drops rows missing critical fields,
// and resolves approximate coordinates per ZIP.
func loadCSV(path string) ([]providerRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	resolver := geolocation.NewZipResolver(nil)
	// Deterministic jitter so repeated seeds produce identical coordinates.
	jitter := rand.New(rand.NewSource(42))

	var rows []providerRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := providerRow{
			providerID: get("Provider Id"),
			name:       get("Provider Name"),
			city:       get("Provider City"),
			state:      get("Provider State"),
			zip:        get("Provider Zip Code"),
			drg:        get("DRG Definition"),
		}
		if row.providerID == "" || row.name == "" || row.city == "" ||
			row.state == "" || row.zip == "" || row.drg == "" {
			continue
		}
		row.discharges = parseCount(get("Total Discharges"))
		row.coveredCharges = parseMoney(get("Average Covered Charges"))
		row.totalPayments = parseMoney(get("Average Total Payments"))
		row.medicarePay = parseMoney(get("Average Medicare Payments"))

		// ZIP-level resolution plus a small spread so providers sharing a
		// regional centroid do not stack on one point.
		coords, tier := resolver.Resolve(context.Background(), row.zip)
		row.latitude = coords.Latitude
		row.longitude = coords.Longitude
		if tier.Approximate() {
			row.latitude += (jitter.Float64() - 0.5) * 0.1
			row.longitude += (jitter.Float64() - 0.5) * 0.1
		}

		rows = append(rows, row)
	}
	return rows, nil
}

func insertProviders(ctx context.Context, db *goqu.Database, rows []providerRow) (int, error) {
	inserted := 0
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		records := make([]goqu.Record, 0, end-start)
		for _, row := range rows[start:end] {
			records = append(records, goqu.Record{
				"provider_id":               row.providerID,
				"provider_name":             row.name,
				"provider_city":             row.city,
				"provider_state":            row.state,
				"provider_zip_code":         row.zip,
				"ms_drg_definition":         row.drg,
				"total_discharges":          row.discharges,
				"average_covered_charges":   row.coveredCharges,
				"average_total_payments":    row.totalPayments,
				"average_medicare_payments": row.medicarePay,
				"latitude":                  row.latitude,
				"longitude":                 row.longitude,
			})
		}

		query, args, err := db.Insert("providers").
			Rows(records).
			OnConflict(goqu.DoNothing()).
			ToSQL()
		if err != nil {
			return inserted, err
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return inserted, err
		}
		inserted += len(records)
	}
	return inserted, nil
}

// insertMockRatings generates 1-3 ratings per distinct provider, skewed toward
// the upper half of the 1-10 scale the way real hospital scores are.
func insertMockRatings(ctx context.Context, db *goqu.Database, rows []providerRow) (int, error) {
	seen := make(map[string]bool)
	rng := rand.New(rand.NewSource(42))

	var records []goqu.Record
	for _, row := range rows {
		if seen[row.providerID] {
			continue
		}
		seen[row.providerID] = true

		count := 1 + rng.Intn(3)
		for _, idx := range rng.Perm(len(ratingCategories))[:count] {
			rating := rng.NormFloat64()*1.5 + 7.5
			if rating < 1 {
				rating = 1
			}
			if rating > 10 {
				rating = 10
			}
			records = append(records, goqu.Record{
				"provider_id": row.providerID,
				"rating":      math.Round(rating*10) / 10,
				"category":    ratingCategories[idx],
			})
		}
	}

	inserted := 0
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		query, args, err := db.Insert("ratings").
			Rows(records[start:end]).
			OnConflict(goqu.DoNothing()).
			ToSQL()
		if err != nil {
			return inserted, err
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return inserted, err
		}
		inserted += end - start
	}
	return inserted, nil
}

func parseMoney(s string) float64 {
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseCount(s string) int {
	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
