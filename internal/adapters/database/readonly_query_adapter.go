package database

import (
	"context"
	"time"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/repositories"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	apperrors "github.com/costnav/healthcare-cost-navigator/pkg/errors"
)

// queryTimeout bounds a generated query so a pathological plan cannot hold a
// pool connection open indefinitely.
const queryTimeout = 15 * time.Second

// ReadOnlyQueryAdapter executes generated SQL that already passed the safety
// validator, returning rows as column-name → value maps.
type ReadOnlyQueryAdapter struct {
	client *postgres.Client
}

// NewReadOnlyQueryAdapter creates a new read-only query adapter
func NewReadOnlyQueryAdapter(client *postgres.Client) repositories.ReadOnlyQueryExecutor {
	return &ReadOnlyQueryAdapter{client: client}
}

// Query runs the statement and materializes the full (capped) result set.
func (a *ReadOnlyQueryAdapter) Query(ctx context.Context, sqlText string) ([]string, []map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := a.client.DB().QueryContext(ctx, sqlText)
	if err != nil {
		return nil, nil, apperrors.NewUnavailableError("failed to execute generated query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to read result columns", err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, apperrors.NewInternalError("failed to scan result row", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// lib/pq hands text columns back as []byte
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewUnavailableError("failed to read generated query rows", err)
	}

	return columns, result, nil
}
