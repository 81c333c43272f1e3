// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package analytics executes generated SQL against the metrics warehouse.
//
// Every statement runs inside a read-only transaction that is always
// rolled back, so even a write that slipped past the static safety gate
// cannot persist anything.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/teradata-labs/quill/pkg/types"
)

// Executor runs one read-only SQL statement and returns normalized rows.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (*types.QueryResult, error)
}

// Config holds connection settings for the metrics warehouse.
type Config struct {
	// Driver is "postgres" or "mysql".
	Driver string

	// DSN is the driver-specific connection string.
	DSN string

	// MaxOpenConns bounds the pool (default 5).
	MaxOpenConns int

	// QueryTimeout bounds one execution (default 30s).
	QueryTimeout time.Duration

	// Logger for execution reporting.
	Logger *zap.Logger
}

// DB implements Executor on database/sql.
type DB struct {
	db           *sql.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

// Open connects to the warehouse. The connecting role should itself be
// provisioned read-only; the rollback-only transaction here is defense in
// depth, not the sole protection.
func Open(cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = "postgres"
	}
	if cfg.Driver != "postgres" && cfg.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported analytics driver: %q", cfg.Driver)
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 5
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	return &DB{
		db:           db,
		queryTimeout: cfg.QueryTimeout,
		logger:       cfg.Logger,
	}, nil
}

// Execute runs sqlText in a read-only, always-rolled-back transaction and
// returns normalized rows. Database failures come back as
// *types.ExecutionError so the pipeline can route them into a repair
// cycle.
func (d *DB) Execute(ctx context.Context, sqlText string) (*types.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, types.NewExecutionError(fmt.Sprintf("failed to begin transaction: %v", err))
	}
	// Rollback unconditionally. Nothing this gateway runs may commit.
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, types.NewExecutionError(fmt.Sprintf("execution failed: %v", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, types.NewExecutionError(fmt.Sprintf("failed to read columns: %v", err))
	}

	result := &types.QueryResult{Columns: columns}
	for rows.Next() {
		scanDest := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range scanDest {
			scanArgs[i] = &scanDest[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, types.NewExecutionError(fmt.Sprintf("failed to scan row: %v", err))
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = NormalizeValue(scanDest[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewExecutionError(fmt.Sprintf("row iteration error: %v", err))
	}

	result.RowCount = len(result.Rows)
	d.logger.Debug("query executed",
		zap.Int("row_count", result.RowCount),
		zap.Int("column_count", len(columns)),
	)
	return result, nil
}

// NormalizeValue converts a scanned database value into a JSON-friendly
// form: times become RFC 3339 strings, byte slices become strings,
// integer widths collapse to int64, float widths to float64, NULLs stay
// nil.
func NormalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case float32:
		return float64(val)
	case float64:
		return val
	default:
		return val
	}
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}
