// Package storage persists simulated interval series, monthly statistics and
// statements. Providers are selected by flag; the CSV provider writes plain
// files for local runs and the Firestore provider backs the hosted setup.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digienergy/simulation/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// ErrNotFound indicates the requested meter/month has no stored record.
var ErrNotFound = errors.New("record not found")

// Database defines the interface for persisting simulation output.
type Database interface {
	// Intervals
	// UpsertIntervals merges records into the stored series; a record with
	// the same meter, date and time replaces the stored one.
	UpsertIntervals(ctx context.Context, records []types.IntervalRecord) error
	GetIntervals(ctx context.Context, meterNo string, year int, month time.Month) ([]types.IntervalRecord, error)

	// Monthly aggregates
	UpsertMonthlyStats(ctx context.Context, stats types.MonthlyStats) error
	GetMonthlyStats(ctx context.Context, meterNo string, year int, month time.Month) (types.MonthlyStats, error)
	UpsertStatement(ctx context.Context, statement types.Statement) error
	GetStatement(ctx context.Context, meterNo string, year int, month time.Month) (types.Statement, error)

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "csv", "Storage provider to use (available: csv, firestore)")

	var p struct{ Database }

	cs := configuredCSV()
	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "csv":
			if err := cs.Init(); err != nil {
				panic(fmt.Sprintf("csv init failed: %v", err))
			}
			p.Database = cs
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
