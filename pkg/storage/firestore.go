package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/digienergy/simulation/pkg/log"
	"github.com/digienergy/simulation/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Documents are stored as JSON strings for portability, under
// per-meter sub-collections.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID may be empty if inferred from the environment.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(meterNo, name string) (*firestore.CollectionRef, error) {
	if meterNo == "" {
		return nil, fmt.Errorf("meterNo cannot be empty")
	}
	return f.client.Collection("meters").Doc(meterNo).Collection(name), nil
}

// UpsertIntervals writes each record to the "intervals" sub-collection of its
// meter as a JSON blob. The document ID is "<date>T<time>" so date ranges map
// onto document ID ranges.
func (f *FirestoreProvider) UpsertIntervals(ctx context.Context, records []types.IntervalRecord) error {
	for _, r := range records {
		jsonBytes, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal interval: %w", err)
		}

		coll, err := f.getCollection(r.MeterNo, "intervals")
		if err != nil {
			return err
		}
		docID := r.Date + "T" + r.Time
		_, err = coll.Doc(docID).Set(ctx, map[string]interface{}{
			"json": string(jsonBytes),
			"date": r.Date,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert interval %s: %w", docID, err)
		}
	}
	return nil
}

// GetIntervals retrieves the stored series for one meter and month.
// Uses document ID range queries for efficient filtering without reading all
// documents.
func (f *FirestoreProvider) GetIntervals(ctx context.Context, meterNo string, year int, month time.Month) ([]types.IntervalRecord, error) {
	startDocID := monthKey(year, month) + "-01T00:00"
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	endDocID := monthKey(next.Year(), next.Month()) + "-01T00:00"

	coll, err := f.getCollection(meterNo, "intervals")
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var records []types.IntervalRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating intervals: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "interval doc missing json", slog.String("docID", doc.Ref.ID), slog.String("meterNo", meterNo), slog.Any("err", err))
			return nil, fmt.Errorf("interval document %s missing 'json' field: %w", doc.Ref.ID, err)
		}

		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "interval doc json not string", slog.String("docID", doc.Ref.ID), slog.String("meterNo", meterNo))
			return nil, fmt.Errorf("interval document %s 'json' field is not string", doc.Ref.ID)
		}

		var r types.IntervalRecord
		if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal interval", slog.String("docID", doc.Ref.ID), slog.String("meterNo", meterNo), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal interval (id=%s): %w", doc.Ref.ID, err)
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: intervals for %s %s", ErrNotFound, meterNo, monthKey(year, month))
	}
	return records, nil
}

// UpsertMonthlyStats saves the monthly statistics to the "monthly_stats"
// sub-collection, keyed by "YYYY-MM".
func (f *FirestoreProvider) UpsertMonthlyStats(ctx context.Context, stats types.MonthlyStats) error {
	jsonBytes, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal monthly stats: %w", err)
	}

	coll, err := f.getCollection(stats.MeterNo, "monthly_stats")
	if err != nil {
		return err
	}
	_, err = coll.Doc(monthKey(stats.Year, time.Month(stats.Month))).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert monthly stats: %w", err)
	}
	return nil
}

// GetMonthlyStats retrieves the monthly statistics document for one meter and
// month.
func (f *FirestoreProvider) GetMonthlyStats(ctx context.Context, meterNo string, year int, month time.Month) (types.MonthlyStats, error) {
	var stats types.MonthlyStats
	if err := f.getJSONDoc(ctx, meterNo, "monthly_stats", monthKey(year, month), &stats); err != nil {
		return types.MonthlyStats{}, err
	}
	return stats, nil
}

// UpsertStatement saves the statement to the "statements" sub-collection,
// keyed by "YYYY-MM".
func (f *FirestoreProvider) UpsertStatement(ctx context.Context, statement types.Statement) error {
	jsonBytes, err := json.Marshal(statement)
	if err != nil {
		return fmt.Errorf("failed to marshal statement: %w", err)
	}

	coll, err := f.getCollection(statement.MeterNo, "statements")
	if err != nil {
		return err
	}
	_, err = coll.Doc(monthKey(statement.Year, time.Month(statement.Month))).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert statement: %w", err)
	}
	return nil
}

// GetStatement retrieves the statement document for one meter and month.
func (f *FirestoreProvider) GetStatement(ctx context.Context, meterNo string, year int, month time.Month) (types.Statement, error) {
	var statement types.Statement
	if err := f.getJSONDoc(ctx, meterNo, "statements", monthKey(year, month), &statement); err != nil {
		return types.Statement{}, err
	}
	return statement, nil
}

func (f *FirestoreProvider) getJSONDoc(ctx context.Context, meterNo, collection, docID string, v any) error {
	coll, err := f.getCollection(meterNo, collection)
	if err != nil {
		return err
	}
	doc, err := coll.Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s %s for %s", ErrNotFound, collection, docID, meterNo)
		}
		return fmt.Errorf("failed to fetch %s doc %s: %w", collection, docID, err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("collection", collection), slog.String("docID", docID), slog.String("meterNo", meterNo))
		return fmt.Errorf("%s document %s missing 'json' field: %w", collection, docID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("collection", collection), slog.String("docID", docID), slog.String("meterNo", meterNo))
		return fmt.Errorf("%s document %s 'json' field is not string", collection, docID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("collection", collection), slog.String("docID", docID), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal %s (id=%s): %w", collection, docID, err)
	}
	return nil
}
