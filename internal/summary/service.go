package summary

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/kinemetry/kinemetry/internal/cache"
	"github.com/kinemetry/kinemetry/internal/logging"
	"github.com/kinemetry/kinemetry/internal/measure"
)

// Service answers window-summary queries over the persisted patient cache.
// It uses DuckDB to scan the parquet file directly; when the patient has
// no cache file yet the caller falls back to FromSamples.
type Service struct {
	db    *sql.DB
	store *cache.Store
	log   *slog.Logger
}

// New creates a summary service over the given cache store.
func New(store *cache.Store) (*Service, error) {
	// In-memory DuckDB database; parquet files are scanned per query.
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &Service{
		db:    db,
		store: store,
		log:   logging.Component("summary"),
	}, nil
}

// Close closes the service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WindowSummary aggregates the patient's persisted samples of one kind
// into hourly buckets over the window. Returns ok=false when the patient
// has no cache file to scan.
func (s *Service) WindowSummary(ctx context.Context, patientID string, w measure.Window, kind measure.Kind) ([]Bucket, bool, error) {
	if !s.store.Exists(patientID) {
		return nil, false, nil
	}

	query := `
		SELECT time_ns, percentage
		FROM read_parquet($1)
		WHERE measurement = $2
		  AND time_ns >= $3
		  AND time_ns <= $4
		  AND percentage IS NOT NULL
		ORDER BY time_ns
	`

	rows, err := s.db.QueryContext(ctx, query,
		s.store.Path(patientID),
		kind.String(),
		w.Lower.UnixNano(),
		w.Upper.UnixNano(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("query cache parquet: %w", err)
	}
	defer rows.Close()

	aggs := make(map[time.Time]*hourAggregate)
	for rows.Next() {
		var timeNs int64
		var pct float64
		if err := rows.Scan(&timeNs, &pct); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}

		hour := time.Unix(0, timeNs).UTC().Truncate(time.Hour)
		agg, ok := aggs[hour]
		if !ok {
			agg = newHourAggregate(hour)
			aggs[hour] = agg
		}
		agg.add(pct)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("read rows: %w", err)
	}

	buckets := make([]Bucket, 0, len(aggs))
	for _, agg := range aggs {
		buckets = append(buckets, agg.result())
	}
	sortBuckets(buckets)

	s.log.Debug("window summary computed",
		"patient_id", patientID,
		"measurement", kind.String(),
		"buckets", len(buckets))
	return buckets, true, nil
}
