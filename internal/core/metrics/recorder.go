package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// BatchExecer is the persistence contract for counter samples.
// Implemented by *db.Queries.
type BatchExecer interface {
	ExecBatch(ctx context.Context, name string, rows [][]interface{}) error
}

const insertSampleQuery = "insert-counter-sample"

// Recorder periodically persists Registry snapshots, one row per counter.
type Recorder struct {
	registry   *Registry
	store      BatchExecer
	instanceID string
	interval   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewRecorder creates a recorder for registry. instanceID distinguishes
// gateways sharing one database.
func NewRecorder(registry *Registry, store BatchExecer, instanceID string, interval time.Duration, logger *slog.Logger) (*Recorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive, got %v", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		registry:   registry,
		store:      store,
		instanceID: instanceID,
		interval:   interval,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Flush writes the current snapshot. All samples share one recorded_at.
func (r *Recorder) Flush(ctx context.Context) error {
	samples := r.registry.Snapshot()
	if len(samples) == 0 {
		return nil
	}

	at := r.now()
	rows := make([][]interface{}, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []interface{}{
			uuid.Must(uuid.NewV7()).String(),
			r.instanceID,
			s.Name,
			s.Value,
			at,
		})
	}

	if err := r.store.ExecBatch(ctx, insertSampleQuery, rows); err != nil {
		return fmt.Errorf("persist counter samples: %w", err)
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more
// with a fresh context so the final counts are not lost.
func (r *Recorder) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.Flush(finalCtx); err != nil {
				r.logger.Warn("final counter flush failed", "error", err)
			}
			return nil
		case <-t.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Warn("counter flush failed", "error", err)
			}
		}
	}
}

// SampleReader is the query contract for reading persisted samples.
// Implemented by *db.Queries.
type SampleReader interface {
	SelectContext(ctx context.Context, name string, dest interface{}, args ...interface{}) error
}

// LatestSamples returns the most recent flush recorded for instanceID.
func LatestSamples(ctx context.Context, q SampleReader, instanceID string) ([]Sample, error) {
	var samples []Sample
	if err := q.SelectContext(ctx, "latest-counter-samples", &samples, instanceID, instanceID); err != nil {
		return nil, fmt.Errorf("load counter samples: %w", err)
	}
	return samples, nil
}
