package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/harborview-hms/harborview/internal/jobs"
	"github.com/harborview-hms/harborview/internal/platform/db"
)

// DraftSweeper removes draft journal entries that sat untouched past the
// retention window. Posted and approved entries are never swept.
type DraftSweeper struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics

	// DefaultRetention applies when the task payload carries no retention.
	DefaultRetention time.Duration
}

func NewDraftSweeper(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics, retention time.Duration) *DraftSweeper {
	return &DraftSweeper{pool: pool, logger: logger, metrics: metrics, DefaultRetention: retention}
}

// Handle processes TaskDraftSweep tasks.
func (s *DraftSweeper) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track("draft_sweep")

	var payload DraftSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
	}
	retention := s.DefaultRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention)

	var swept int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id IN (
SELECT id FROM journal_entries WHERE status='DRAFT' AND updated_at < $1)`, cutoff); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM journal_entries WHERE status='DRAFT' AND updated_at < $1`, cutoff)
		if err != nil {
			return err
		}
		swept = cmd.RowsAffected()
		return nil
	})
	if err != nil {
		s.logger.Error("draft sweep failed", slog.Any("error", err))
		return tracker.End(err)
	}
	if swept > 0 {
		s.logger.Info("draft sweep complete",
			slog.Int64("swept", swept),
			slog.Time("cutoff", cutoff))
	}
	return tracker.End(nil)
}
