// Package sweep は期限切れセッションの掃除ジョブを提供する。
// プロセス起動時に1回実行する設計で、常駐タイマーは持たない。
// 起動の合間に失効したセッションは検証時の遅延失効でも削除される。
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionSweeper は期限切れセッションの一括削除を抽象化するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SweptRecorder は掃除件数をメトリクスに記録するインターフェース。nilの場合は記録しない。
type SweptRecorder interface {
	RecordSessionsSwept(count int)
}

// Job は期限切れセッションの掃除ジョブ。冪等で、削除対象がなくてもエラーにならない。
type Job struct {
	sessions SessionSweeper
	metrics  SweptRecorder
	logger   *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(sessions SessionSweeper, metrics SweptRecorder, logger *slog.Logger) *Job {
	return &Job{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run は現在時刻を基準に期限切れセッションを削除する。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	removed, err := j.sessions.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("session sweep failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(removed)
	}

	duration := time.Since(start)
	j.logger.Info("session sweep completed",
		slog.Int("removed_count", removed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
