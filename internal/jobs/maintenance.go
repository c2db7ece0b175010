// Package jobs runs periodic housekeeping next to the bot.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oggyb/matchbot/internal/metrics"
	"github.com/oggyb/matchbot/internal/store"
)

// Maintainer is the part of the store the maintenance job drives.
type Maintainer interface {
	Backup(ctx context.Context, keep int) (store.BackupResult, error)
	CleanupInactive(ctx context.Context) (int64, error)
}

// Maintenance snapshots the data and purges inactive accounts on a fixed
// interval.
type Maintenance struct {
	store    Maintainer
	interval time.Duration
	keep     int
	log      *slog.Logger
}

func NewMaintenance(st Maintainer, interval time.Duration, keep int, log *slog.Logger) *Maintenance {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Maintenance{store: st, interval: interval, keep: keep, log: log}
}

// Run executes one pass immediately and then one per interval until ctx
// is done. A non-positive interval disables the job.
func (m *Maintenance) Run(ctx context.Context) error {
	if m.interval <= 0 {
		m.log.Info("maintenance job disabled")
		return nil
	}

	m.runLogged(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runLogged(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Maintenance) runLogged(ctx context.Context) {
	if err := m.RunOnce(ctx); err != nil {
		m.log.Error("maintenance pass failed", "err", err)
	}
}

// RunOnce takes a backup and purges inactive users. A failing step does
// not skip the other; both errors are returned.
func (m *Maintenance) RunOnce(ctx context.Context) error {
	var errs []error

	started := time.Now()
	backup, err := m.store.Backup(ctx, m.keep)
	metrics.ObserveJob("backup", started)
	if err != nil {
		errs = append(errs, fmt.Errorf("backup: %w", err))
	} else {
		m.log.Info("backup stored",
			"backup_id", backup.ID,
			"users", backup.Users,
			"likes", backup.Likes,
			"views", backup.Views,
			"matches", backup.Matches,
			"pruned", backup.Pruned,
		)
	}

	started = time.Now()
	removed, err := m.store.CleanupInactive(ctx)
	metrics.ObserveJob("cleanup_inactive", started)
	if err != nil {
		errs = append(errs, fmt.Errorf("cleanup inactive: %w", err))
	} else if removed > 0 {
		m.log.Info("inactive users removed", "count", removed)
	}

	return errors.Join(errs...)
}
