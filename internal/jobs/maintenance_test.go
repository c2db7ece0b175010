package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/clock"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/jobs"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/store"
)

type stubMaintainer struct {
	backups    atomic.Int32
	cleanups   atomic.Int32
	backupErr  error
	cleanupErr error
}

func (s *stubMaintainer) Backup(context.Context, int) (store.BackupResult, error) {
	s.backups.Add(1)
	return store.BackupResult{ID: 1}, s.backupErr
}

func (s *stubMaintainer) CleanupInactive(context.Context) (int64, error) {
	s.cleanups.Add(1)
	return 0, s.cleanupErr
}

func TestRunOnceWithStore(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))

	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	st := store.New(repository.New(database), nil, clk, config.DefaultRules(), nil)

	for _, id := range []int64{1, 2} {
		_, err := st.CreateIfMissing(ctx, id, "", nil)
		require.NoError(t, err)
	}
	clk.Advance(31 * 24 * time.Hour)
	_, err = st.CreateIfMissing(ctx, 3, "", nil)
	require.NoError(t, err)

	job := jobs.NewMaintenance(st, time.Hour, 2, nil)
	require.NoError(t, job.RunOnce(ctx))
	require.NoError(t, job.RunOnce(ctx))
	require.NoError(t, job.RunOnce(ctx))

	var users, backups int64
	require.NoError(t, database.Model(&db.User{}).Count(&users).Error)
	require.NoError(t, database.Model(&db.Backup{}).Count(&backups).Error)
	assert.Equal(t, int64(1), users, "idle users are purged")
	assert.Equal(t, int64(2), backups, "only the newest backups are kept")
}

func TestRunOnceKeepsGoingAfterFailure(t *testing.T) {
	stub := &stubMaintainer{backupErr: errors.New("disk full")}
	job := jobs.NewMaintenance(stub, time.Hour, 1, nil)

	err := job.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, int32(1), stub.cleanups.Load(), "cleanup still runs")
}

func TestRunStopsWithContext(t *testing.T) {
	stub := &stubMaintainer{}
	job := jobs.NewMaintenance(stub, 10*time.Millisecond, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()

	require.Eventually(t, func() bool { return stub.backups.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestRunDisabled(t *testing.T) {
	stub := &stubMaintainer{}
	job := jobs.NewMaintenance(stub, 0, 1, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, stub.backups.Load())
}
