package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupSchedule_InvalidExprErrors(t *testing.T) {
	s := openTestStore(t)
	_, err := NewCleanupSchedule(s, "not a cron expr", 30)
	assert.Error(t, err)
}

func TestCleanupSchedule_NextRunAdvancesFromNow(t *testing.T) {
	s := openTestStore(t)
	sched, err := NewCleanupSchedule(s, "0 3 * * *", 30)
	require.NoError(t, err)

	now := time.Date(2026, 8, 6, 1, 0, 0, 0, time.UTC)
	next := sched.NextRun(now)

	assert.True(t, next.After(now))
	assert.Equal(t, 3, next.Hour())
}

func TestCleanupSchedule_RunOnceDeletesOldRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(filepath.Join(dir, "telemetry.db"))
	require.NoError(t, err)
	defer s.Close()

	dayMs := int64(24 * 60 * 60 * 1000)
	now := time.UnixMilli(10 * dayMs)
	require.NoError(t, s.StoreTelemetry(sampleRecord("old", "gpt-5", "openai", RoleExecutor, StatusSuccess, 100, 1)))

	sched, err := NewCleanupSchedule(s, "0 3 * * *", 5)
	require.NoError(t, err)

	removed, err := sched.RunOnce(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestCleanupSchedule_StopIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	sched, err := NewCleanupSchedule(s, "0 3 * * *", 30)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		sched.Stop()
	})

	sched.Start(nil)
	assert.NotPanics(t, func() {
		sched.Stop()
		sched.Stop()
	})
}
