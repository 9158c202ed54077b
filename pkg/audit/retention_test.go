package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/ordercore/pkg/orders"
)

func TestRetentionWorker_PurgesBothLogs(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryStore(db)
	activity := NewActivityStore(db)

	now := time.Now().UTC()
	seedHistory(t, history, "order-1", now.AddDate(0, -6, 0), "stale")
	seedHistory(t, history, "order-1", now, "fresh")
	seedActivity(t, activity, "order-1", now.Add(-200*24*time.Hour), "/stale")
	seedActivity(t, activity, "order-1", now, "/fresh")

	cfg := &Config{
		HistoryRetentionMonths: 3,
		ActivityRetention:      90 * 24 * time.Hour,
		Interval:               10 * time.Millisecond,
		Enabled:                true,
	}
	worker := NewRetentionWorker(history, activity, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	worker.Run(ctx)

	var historyCount, activityCount int64
	require.NoError(t, db.Model(&orders.HistoryEntry{}).Count(&historyCount).Error)
	require.NoError(t, db.Model(&orders.ActivityLogEntry{}).Count(&activityCount).Error)
	assert.EqualValues(t, 1, historyCount)
	assert.EqualValues(t, 1, activityCount)
}

func TestRetentionWorker_DisabledReturnsImmediately(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryStore(db)

	cfg := DefaultConfig()
	cfg.Enabled = false
	worker := NewRetentionWorker(history, nil, cfg, nil)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
}

func TestRetentionWorker_NilConfigUsesDefaults(t *testing.T) {
	worker := NewRetentionWorker(nil, nil, nil, nil)
	assert.Equal(t, DefaultHistoryRetentionMonths, worker.cfg.HistoryRetentionMonths)
	assert.Equal(t, DefaultActivityRetention, worker.cfg.ActivityRetention)
	assert.True(t, worker.cfg.Enabled)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ORDERCORE_AUDIT_HISTORY_MONTHS", "6")
	t.Setenv("ORDERCORE_AUDIT_ACTIVITY_DAYS", "30")
	t.Setenv("ORDERCORE_AUDIT_ENABLED", "false")

	cfg := ConfigFromEnv()
	assert.Equal(t, 6, cfg.HistoryRetentionMonths)
	assert.Equal(t, 30*24*time.Hour, cfg.ActivityRetention)
	assert.False(t, cfg.Enabled)
}

func TestConfigFromEnv_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("ORDERCORE_AUDIT_HISTORY_MONTHS", "-2")
	t.Setenv("ORDERCORE_AUDIT_ACTIVITY_DAYS", "nope")

	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultHistoryRetentionMonths, cfg.HistoryRetentionMonths)
	assert.Equal(t, DefaultActivityRetention, cfg.ActivityRetention)
}
