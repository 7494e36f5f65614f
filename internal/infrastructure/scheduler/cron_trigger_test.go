package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pharmapos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronTrigger_AddValidatesSpecs(t *testing.T) {
	trigger := NewCronTrigger(NewScheduler(SchedulerConfig{}, nil, nil), time.UTC, nil)

	require.NoError(t, trigger.Add(Entry{Task: TaskWarmDashboard, Spec: "@every 1m"}))
	require.NoError(t, trigger.Add(Entry{Task: TaskExpiryScan, Spec: "0 6 * * *"}))
	require.NoError(t, trigger.Add(Entry{Task: TaskRetention, Spec: ""}))

	err := trigger.Add(Entry{Task: TaskWarmFinancial, Spec: "every five minutes"})
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, ok := trigger.Next(TaskRetention)
	assert.False(t, ok, "empty spec disables the task")
	_, ok = trigger.Next(TaskWarmDashboard)
	assert.True(t, ok)
}

func TestCronTrigger_ReplacesEntry(t *testing.T) {
	trigger := NewCronTrigger(NewScheduler(SchedulerConfig{}, nil, nil), time.UTC, nil)
	require.NoError(t, trigger.Add(Entry{Task: TaskWarmDashboard, Spec: "@every 1m"}))
	require.NoError(t, trigger.Add(Entry{Task: TaskWarmDashboard, Spec: "@every 2m"}))
	assert.Len(t, trigger.cron.Entries(), 1)
}

func TestCronTrigger_FiresIntoScheduler(t *testing.T) {
	s := startScheduler(t, SchedulerConfig{Workers: 1}, nil)
	var runs atomic.Int32
	s.Register(TaskWarmDashboard, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	trigger := NewCronTrigger(s, time.UTC, nil)
	require.NoError(t, trigger.Add(Entry{Task: TaskWarmDashboard, Spec: "@every 1s"}))
	require.NoError(t, trigger.Start(context.Background()))
	defer func() { _ = trigger.Stop(context.Background()) }()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestEntriesFromConfig(t *testing.T) {
	entries := EntriesFromConfig(config.SchedulerConfig{
		DashboardSpec:  "@every 1m",
		FinancialSpec:  "@every 5m",
		ExpiryScanSpec: "0 6 * * *",
		RetentionSpec:  "30 3 * * *",
	})
	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Task: TaskExpiryScan, Spec: "0 6 * * *"}, entries[2])
}
