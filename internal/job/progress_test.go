package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_KnownTotals(t *testing.T) {
	now := time.Now()
	j := &Job{
		Status:         StatusProcessing,
		Progress:       10,
		ProcessedCount: 25,
		TotalCount:     50,
		CreatedAt:      now.Add(-60 * time.Second),
	}

	p := Project(j, now)

	assert.Equal(t, 50, p.Percentage)
	require.NotNil(t, p.ETASeconds)
	// 60s elapsed at 50% leaves roughly 60s.
	assert.InDelta(t, 60, *p.ETASeconds, 1)
}

func TestProject_FallsBackToLedgerProgress(t *testing.T) {
	j := &Job{Status: StatusProcessing, Progress: 35, CreatedAt: time.Now().Add(-10 * time.Second)}

	p := Project(j, time.Now())

	assert.Equal(t, 35, p.Percentage)
	assert.NotNil(t, p.ETASeconds)
}

func TestProject_CompletedAlwaysFull(t *testing.T) {
	j := &Job{Status: StatusCompleted, Progress: 80, ProcessedCount: 3, TotalCount: 10}

	p := Project(j, time.Now())

	assert.Equal(t, 100, p.Percentage)
	assert.Nil(t, p.ETASeconds)
}

func TestProject_NoETAAtZeroOrNotProcessing(t *testing.T) {
	queued := &Job{Status: StatusQueued, Progress: 0, CreatedAt: time.Now()}
	assert.Nil(t, Project(queued, time.Now()).ETASeconds)
	assert.Equal(t, 0, Project(queued, time.Now()).Percentage)

	failed := &Job{Status: StatusFailed, Progress: 40, CreatedAt: time.Now().Add(-time.Minute)}
	p := Project(failed, time.Now())
	assert.Equal(t, 40, p.Percentage)
	assert.Nil(t, p.ETASeconds)
}

func TestProject_CountsNeverRegressBelowLedger(t *testing.T) {
	// Ledger progress already ahead of the derived ratio (e.g. the progress
	// floor on chunk 0): the projection must not decrease.
	j := &Job{
		Status:         StatusProcessing,
		Progress:       5,
		ProcessedCount: 1,
		TotalCount:     100,
		CreatedAt:      time.Now().Add(-time.Second),
	}

	assert.Equal(t, 5, Project(j, time.Now()).Percentage)
}
