package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failN    int32 // 처음 N번 실패
	calls    int32
}

type summaryJob struct {
	countingJob
}

func (j *summaryJob) Summary() string { return "fresh=2 failed=0" }

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failN {
		return errors.New("boom")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop()).WithRetry(2, 0)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 30 6 * * 1-5"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "b", schedule: "not a spec"}))

	require.NoError(t, s.AddJob(&countingJob{name: "0-first", schedule: "@hourly"}))
	assert.Equal(t, []string{"0-first", "a"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"0-first"}, s.GetAllJobs())
}

func TestRunJobSyncRetries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "flaky", schedule: "@daily", failN: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Summary)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.NotNil(t, stats.LastSuccess)
}

func TestRunJobSyncExhausted(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", schedule: "@daily", failN: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Len(t, history.Failed(), 1)
	assert.Equal(t, 0.0, history.SuccessRate())

	stats := s.GetJobStats()["broken"]
	assert.Nil(t, stats.LastSuccess)
	assert.NotNil(t, stats.LastFailure)

	_, err = s.RunJobSync("missing")
	assert.Error(t, err)
}

func TestJobHistoryKeepsLast100(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, MaxHistory)
	assert.Len(t, h.Latest(5), 5)
	assert.Len(t, h.Latest(500), MaxHistory)
	assert.Empty(t, h.Latest(0))
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-12)

	last, ok := h.Last()
	require.True(t, ok)
	assert.False(t, last.Success) // i=119

	lastOK, ok := h.LastWhere(true)
	require.True(t, ok)
	assert.True(t, lastOK.Success)
}

func TestJobHistoryEmpty(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Last()
	assert.False(t, ok)
	_, ok = h.LastWhere(false)
	assert.False(t, ok)
	assert.Equal(t, 0.0, h.SuccessRate())
}

func TestRunJobSyncRecordsSummary(t *testing.T) {
	s := newTestScheduler()
	job := &summaryJob{countingJob{name: "refresh", schedule: "@daily"}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("refresh")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "fresh=2 failed=0", result.Summary)
	assert.Equal(t, "fresh=2 failed=0", s.GetJobStats()["refresh"].LastSummary)
}
