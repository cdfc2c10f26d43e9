package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRegister(t *testing.T) {
	s := New(quietLogger(), time.Minute)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register("contracts", DefaultContractsSchedule, noop))
	require.NoError(t, s.Register("runway", DefaultRunwaySchedule, noop))

	err := s.Register("contracts", DefaultContractsSchedule, noop)
	assert.ErrorIs(t, err, ErrDuplicateJob)

	err = s.Register("bad", "every tuesday", noop)
	assert.Error(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "contracts", jobs[0].Name)
	assert.Equal(t, "runway", jobs[1].Name)
}

func TestRunNow(t *testing.T) {
	s := New(quietLogger(), time.Minute)
	var calls atomic.Int32
	boom := errors.New("boom")
	require.NoError(t, s.Register("flaky", "0 * * * *", func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	}))

	errorsBefore := testutil.ToFloat64(jobErrors.WithLabelValues("flaky"))

	err := s.RunNow(context.Background(), "flaky")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "boom", s.Jobs()[0].LastError)
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(jobErrors.WithLabelValues("flaky")))

	require.NoError(t, s.RunNow(context.Background(), "flaky"))
	status := s.Jobs()[0]
	assert.Empty(t, status.LastError)
	assert.NotNil(t, status.LastRun)
	assert.False(t, status.Running)

	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrUnknownJob)
}

func TestRunNow_SkipsOverlappingRun(t *testing.T) {
	s := New(quietLogger(), time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register("slow", "0 * * * *", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), ErrJobRunning)
	close(release)
	require.NoError(t, <-done)
}

func TestStartStop(t *testing.T) {
	s := New(quietLogger(), time.Minute)
	require.NoError(t, s.Register("runway", DefaultRunwaySchedule, func(context.Context) error { return nil }))

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
	assert.NotNil(t, s.Jobs()[0].NextRun)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

type staticUsers []int64

func (u staticUsers) GetUserIDs(context.Context) ([]int64, error) {
	return u, nil
}

func TestPerUser(t *testing.T) {
	retry := service.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, Backoff: service.BackoffLinear}
	attempts := map[int64]int{}

	job := PerUser(staticUsers{1, 2, 3}, func(_ context.Context, userID int64) error {
		attempts[userID]++
		switch userID {
		case 2:
			return errors.New("database is locked")
		case 3:
			if attempts[userID] == 1 {
				return errors.New("transient")
			}
		}
		return nil
	}, retry, quietLogger())

	err := job(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Contains(t, err.Error(), "user 2")
	assert.NotContains(t, err.Error(), "user 3")
	assert.Equal(t, map[int64]int{1: 1, 2: 2, 3: 2}, attempts)
}

func TestPerUser_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	job := PerUser(staticUsers{1}, func(context.Context, int64) error {
		called = true
		return nil
	}, DefaultRetry, quietLogger())

	assert.ErrorIs(t, job(ctx), context.Canceled)
	assert.False(t, called)
}
