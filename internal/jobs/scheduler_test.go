package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTasks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewScheduler()
	require.NoError(t, s.Add("count", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("failing", "@every 1s", func(ctx context.Context) error {
		return errors.New("boom")
	}))
	assert.Equal(t, 2, s.Len())

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	<-s.Stop().Done()
}

func TestSchedulerAdd(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("disabled", "", noop))
	assert.Equal(t, 0, s.Len())

	assert.Error(t, s.Add("broken", "every hour please", noop))
	assert.Equal(t, 0, s.Len())
}
