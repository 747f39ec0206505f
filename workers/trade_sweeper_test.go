package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (s *countingSweeper) SweepStale(context.Context) (int64, error) {
	s.calls.Add(1)
	return s.n, s.err
}

func TestRunOnce(t *testing.T) {
	s := &countingSweeper{n: 3}
	w := NewTradeSweeper(s, time.Minute, zap.NewNop())
	require.Equal(t, int64(3), w.RunOnce(context.Background()))

	s.err = errors.New("db down")
	require.Zero(t, w.RunOnce(context.Background()))
	require.Equal(t, int32(2), s.calls.Load())
}

func TestStartRunsOnInterval(t *testing.T) {
	s := &countingSweeper{}
	w := NewTradeSweeper(s, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool { return s.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())
}

func TestStartDisabled(t *testing.T) {
	s := &countingSweeper{}
	w := NewTradeSweeper(s, 0, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.Zero(t, s.calls.Load())
}
