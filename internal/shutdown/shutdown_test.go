package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoReturnsFalseAfterClose(t *testing.T) {
	c := New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.Close(ctx))
	require.False(t, c.Go(func() {}))
}

func TestCloseWaitsForTrackedGoroutines(t *testing.T) {
	c := New()
	var ran atomic.Bool
	started := make(chan struct{})

	c.Go(func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		ran.Store(true)
	})

	<-started
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
	require.True(t, ran.Load())
}

func TestHooksRunInLIFOOrder(t *testing.T) {
	c := New()
	var order []string
	c.RegisterHook("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	c.RegisterHook("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
	require.Equal(t, []string{"second", "first"}, order)
}

func TestCloseTimesOutOnSlowGoroutine(t *testing.T) {
	c := New()
	c.Go(func() {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Close(ctx)
	require.Error(t, err)
}
