package confirm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gotokenbridge/config"
	"gotokenbridge/ledgertest"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	*ledgertest.Ledger
	subs     atomic.Int32
	failures atomic.Int32
}

func (c *countingSource) SubscribeNewHead(ctx context.Context, ch chan<- *ethtypes.Header) (ethereum.Subscription, error) {
	c.subs.Add(1)

	if c.failures.Load() > 0 {
		c.failures.Add(-1)

		// a subscription that dies right away, as a dropped websocket would
		return event.NewSubscription(func(quit <-chan struct{}) error {
			return errors.New("websocket: close 1006")
		}), nil
	}

	return c.Ledger.SubscribeNewHead(ctx, ch)
}

func waitAsync(w *Waiter, ctx context.Context, src HeadSource, height uint64) <-chan error {
	res := make(chan error, 1)

	go func() {
		res <- w.Wait(ctx, src, height)
	}()

	return res
}

func TestWaitResolvesAfterThreshold(t *testing.T) {
	l := ledgertest.New("target", config.RoleTarget)
	l.Mine(5)

	w := NewWaiter(time.Minute, hclog.NewNullLogger())
	res := waitAsync(w, context.Background(), l, 7)

	l.Mine(2)

	select {
	case err := <-res:
		t.Fatalf("returned at height 7: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	l.Mine(1)

	select {
	case err := <-res:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not resolve")
	}

	require.Eventually(t, func() bool { return w.Waiting(l) == 0 }, time.Second, 5*time.Millisecond)
}

func TestWaitAlreadyPassed(t *testing.T) {
	l := ledgertest.New("target", config.RoleTarget)
	l.Mine(10)

	w := NewWaiter(time.Minute, hclog.NewNullLogger())

	require.NoError(t, w.Wait(context.Background(), l, 3))
}

func TestWaitTimeout(t *testing.T) {
	l := ledgertest.New("target", config.RoleTarget)
	w := NewWaiter(30*time.Millisecond, hclog.NewNullLogger())

	err := w.Wait(context.Background(), l, 100)
	require.ErrorIs(t, err, types.ErrConfirmationTimeout)
	require.Zero(t, w.Waiting(l))
}

func TestWaitCancelled(t *testing.T) {
	l := ledgertest.New("target", config.RoleTarget)
	w := NewWaiter(0, hclog.NewNullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	res := waitAsync(w, ctx, l, 100)

	require.Eventually(t, func() bool { return w.Waiting(l) == 1 }, time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-res:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancellation not honoured")
	}

	require.Zero(t, w.Waiting(l))

	// heads keep flowing without anybody listening
	l.Mine(3)
}

func TestWaitSharesSubscription(t *testing.T) {
	src := &countingSource{Ledger: ledgertest.New("target", config.RoleTarget)}
	w := NewWaiter(time.Minute, hclog.NewNullLogger())

	const n = 10

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			errs <- w.Wait(context.Background(), src, uint64(5+i%3))
		}(i)
	}

	require.Eventually(t, func() bool { return w.Waiting(src) == n }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go src.MineEvery(ctx, time.Millisecond)

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), src.subs.Load())
}

func TestWaitResubscribes(t *testing.T) {
	src := &countingSource{Ledger: ledgertest.New("target", config.RoleTarget)}
	src.failures.Store(2)

	w := NewWaiter(time.Minute, hclog.NewNullLogger())
	res := waitAsync(w, context.Background(), src, 3)

	require.Eventually(t, func() bool { return src.subs.Load() == 3 }, 5*time.Second, time.Millisecond)

	src.Mine(4)

	select {
	case err := <-res:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not resolve after resubscribing")
	}
}
