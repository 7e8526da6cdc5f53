package confirm

import (
	"context"
	"errors"
	"sync"
	"time"

	"gotokenbridge/telemetry"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"
)

// HeadSource is the part of a chain client the waiter needs.
type HeadSource interface {
	Name() string
	BlockNumber(ctx context.Context) (uint64, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *ethtypes.Header) (ethereum.Subscription, error)
}

// Waiter suspends callers until a chain passes a given height. Callers waiting
// on the same chain share one head subscription, which is released when the
// last of them returns.
type Waiter struct {
	maxWait time.Duration
	logger  hclog.Logger

	lock sync.Mutex
	hubs map[HeadSource]*hub
}

// NewWaiter creates a waiter that gives up after maxWait. Zero disables the
// limit, leaving only cancellation through the caller's context.
func NewWaiter(maxWait time.Duration, logger hclog.Logger) *Waiter {
	return &Waiter{
		maxWait: maxWait,
		logger:  logger.Named("confirm"),
		hubs:    map[HeadSource]*hub{},
	}
}

// Wait returns once a header with height greater than expectedHeight has been
// observed on chain. It fails with types.ErrConfirmationTimeout when the
// maximum wait elapses and with the context error when ctx is done.
func (w *Waiter) Wait(ctx context.Context, chain HeadSource, expectedHeight uint64) error {
	wt := &waiter{threshold: expectedHeight, done: make(chan struct{})}

	h := w.hub(chain)
	h.add(wt)

	defer h.remove(wt)

	// heads may have passed before the subscription started
	if current, err := chain.BlockNumber(ctx); err != nil {
		w.logger.Warn("error getting latest block number", "chain", chain.Name(), "err", err)
	} else {
		h.notify(current)
	}

	var timeout <-chan time.Time

	if w.maxWait > 0 {
		timer := time.NewTimer(w.maxWait)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-wt.done:
		return nil
	case <-timeout:
		return types.NewError(types.ErrConfirmationTimeout,
			"chain %s did not pass height %d within %s", chain.Name(), expectedHeight, w.maxWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Waiter) hub(chain HeadSource) *hub {
	w.lock.Lock()
	defer w.lock.Unlock()

	h, ok := w.hubs[chain]
	if !ok {
		h = &hub{
			source:  chain,
			logger:  w.logger.With("chain", chain.Name()),
			waiters: map[*waiter]struct{}{},
		}
		w.hubs[chain] = h
	}

	return h
}

// Waiting reports how many callers are waiting on chain.
func (w *Waiter) Waiting(chain HeadSource) int {
	w.lock.Lock()
	h, ok := w.hubs[chain]
	w.lock.Unlock()

	if !ok {
		return 0
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.waiters)
}

type waiter struct {
	threshold uint64
	done      chan struct{}
}

type hub struct {
	source HeadSource
	logger hclog.Logger

	lock    sync.Mutex
	waiters map[*waiter]struct{}
	cancel  context.CancelFunc
}

func (h *hub) add(wt *waiter) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.waiters[wt] = struct{}{}
	telemetry.UpdateConfirmationWaiters(h.source.Name(), len(h.waiters))

	if h.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel

		go h.run(ctx)
	}
}

func (h *hub) remove(wt *waiter) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.waiters, wt)
	telemetry.UpdateConfirmationWaiters(h.source.Name(), len(h.waiters))

	if len(h.waiters) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *hub) notify(height uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for wt := range h.waiters {
		if height > wt.threshold {
			close(wt.done)
			delete(h.waiters, wt)
		}
	}
}

func (h *hub) subscribe(ctx context.Context, ch chan *ethtypes.Header) (ethereum.Subscription, error) {
	var sub ethereum.Subscription

	backoff := retry.WithCappedDuration(10*time.Second, retry.NewExponential(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error

		sub, err = h.source.SubscribeNewHead(ctx, ch)
		if err != nil {
			h.logger.Warn("error subscribing to new heads", "err", err)

			return retry.RetryableError(err)
		}

		return nil
	})

	return sub, err
}

func (h *hub) run(ctx context.Context) {
	ch := make(chan *ethtypes.Header, 16)

	for {
		sub, err := h.subscribe(ctx, ch)
		if err != nil {
			return
		}

		err = h.consume(ctx, sub, ch)
		if err == nil {
			return
		}

		h.logger.Warn("head subscription dropped, resubscribing", "err", err)
	}
}

// consume delivers heads until ctx is done (nil) or the subscription fails.
func (h *hub) consume(ctx context.Context, sub ethereum.Subscription, ch <-chan *ethtypes.Header) error {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}

			return err
		case header := <-ch:
			if header == nil || header.Number == nil {
				continue
			}

			height := header.Number.Uint64()
			telemetry.UpdateChainHeight(h.source.Name(), height)
			h.notify(height)
		}
	}
}
