package EVMRPC

import (
	"context"
	"math/big"
	"time"

	"gotokenbridge/config"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// SubscribeNewHead streams new block headers. A websocket endpoint is used when
// configured; otherwise (or if the node refuses subscriptions) the latest block
// number is polled and delivered as a header carrying only its number.
func (c *evmClient) SubscribeNewHead(ctx context.Context, ch chan<- *ethtypes.Header) (ethereum.Subscription, error) {
	if c.cfg.WSURL != "" {
		client, err := c.dial(ctx, c.cfg.WSURL)
		if err == nil {
			sub, err := client.SubscribeNewHead(ctx, ch)
			if err == nil {
				return sub, nil
			}

			c.logger.Warn("head subscription refused, falling back to polling", "err", err)
		} else {
			c.logger.Warn("error connecting to ws endpoint, falling back to polling", "url", c.cfg.WSURL, "err", err)
		}
	}

	return c.pollHeads(ch), nil
}

func (c *evmClient) pollHeads(ch chan<- *ethtypes.Header) ethereum.Subscription {
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last uint64

		for {
			ctx, cancel := context.WithTimeout(context.Background(), 2*interval)
			latest, err := c.BlockNumber(ctx)
			cancel()

			if err != nil {
				c.logger.Warn("error getting latest block number", "err", err)
			} else if latest > last {
				last = latest

				select {
				case ch <- &ethtypes.Header{Number: new(big.Int).SetUint64(latest)}:
				case <-quit:
					return nil
				}
			}

			select {
			case <-ticker.C:
			case <-quit:
				return nil
			}
		}
	})
}
