package EVMRPC

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sethvargo/go-retry"
)

type TxStatus int

const (
	TxPending TxStatus = iota
	TxConfirmed
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	}

	return "pending"
}

type TxReceipt struct {
	Hash        common.Hash
	Status      TxStatus
	BlockNumber uint64
}

func newTxReceipt(r *ethtypes.Receipt) *TxReceipt {
	status := TxFailed
	if r.Status == ethtypes.ReceiptStatusSuccessful {
		status = TxConfirmed
	}

	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}

	return &TxReceipt{Hash: r.TxHash, Status: status, BlockNumber: block}
}

// Tx is a submitted write. Wait blocks until the transaction is mined and
// reports whether it succeeded; callers never assume synchronous finality.
type Tx interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*TxReceipt, error)
}

type receiptTx struct {
	hash     common.Hash
	client   *evmClient
	interval time.Duration
	timeout  time.Duration
}

func (t *receiptTx) Hash() common.Hash {
	return t.hash
}

func (t *receiptTx) Wait(ctx context.Context) (*TxReceipt, error) {
	var receipt *TxReceipt

	backoff := retry.WithMaxDuration(t.timeout, retry.NewConstant(t.interval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := t.client.TransactionReceipt(ctx, t.hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) || IsTransportError(err) {
				return retry.RetryableError(err)
			}

			return err
		}

		receipt = r

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", t.hash, err)
	}

	return receipt, nil
}
