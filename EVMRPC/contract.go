package EVMRPC

import (
	"context"
	"errors"

	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Contract is the narrow read/write surface the token adapters and manager
// facades are written against.
type Contract interface {
	Address() common.Address
	Call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error)
	Transact(ctx context.Context, opts *types.TransactionOptions, method string, params ...interface{}) (Tx, error)
}

var ErrReadOnly = errors.New("contract is bound without a signer")

type boundContract struct {
	address common.Address
	abi     abi.ABI
	client  *evmClient
	signer  *Signer
}

var _ Contract = (*boundContract)(nil)

func (b *boundContract) Address() common.Address {
	return b.address
}

func (b *boundContract) bound(client *ethclient.Client) *bind.BoundContract {
	return bind.NewBoundContract(b.address, b.abi, client, client, client)
}

func (b *boundContract) Call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	return WithClient(ctx, b.client, func(client *ethclient.Client) ([]interface{}, error) {
		var out []interface{}

		opts := &bind.CallOpts{Context: ctx}
		if b.signer != nil {
			opts.From = b.signer.Address()
		}

		if err := b.bound(client).Call(opts, &out, method, params...); err != nil {
			return nil, err
		}

		return out, nil
	})
}

func (b *boundContract) Transact(
	ctx context.Context, opts *types.TransactionOptions, method string, params ...interface{},
) (Tx, error) {
	if b.signer == nil {
		return nil, ErrReadOnly
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	tx, err := WithClient(ctx, b.client, func(client *ethclient.Client) (*ethtypes.Transaction, error) {
		return b.signer.SendTx(ctx, client, opts, func(txOpts *bind.TransactOpts) (*ethtypes.Transaction, error) {
			return b.bound(client).Transact(txOpts, method, params...)
		})
	})
	if err != nil {
		return nil, err
	}

	b.client.logger.Info("tx has been sent", "method", method, "hash", tx.Hash(),
		"from", b.signer.Address(), "nonce", tx.Nonce(), "gas limit", tx.Gas())

	return &receiptTx{
		hash:     tx.Hash(),
		client:   b.client,
		interval: b.client.opts.ReceiptPollInterval,
		timeout:  b.client.opts.ReceiptTimeout,
	}, nil
}
