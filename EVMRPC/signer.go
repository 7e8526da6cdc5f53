package EVMRPC

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Signer owns one account key. All writes from one account go through SendTx,
// which serialises nonce assignment and submission.
type Signer struct {
	addr       common.Address
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int

	dynamicFees      bool
	gasFeeMultiplier uint64
	defaultGasLimit  uint64

	mutex     sync.Mutex
	lastNonce *uint64
}

func NewSigner(pk string, chainID *big.Int, cfg *config.ChainConfig) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(pk, "0x"))
	if err != nil {
		return nil, err
	}

	return &Signer{
		addr:             crypto.PubkeyToAddress(privateKey.PublicKey),
		privateKey:       privateKey,
		chainID:          chainID,
		dynamicFees:      cfg.DynamicFees,
		gasFeeMultiplier: cfg.GasFeeMultiplier,
		defaultGasLimit:  cfg.DefaultGasLimit,
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.addr
}

// SendTx populates nonce and fees, then submits through send while holding the
// signer lock so that concurrent operations sharing the account cannot collide.
// With opts.BeforeSend set the transaction is signed, handed to the hook and
// only then broadcast.
func (s *Signer) SendTx(
	ctx context.Context, client *ethclient.Client, opts *types.TransactionOptions,
	send func(*bind.TransactOpts) (*ethtypes.Transaction, error),
) (*ethtypes.Transaction, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	txOpts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, err
	}

	if err := s.populateTxOpts(ctx, client, opts, txOpts); err != nil {
		return nil, err
	}

	if opts != nil && opts.BeforeSend != nil {
		txOpts.NoSend = true
	}

	tx, err := send(txOpts)
	if err == nil && txOpts.NoSend {
		if err = opts.BeforeSend(tx.Hash().Hex()); err == nil {
			err = client.SendTransaction(ctx, tx)
		}
	}

	if err != nil {
		// node may have seen a different nonce, start over from pending
		s.lastNonce = nil

		return nil, err
	}

	nonce := tx.Nonce()
	s.lastNonce = &nonce

	return tx, nil
}

func (s *Signer) nextNonce(ctx context.Context, client *ethclient.Client) (uint64, error) {
	next, err := client.PendingNonceAt(ctx, s.addr)
	if err != nil {
		return 0, fmt.Errorf("error while PendingNonceAt: %w", err)
	}
	// pending nonce may lag behind a tx we just sent
	if s.lastNonce != nil && *s.lastNonce >= next {
		next = *s.lastNonce + 1
	}

	return next, nil
}

func (s *Signer) populateTxOpts(
	ctx context.Context, client *ethclient.Client, opts *types.TransactionOptions, txOpts *bind.TransactOpts,
) error {
	txOpts.Context = ctx
	txOpts.Value = big.NewInt(0)

	nonce, err := s.nextNonce(ctx, client)
	if err != nil {
		return err
	}

	txOpts.Nonce = new(big.Int).SetUint64(nonce)

	if opts == nil {
		opts = &types.TransactionOptions{}
	}

	txOpts.GasLimit = opts.GasLimit
	if txOpts.GasLimit == 0 {
		txOpts.GasLimit = s.defaultGasLimit
	}

	switch {
	case opts.GasPrice != nil:
		txOpts.GasPrice = opts.GasPrice
	case opts.MaxFeePerGas != nil || opts.MaxPriorityFeePerGas != nil:
		txOpts.GasFeeCap = opts.MaxFeePerGas
		txOpts.GasTipCap = opts.MaxPriorityFeePerGas
	case !s.dynamicFees:
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}

		txOpts.GasPrice = MulPercentage(gasPrice, s.gasFeeMultiplier)
	}

	if s.dynamicFees && txOpts.GasPrice == nil && (txOpts.GasFeeCap == nil || txOpts.GasTipCap == nil) {
		gasTipCap := txOpts.GasTipCap
		if gasTipCap == nil {
			gasTipCap, err = client.SuggestGasTipCap(ctx)
			if err != nil {
				return err
			}

			gasTipCap = MulPercentage(gasTipCap, s.gasFeeMultiplier)
			txOpts.GasTipCap = gasTipCap
		}

		if txOpts.GasFeeCap == nil {
			hs, err := client.FeeHistory(ctx, 1, nil, nil)
			if err != nil {
				return err
			}

			gasFeeCap := new(big.Int).Set(hs.BaseFee[len(hs.BaseFee)-1])
			gasFeeCap.Add(gasFeeCap, gasTipCap)

			txOpts.GasFeeCap = MulPercentage(gasFeeCap, s.gasFeeMultiplier)
		}
	}

	return nil
}

func MulPercentage(value *big.Int, percentage uint64) *big.Int {
	res := new(big.Int).Mul(value, new(big.Int).SetUint64(percentage))

	return res.Div(res, big.NewInt(100))
}
