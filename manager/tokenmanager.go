package manager

import (
	"context"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// TokenManager authorizes the managers that may register wrapped tokens.
type TokenManager struct {
	contract EVMRPC.Contract
}

// NewTokenManager expects contract bound with abis.TokenManagerMetaData.
func NewTokenManager(contract EVMRPC.Contract) *TokenManager {
	return &TokenManager{contract: contract}
}

func (t *TokenManager) Address() common.Address { return t.contract.Address() }

func (t *TokenManager) Rely(ctx context.Context, address string, opts *types.TransactionOptions) (EVMRPC.Tx, error) {
	if err := types.CheckAddress("ward", address); err != nil {
		return nil, err
	}

	return t.contract.Transact(ctx, opts, "rely", common.HexToAddress(address))
}

func (t *TokenManager) Deny(ctx context.Context, address string, opts *types.TransactionOptions) (EVMRPC.Tx, error) {
	if err := types.CheckAddress("ward", address); err != nil {
		return nil, err
	}

	return t.contract.Transact(ctx, opts, "deny", common.HexToAddress(address))
}

func (t *TokenManager) IsWard(ctx context.Context, address string) (bool, error) {
	if err := types.CheckAddress("ward", address); err != nil {
		return false, err
	}

	out, err := t.contract.Call(ctx, "wards", common.HexToAddress(address))
	if err != nil {
		return false, err
	}

	v, _ := out[0].(*big.Int)

	return v != nil && v.Sign() > 0, nil
}
