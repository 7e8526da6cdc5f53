package manager

import (
	"context"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

type FungibleManager struct {
	baseFacade
}

var _ Facade = (*FungibleManager)(nil)

func (m *FungibleManager) RegisterToken(
	ctx context.Context, origin string, meta *types.TokenMetadata, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if meta == nil {
		return nil, types.NewValidationError("token metadata is missing")
	}

	return m.register(ctx, origin, meta, meta.Decimals, opts)
}

func (m *FungibleManager) Lock(
	ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("lockToken", config.RoleSource, token, recipient, items); err != nil {
		return nil, err
	}

	return m.contract.Transact(ctx, opts, "lockToken",
		common.HexToAddress(token), items[0].Amount, common.HexToAddress(recipient))
}

func (m *FungibleManager) Burn(
	ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("burnToken", config.RoleTarget, token, recipient, items); err != nil {
		return nil, err
	}

	return m.contract.Transact(ctx, opts, "burnToken",
		common.HexToAddress(token), items[0].Amount, common.HexToAddress(recipient))
}

func (m *FungibleManager) Mint(
	ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("mintToken", config.RoleTarget, token, recipient, items); err != nil {
		return nil, err
	}

	receipt, err := ParseReceiptID(receiptID)
	if err != nil {
		return nil, err
	}

	return m.contract.Transact(ctx, opts, "mintToken",
		common.HexToAddress(token), items[0].Amount, common.HexToAddress(recipient), receipt)
}

func (m *FungibleManager) Unlock(
	ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("unlockToken", config.RoleSource, token, recipient, items); err != nil {
		return nil, err
	}

	receipt, err := ParseReceiptID(receiptID)
	if err != nil {
		return nil, err
	}

	return m.contract.Transact(ctx, opts, "unlockToken",
		common.HexToAddress(token), items[0].Amount, common.HexToAddress(recipient), receipt)
}
