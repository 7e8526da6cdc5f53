package manager

import (
	"context"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

type SemiFungibleManager struct {
	baseFacade
}

var _ Facade = (*SemiFungibleManager)(nil)

var emptyData = []byte{}

func (m *SemiFungibleManager) RegisterToken(
	ctx context.Context, origin string, meta *types.TokenMetadata, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if meta == nil {
		return nil, types.NewValidationError("token metadata is missing")
	}

	return m.register(ctx, origin, meta, meta.URI, opts)
}

func (m *SemiFungibleManager) Lock(
	ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("lockHRC1155Token", config.RoleSource, token, recipient, items); err != nil {
		return nil, err
	}

	if len(items) == 1 {
		return m.contract.Transact(ctx, opts, "lockHRC1155Token",
			common.HexToAddress(token), items[0].ID, common.HexToAddress(recipient), items[0].Amount, emptyData)
	}

	ids, amounts := types.SplitItems(items)

	return m.contract.Transact(ctx, opts, "lockHRC1155Tokens",
		common.HexToAddress(token), ids, common.HexToAddress(recipient), amounts, emptyData)
}

func (m *SemiFungibleManager) Burn(
	ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("burnToken", config.RoleTarget, token, recipient, items); err != nil {
		return nil, err
	}

	if len(items) == 1 {
		return m.contract.Transact(ctx, opts, "burnToken",
			common.HexToAddress(token), items[0].ID, common.HexToAddress(recipient), items[0].Amount)
	}

	ids, amounts := types.SplitItems(items)

	return m.contract.Transact(ctx, opts, "burnTokens",
		common.HexToAddress(token), ids, common.HexToAddress(recipient), amounts)
}

func (m *SemiFungibleManager) Mint(
	ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return m.release(ctx, "mintToken", "mintTokens", config.RoleTarget, token, recipient, receiptID, items, opts)
}

func (m *SemiFungibleManager) Unlock(
	ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return m.release(ctx, "unlockHRC1155Token", "unlockHRC1155Tokens", config.RoleSource,
		token, recipient, receiptID, items, opts)
}

func (m *SemiFungibleManager) release(
	ctx context.Context, single, batch string, role config.ChainRole, token, recipient, receiptID string,
	items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check(single, role, token, recipient, items); err != nil {
		return nil, err
	}

	receipt, err := ParseReceiptID(receiptID)
	if err != nil {
		return nil, err
	}

	if len(items) == 1 {
		return m.contract.Transact(ctx, opts, single,
			common.HexToAddress(token), items[0].ID, common.HexToAddress(recipient), receipt, items[0].Amount, emptyData)
	}

	ids, amounts := types.SplitItems(items)

	return m.contract.Transact(ctx, opts, batch,
		common.HexToAddress(token), ids, common.HexToAddress(recipient), receipt, amounts, emptyData)
}
