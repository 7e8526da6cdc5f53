package manager

import (
	"context"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// NonFungibleManager uses the single-id contract methods for one item and
// the batch variants otherwise. Locking always goes through the batch method.
type NonFungibleManager struct {
	baseFacade
}

var _ Facade = (*NonFungibleManager)(nil)

// RegisterToken passes meta.URI as the wrapped token's base URI.
func (m *NonFungibleManager) RegisterToken(
	ctx context.Context, origin string, meta *types.TokenMetadata, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if meta == nil {
		return nil, types.NewValidationError("token metadata is missing")
	}

	return m.register(ctx, origin, meta, meta.URI, opts)
}

func (m *NonFungibleManager) Lock(
	ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("lockNFT721Token", config.RoleSource, token, recipient, items); err != nil {
		return nil, err
	}

	return m.contract.Transact(ctx, opts, "lockNFT721Token",
		common.HexToAddress(token), ids(items), common.HexToAddress(recipient))
}

func (m *NonFungibleManager) Burn(
	ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check("burnToken", config.RoleTarget, token, recipient, items); err != nil {
		return nil, err
	}

	if len(items) == 1 {
		return m.contract.Transact(ctx, opts, "burnToken",
			common.HexToAddress(token), items[0].ID, common.HexToAddress(recipient))
	}

	return m.contract.Transact(ctx, opts, "burnTokens",
		common.HexToAddress(token), ids(items), common.HexToAddress(recipient))
}

func (m *NonFungibleManager) Mint(
	ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return m.release(ctx, "mintToken", config.RoleTarget, token, recipient, receiptID, items, opts)
}

func (m *NonFungibleManager) Unlock(
	ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return m.release(ctx, "unlockToken", config.RoleSource, token, recipient, receiptID, items, opts)
}

// release covers mint and unlock which share their argument layout.
func (m *NonFungibleManager) release(
	ctx context.Context, method string, role config.ChainRole, token, recipient, receiptID string,
	items []types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := m.check(method, role, token, recipient, items); err != nil {
		return nil, err
	}

	receipt, err := ParseReceiptID(receiptID)
	if err != nil {
		return nil, err
	}

	if len(items) == 1 {
		return m.contract.Transact(ctx, opts, method,
			common.HexToAddress(token), items[0].ID, common.HexToAddress(recipient), receipt)
	}

	return m.contract.Transact(ctx, opts, method+"s",
		common.HexToAddress(token), ids(items), common.HexToAddress(recipient), receipt)
}
