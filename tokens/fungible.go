package tokens

import (
	"context"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// FungibleAdapter wraps an ERC20/HRC20 contract.
type FungibleAdapter struct {
	baseAdapter
}

var _ Adapter = (*FungibleAdapter)(nil)

func (a *FungibleAdapter) BalanceOf(ctx context.Context, owner string, id *big.Int) (*big.Int, error) {
	if err := types.CheckAddress("owner", owner); err != nil {
		return nil, err
	}

	if id != nil {
		return nil, types.NewValidationError("fungible balance takes no token id")
	}

	return Call[*big.Int](ctx, a.contract, "balanceOf", common.HexToAddress(owner))
}

func (a *FungibleAdapter) BalanceOfBatch(context.Context, []string, []*big.Int) ([]*big.Int, error) {
	return nil, a.unsupported("balanceOfBatch")
}

func (a *FungibleAdapter) OwnerOf(context.Context, *big.Int) (string, error) {
	return "", a.unsupported("ownerOf")
}

func (a *FungibleAdapter) IsApprovedForAll(context.Context, string, string) (bool, error) {
	return false, a.unsupported("isApprovedForAll")
}

func (a *FungibleAdapter) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	if err := types.CheckAddress("owner", owner); err != nil {
		return nil, err
	}

	if err := types.CheckAddress("spender", spender); err != nil {
		return nil, err
	}

	return Call[*big.Int](ctx, a.contract, "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
}

func (a *FungibleAdapter) TotalSupply(ctx context.Context, id *big.Int) (*big.Int, error) {
	if id != nil {
		return nil, types.NewValidationError("fungible total supply takes no token id")
	}

	return Call[*big.Int](ctx, a.contract, "totalSupply")
}

func (a *FungibleAdapter) Metadata(ctx context.Context, _ *big.Int) (*types.TokenMetadata, error) {
	name, symbol, err := a.name(ctx)
	if err != nil {
		return nil, err
	}

	decimals, err := Call[uint8](ctx, a.contract, "decimals")
	if err != nil {
		return nil, err
	}

	return &types.TokenMetadata{Name: name, Symbol: symbol, Decimals: decimals}, nil
}

// Approve grants spender an allowance of amount. Zero revokes.
func (a *FungibleAdapter) Approve(
	ctx context.Context, spender string, amount *big.Int, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := types.CheckAddress("spender", spender); err != nil {
		return nil, err
	}

	if amount == nil || amount.Sign() < 0 {
		return nil, types.NewValidationError("approval amount must be non-negative")
	}

	return a.contract.Transact(ctx, opts, "approve", common.HexToAddress(spender), amount)
}

func (a *FungibleAdapter) SetApprovalForAll(context.Context, string, bool, *types.TransactionOptions) (EVMRPC.Tx, error) {
	return nil, a.unsupported("setApprovalForAll")
}

func (a *FungibleAdapter) TransferFrom(
	ctx context.Context, from, to string, item types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := checkTransferParties(from, to); err != nil {
		return nil, err
	}

	if item.ID != nil {
		return nil, types.NewValidationError("fungible transfer takes no token id")
	}

	if item.Amount == nil || item.Amount.Sign() <= 0 {
		return nil, types.NewValidationError("transfer amount must be positive")
	}

	return a.contract.Transact(ctx, opts, "transferFrom", common.HexToAddress(from), common.HexToAddress(to), item.Amount)
}

func (a *FungibleAdapter) SafeTransferFrom(
	context.Context, string, string, types.TransferItem, []byte, *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return nil, a.unsupported("safeTransferFrom")
}

func (a *FungibleAdapter) SafeBatchTransferFrom(
	context.Context, string, string, []*big.Int, []*big.Int, []byte, *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return nil, a.unsupported("safeBatchTransferFrom")
}
