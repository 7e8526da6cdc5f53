package tokens

import (
	"context"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// SemiFungibleAdapter wraps an ERC1155/HRC1155 contract.
type SemiFungibleAdapter struct {
	baseAdapter
}

var _ Adapter = (*SemiFungibleAdapter)(nil)

func (a *SemiFungibleAdapter) BalanceOf(ctx context.Context, owner string, id *big.Int) (*big.Int, error) {
	if err := types.CheckAddress("owner", owner); err != nil {
		return nil, err
	}

	if err := types.CheckTokenID(id); err != nil {
		return nil, err
	}

	return Call[*big.Int](ctx, a.contract, "balanceOf", common.HexToAddress(owner), id)
}

func (a *SemiFungibleAdapter) BalanceOfBatch(ctx context.Context, owners []string, ids []*big.Int) ([]*big.Int, error) {
	if len(owners) == 0 || len(ids) == 0 {
		return nil, types.NewValidationError("owners and ids must not be empty")
	}

	if len(owners) != len(ids) {
		return nil, types.NewValidationError("owners length %d does not match ids length %d", len(owners), len(ids))
	}

	for i := range owners {
		if err := types.CheckAddress("owner", owners[i]); err != nil {
			return nil, err
		}

		if err := types.CheckTokenID(ids[i]); err != nil {
			return nil, err
		}
	}

	return Call[[]*big.Int](ctx, a.contract, "balanceOfBatch", toAddresses(owners), ids)
}

func (a *SemiFungibleAdapter) OwnerOf(context.Context, *big.Int) (string, error) {
	return "", a.unsupported("ownerOf")
}

func (a *SemiFungibleAdapter) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	return a.isApprovedForAll(ctx, owner, operator)
}

func (a *SemiFungibleAdapter) TotalSupply(ctx context.Context, id *big.Int) (*big.Int, error) {
	if err := types.CheckTokenID(id); err != nil {
		return nil, err
	}

	return Call[*big.Int](ctx, a.contract, "totalSupply", id)
}

// Metadata reads name and symbol plus the uri of representativeID.
func (a *SemiFungibleAdapter) Metadata(ctx context.Context, representativeID *big.Int) (*types.TokenMetadata, error) {
	if err := types.CheckTokenID(representativeID); err != nil {
		return nil, err
	}

	name, symbol, err := a.name(ctx)
	if err != nil {
		return nil, err
	}

	uri, err := Call[string](ctx, a.contract, "uri", representativeID)
	if err != nil {
		return nil, err
	}

	return &types.TokenMetadata{Name: name, Symbol: symbol, URI: uri}, nil
}

func (a *SemiFungibleAdapter) Approve(context.Context, string, *big.Int, *types.TransactionOptions) (EVMRPC.Tx, error) {
	return nil, a.unsupported("approve")
}

func (a *SemiFungibleAdapter) SetApprovalForAll(
	ctx context.Context, operator string, approved bool, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return a.setApprovalForAll(ctx, operator, approved, opts)
}

func (a *SemiFungibleAdapter) TransferFrom(
	context.Context, string, string, types.TransferItem, *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return nil, a.unsupported("transferFrom")
}

func (a *SemiFungibleAdapter) SafeTransferFrom(
	ctx context.Context, from, to string, item types.TransferItem, data []byte, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := checkTransferParties(from, to); err != nil {
		return nil, err
	}

	if err := types.CheckTokenID(item.ID); err != nil {
		return nil, err
	}

	if item.Amount == nil || item.Amount.Sign() <= 0 {
		return nil, types.NewValidationError("transfer amount must be positive")
	}

	return a.contract.Transact(ctx, opts, "safeTransferFrom",
		common.HexToAddress(from), common.HexToAddress(to), item.ID, item.Amount, nonNil(data))
}

func (a *SemiFungibleAdapter) SafeBatchTransferFrom(
	ctx context.Context, from, to string, ids, amounts []*big.Int, data []byte, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := checkTransferParties(from, to); err != nil {
		return nil, err
	}

	items, err := types.NewBatchItems(ids, amounts)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if err := types.CheckTokenID(it.ID); err != nil {
			return nil, err
		}

		if it.Amount == nil || it.Amount.Sign() <= 0 {
			return nil, types.NewValidationError("transfer amount must be positive")
		}
	}

	return a.contract.Transact(ctx, opts, "safeBatchTransferFrom",
		common.HexToAddress(from), common.HexToAddress(to), ids, amounts, nonNil(data))
}

func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}

	return data
}
