package tokens

import (
	"context"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// NonFungibleAdapter wraps an ERC721/HRC721 contract.
type NonFungibleAdapter struct {
	baseAdapter
}

var _ Adapter = (*NonFungibleAdapter)(nil)

// BalanceOf returns the number of tokens held by owner; id is not used.
func (a *NonFungibleAdapter) BalanceOf(ctx context.Context, owner string, _ *big.Int) (*big.Int, error) {
	if err := types.CheckAddress("owner", owner); err != nil {
		return nil, err
	}

	return Call[*big.Int](ctx, a.contract, "balanceOf", common.HexToAddress(owner))
}

func (a *NonFungibleAdapter) BalanceOfBatch(context.Context, []string, []*big.Int) ([]*big.Int, error) {
	return nil, a.unsupported("balanceOfBatch")
}

func (a *NonFungibleAdapter) OwnerOf(ctx context.Context, id *big.Int) (string, error) {
	if err := types.CheckTokenID(id); err != nil {
		return "", err
	}

	owner, err := Call[common.Address](ctx, a.contract, "ownerOf", id)
	if err != nil {
		return "", err
	}

	return owner.Hex(), nil
}

func (a *NonFungibleAdapter) GetApproved(ctx context.Context, id *big.Int) (string, error) {
	if err := types.CheckTokenID(id); err != nil {
		return "", err
	}

	approved, err := Call[common.Address](ctx, a.contract, "getApproved", id)
	if err != nil {
		return "", err
	}

	return approved.Hex(), nil
}

func (a *NonFungibleAdapter) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	return a.isApprovedForAll(ctx, owner, operator)
}

func (a *NonFungibleAdapter) TotalSupply(ctx context.Context, _ *big.Int) (*big.Int, error) {
	return Call[*big.Int](ctx, a.contract, "totalSupply")
}

// Metadata reads name and symbol plus the tokenURI of representativeID.
func (a *NonFungibleAdapter) Metadata(ctx context.Context, representativeID *big.Int) (*types.TokenMetadata, error) {
	if err := types.CheckTokenID(representativeID); err != nil {
		return nil, err
	}

	name, symbol, err := a.name(ctx)
	if err != nil {
		return nil, err
	}

	uri, err := Call[string](ctx, a.contract, "tokenURI", representativeID)
	if err != nil {
		return nil, err
	}

	return &types.TokenMetadata{Name: name, Symbol: symbol, URI: uri}, nil
}

func (a *NonFungibleAdapter) Approve(
	ctx context.Context, spender string, id *big.Int, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := types.CheckAddress("spender", spender); err != nil {
		return nil, err
	}

	if err := types.CheckTokenID(id); err != nil {
		return nil, err
	}

	return a.contract.Transact(ctx, opts, "approve", common.HexToAddress(spender), id)
}

func (a *NonFungibleAdapter) SetApprovalForAll(
	ctx context.Context, operator string, approved bool, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return a.setApprovalForAll(ctx, operator, approved, opts)
}

func (a *NonFungibleAdapter) checkTransfer(from, to string, item types.TransferItem) error {
	if err := checkTransferParties(from, to); err != nil {
		return err
	}

	if err := types.CheckTokenID(item.ID); err != nil {
		return err
	}

	if item.Amount != nil && item.Amount.Cmp(big.NewInt(1)) != 0 {
		return types.NewValidationError("non-fungible amount must be omitted or 1, got %s", item.Amount)
	}

	return nil
}

func (a *NonFungibleAdapter) TransferFrom(
	ctx context.Context, from, to string, item types.TransferItem, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := a.checkTransfer(from, to, item); err != nil {
		return nil, err
	}

	return a.contract.Transact(ctx, opts, "transferFrom", common.HexToAddress(from), common.HexToAddress(to), item.ID)
}

// SafeTransferFrom uses the three argument overload; data is ignored.
func (a *NonFungibleAdapter) SafeTransferFrom(
	ctx context.Context, from, to string, item types.TransferItem, _ []byte, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := a.checkTransfer(from, to, item); err != nil {
		return nil, err
	}

	return a.contract.Transact(ctx, opts, "safeTransferFrom", common.HexToAddress(from), common.HexToAddress(to), item.ID)
}

func (a *NonFungibleAdapter) SafeBatchTransferFrom(
	context.Context, string, string, []*big.Int, []*big.Int, []byte, *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	return nil, a.unsupported("safeBatchTransferFrom")
}
