package tokens

import (
	"context"
	"fmt"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/EVMRPC/abis"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Adapter is the uniform read/write surface over a token contract. Operations
// that make no sense for the adapter's transfer semantics fail with
// types.ErrUnsupportedOperation. Every argument is validated before the
// contract is touched.
type Adapter interface {
	Reference() types.TokenReference
	Address() common.Address

	BalanceOf(ctx context.Context, owner string, id *big.Int) (*big.Int, error)
	BalanceOfBatch(ctx context.Context, owners []string, ids []*big.Int) ([]*big.Int, error)
	OwnerOf(ctx context.Context, id *big.Int) (string, error)
	IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error)
	TotalSupply(ctx context.Context, id *big.Int) (*big.Int, error)
	Metadata(ctx context.Context, representativeID *big.Int) (*types.TokenMetadata, error)

	Approve(ctx context.Context, spender string, idOrAmount *big.Int, opts *types.TransactionOptions) (EVMRPC.Tx, error)
	SetApprovalForAll(ctx context.Context, operator string, approved bool, opts *types.TransactionOptions) (EVMRPC.Tx, error)
	TransferFrom(ctx context.Context, from, to string, item types.TransferItem, opts *types.TransactionOptions) (EVMRPC.Tx, error)
	SafeTransferFrom(
		ctx context.Context, from, to string, item types.TransferItem, data []byte, opts *types.TransactionOptions,
	) (EVMRPC.Tx, error)
	SafeBatchTransferFrom(
		ctx context.Context, from, to string, ids, amounts []*big.Int, data []byte, opts *types.TransactionOptions,
	) (EVMRPC.Tx, error)
}

// MetaData returns the ABI a contract of the given semantics must be bound with.
func MetaData(semantics types.TransferSemantics) (*bind.MetaData, error) {
	switch semantics {
	case types.Fungible:
		return abis.ERC20MetaData, nil
	case types.NonFungible:
		return abis.ERC721MetaData, nil
	case types.SemiFungible:
		return abis.ERC1155MetaData, nil
	}

	return nil, types.NewValidationError("unknown transfer semantics %q", semantics)
}

// New selects the adapter implementation for ref.Semantics. contract must be
// bound with the ABI returned by MetaData.
func New(ref types.TokenReference, contract EVMRPC.Contract) (Adapter, error) {
	base := baseAdapter{ref: ref, contract: contract}

	switch ref.Semantics {
	case types.Fungible:
		return &FungibleAdapter{base}, nil
	case types.NonFungible:
		return &NonFungibleAdapter{base}, nil
	case types.SemiFungible:
		return &SemiFungibleAdapter{base}, nil
	}

	return nil, types.NewValidationError("unknown transfer semantics %q", ref.Semantics)
}

type baseAdapter struct {
	ref      types.TokenReference
	contract EVMRPC.Contract
}

func (b *baseAdapter) Reference() types.TokenReference { return b.ref }

func (b *baseAdapter) Address() common.Address { return b.contract.Address() }

func (b *baseAdapter) unsupported(op string) error {
	return types.NewError(types.ErrUnsupportedOperation, "%s on %s token", op, b.ref.Semantics)
}

func (b *baseAdapter) name(ctx context.Context) (string, string, error) {
	name, err := Call[string](ctx, b.contract, "name")
	if err != nil {
		return "", "", err
	}

	symbol, err := Call[string](ctx, b.contract, "symbol")
	if err != nil {
		return "", "", err
	}

	return name, symbol, nil
}

func (b *baseAdapter) isApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	if err := types.CheckAddress("owner", owner); err != nil {
		return false, err
	}

	if err := types.CheckAddress("operator", operator); err != nil {
		return false, err
	}

	return Call[bool](ctx, b.contract, "isApprovedForAll", common.HexToAddress(owner), common.HexToAddress(operator))
}

func (b *baseAdapter) setApprovalForAll(
	ctx context.Context, operator string, approved bool, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := types.CheckAddress("operator", operator); err != nil {
		return nil, err
	}

	return b.contract.Transact(ctx, opts, "setApprovalForAll", common.HexToAddress(operator), approved)
}

func checkTransferParties(from, to string) error {
	if err := types.CheckAddress("from", from); err != nil {
		return err
	}

	return types.CheckAddress("to", to)
}

// Call runs a read-only method and converts its single return value.
func Call[T any](ctx context.Context, contract EVMRPC.Contract, method string, params ...interface{}) (T, error) {
	var zero T

	out, err := contract.Call(ctx, method, params...)
	if err != nil {
		return zero, fmt.Errorf("%s.%s: %w", contract.Address(), method, err)
	}

	if len(out) == 0 {
		return zero, fmt.Errorf("%s.%s: empty result", contract.Address(), method)
	}

	res, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s: unexpected result type %T", contract.Address(), method, out[0])
	}

	return res, nil
}

func toAddresses(addrs []string) []common.Address {
	res := make([]common.Address, len(addrs))
	for i, a := range addrs {
		res[i] = common.HexToAddress(a)
	}

	return res
}
