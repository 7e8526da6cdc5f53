package manager

import (
	"context"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/EVMRPC/abis"
	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Facade drives one manager contract. A source-chain manager holds custody
// (Lock, Unlock); a target-chain manager controls the wrapped supply (Mint,
// Burn) and the origin to wrapped mapping. Calls on the wrong side fail with
// types.ErrUnsupportedOperation.
type Facade interface {
	Address() common.Address
	Semantics() types.TransferSemantics
	Role() config.ChainRole
	TokenManager() common.Address

	Mapping(ctx context.Context, origin string) (string, error)
	IsProcessed(ctx context.Context, receiptID string) (bool, error)

	RegisterToken(ctx context.Context, origin string, meta *types.TokenMetadata, opts *types.TransactionOptions) (EVMRPC.Tx, error)
	RemoveToken(ctx context.Context, origin string, opts *types.TransactionOptions) (EVMRPC.Tx, error)

	Lock(ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions) (EVMRPC.Tx, error)
	Burn(ctx context.Context, token, recipient string, items []types.TransferItem, opts *types.TransactionOptions) (EVMRPC.Tx, error)
	Mint(
		ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
	) (EVMRPC.Tx, error)
	Unlock(
		ctx context.Context, token, recipient, receiptID string, items []types.TransferItem, opts *types.TransactionOptions,
	) (EVMRPC.Tx, error)
}

func MetaData(semantics types.TransferSemantics) (*bind.MetaData, error) {
	switch semantics {
	case types.Fungible:
		return abis.FungibleManagerMetaData, nil
	case types.NonFungible:
		return abis.NonFungibleManagerMetaData, nil
	case types.SemiFungible:
		return abis.SemiFungibleManagerMetaData, nil
	}

	return nil, types.NewValidationError("unknown transfer semantics %q", semantics)
}

// New returns the facade for semantics over contract, which must be bound with
// the ABI returned by MetaData.
func New(
	semantics types.TransferSemantics, role config.ChainRole, contract EVMRPC.Contract, tokenManager common.Address,
) (Facade, error) {
	base := baseFacade{semantics: semantics, role: role, contract: contract, tokenManager: tokenManager}

	switch semantics {
	case types.Fungible:
		return &FungibleManager{base}, nil
	case types.NonFungible:
		return &NonFungibleManager{base}, nil
	case types.SemiFungible:
		return &SemiFungibleManager{base}, nil
	}

	return nil, types.NewValidationError("unknown transfer semantics %q", semantics)
}

type baseFacade struct {
	semantics    types.TransferSemantics
	role         config.ChainRole
	contract     EVMRPC.Contract
	tokenManager common.Address
}

func (b *baseFacade) Address() common.Address { return b.contract.Address() }

func (b *baseFacade) Semantics() types.TransferSemantics { return b.semantics }

func (b *baseFacade) Role() config.ChainRole { return b.role }

func (b *baseFacade) TokenManager() common.Address { return b.tokenManager }

func (b *baseFacade) requireRole(op string, role config.ChainRole) error {
	if b.role != role {
		return types.NewError(types.ErrUnsupportedOperation, "%s on %s chain manager %s", op, b.role, b.Address())
	}

	return nil
}

// Mapping returns the wrapped token for origin, or the zero address when the
// origin token is not registered yet.
func (b *baseFacade) Mapping(ctx context.Context, origin string) (string, error) {
	if err := types.CheckAddress("origin token", origin); err != nil {
		return "", err
	}

	out, err := b.contract.Call(ctx, "mappings", common.HexToAddress(origin))
	if err != nil {
		return "", err
	}

	wrapped, ok := out[0].(common.Address)
	if !ok {
		return "", types.NewError(types.ErrMappingRegistration, "unexpected mappings result %T", out[0])
	}

	return wrapped.Hex(), nil
}

// IsProcessed reports whether the manager already consumed receiptID in a mint
// or unlock.
func (b *baseFacade) IsProcessed(ctx context.Context, receiptID string) (bool, error) {
	hash, err := ParseReceiptID(receiptID)
	if err != nil {
		return false, err
	}

	out, err := b.contract.Call(ctx, "usedEvents_", hash)
	if err != nil {
		return false, err
	}

	used, _ := out[0].(bool)

	return used, nil
}

func (b *baseFacade) register(
	ctx context.Context, origin string, meta *types.TokenMetadata, last interface{}, opts *types.TransactionOptions,
) (EVMRPC.Tx, error) {
	if err := b.requireRole("addToken", config.RoleTarget); err != nil {
		return nil, err
	}

	if err := types.CheckAddress("origin token", origin); err != nil {
		return nil, err
	}

	if meta == nil || meta.Name == "" || meta.Symbol == "" {
		return nil, types.NewValidationError("token metadata needs a name and a symbol")
	}

	return b.contract.Transact(ctx, opts, "addToken",
		b.tokenManager, common.HexToAddress(origin), meta.Name, meta.Symbol, last)
}

func (b *baseFacade) RemoveToken(ctx context.Context, origin string, opts *types.TransactionOptions) (EVMRPC.Tx, error) {
	if err := b.requireRole("removeToken", config.RoleTarget); err != nil {
		return nil, err
	}

	if err := types.CheckAddress("origin token", origin); err != nil {
		return nil, err
	}

	return b.contract.Transact(ctx, opts, "removeToken", b.tokenManager, common.HexToAddress(origin))
}

func checkParties(token, recipient string) error {
	if err := types.CheckAddress("token", token); err != nil {
		return err
	}

	return types.CheckAddress("recipient", recipient)
}

// ParseReceiptID converts a 0x-prefixed transaction hash into the bytes32 the
// manager contracts key processed events by.
func ParseReceiptID(id string) ([32]byte, error) {
	b, err := hexutil.Decode(id)
	if err != nil || len(b) != common.HashLength {
		return [32]byte{}, types.NewValidationError("receipt id %q is not a 32 byte hex string", id)
	}

	var hash [32]byte
	copy(hash[:], b)

	return hash, nil
}

func ids(items []types.TransferItem) []*big.Int {
	res, _ := types.SplitItems(items)

	return res
}

func (b *baseFacade) check(op string, role config.ChainRole, token, recipient string, items []types.TransferItem) error {
	if err := b.requireRole(op, role); err != nil {
		return err
	}

	if err := checkParties(token, recipient); err != nil {
		return err
	}

	return types.CheckItems(b.semantics, items)
}
