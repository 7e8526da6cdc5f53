// Package chains pairs a chain client with the token and manager contracts
// configured for it.
package chains

import (
	"fmt"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/EVMRPC/abis"
	"gotokenbridge/config"
	"gotokenbridge/manager"
	"gotokenbridge/tokens"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
)

type Chain struct {
	EVMRPC.ChainClient
}

func New(client EVMRPC.ChainClient) *Chain {
	return &Chain{ChainClient: client}
}

// Confirmations is the number of blocks a lock or burn on this chain must be
// buried under before the other side acts on it.
func (c *Chain) Confirmations() uint64 {
	if n := c.Config().Confirmations; n > 0 {
		return n
	}

	return config.DefaultConfirmationDepth
}

func (c *Chain) Contracts(semantics types.TransferSemantics) (config.ContractSet, error) {
	set, ok := c.Config().Contracts[semantics]
	if !ok || types.IsZeroAddress(set.Manager) {
		return config.ContractSet{}, types.NewValidationError("chain %s has no %s manager", c.Name(), semantics)
	}

	return set, nil
}

// Token binds the token contract of ref. signer may be nil for read-only use.
func (c *Chain) Token(ref types.TokenReference, signer *EVMRPC.Signer) (tokens.Adapter, error) {
	if ref.Chain != "" && ref.Chain != c.Name() {
		return nil, types.NewValidationError("token %s does not live on chain %s", ref, c.Name())
	}

	if err := types.CheckAddress("token", ref.Address); err != nil {
		return nil, err
	}

	meta, err := tokens.MetaData(ref.Semantics)
	if err != nil {
		return nil, err
	}

	contract, err := c.Bind(common.HexToAddress(ref.Address), meta, signer)
	if err != nil {
		return nil, err
	}

	ref.Chain = c.Name()

	return tokens.New(ref, contract)
}

// Manager binds the manager for semantics. Writes are signed by signer.
func (c *Chain) Manager(semantics types.TransferSemantics, signer *EVMRPC.Signer) (manager.Facade, error) {
	set, err := c.Contracts(semantics)
	if err != nil {
		return nil, err
	}

	meta, err := manager.MetaData(semantics)
	if err != nil {
		return nil, err
	}

	contract, err := c.Bind(common.HexToAddress(set.Manager), meta, signer)
	if err != nil {
		return nil, err
	}

	return manager.New(semantics, c.Role(), contract, common.HexToAddress(set.TokenManager))
}

func (c *Chain) TokenManager(semantics types.TransferSemantics, signer *EVMRPC.Signer) (*manager.TokenManager, error) {
	set, err := c.Contracts(semantics)
	if err != nil {
		return nil, err
	}

	if types.IsZeroAddress(set.TokenManager) {
		return nil, types.NewValidationError("chain %s has no %s token manager", c.Name(), semantics)
	}

	contract, err := c.Bind(common.HexToAddress(set.TokenManager), abis.TokenManagerMetaData, signer)
	if err != nil {
		return nil, err
	}

	return manager.NewTokenManager(contract), nil
}

// Registry holds the source and the target chain of the bridge.
type Registry struct {
	source *Chain
	target *Chain
}

func NewRegistry(source, target EVMRPC.ChainClient) (*Registry, error) {
	if source.Role() != config.RoleSource {
		return nil, fmt.Errorf("chain %s has role %s, expected %s", source.Name(), source.Role(), config.RoleSource)
	}

	if target.Role() != config.RoleTarget {
		return nil, fmt.Errorf("chain %s has role %s, expected %s", target.Name(), target.Role(), config.RoleTarget)
	}

	if source.Name() == target.Name() {
		return nil, fmt.Errorf("source and target chains share the name %q", source.Name())
	}

	return &Registry{source: New(source), target: New(target)}, nil
}

// Dial creates clients for both configured chains.
func Dial(cfg *config.Configuration, logger hclog.Logger) (*Registry, error) {
	opts := EVMRPC.Options{
		ReceiptPollInterval: cfg.Bridge.ReceiptPollInterval,
		ReceiptTimeout:      cfg.Bridge.ReceiptTimeout,
	}

	source, err := EVMRPC.NewChainClient(&cfg.Source, opts, logger)
	if err != nil {
		return nil, err
	}

	target, err := EVMRPC.NewChainClient(&cfg.Target, opts, logger)
	if err != nil {
		return nil, err
	}

	return NewRegistry(source, target)
}

func (r *Registry) Source() *Chain { return r.source }

func (r *Registry) Target() *Chain { return r.target }

func (r *Registry) ByRole(role config.ChainRole) (*Chain, error) {
	switch role {
	case config.RoleSource:
		return r.source, nil
	case config.RoleTarget:
		return r.target, nil
	}

	return nil, types.NewValidationError("unknown chain role %q", role)
}

func (r *Registry) ByName(name string) (*Chain, error) {
	for _, c := range []*Chain{r.source, r.target} {
		if c.Name() == name {
			return c, nil
		}
	}

	return nil, types.NewValidationError("unknown chain %q", name)
}

// Ends returns the chain where a transfer in direction starts and the one
// where it is released.
func (r *Registry) Ends(direction types.Direction) (from, to *Chain, err error) {
	switch direction {
	case types.SourceToTarget:
		return r.source, r.target, nil
	case types.TargetToSource:
		return r.target, r.source, nil
	}

	return nil, nil, types.NewValidationError("unknown direction %q", direction)
}

func (r *Registry) Close() {
	r.source.Close()
	r.target.Close()
}
