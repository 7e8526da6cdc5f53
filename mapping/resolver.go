package mapping

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/manager"
	"gotokenbridge/telemetry"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

// Cache memoises resolved mappings. Entries are never updated or removed.
type Cache interface {
	GetMapping(manager, origin string) (*types.AddressMapping, error)
	SaveMapping(m *types.AddressMapping) error
}

// MetadataSource supplies display metadata of the origin token. tokens.Adapter
// satisfies it.
type MetadataSource interface {
	Metadata(ctx context.Context, representativeID *big.Int) (*types.TokenMetadata, error)
}

// Resolver finds, and creates on first use, the wrapped counterpart of an
// origin token. Concurrent first-time resolutions of one key in this process
// share a single registration.
type Resolver struct {
	cache  Cache
	logger hclog.Logger
	group  singleflight.Group
}

func NewResolver(cache Cache, logger hclog.Logger) *Resolver {
	return &Resolver{cache: cache, logger: logger.Named("mapping")}
}

func key(managerAddr common.Address, origin string) string {
	return managerAddr.Hex() + ":" + common.HexToAddress(origin).Hex()
}

// Resolve returns the wrapped address for origin on facade's manager. When no
// mapping exists, metadata is read from source (representativeID selects the
// token whose URI is copied for non-fungible and semi-fungible tokens) and the
// token is registered with the master signer bound to facade.
func (r *Resolver) Resolve(
	ctx context.Context, origin string, facade manager.Facade, source MetadataSource,
	representativeID *big.Int, opts *types.TransactionOptions,
) (string, error) {
	if err := types.CheckAddress("origin token", origin); err != nil {
		return "", err
	}

	managerAddr := facade.Address()

	if wrapped := r.cached(managerAddr, origin); wrapped != "" {
		return wrapped, nil
	}

	// the shared registration outlives any single caller
	shared := context.WithoutCancel(ctx)

	ch := r.group.DoChan(key(managerAddr, origin), func() (interface{}, error) {
		return r.resolve(shared, origin, facade, source, representativeID, opts)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		if res.Shared {
			r.logger.Debug("mapping resolution shared", "manager", managerAddr, "origin", origin)
		}

		return res.Val.(string), nil
	}
}

func (r *Resolver) cached(managerAddr common.Address, origin string) string {
	if r.cache == nil {
		return ""
	}

	m, err := r.cache.GetMapping(managerAddr.Hex(), common.HexToAddress(origin).Hex())
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			r.logger.Warn("error reading mapping cache", "manager", managerAddr, "origin", origin, "err", err)
		}

		return ""
	}

	telemetry.UpdateMappingCacheHit()

	return m.Wrapped
}

func (r *Resolver) remember(managerAddr common.Address, origin, wrapped string) {
	if r.cache == nil {
		return
	}

	err := r.cache.SaveMapping(&types.AddressMapping{
		Manager:   managerAddr.Hex(),
		Origin:    common.HexToAddress(origin).Hex(),
		Wrapped:   wrapped,
		TsCreated: time.Now().Unix(),
	})
	if err != nil {
		r.logger.Warn("error saving mapping", "manager", managerAddr, "origin", origin, "err", err)
	}
}

func (r *Resolver) resolve(
	ctx context.Context, origin string, facade manager.Facade, source MetadataSource,
	representativeID *big.Int, opts *types.TransactionOptions,
) (string, error) {
	wrapped, err := facade.Mapping(ctx, origin)
	if err != nil {
		return "", fmt.Errorf("error querying mapping: %w", err)
	}

	if !types.IsZeroAddress(wrapped) {
		r.remember(facade.Address(), origin, wrapped)

		return wrapped, nil
	}

	r.logger.Info("no mapping for token, registering", "manager", facade.Address(), "origin", origin)

	meta, err := source.Metadata(ctx, representativeID)
	if err != nil {
		return "", types.WrapError(types.ErrMappingRegistration, "", fmt.Errorf("error reading token metadata: %w", err))
	}

	if err := r.register(ctx, origin, facade, meta, opts); err != nil {
		return "", err
	}

	wrapped, err = facade.Mapping(ctx, origin)
	if err != nil {
		return "", fmt.Errorf("error querying mapping: %w", err)
	}

	if types.IsZeroAddress(wrapped) {
		return "", types.NewError(types.ErrMappingRegistration, "token %s still unmapped after registration", origin)
	}

	telemetry.UpdateMappingRegistered(facade.Address().Hex())
	r.logger.Info("token registered", "manager", facade.Address(), "origin", origin, "wrapped", wrapped)
	r.remember(facade.Address(), origin, wrapped)

	return wrapped, nil
}

// register submits addToken. A registration that fails because another actor
// mapped the token in the meantime is treated as success.
func (r *Resolver) register(
	ctx context.Context, origin string, facade manager.Facade, meta *types.TokenMetadata, opts *types.TransactionOptions,
) error {
	tx, err := facade.RegisterToken(ctx, origin, meta, opts)
	if err == nil {
		var receipt *EVMRPC.TxReceipt

		receipt, err = tx.Wait(ctx)
		if err == nil && receipt.Status == EVMRPC.TxConfirmed {
			return nil
		}

		if err == nil {
			err = fmt.Errorf("addToken tx %s %s", receipt.Hash, receipt.Status)
		}
	}

	if alreadyRegistered(err) || r.mappedMeanwhile(ctx, origin, facade) {
		r.logger.Info("token was registered concurrently", "manager", facade.Address(), "origin", origin)

		return nil
	}

	return types.WrapError(types.ErrMappingRegistration, "", err)
}

func alreadyRegistered(err error) bool {
	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "already mapped") || strings.Contains(msg, "already registered")
}

func (r *Resolver) mappedMeanwhile(ctx context.Context, origin string, facade manager.Facade) bool {
	wrapped, err := facade.Mapping(ctx, origin)

	return err == nil && !types.IsZeroAddress(wrapped)
}
