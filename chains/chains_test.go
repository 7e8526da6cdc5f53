package chains

import (
	"context"
	"math/big"
	"testing"

	"gotokenbridge/config"
	"gotokenbridge/ledgertest"
	"gotokenbridge/types"

	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *ledgertest.Ledger, *ledgertest.Ledger) {
	t.Helper()

	src := ledgertest.New("source", config.RoleSource)
	tgt := ledgertest.New("target", config.RoleTarget)

	r, err := NewRegistry(src, tgt)
	require.NoError(t, err)

	return r, src, tgt
}

func TestNewRegistryRoles(t *testing.T) {
	src := ledgertest.New("source", config.RoleSource)
	tgt := ledgertest.New("target", config.RoleTarget)

	_, err := NewRegistry(tgt, src)
	require.ErrorContains(t, err, "expected source")

	_, err = NewRegistry(src, ledgertest.New("other-source", config.RoleSource))
	require.ErrorContains(t, err, "expected target")

	_, err = NewRegistry(src, ledgertest.New("source", config.RoleTarget))
	require.ErrorContains(t, err, "share the name")
}

func TestRegistryLookup(t *testing.T) {
	r, src, tgt := newRegistry(t)

	c, err := r.ByRole(config.RoleTarget)
	require.NoError(t, err)
	require.Equal(t, tgt.Name(), c.Name())

	c, err = r.ByName("source")
	require.NoError(t, err)
	require.Equal(t, src.Name(), c.Name())

	_, err = r.ByName("mainnet")
	require.ErrorIs(t, err, types.ErrValidation)

	from, to, err := r.Ends(types.TargetToSource)
	require.NoError(t, err)
	require.Equal(t, "target", from.Name())
	require.Equal(t, "source", to.Name())

	_, _, err = r.Ends("sideways")
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestConfirmations(t *testing.T) {
	r, src, _ := newRegistry(t)

	require.Equal(t, uint64(2), r.Source().Confirmations())

	src.Config().Confirmations = 0
	require.Equal(t, uint64(config.DefaultConfirmationDepth), r.Source().Confirmations())
}

func TestToken(t *testing.T) {
	ctx := context.Background()
	r, src, _ := newRegistry(t)

	addr := src.DeployERC20("Token", "TKN", 18)
	holder := src.NewAccount()
	src.MintERC20(addr, holder, 100)

	tok, err := r.Source().Token(types.TokenReference{Address: addr, Semantics: types.Fungible}, nil)
	require.NoError(t, err)
	require.Equal(t, "source", tok.Reference().Chain)

	bal, err := tok.BalanceOf(ctx, holder, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), bal)

	_, err = r.Target().Token(types.TokenReference{Chain: "source", Address: addr, Semantics: types.Fungible}, nil)
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = r.Source().Token(types.TokenReference{Address: addr, Semantics: "wrapped"}, nil)
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	r, _, tgt := newRegistry(t)

	_, err := r.Target().Manager(types.Fungible, tgt.Master())
	require.ErrorIs(t, err, types.ErrValidation)

	set := tgt.DeployManager(types.Fungible)

	m, err := r.Target().Manager(types.Fungible, tgt.Master())
	require.NoError(t, err)
	require.Equal(t, config.RoleTarget, m.Role())
	require.Equal(t, set.Manager, m.Address().Hex())
	require.Equal(t, set.TokenManager, m.TokenManager().Hex())

	tm, err := r.Target().TokenManager(types.Fungible, tgt.Master())
	require.NoError(t, err)

	ward, err := tm.IsWard(ctx, set.Manager)
	require.NoError(t, err)
	require.True(t, ward)
}
