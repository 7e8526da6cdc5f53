package EVMRPC

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gotokenbridge/EVMRPC/abis"
	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

const (
	testMasterKey  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAccountKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
)

// rpcServer answers eth_blockNumber with an increasing height.
func rpcServer(t *testing.T, height *atomic.Uint64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}

		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")

		switch req.Method {
		case "eth_blockNumber":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x%x"}`, req.ID, height.Add(1))
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func chainConfig(role config.ChainRole, rpc ...string) *config.ChainConfig {
	return &config.ChainConfig{
		Name:             "test",
		Role:             role,
		ChainID:          1337,
		RPCList:          rpc,
		MasterKey:        testMasterKey,
		AccountKeys:      []string{testAccountKey},
		GasFeeMultiplier: 150,
		DefaultGasLimit:  100_000,
		PollInterval:     10 * time.Millisecond,
	}
}

func TestNewChainClient(t *testing.T) {
	src, err := NewChainClient(chainConfig(config.RoleSource, "http://localhost:1"), Options{}, hclog.NewNullLogger())
	require.NoError(t, err)
	require.IsType(t, &SourceChainClient{}, src)
	require.Equal(t, config.RoleSource, src.Role())

	tgt, err := NewChainClient(chainConfig(config.RoleTarget, "http://localhost:1"), Options{}, hclog.NewNullLogger())
	require.NoError(t, err)
	require.IsType(t, &TargetChainClient{}, tgt)

	_, err = NewChainClient(chainConfig("sideways"), Options{}, hclog.NewNullLogger())
	require.Error(t, err)

	bad := chainConfig(config.RoleSource)
	bad.MasterKey = "zz"
	_, err = NewChainClient(bad, Options{}, hclog.NewNullLogger())
	require.ErrorContains(t, err, "master key")
}

func TestSignerLookup(t *testing.T) {
	c, err := NewChainClient(chainConfig(config.RoleSource), Options{}, hclog.NewNullLogger())
	require.NoError(t, err)

	master := c.Master()
	s, err := c.Signer(master.Address().Hex())
	require.NoError(t, err)
	require.Same(t, master, s)

	_, err = c.Signer("0x000000000000000000000000000000000000dEaD")
	require.Error(t, err)
}

func TestSignerSharedWithMaster(t *testing.T) {
	cfg := chainConfig(config.RoleSource)
	cfg.AccountKeys = []string{testMasterKey, testAccountKey, testAccountKey}

	c, err := NewChainClient(cfg, Options{}, hclog.NewNullLogger())
	require.NoError(t, err)

	master := c.Master()
	s, err := c.Signer(master.Address().Hex())
	require.NoError(t, err)
	require.Same(t, master, s)

	acc, err := NewSigner(testAccountKey, big.NewInt(cfg.ChainID), cfg)
	require.NoError(t, err)

	first, err := c.Signer(acc.Address().Hex())
	require.NoError(t, err)

	second, err := c.Signer(acc.Address().Hex())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.NotSame(t, master, first)
}

func TestReadOnlyContract(t *testing.T) {
	c, err := NewChainClient(chainConfig(config.RoleSource), Options{}, hclog.NewNullLogger())
	require.NoError(t, err)

	contract, err := c.Bind(common.HexToAddress("0x01"), abis.ERC20MetaData, nil)
	require.NoError(t, err)

	_, err = contract.Transact(context.Background(), &types.TransactionOptions{}, "approve", common.Address{}, big.NewInt(1))
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestWithClientFailover(t *testing.T) {
	var height atomic.Uint64
	height.Store(99)

	srv := rpcServer(t, &height)

	c, err := NewChainClient(chainConfig(config.RoleSource, "http://127.0.0.1:1", srv.URL), Options{}, hclog.NewNullLogger())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	num, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(100), num)
}

func TestPollHeads(t *testing.T) {
	var height atomic.Uint64

	srv := rpcServer(t, &height)

	c, err := NewChainClient(chainConfig(config.RoleTarget, srv.URL), Options{}, hclog.NewNullLogger())
	require.NoError(t, err)
	defer c.Close()

	ch := make(chan *ethtypes.Header)

	sub, err := c.SubscribeNewHead(context.Background(), ch)
	require.NoError(t, err)

	var seen []uint64

	for len(seen) < 3 {
		select {
		case h := <-ch:
			seen = append(seen, h.Number.Uint64())
		case <-time.After(5 * time.Second):
			t.Fatal("no header received")
		}
	}

	sub.Unsubscribe()

	require.True(t, seen[0] < seen[1] && seen[1] < seen[2])
}

func TestMulPercentage(t *testing.T) {
	require.Equal(t, big.NewInt(150), MulPercentage(big.NewInt(100), 150))
	require.Equal(t, big.NewInt(0), MulPercentage(big.NewInt(0), 170))
}

func TestIsTransportError(t *testing.T) {
	require.True(t, IsTransportError(fmt.Errorf("dial tcp: connection refused")))
	require.True(t, IsTransportError(fmt.Errorf("429 Too Many Requests")))
	require.False(t, IsTransportError(context.Canceled))
	require.False(t, IsTransportError(fmt.Errorf("execution reverted")))
}
