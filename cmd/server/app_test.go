package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	dir, err := os.MkdirTemp("", "logger-test")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	cfg := &config.Configuration{}
	cfg.Log.Dir = filepath.Join(dir, "logs")
	cfg.Log.Level = "debug"

	logger, closer, err := newLogger(cfg, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "log_2024-03-09.txt"))
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
	require.True(t, logger.IsDebug())

	cfg = &config.Configuration{}
	logger, closer, err = newLogger(cfg, time.Now())
	require.NoError(t, err)
	require.Nil(t, closer)
	require.Equal(t, hclog.Info, logger.GetLevel())
}

func TestOpenStore(t *testing.T) {
	dir, err := os.MkdirTemp("", "store-test")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	cfg := &config.Configuration{}
	cfg.Server.Store = "bolt"
	cfg.Server.BoltPath = filepath.Join(dir, "bridge.db")

	store, err := openStore(cfg, hclog.NewNullLogger())
	require.NoError(t, err)
	require.NoError(t, store.SaveOperation(&types.BridgeOperation{RequestID: "r", State: types.StateInitiated}))
	require.NoError(t, store.Close())

	cfg.Server.Store = "memory"
	_, err = openStore(cfg, hclog.NewNullLogger())
	require.Error(t, err)
}

func TestBridgeParams(t *testing.T) {
	p := &bridgeParams{
		direction: "t2s",
		token:     "0x00000000000000000000000000000000000000a1",
		semantics: "erc1155",
		sender:    "0x00000000000000000000000000000000000000a2",
		recipient: "0x00000000000000000000000000000000000000a3",
		ids:       []string{"1", "0x2"},
		amounts:   []string{"10", "20"},
	}

	req, err := p.request()
	require.NoError(t, err)
	require.Equal(t, types.TargetToSource, req.Direction)
	require.Len(t, req.Items, 2)
	require.Equal(t, int64(2), req.Items[1].ID.Int64())
	require.Equal(t, int64(20), req.Items[1].Amount.Int64())

	req.Token.Chain = "source"
	require.NoError(t, req.Validate())

	p.amounts = []string{"10"}
	_, err = p.request()
	require.ErrorIs(t, err, types.ErrValidation)

	p.semantics = "fungible"
	p.ids = nil
	p.amounts = []string{"lots"}
	_, err = p.request()
	require.ErrorIs(t, err, types.ErrValidation)

	p.amounts = []string{"1000000000000000000000"}
	req, err = p.request()
	require.NoError(t, err)
	require.Nil(t, req.Items[0].ID)
	require.Equal(t, "1000000000000000000000", req.Items[0].Amount.String())
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, c := range root.baseCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "bridge", "resume", "mapping"} {
		require.True(t, names[name], name)
	}

	require.Equal(t, "config.yml", root.configPath)
}
