package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotokenbridge/types"

	"github.com/stretchr/testify/require"
)

const testConfig = `
server:
  store: bolt
  bolt_path: /tmp/bridge.db
bridge:
  max_confirmation_wait: 5m
source:
  name: eth
  chain_id: 1
  rpc: ["https://eth.example.org", "https://eth2.example.org"]
  dynamic_fees: true
  contracts:
    fungible:
      manager: "0x1111111111111111111111111111111111111111"
target:
  name: hmy
  chain_id: 1666600000
  rpc: ["https://hmy.example.org"]
  confirmations: 2
  contracts:
    fungible:
      manager: "0x2222222222222222222222222222222222222222"
      token_manager: "0x3333333333333333333333333333333333333333"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("file and env", func(t *testing.T) {
		t.Setenv("BRIDGE_SOURCE_MASTER_KEY", "aa")
		t.Setenv("BRIDGE_TARGET_MASTER_KEY", "bb")
		t.Setenv("BRIDGE_SERVER_LISTEN", ":9000")

		cfg, err := Load(writeConfig(t, testConfig))
		require.NoError(t, err)

		require.Equal(t, ":9000", cfg.Server.Listen)
		require.Equal(t, "aa", cfg.Source.MasterKey)
		require.Equal(t, RoleSource, cfg.Source.Role)
		require.Equal(t, RoleTarget, cfg.Target.Role)
		require.Len(t, cfg.Source.RPCList, 2)
		require.True(t, cfg.Source.DynamicFees)
		require.Equal(t, 5*time.Minute, cfg.Bridge.MaxConfirmationWait)

		// defaults
		require.Equal(t, uint64(DefaultConfirmationDepth), cfg.Bridge.ConfirmationDepth)
		require.Equal(t, uint64(DefaultConfirmationDepth), cfg.Source.Confirmations)
		require.Equal(t, uint64(2), cfg.Target.Confirmations)
		require.Equal(t, uint64(DefaultGasFeeMultiplier), cfg.Target.GasFeeMultiplier)
		require.Equal(t, "0x3333333333333333333333333333333333333333",
			cfg.Target.Contracts[types.Fungible].TokenManager)
	})

	t.Run("missing master key", func(t *testing.T) {
		_, err := Load(writeConfig(t, testConfig))
		require.ErrorContains(t, err, "master_key")
	})

	t.Run("target without token manager", func(t *testing.T) {
		t.Setenv("BRIDGE_SOURCE_MASTER_KEY", "aa")
		t.Setenv("BRIDGE_TARGET_MASTER_KEY", "bb")

		body := testConfig + "\n"
		cfg := &Configuration{}
		require.NoError(t, readFile(writeConfig(t, body), cfg))
		cfg.Source.MasterKey, cfg.Target.MasterKey = "aa", "bb"
		cfg.Target.Contracts[types.Fungible] = ContractSet{Manager: "0x2222222222222222222222222222222222222222"}
		cfg.applyDefaults()

		require.ErrorContains(t, cfg.Validate(), "token manager")
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("BRIDGE_SOURCE_MASTER_KEY", "aa")
		t.Setenv("BRIDGE_TARGET_MASTER_KEY", "bb")
		t.Setenv("BRIDGE_SERVER_STORE", "mongo")

		_, err := Load(writeConfig(t, testConfig))
		require.ErrorContains(t, err, "unknown store")
	})
}
