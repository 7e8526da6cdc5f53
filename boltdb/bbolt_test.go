package boltdb

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"gotokenbridge/types"

	"github.com/stretchr/testify/require"
)

func TestBoltStore(t *testing.T) {
	testDir, err := os.MkdirTemp("", "boltdb-test")
	require.NoError(t, err)

	defer os.RemoveAll(testDir)

	filePath := filepath.Join(testDir, "nested", "bridge.db")

	createDB := func(t *testing.T) *Store {
		t.Helper()

		t.Cleanup(func() { os.Remove(filePath) })

		db, err := New(filePath)
		require.NoError(t, err)

		t.Cleanup(func() { db.Close() })

		return db
	}

	t.Run("operations", func(t *testing.T) {
		db := createDB(t)

		op := &types.BridgeOperation{
			RequestID: "req-1",
			Direction: types.SourceToTarget,
			State:     types.StateInitiated,
			Request:   types.TransferRequest{Items: []types.TransferItem{{ID: big.NewInt(7)}}},
		}
		require.NoError(t, db.SaveOperation(op))

		op.ID = "0xabc"
		op.State = types.StateLocked
		require.NoError(t, db.SaveOperation(op))

		got, err := db.GetOperation("0xabc")
		require.NoError(t, err)
		require.Equal(t, "req-1", got.RequestID)
		require.Equal(t, types.StateLocked, got.State)
		require.Equal(t, big.NewInt(7), got.Request.Items[0].ID)

		got, err = db.GetOperation("req-1")
		require.NoError(t, err)
		require.Equal(t, "0xabc", got.ID)

		locked, err := db.GetOperations(types.StateLocked)
		require.NoError(t, err)
		require.Len(t, locked, 1)

		initiated, err := db.GetOperations(types.StateInitiated)
		require.NoError(t, err)
		require.Empty(t, initiated)

		_, err = db.GetOperation("missing")
		require.ErrorIs(t, err, types.ErrNotFound)

		require.Error(t, db.SaveOperation(&types.BridgeOperation{RequestID: "req-2"}))
	})

	t.Run("mappings", func(t *testing.T) {
		db := createDB(t)

		m := &types.AddressMapping{
			Manager: "0x00000000000000000000000000000000000000a1",
			Origin:  "0x00000000000000000000000000000000000000a2",
			Wrapped: "0x00000000000000000000000000000000000000a3",
		}

		_, err := db.GetMapping(m.Manager, m.Origin)
		require.ErrorIs(t, err, types.ErrNotFound)

		require.NoError(t, db.SaveMapping(m))
		require.NoError(t, db.SaveMapping(&types.AddressMapping{Manager: m.Manager, Origin: m.Origin, Wrapped: m.Manager}))

		// lookups are case insensitive
		got, err := db.GetMapping("0x00000000000000000000000000000000000000A1", m.Origin)
		require.NoError(t, err)
		require.Equal(t, m.Wrapped, got.Wrapped)

		all, err := db.GetMappings()
		require.NoError(t, err)
		require.Len(t, all, 1)

		require.Error(t, db.SaveMapping(&types.AddressMapping{Manager: m.Manager}))
	})

	t.Run("reopen", func(t *testing.T) {
		db, err := New(filePath)
		require.NoError(t, err)
		require.NoError(t, db.SaveOperation(&types.BridgeOperation{RequestID: "req-3", State: types.StateCompleted}))
		require.NoError(t, db.Close())

		db, err = New(filePath)
		require.NoError(t, err)

		defer db.Close()

		got, err := db.GetOperation("req-3")
		require.NoError(t, err)
		require.Equal(t, types.StateCompleted, got.State)
	})
}
