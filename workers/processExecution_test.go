package workers

import (
	"context"
	"math/big"
	"testing"
	"time"

	"gotokenbridge/ledgertest"
	"gotokenbridge/types"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

func TestResumeWorker(t *testing.T) {
	ts := newTestServer(t, nil)

	token := ts.src.DeployERC20("Token", "TKN", 18)
	sender := ts.src.NewAccount()
	recipient := ledgertest.Address()
	ts.src.MintERC20(token, sender, 100)

	// nothing is mined, so the confirmation wait runs into the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := ts.orch.Bridge(ctx, &types.TransferRequest{
		Direction: types.SourceToTarget,
		Token:     types.TokenReference{Address: token, Semantics: types.Fungible},
		Sender:    sender,
		Recipient: recipient,
		Items:     []types.TransferItem{{Amount: bigInt(40)}},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	receipt := types.ReceiptIDOf(err)

	ts.mine(t)

	workerCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		Worker_processExecution(workerCtx, ts.orch, 20*time.Millisecond, hclog.NewNullLogger())
	}()

	require.Eventually(t, func() bool {
		op, err := ts.store.GetOperation(receipt)

		return err == nil && op.State == types.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)

	stop()
	<-done

	op, err := ts.store.GetOperation(receipt)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(40), ts.tgt.Balance(op.MappedAddress, recipient, nil))
	require.Equal(t, 1, ts.src.CallCount("lockToken"))
	require.Equal(t, 1, ts.tgt.CallCount("mintToken"))
}
