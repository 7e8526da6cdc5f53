package bridge

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/chains"
	"gotokenbridge/config"
	"gotokenbridge/confirm"
	"gotokenbridge/ledgertest"
	"gotokenbridge/mapping"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu  sync.Mutex
	ops map[string]types.BridgeOperation
	ids map[string]string

	// called with every operation saved while it carries a receipt id
	onReceipt func(op types.BridgeOperation) error
}

func newMemStore() *memStore {
	return &memStore{ops: map[string]types.BridgeOperation{}, ids: map[string]string{}}
}

func (s *memStore) SaveOperation(op *types.BridgeOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.ID != "" && s.onReceipt != nil {
		if err := s.onReceipt(*op); err != nil {
			return err
		}
	}

	s.ops[op.RequestID] = *op
	if op.ID != "" {
		s.ids[op.ID] = op.RequestID
	}

	return nil
}

func (s *memStore) GetOperation(id string) (*types.BridgeOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rid, ok := s.ids[id]; ok {
		id = rid
	}

	op, ok := s.ops[id]
	if !ok {
		return nil, types.ErrNotFound
	}

	return &op, nil
}

func (s *memStore) GetOperations(state types.State) ([]*types.BridgeOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*types.BridgeOperation

	for _, op := range s.ops {
		if op.State == state {
			cp := op
			res = append(res, &cp)
		}
	}

	return res, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ops)
}

type env struct {
	t        *testing.T
	src, tgt *ledgertest.Ledger
	store    *memStore
	orch     *Orchestrator
}

func newEnv(t *testing.T, maxWait time.Duration, mine bool) *env {
	t.Helper()

	e := &env{
		t:     t,
		src:   ledgertest.New("source", config.RoleSource),
		tgt:   ledgertest.New("target", config.RoleTarget),
		store: newMemStore(),
	}

	for _, s := range []types.TransferSemantics{types.Fungible, types.NonFungible, types.SemiFungible} {
		e.src.DeployManager(s)
		e.tgt.DeployManager(s)
	}

	registry, err := chains.NewRegistry(e.src, e.tgt)
	require.NoError(t, err)

	logger := hclog.NewNullLogger()
	e.orch = NewOrchestrator(registry, e.store, mapping.NewResolver(nil, logger), confirm.NewWaiter(maxWait, logger), logger)

	if mine {
		e.mine()
	}

	return e
}

func (e *env) mine() {
	ctx, cancel := context.WithCancel(context.Background())
	e.t.Cleanup(cancel)

	go e.src.MineEvery(ctx, time.Millisecond)
	go e.tgt.MineEvery(ctx, time.Millisecond)
}

func (e *env) manager(l *ledgertest.Ledger, s types.TransferSemantics) string {
	return l.Config().Contracts[s].Manager
}

func fungible(dir types.Direction, token, sender, recipient string, amount int64) *types.TransferRequest {
	return &types.TransferRequest{
		Direction: dir,
		Token:     types.TokenReference{Address: token, Semantics: types.Fungible},
		Sender:    sender,
		Recipient: recipient,
		Items:     []types.TransferItem{{Amount: big.NewInt(amount)}},
	}
}

func TestFungibleScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := e.src.NewAccount()
	recipient := ledgertest.Address()
	e.src.MintERC20(token, sender, 100)

	res, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, recipient, 40))
	require.NoError(t, err)
	require.NotEmpty(t, res.ReceiptID)

	require.Equal(t, big.NewInt(60), e.src.Balance(token, sender, nil))
	require.Equal(t, big.NewInt(40), e.src.Balance(token, e.manager(e.src, types.Fungible), nil))
	require.Equal(t, big.NewInt(40), e.tgt.Balance(res.ResolvedAddress, recipient, nil))
	require.Equal(t, res.ResolvedAddress, e.tgt.Mapping(e.manager(e.tgt, types.Fungible), token))

	op, err := e.orch.Operation(ctx, res.ReceiptID)
	require.NoError(t, err)
	require.Equal(t, types.StateCompleted, op.State)
	require.Equal(t, res.ReceiptID, op.ID)
	require.NotZero(t, op.LockBlock)
	require.NotEmpty(t, op.MintTxHash)
	require.Equal(t, "source", op.Request.Token.Chain)
}

func TestMintIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := e.src.NewAccount()
	recipient := ledgertest.Address()
	e.src.MintERC20(token, sender, 100)

	res, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, recipient, 40))
	require.NoError(t, err)

	again, err := e.orch.Resume(ctx, res.ReceiptID)
	require.NoError(t, err)
	require.Equal(t, res, again)

	// a crash between the mint and its state update
	op, err := e.store.GetOperation(res.ReceiptID)
	require.NoError(t, err)

	op.State = types.StateAwaitingConfirmation
	require.NoError(t, e.store.SaveOperation(op))

	again, err = e.orch.Resume(ctx, res.ReceiptID)
	require.NoError(t, err)
	require.Equal(t, res, again)

	require.Equal(t, 1, e.tgt.CallCount("mintToken"))
	require.Equal(t, 1, e.src.CallCount("lockToken"))
	require.Equal(t, big.NewInt(40), e.tgt.Balance(res.ResolvedAddress, recipient, nil))
}

func TestFungibleRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := e.src.NewAccount()
	holder := e.tgt.NewAccount()
	e.src.MintERC20(token, sender, 100)

	out, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, holder, 40))
	require.NoError(t, err)

	back, err := e.orch.Bridge(ctx, fungible(types.TargetToSource, token, holder, sender, 40))
	require.NoError(t, err)
	require.Equal(t, token, back.ResolvedAddress)
	require.NotEqual(t, out.ReceiptID, back.ReceiptID)

	require.Equal(t, big.NewInt(100), e.src.Balance(token, sender, nil))
	require.Zero(t, e.src.Balance(token, e.manager(e.src, types.Fungible), nil).Sign())
	require.Zero(t, e.tgt.Balance(out.ResolvedAddress, holder, nil).Sign())

	op, err := e.orch.Operation(ctx, back.ReceiptID)
	require.NoError(t, err)
	require.Equal(t, types.StateCompleted, op.State)
	require.Equal(t, out.ResolvedAddress, op.MappedAddress)
	require.Equal(t, 1, e.src.CallCount("unlockToken"))
}

func TestNonFungibleRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC721("Kitty", "KIT", "ipfs://kitty/")
	sender := e.src.NewAccount()
	holder := e.tgt.NewAccount()
	e.src.MintERC721(token, sender, 7)
	e.src.MintERC721(token, sender, 8)

	req := func(dir types.Direction, from, to string, ids ...int64) *types.TransferRequest {
		r := &types.TransferRequest{
			Direction: dir,
			Token:     types.TokenReference{Address: token, Semantics: types.NonFungible},
			Sender:    from,
			Recipient: to,
		}

		for _, id := range ids {
			r.Items = append(r.Items, types.TransferItem{ID: big.NewInt(id)})
		}

		return r
	}

	out, err := e.orch.Bridge(ctx, req(types.SourceToTarget, sender, holder, 7, 8))
	require.NoError(t, err)

	managerAddr := e.manager(e.src, types.NonFungible)
	for _, id := range []int64{7, 8} {
		require.Equal(t, big.NewInt(1), e.src.Balance(token, managerAddr, big.NewInt(id)))
		require.Equal(t, big.NewInt(1), e.tgt.Balance(out.ResolvedAddress, holder, big.NewInt(id)))
	}

	// a single id goes through approve rather than setApprovalForAll
	_, err = e.orch.Bridge(ctx, req(types.TargetToSource, holder, sender, 7))
	require.NoError(t, err)
	require.Equal(t, 1, e.tgt.CallCount("approve"))

	_, err = e.orch.Bridge(ctx, req(types.TargetToSource, holder, sender, 8))
	require.NoError(t, err)

	for _, id := range []int64{7, 8} {
		require.Equal(t, big.NewInt(1), e.src.Balance(token, sender, big.NewInt(id)))
	}

	require.Zero(t, e.tgt.Balance(out.ResolvedAddress, holder, nil).Sign())
}

func TestSemiFungibleBatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC1155("Items", "ITM", "ipfs://items/{id}")
	sender := e.src.NewAccount()
	holder := e.tgt.NewAccount()
	e.src.MintERC1155(token, sender, 1, 10)
	e.src.MintERC1155(token, sender, 2, 5)

	items, err := types.NewBatchItems(
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]*big.Int{big.NewInt(4), big.NewInt(5)},
	)
	require.NoError(t, err)

	out, err := e.orch.Bridge(ctx, &types.TransferRequest{
		Direction: types.SourceToTarget,
		Token:     types.TokenReference{Address: token, Semantics: types.SemiFungible},
		Sender:    sender,
		Recipient: holder,
		Items:     items,
	})
	require.NoError(t, err)

	require.Equal(t, big.NewInt(6), e.src.Balance(token, sender, big.NewInt(1)))
	require.Zero(t, e.src.Balance(token, sender, big.NewInt(2)).Sign())
	require.Equal(t, big.NewInt(4), e.tgt.Balance(out.ResolvedAddress, holder, big.NewInt(1)))
	require.Equal(t, big.NewInt(5), e.tgt.Balance(out.ResolvedAddress, holder, big.NewInt(2)))

	back, err := e.orch.Bridge(ctx, &types.TransferRequest{
		Direction: types.TargetToSource,
		Token:     types.TokenReference{Address: token, Semantics: types.SemiFungible},
		Sender:    holder,
		Recipient: sender,
		Items:     items,
	})
	require.NoError(t, err)
	require.Equal(t, token, back.ResolvedAddress)

	require.Equal(t, big.NewInt(10), e.src.Balance(token, sender, big.NewInt(1)))
	require.Equal(t, big.NewInt(5), e.src.Balance(token, sender, big.NewInt(2)))
}

func TestValidationFailsFast(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second, false)

	token := e.src.DeployERC1155("Items", "ITM", "ipfs://items/{id}")
	sender := e.src.NewAccount()

	_, err := types.NewBatchItems([]*big.Int{big.NewInt(1), big.NewInt(2)}, []*big.Int{big.NewInt(5)})
	require.ErrorIs(t, err, types.ErrValidation)

	cases := map[string]*types.TransferRequest{
		"missing amount": {
			Direction: types.SourceToTarget,
			Token:     types.TokenReference{Address: token, Semantics: types.SemiFungible},
			Sender:    sender,
			Recipient: ledgertest.Address(),
			Items:     []types.TransferItem{{ID: big.NewInt(1)}, {ID: big.NewInt(2), Amount: big.NewInt(5)}},
		},
		"empty recipient": {
			Direction: types.SourceToTarget,
			Token:     types.TokenReference{Address: token, Semantics: types.SemiFungible},
			Sender:    sender,
			Items:     []types.TransferItem{{ID: big.NewInt(1), Amount: big.NewInt(5)}},
		},
		"non-positive amount": fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 0),
		"no items": {
			Direction: types.TargetToSource,
			Token:     types.TokenReference{Address: token, Semantics: types.NonFungible},
			Sender:    sender,
			Recipient: ledgertest.Address(),
		},
		"foreign token chain": {
			Direction: types.SourceToTarget,
			Token:     types.TokenReference{Chain: "target", Address: token, Semantics: types.Fungible},
			Sender:    sender,
			Recipient: ledgertest.Address(),
			Items:     []types.TransferItem{{Amount: big.NewInt(1)}},
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.orch.Bridge(ctx, req)
			require.ErrorIs(t, err, types.ErrValidation)
		})
	}

	require.Zero(t, e.src.Calls())
	require.Zero(t, e.tgt.Calls())
	require.Zero(t, e.store.count())
}

func TestInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := e.src.NewAccount()
	e.src.MintERC20(token, sender, 100)

	_, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 150))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	require.Empty(t, types.ReceiptIDOf(err))
	require.Zero(t, e.src.CallCount("approve"))

	failed, err := e.store.GetOperations(types.StateFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, types.StateInitiated, failed[0].FailedState)

	nft := e.src.DeployERC721("Kitty", "KIT", "ipfs://kitty/")
	e.src.MintERC721(nft, e.src.NewAccount(), 1)

	_, err = e.orch.Bridge(ctx, &types.TransferRequest{
		Direction: types.SourceToTarget,
		Token:     types.TokenReference{Address: nft, Semantics: types.NonFungible},
		Sender:    sender,
		Recipient: ledgertest.Address(),
		Items:     []types.TransferItem{{ID: big.NewInt(1)}},
	})
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestSenderWithoutKey(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := ledgertest.Address()
	e.src.MintERC20(token, sender, 100)

	_, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 10))
	require.ErrorIs(t, err, types.ErrValidation)
	require.ErrorContains(t, err, "cannot sign")
}

func TestBridgeBackUnmappedToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)

	_, err := e.orch.Bridge(ctx, fungible(types.TargetToSource, token, e.tgt.NewAccount(), ledgertest.Address(), 10))
	require.ErrorIs(t, err, types.ErrValidation)
	require.ErrorContains(t, err, "has not been bridged")
	require.Zero(t, e.tgt.CallCount("burnToken"))
}

func TestFailuresAreResumable(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*env, *types.TransferRequest) {
		t.Helper()

		e := newEnv(t, 10*time.Second, true)
		token := e.src.DeployERC20("Token", "TKN", 18)
		sender := e.src.NewAccount()
		e.src.MintERC20(token, sender, 100)

		return e, fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 40)
	}

	finish := func(t *testing.T, e *env, id string, req *types.TransferRequest) {
		t.Helper()

		res, err := e.orch.Resume(ctx, id)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(40), e.tgt.Balance(res.ResolvedAddress, req.Recipient, nil))
		require.Equal(t, big.NewInt(60), e.src.Balance(req.Token.Address, req.Sender, nil))
	}

	t.Run("approval", func(t *testing.T) {
		e, req := setup(t)
		e.src.RevertNext("approve")

		_, err := e.orch.Bridge(ctx, req)
		require.ErrorIs(t, err, types.ErrApprovalFailed)
		require.Empty(t, types.ReceiptIDOf(err))

		failed, err := e.store.GetOperations(types.StateFailed)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		require.Equal(t, types.StateValidated, failed[0].FailedState)

		finish(t, e, failed[0].RequestID, req)
	})

	t.Run("lock", func(t *testing.T) {
		e, req := setup(t)
		e.src.RevertNext("lockToken")

		_, err := e.orch.Bridge(ctx, req)
		require.ErrorIs(t, err, types.ErrLockOrBurnFailed)
		require.Empty(t, types.ReceiptIDOf(err))
		require.Equal(t, big.NewInt(100), e.src.Balance(req.Token.Address, req.Sender, nil))

		failed, err := e.store.GetOperations(types.StateFailed)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		require.Empty(t, failed[0].ID)
		require.Contains(t, failed[0].Message, "lock tx")

		finish(t, e, failed[0].RequestID, req)
		require.Equal(t, 2, e.src.CallCount("lockToken"))
	})

	t.Run("mapping", func(t *testing.T) {
		e, req := setup(t)
		e.tgt.RevertNext("addToken")

		_, err := e.orch.Bridge(ctx, req)
		require.ErrorIs(t, err, types.ErrMappingRegistration)

		receipt := types.ReceiptIDOf(err)
		require.NotEmpty(t, receipt)

		finish(t, e, receipt, req)
		require.Equal(t, 1, e.src.CallCount("lockToken"))
	})

	t.Run("mint", func(t *testing.T) {
		e, req := setup(t)
		e.tgt.FailNext("mintToken", errors.New("insufficient funds for gas * price + value"))

		_, err := e.orch.Bridge(ctx, req)
		require.ErrorIs(t, err, types.ErrMintOrUnlockFailed)
		require.ErrorContains(t, err, "insufficient funds")

		receipt := types.ReceiptIDOf(err)
		require.NotEmpty(t, receipt)

		op, err := e.orch.Operation(ctx, receipt)
		require.NoError(t, err)
		require.Equal(t, types.StateFailed, op.State)
		require.Equal(t, types.StateAwaitingConfirmation, op.FailedState)

		finish(t, e, receipt, req)
		require.Equal(t, 1, e.src.CallCount("lockToken"))
	})
}

func TestConfirmationTimeout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 50*time.Millisecond, false)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := e.src.NewAccount()
	e.src.MintERC20(token, sender, 100)

	_, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 40))
	require.ErrorIs(t, err, types.ErrConfirmationTimeout)

	receipt := types.ReceiptIDOf(err)
	require.NotEmpty(t, receipt)
	require.Zero(t, e.tgt.CallCount("mintToken"))

	op, err := e.orch.Operation(ctx, receipt)
	require.NoError(t, err)
	require.Equal(t, types.StateAwaitingConfirmation, op.FailedState)

	e.src.Mine(int(e.src.Config().Confirmations) + 1)

	res, err := e.orch.Resume(ctx, receipt)
	require.NoError(t, err)
	require.Equal(t, receipt, res.ReceiptID)
}

func TestCancelledWaitResumes(t *testing.T) {
	e := newEnv(t, time.Minute, false)

	token := e.src.DeployERC20("Token", "TKN", 18)
	sender := e.src.NewAccount()
	recipient := ledgertest.Address()
	e.src.MintERC20(token, sender, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, recipient, 40))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, types.ErrMintOrUnlockFailed)
	require.NotErrorIs(t, err, types.ErrConfirmationTimeout)

	receipt := types.ReceiptIDOf(err)
	require.NotEmpty(t, receipt)

	op, err := e.orch.Operation(context.Background(), receipt)
	require.NoError(t, err)
	require.Equal(t, types.StateAwaitingConfirmation, op.State)

	stranded, err := e.orch.Stranded(0)
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	require.Equal(t, receipt, stranded[0].ID)

	e.mine()

	res, err := e.orch.Resume(context.Background(), receipt)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(40), e.tgt.Balance(res.ResolvedAddress, recipient, nil))
	require.Equal(t, 1, e.src.CallCount("lockToken"))

	stranded, err = e.orch.Stranded(0)
	require.NoError(t, err)
	require.Empty(t, stranded)
}

func TestConcurrentFirstBridges(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 10*time.Second, true)

	token := e.src.DeployERC20("Token", "TKN", 18)

	const n = 5

	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
		res  = make([]*types.BridgeResponse, n)
	)

	for i := 0; i < n; i++ {
		sender := e.src.NewAccount()
		e.src.MintERC20(token, sender, 10)

		wg.Add(1)

		go func(i int, sender string) {
			defer wg.Done()

			res[i], errs[i] = e.orch.Bridge(ctx, fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 10))
		}(i, sender)
	}

	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, res[0].ResolvedAddress, res[i].ResolvedAddress)
	}

	require.Equal(t, 1, e.tgt.CallCount("addToken"))
	require.Equal(t, n, e.tgt.CallCount("mintToken"))
	require.Equal(t, big.NewInt(10*n), e.src.Balance(token, e.manager(e.src, types.Fungible), nil))
}

func TestResumeUnknown(t *testing.T) {
	e := newEnv(t, time.Second, false)

	_, err := e.orch.Resume(context.Background(), "0x1234")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestLockHashStoredBeforeBroadcast(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*env, *types.TransferRequest) {
		t.Helper()

		e := newEnv(t, 10*time.Second, true)
		token := e.src.DeployERC20("Token", "TKN", 18)
		sender := e.src.NewAccount()
		e.src.MintERC20(token, sender, 100)

		return e, fungible(types.SourceToTarget, token, sender, ledgertest.Address(), 40)
	}

	t.Run("not yet mined when stored", func(t *testing.T) {
		e, req := setup(t)

		var (
			once    sync.Once
			unmined error
		)

		e.store.onReceipt = func(op types.BridgeOperation) error {
			once.Do(func() {
				require.Equal(t, types.StateApproved, op.State)
				_, unmined = e.src.TransactionReceipt(ctx, common.HexToHash(op.ID))
			})

			return nil
		}

		res, err := e.orch.Bridge(ctx, req)
		require.NoError(t, err)
		require.ErrorIs(t, unmined, ethereum.NotFound)

		receipt, err := e.src.TransactionReceipt(ctx, common.HexToHash(res.ReceiptID))
		require.NoError(t, err)
		require.Equal(t, EVMRPC.TxConfirmed, receipt.Status)
	})

	t.Run("store unavailable", func(t *testing.T) {
		e, req := setup(t)

		var failed atomic.Bool

		e.store.onReceipt = func(types.BridgeOperation) error {
			if failed.CompareAndSwap(false, true) {
				return errors.New("disk full")
			}

			return nil
		}

		_, err := e.orch.Bridge(ctx, req)
		require.ErrorIs(t, err, types.ErrLockOrBurnFailed)
		require.ErrorContains(t, err, "disk full")
		require.Empty(t, types.ReceiptIDOf(err))
		require.Equal(t, big.NewInt(100), e.src.Balance(req.Token.Address, req.Sender, nil))

		ops, err := e.store.GetOperations(types.StateFailed)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		require.Empty(t, ops[0].ID)
		require.Equal(t, types.StateApproved, ops[0].FailedState)

		res, err := e.orch.Resume(ctx, ops[0].RequestID)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(40), e.tgt.Balance(res.ResolvedAddress, req.Recipient, nil))
		require.Equal(t, big.NewInt(60), e.src.Balance(req.Token.Address, req.Sender, nil))
	})
}
