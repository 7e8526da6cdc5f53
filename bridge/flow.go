package bridge

import (
	"context"
	"errors"
	"fmt"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/chains"
	"gotokenbridge/config"
	"gotokenbridge/telemetry"
	"gotokenbridge/tokens"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"
)

// flow is a single drive of one operation. Value leaves on from and is
// released on to.
type flow struct {
	o      *Orchestrator
	op     *types.BridgeOperation
	req    *types.TransferRequest
	from   *chains.Chain
	to     *chains.Chain
	logger hclog.Logger
}

func (o *Orchestrator) newFlow(op *types.BridgeOperation) (*flow, error) {
	from, to, err := o.chains.Ends(op.Direction)
	if err != nil {
		return nil, err
	}

	return &flow{
		o:      o,
		op:     op,
		req:    &op.Request,
		from:   from,
		to:     to,
		logger: o.logger.With("request", op.RequestID, "direction", op.Direction),
	}, nil
}

func (f *flow) outbound() bool {
	return f.op.Direction == types.SourceToTarget
}

func (f *flow) semantics() types.TransferSemantics {
	return f.req.Token.Semantics
}

// fromOptions apply to transactions on the chain value leaves.
func (f *flow) fromOptions() *types.TransactionOptions {
	if f.outbound() {
		return f.req.SourceOptions
	}

	return f.req.TargetOptions
}

func (f *flow) toOptions() *types.TransactionOptions {
	if f.outbound() {
		return f.req.TargetOptions
	}

	return f.req.SourceOptions
}

func (f *flow) transition(state types.State) error {
	f.op.State = state
	f.op.FailedState = ""

	if err := f.o.save(f.op); err != nil {
		return err
	}

	telemetry.UpdateOperationState(string(f.op.Direction), string(state))
	f.logger.Debug("operation advanced", "state", state, "receipt", f.op.ID)

	return nil
}

func (f *flow) sender() (*EVMRPC.Signer, error) {
	signer, err := f.from.Signer(f.req.Sender)
	if err != nil {
		return nil, types.NewValidationError("sender %s cannot sign on chain %s", f.req.Sender, f.from.Name())
	}

	return signer, nil
}

// wrapped returns the wrapped token of the request. Bridging back requires the
// mapping to exist already.
func (f *flow) wrapped(ctx context.Context) (string, error) {
	if f.op.MappedAddress != "" {
		return f.op.MappedAddress, nil
	}

	facade, err := f.o.chains.Target().Manager(f.semantics(), nil)
	if err != nil {
		return "", err
	}

	wrapped, err := facade.Mapping(ctx, f.req.Token.Address)
	if err != nil {
		return "", fmt.Errorf("error querying mapping: %w", err)
	}

	if types.IsZeroAddress(wrapped) {
		return "", types.NewValidationError("token %s has not been bridged to %s", f.req.Token.Address, f.o.chains.Target().Name())
	}

	f.op.MappedAddress = wrapped

	return wrapped, nil
}

// token binds the token that leaves the sender: the origin token when bridging
// out, its wrapped counterpart when bridging back.
func (f *flow) token(ctx context.Context, signer *EVMRPC.Signer) (tokens.Adapter, error) {
	if f.outbound() {
		return f.from.Token(f.req.Token, signer)
	}

	wrapped, err := f.wrapped(ctx)
	if err != nil {
		return nil, err
	}

	return f.from.Token(types.TokenReference{Chain: f.from.Name(), Address: wrapped, Semantics: f.semantics()}, signer)
}

func (f *flow) validate(ctx context.Context) error {
	if _, err := f.sender(); err != nil {
		return err
	}

	if _, err := f.from.Contracts(f.semantics()); err != nil {
		return err
	}

	if _, err := f.to.Contracts(f.semantics()); err != nil {
		return err
	}

	token, err := f.token(ctx, nil)
	if err != nil {
		return err
	}

	return f.checkBalance(ctx, token)
}

func sameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}

func (f *flow) checkBalance(ctx context.Context, token tokens.Adapter) error {
	sender := f.req.Sender

	switch f.semantics() {
	case types.Fungible:
		balance, err := token.BalanceOf(ctx, sender, nil)
		if err != nil {
			return types.WrapError(types.ErrInsufficientBalance, "", fmt.Errorf("error reading balance: %w", err))
		}

		if need := f.req.TotalAmount(); balance.Cmp(need) < 0 {
			return types.NewError(types.ErrInsufficientBalance,
				"%s holds %s of %s, %s requested", sender, balance, token.Address(), need)
		}
	case types.NonFungible:
		for _, it := range f.req.Items {
			owner, err := token.OwnerOf(ctx, it.ID)
			if err != nil {
				return types.WrapError(types.ErrInsufficientBalance, "", fmt.Errorf("error reading owner of %s: %w", it.ID, err))
			}

			if !sameAddress(owner, sender) {
				return types.NewError(types.ErrInsufficientBalance, "token %s of %s is not owned by %s", it.ID, token.Address(), sender)
			}
		}
	case types.SemiFungible:
		ids, amounts := types.SplitItems(f.req.Items)

		owners := make([]string, len(ids))
		for i := range owners {
			owners[i] = sender
		}

		balances, err := token.BalanceOfBatch(ctx, owners, ids)
		if err != nil {
			return types.WrapError(types.ErrInsufficientBalance, "", fmt.Errorf("error reading balances: %w", err))
		}

		for i, balance := range balances {
			if balance.Cmp(amounts[i]) < 0 {
				return types.NewError(types.ErrInsufficientBalance,
					"%s holds %s of item %s, %s requested", sender, balance, ids[i], amounts[i])
			}
		}
	}

	return nil
}

func (f *flow) approve(ctx context.Context) error {
	signer, err := f.sender()
	if err != nil {
		return err
	}

	token, err := f.token(ctx, signer)
	if err != nil {
		return err
	}

	set, err := f.from.Contracts(f.semantics())
	if err != nil {
		return err
	}

	tx, err := f.approval(ctx, token, set.Manager)
	if err != nil {
		return types.WrapError(types.ErrApprovalFailed, "", err)
	}

	if tx == nil {
		f.logger.Debug("manager already approved", "manager", set.Manager)

		return nil
	}

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return types.WrapError(types.ErrApprovalFailed, "", err)
	}

	if receipt.Status != EVMRPC.TxConfirmed {
		return types.NewError(types.ErrApprovalFailed, "approval tx %s %s", receipt.Hash, receipt.Status)
	}

	return nil
}

// approval grants spender access to the request's items. A nil tx means the
// existing approval already covers them.
func (f *flow) approval(ctx context.Context, token tokens.Adapter, spender string) (EVMRPC.Tx, error) {
	sender, opts := f.req.Sender, f.fromOptions()

	switch t := token.(type) {
	case *tokens.FungibleAdapter:
		need := f.req.TotalAmount()

		if allowance, err := t.Allowance(ctx, sender, spender); err == nil && allowance.Cmp(need) >= 0 {
			return nil, nil
		}

		return t.Approve(ctx, spender, need, opts)
	case *tokens.NonFungibleAdapter:
		if all, err := t.IsApprovedForAll(ctx, sender, spender); err == nil && all {
			return nil, nil
		}

		if len(f.req.Items) > 1 {
			return t.SetApprovalForAll(ctx, spender, true, opts)
		}

		id := f.req.Items[0].ID

		if approved, err := t.GetApproved(ctx, id); err == nil && sameAddress(approved, spender) {
			return nil, nil
		}

		return t.Approve(ctx, spender, id, opts)
	default:
		if all, err := token.IsApprovedForAll(ctx, sender, spender); err == nil && all {
			return nil, nil
		}

		return token.SetApprovalForAll(ctx, spender, true, opts)
	}
}

func (f *flow) lockOrBurn(ctx context.Context) error {
	if f.op.ID != "" {
		// submitted before the previous drive stopped
		receipt, err := awaitReceipt(ctx, f.from, common.HexToHash(f.op.ID))
		if err != nil {
			return types.WrapError(types.ErrLockOrBurnFailed, f.op.ID, err)
		}

		return f.locked(receipt)
	}

	signer, err := f.sender()
	if err != nil {
		return err
	}

	facade, err := f.from.Manager(f.semantics(), signer)
	if err != nil {
		return err
	}

	// the hash is stored before the transaction is broadcast
	opts := &types.TransactionOptions{}
	if o := f.fromOptions(); o != nil {
		*opts = *o
	}

	opts.BeforeSend = func(hash string) error {
		f.op.ID = hash

		return f.o.save(f.op)
	}

	var tx EVMRPC.Tx

	if f.outbound() {
		tx, err = facade.Lock(ctx, f.req.Token.Address, f.req.Recipient, f.req.Items, opts)
	} else {
		var wrapped string

		if wrapped, err = f.wrapped(ctx); err == nil {
			tx, err = facade.Burn(ctx, wrapped, f.req.Recipient, f.req.Items, opts)
		}
	}

	if err != nil {
		// rejected by the node: nothing went out under the recorded hash
		if f.op.ID != "" && ctx.Err() == nil && !EVMRPC.IsTransportError(err) {
			f.op.ID = ""
			if serr := f.o.save(f.op); serr != nil {
				f.logger.Warn("error clearing rejected lock hash", "err", serr)
			}
		}

		return types.WrapError(types.ErrLockOrBurnFailed, f.op.ID, err)
	}

	f.logger.Info("lock submitted", "receipt", f.op.ID, "chain", f.from.Name())

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return types.WrapError(types.ErrLockOrBurnFailed, f.op.ID, err)
	}

	return f.locked(receipt)
}

func (f *flow) locked(receipt *EVMRPC.TxReceipt) error {
	state, verb := types.StateLocked, "lock"
	if !f.outbound() {
		state, verb = types.StateBurned, "burn"
	}

	if receipt.Status != EVMRPC.TxConfirmed {
		hash := f.op.ID

		// nothing was taken, a later resume sends a new transaction
		f.op.ID = ""
		f.op.AppendMessage(fmt.Sprintf("%s tx %s %s", verb, hash, receipt.Status))

		return types.NewError(types.ErrLockOrBurnFailed, "%s tx %s %s", verb, hash, receipt.Status)
	}

	f.op.LockBlock = receipt.BlockNumber

	return f.transition(state)
}

// release waits for the lock or burn to be buried deep enough and then mints
// or unlocks on the other chain, unless the receipt was already consumed there.
func (f *flow) release(ctx context.Context) error {
	threshold := f.op.LockBlock + f.from.Confirmations()

	// timeouts arrive typed; a cancelled ctx is reported under the step's kind
	if err := f.o.waiter.Wait(ctx, f.from, threshold); err != nil {
		return err
	}

	facade, err := f.to.Manager(f.semantics(), f.to.Master())
	if err != nil {
		return err
	}

	token := f.req.Token.Address

	if f.outbound() {
		source, err := f.from.Token(f.req.Token, nil)
		if err != nil {
			return err
		}

		token, err = f.o.resolver.Resolve(ctx, f.req.Token.Address, facade, source, f.req.Items[0].ID, f.toOptions())
		if err != nil {
			return types.WrapError(types.ErrMappingRegistration, f.op.ID, err)
		}

		f.op.MappedAddress = token
	}

	state, verb := types.StateMinted, "mint"
	if !f.outbound() {
		state, verb = types.StateUnlocked, "unlock"
	}

	processed, err := facade.IsProcessed(ctx, f.op.ID)
	if err != nil {
		return types.WrapError(types.ErrMintOrUnlockFailed, f.op.ID, fmt.Errorf("error checking receipt: %w", err))
	}

	if processed {
		f.logger.Info("receipt already processed, skipping "+verb, "receipt", f.op.ID)
		f.op.AppendMessage("receipt already processed on " + f.to.Name())

		return f.transition(state)
	}

	var tx EVMRPC.Tx

	if f.outbound() {
		tx, err = facade.Mint(ctx, token, f.req.Recipient, f.op.ID, f.req.Items, f.toOptions())
	} else {
		tx, err = facade.Unlock(ctx, token, f.req.Recipient, f.op.ID, f.req.Items, f.toOptions())
	}

	if err != nil {
		return types.WrapError(types.ErrMintOrUnlockFailed, f.op.ID, err)
	}

	f.op.MintTxHash = tx.Hash().Hex()
	if err := f.o.save(f.op); err != nil {
		return err
	}

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return types.WrapError(types.ErrMintOrUnlockFailed, f.op.ID, err)
	}

	if receipt.Status != EVMRPC.TxConfirmed {
		return types.WrapError(types.ErrMintOrUnlockFailed, f.op.ID,
			fmt.Errorf("%s tx %s %s", verb, receipt.Hash, receipt.Status))
	}

	f.logger.Info(verb+" confirmed", "receipt", f.op.ID, "tx", receipt.Hash, "chain", f.to.Name())

	return f.transition(state)
}

// awaitReceipt polls for the receipt of a transaction sent by an earlier drive.
func awaitReceipt(ctx context.Context, chain *chains.Chain, hash common.Hash) (*EVMRPC.TxReceipt, error) {
	interval := chain.Config().PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	var receipt *EVMRPC.TxReceipt

	backoff := retry.WithMaxDuration(config.DefaultReceiptTimeout, retry.NewConstant(interval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := chain.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return retry.RetryableError(err)
		}

		if err != nil {
			return err
		}

		receipt = r

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", hash, err)
	}

	return receipt, nil
}
