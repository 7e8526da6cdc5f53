// Package bridge drives transfers through lock or burn, confirmation and mint
// or unlock, persisting the operation at every step.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gotokenbridge/chains"
	"gotokenbridge/confirm"
	"gotokenbridge/mapping"
	"gotokenbridge/telemetry"
	"gotokenbridge/types"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

// OperationStore persists operations. GetOperation accepts the receipt id as
// well as the request id and fails with types.ErrNotFound.
type OperationStore interface {
	SaveOperation(op *types.BridgeOperation) error
	GetOperation(id string) (*types.BridgeOperation, error)
	GetOperations(state types.State) ([]*types.BridgeOperation, error)
}

// states in which a receipt may exist but the operation is not finished yet
var inFlightStates = []types.State{
	types.StateApproved, types.StateLocked, types.StateBurned,
	types.StateAwaitingConfirmation, types.StateMinted, types.StateUnlocked,
}

type Orchestrator struct {
	chains   *chains.Registry
	store    OperationStore
	resolver *mapping.Resolver
	waiter   *confirm.Waiter
	logger   hclog.Logger

	group   singleflight.Group
	running sync.Map
}

func NewOrchestrator(
	registry *chains.Registry, store OperationStore, resolver *mapping.Resolver, waiter *confirm.Waiter, logger hclog.Logger,
) *Orchestrator {
	return &Orchestrator{
		chains:   registry,
		store:    store,
		resolver: resolver,
		waiter:   waiter,
		logger:   logger.Named("bridge"),
	}
}

// Bridge runs a transfer to completion. On failure after the lock or burn was
// mined the returned error carries the receipt id to pass to Resume.
func (o *Orchestrator) Bridge(ctx context.Context, req *types.TransferRequest) (*types.BridgeResponse, error) {
	op, err := o.Initiate(req)
	if err != nil {
		return nil, err
	}

	return o.Run(ctx, op)
}

// Initiate checks req without touching either chain and records a new
// operation in state Initiated.
func (o *Orchestrator) Initiate(req *types.TransferRequest) (*types.BridgeOperation, error) {
	r := *req
	if r.Token.Chain == "" {
		r.Token.Chain = o.chains.Source().Name()
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	// both directions name the token by its origin contract
	if r.Token.Chain != o.chains.Source().Name() {
		return nil, types.NewValidationError("token must be given by its origin on chain %s, got %s",
			o.chains.Source().Name(), r.Token.Chain)
	}

	now := time.Now().Unix()
	op := &types.BridgeOperation{
		RequestID: uuid.NewString(),
		Request:   r,
		Direction: r.Direction,
		State:     types.StateInitiated,
		TsCreated: now,
		TsUpdated: now,
	}

	if err := o.store.SaveOperation(op); err != nil {
		return nil, fmt.Errorf("error saving operation: %w", err)
	}

	telemetry.UpdateOperationState(string(op.Direction), string(op.State))
	o.logger.Info("operation initiated", "request", op.RequestID, "direction", op.Direction, "token", r.Token)

	return op, nil
}

// Run drives op from its persisted state. Concurrent runs of one operation in
// this process share a single drive.
func (o *Orchestrator) Run(ctx context.Context, op *types.BridgeOperation) (*types.BridgeResponse, error) {
	res, err, _ := o.group.Do(op.RequestID, func() (interface{}, error) {
		o.running.Store(op.RequestID, struct{}{})
		defer o.running.Delete(op.RequestID)

		current, err := o.store.GetOperation(op.RequestID)
		if err != nil {
			return nil, fmt.Errorf("error loading operation %s: %w", op.RequestID, err)
		}

		return o.execute(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	return res.(*types.BridgeResponse), nil
}

// Resume re-drives the operation with the given receipt or request id. A lock
// or burn is never sent again once its transaction is known.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*types.BridgeResponse, error) {
	op, err := o.store.GetOperation(id)
	if err != nil {
		return nil, err
	}

	if op.State == types.StateCompleted {
		return op.Response(), nil
	}

	o.logger.Info("resuming operation", "request", op.RequestID, "receipt", op.ID, "state", op.State)

	return o.Run(ctx, op)
}

func (o *Orchestrator) Operation(_ context.Context, id string) (*types.BridgeOperation, error) {
	return o.store.GetOperation(id)
}

// Running reports whether the operation is being driven by this process.
func (o *Orchestrator) Running(requestID string) bool {
	_, ok := o.running.Load(requestID)

	return ok
}

// Stranded lists unfinished operations nobody in this process is driving and
// that have not moved for at least idle.
func (o *Orchestrator) Stranded(idle time.Duration) ([]*types.BridgeOperation, error) {
	var res []*types.BridgeOperation

	cutoff := time.Now().Add(-idle).Unix()

	for _, state := range inFlightStates {
		ops, err := o.store.GetOperations(state)
		if err != nil {
			return nil, err
		}

		for _, op := range ops {
			if op.TsUpdated > cutoff || o.Running(op.RequestID) {
				continue
			}

			// approved without a submitted lock is still safe to leave alone
			if op.State == types.StateApproved && op.ID == "" {
				continue
			}

			res = append(res, op)
		}
	}

	return res, nil
}

func (o *Orchestrator) save(op *types.BridgeOperation) error {
	op.TsUpdated = time.Now().Unix()

	if err := o.store.SaveOperation(op); err != nil {
		return fmt.Errorf("error saving operation: %w", err)
	}

	return nil
}

func (o *Orchestrator) execute(ctx context.Context, op *types.BridgeOperation) (*types.BridgeResponse, error) {
	if op.State == types.StateFailed {
		op.State = op.ResumeState()
		if op.State == "" {
			op.State = types.StateInitiated
		}

		op.FailedState = ""
		op.AppendMessage("resumed at " + string(op.State))
	}

	f, err := o.newFlow(op)
	if err != nil {
		return nil, o.fail(ctx, op, err)
	}

	for {
		switch op.State {
		case types.StateInitiated:
			err = f.validate(ctx)
			if err == nil {
				err = f.transition(types.StateValidated)
			}
		case types.StateValidated:
			err = f.approve(ctx)
			if err == nil {
				err = f.transition(types.StateApproved)
			}
		case types.StateApproved:
			err = f.lockOrBurn(ctx)
		case types.StateLocked, types.StateBurned:
			err = f.transition(types.StateAwaitingConfirmation)
		case types.StateAwaitingConfirmation:
			err = f.release(ctx)
		case types.StateMinted, types.StateUnlocked:
			err = f.transition(types.StateCompleted)
			if err == nil {
				telemetry.UpdateOperationDuration(string(op.Direction), time.Since(time.Unix(op.TsCreated, 0)).Seconds())
				f.logger.Info("operation completed", "receipt", op.ID, "resolved", op.Response().ResolvedAddress)
			}
		case types.StateCompleted:
			return op.Response(), nil
		default:
			err = fmt.Errorf("operation %s is in unexpected state %q", op.RequestID, op.State)
		}

		if err != nil {
			return nil, o.fail(ctx, op, err)
		}
	}
}

// stepKind is the error kind reported for an untyped failure in state.
func stepKind(state types.State) error {
	switch state {
	case types.StateInitiated:
		return types.ErrValidation
	case types.StateValidated:
		return types.ErrApprovalFailed
	case types.StateApproved, types.StateLocked, types.StateBurned:
		return types.ErrLockOrBurnFailed
	}

	return types.ErrMintOrUnlockFailed
}

// fail records the failure unless ctx was cancelled, in which case the
// operation stays where it was and can be resumed.
func (o *Orchestrator) fail(ctx context.Context, op *types.BridgeOperation, err error) error {
	err = types.WrapError(stepKind(op.State), op.ID, err)

	logger := o.logger.With("request", op.RequestID, "receipt", op.ID, "state", op.State)

	if ctx.Err() != nil {
		logger.Warn("operation interrupted", "err", err)

		return err
	}

	logger.Error("operation failed", "err", err)

	op.FailedState = op.State
	op.State = types.StateFailed
	op.AppendMessage(err.Error())

	if serr := o.save(op); serr != nil {
		logger.Error("error saving failed operation", "err", serr)
	}

	telemetry.UpdateOperationState(string(op.Direction), string(op.State))
	telemetry.UpdateOperationFailed(string(op.Direction), kindName(err))

	return err
}

func kindName(err error) string {
	var be *types.BridgeError
	if errors.As(err, &be) {
		return be.Kind.Error()
	}

	return "unknown"
}
