// Package handlers implements the HTTP endpoints of the bridge service.
package handlers

import (
	"context"
	"time"

	"gotokenbridge/bridge"
	"gotokenbridge/chains"
	"gotokenbridge/telemetry"
	"gotokenbridge/types"

	"github.com/hashicorp/go-hclog"
)

// Store is the read side of the operation and mapping store used for listings.
type Store interface {
	GetOperations(state types.State) ([]*types.BridgeOperation, error)
	GetMappings() ([]*types.AddressMapping, error)
}

type API struct {
	ctx          context.Context
	orchestrator *bridge.Orchestrator
	chains       *chains.Registry
	store        Store
	telemetry    *telemetry.Telemetry
	logger       hclog.Logger
}

// NewAPI creates the handlers. Operations submitted over HTTP keep running on
// ctx after the request that started them has returned.
func NewAPI(
	ctx context.Context, orchestrator *bridge.Orchestrator, registry *chains.Registry,
	store Store, tel *telemetry.Telemetry, logger hclog.Logger,
) *API {
	return &API{
		ctx:          ctx,
		orchestrator: orchestrator,
		chains:       registry,
		store:        store,
		telemetry:    tel,
		logger:       logger.Named("api"),
	}
}

// drive runs op in the background on the server context.
func (a *API) drive(op *types.BridgeOperation) {
	go func() {
		start := time.Now()

		res, err := a.orchestrator.Run(a.ctx, op)
		if err != nil {
			a.logger.Warn("operation stopped", "request", op.RequestID, "err", err)

			return
		}

		a.logger.Info("operation finished", "request", op.RequestID, "receipt", res.ReceiptID,
			"took", time.Since(start).String())
	}()
}

func (a *API) operationResponse(op *types.BridgeOperation) *APIOperationResponse {
	res := &APIOperationResponse{
		Status:    "ok",
		RequestID: op.RequestID,
		ReceiptID: op.ID,
		State:     op.State,
		Message:   op.Message,
		Running:   a.orchestrator.Running(op.RequestID),
	}

	if op.State == types.StateCompleted {
		res.ResolvedAddress = op.Response().ResolvedAddress
	}

	return res
}
