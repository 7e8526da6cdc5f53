package handlers

import (
	"net/http"
	"sort"

	"gotokenbridge/types"

	"github.com/go-chi/chi"
)

// GetOperation looks an operation up by receipt id or request id.
func (a *API) GetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := a.orchestrator.Operation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		responseError(w, err, "id")

		return
	}

	responseJSON(w, a.operationResponse(op), http.StatusOK)
}

// Resume re-drives an unfinished operation. With ?wait=true the call blocks
// until the operation completes or fails again.
func (a *API) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if r.URL.Query().Get("wait") == "true" {
		if _, err := a.orchestrator.Resume(r.Context(), id); err != nil {
			responseError(w, err, "")

			return
		}

		a.GetOperation(w, r)

		return
	}

	op, err := a.orchestrator.Operation(r.Context(), id)
	if err != nil {
		responseError(w, err, "id")

		return
	}

	if op.State == types.StateCompleted || a.orchestrator.Running(op.RequestID) {
		responseJSON(w, a.operationResponse(op), http.StatusOK)

		return
	}

	a.logger.Info("resume requested", "request", op.RequestID, "receipt", op.ID, "state", op.State)
	a.drive(op)

	responseJSON(w, a.operationResponse(op), http.StatusAccepted)
}

// ListOperations returns the operations in ?state=, failed ones by default.
func (a *API) ListOperations(w http.ResponseWriter, r *http.Request) {
	state := types.StateFailed

	if s := r.URL.Query().Get("state"); s != "" {
		var err error
		if state, err = types.ParseState(s); err != nil {
			responseError(w, err, "state")

			return
		}
	}

	a.listOperations(w, state)
}

func (a *API) GetFailedTransactions(w http.ResponseWriter, _ *http.Request) {
	a.listOperations(w, types.StateFailed)
}

func (a *API) listOperations(w http.ResponseWriter, state types.State) {
	ops, err := a.store.GetOperations(state)
	if err != nil {
		a.logger.Error("error listing operations", "state", state, "err", err)
		responseJSON(w, nil, http.StatusInternalServerError)

		return
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].TsCreated < ops[j].TsCreated })

	if ops == nil {
		ops = []*types.BridgeOperation{}
	}

	responseJSON(w, ops, http.StatusOK)
}
