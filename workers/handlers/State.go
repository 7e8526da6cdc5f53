package handlers

import (
	"context"
	"net/http"
	"time"

	"gotokenbridge/chains"
	"gotokenbridge/types"
)

// State reports the chains the bridge connects and how many operations sit in
// each state.
func (a *API) State(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res := &APIStateResponse{
		Status: "ok",
		Counts: map[types.State]int{},
	}

	for _, c := range []*chains.Chain{a.chains.Source(), a.chains.Target()} {
		res.Chains = append(res.Chains, chainState(ctx, c))
	}

	for _, state := range types.AllStates {
		ops, err := a.store.GetOperations(state)
		if err != nil {
			a.logger.Warn("error counting operations", "state", state, "err", err)

			continue
		}

		res.Counts[state] = len(ops)
	}

	responseJSON(w, res, http.StatusOK)
}

func chainState(ctx context.Context, c *chains.Chain) APIChainState {
	st := APIChainState{
		Name:          c.Name(),
		Role:          string(c.Role()),
		ChainID:       c.Config().ChainID,
		Confirmations: c.Confirmations(),
	}

	height, err := c.BlockNumber(ctx)
	if err != nil {
		st.Error = err.Error()
	}

	st.Height = height

	return st
}
