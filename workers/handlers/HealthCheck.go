package handlers

import (
	"context"
	"net/http"
	"time"

	"gotokenbridge/chains"
)

// HealthCheck fails when either chain does not answer.
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, c := range []*chains.Chain{a.chains.Source(), a.chains.Target()} {
		if _, err := c.BlockNumber(ctx); err != nil {
			a.logger.Warn("health check failed", "chain", c.Name(), "err", err)
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "chain " + c.Name() + " unreachable",
			}, http.StatusServiceUnavailable)

			return
		}
	}

	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
