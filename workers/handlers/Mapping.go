package handlers

import (
	"net/http"

	"gotokenbridge/types"

	"github.com/go-chi/chi"
)

// GetMapping queries the target manager for the wrapped counterpart of an
// origin token. Unregistered tokens answer 404.
func (a *API) GetMapping(w http.ResponseWriter, r *http.Request) {
	semantics, err := types.ParseTransferSemantics(chi.URLParam(r, "semantics"))
	if err != nil {
		responseError(w, err, "semantics")

		return
	}

	facade, err := a.chains.Target().Manager(semantics, nil)
	if err != nil {
		responseError(w, err, "semantics")

		return
	}

	origin := chi.URLParam(r, "origin")

	wrapped, err := facade.Mapping(r.Context(), origin)
	if err != nil {
		responseError(w, err, "origin")

		return
	}

	if types.IsZeroAddress(wrapped) {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "origin",
			Message: "token has not been bridged",
		}, http.StatusNotFound)

		return
	}

	responseJSON(w, &APIMappingResponse{
		Status:  "ok",
		Manager: facade.Address().Hex(),
		Origin:  origin,
		Wrapped: wrapped,
	}, http.StatusOK)
}

// ListMappings returns the mappings the store has memoised.
func (a *API) ListMappings(w http.ResponseWriter, _ *http.Request) {
	mappings, err := a.store.GetMappings()
	if err != nil {
		a.logger.Error("error listing mappings", "err", err)
		responseJSON(w, nil, http.StatusInternalServerError)

		return
	}

	if mappings == nil {
		mappings = []*types.AddressMapping{}
	}

	responseJSON(w, mappings, http.StatusOK)
}

// Metrics dumps the latest in-memory metrics interval.
func (a *API) Metrics(w http.ResponseWriter, _ *http.Request) {
	if a.telemetry == nil {
		responseJSON(w, &APIResponse{Status: "error", Message: "telemetry disabled"}, http.StatusNotFound)

		return
	}

	snapshot, err := a.telemetry.Snapshot()
	if err != nil {
		responseJSON(w, &APIResponse{Status: "error", Message: err.Error()}, http.StatusServiceUnavailable)

		return
	}

	snapshot.RLock()
	defer snapshot.RUnlock()

	responseJSON(w, snapshot, http.StatusOK)
}
