package handlers

import (
	"math/big"
	"net/http"

	"gotokenbridge/types"

	"github.com/go-chi/chi"
)

// Balance reads a token balance on either chain:
// GET /balance/{chain}/{semantics}/{token}/{owner}?id=
func (a *API) Balance(w http.ResponseWriter, r *http.Request) {
	chain, err := a.chains.ByName(chi.URLParam(r, "chain"))
	if err != nil {
		responseError(w, err, "chain")

		return
	}

	semantics, err := types.ParseTransferSemantics(chi.URLParam(r, "semantics"))
	if err != nil {
		responseError(w, err, "semantics")

		return
	}

	owner := chi.URLParam(r, "owner")
	if err := checkAddress("owner", owner); err != nil {
		responseError(w, err, "owner")

		return
	}

	var id *big.Int

	if s := r.URL.Query().Get("id"); s != "" {
		if id, err = types.ParseTokenID(s); err != nil {
			responseError(w, err, "id")

			return
		}
	}

	token, err := chain.Token(types.TokenReference{Address: chi.URLParam(r, "token"), Semantics: semantics}, nil)
	if err != nil {
		responseError(w, err, "token")

		return
	}

	balance, err := token.BalanceOf(r.Context(), owner, id)
	if err != nil {
		a.logger.Warn("error getting balance", "chain", chain.Name(), "token", token.Address(), "err", err)
		responseError(w, err, "")

		return
	}

	res := &APIBalanceResponse{
		Status:  "ok",
		Chain:   chain.Name(),
		Token:   token.Address().Hex(),
		Owner:   owner,
		Balance: balance.String(),
	}

	if id != nil {
		res.ID = id.String()
	}

	responseJSON(w, res, http.StatusOK)
}
