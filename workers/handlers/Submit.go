package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"

	"gotokenbridge/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
)

// MaxRequestBody bounds the size of a submitted transfer.
const MaxRequestBody = 1 << 20

// Submit accepts a transfer, records it and drives it in the background. The
// response carries the request id to poll with GET /operations/{id}.
func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "Request body too large",
			}, http.StatusRequestEntityTooLarge)

			return
		}

		a.logger.Warn("error reading request body", "err", err)
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)

		return
	}

	var req BridgeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.logger.Debug("error unmarshalling request body", "err", err)
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)

		return
	}

	tr, field, err := req.toTransferRequest()
	if err != nil {
		responseError(w, err, field)

		return
	}

	op, err := a.orchestrator.Initiate(tr)
	if err != nil {
		responseError(w, err, "")

		return
	}

	a.drive(op)

	responseJSON(w, a.operationResponse(op), http.StatusAccepted)
}

func checkAddress(field, addr string) error {
	if err := types.CheckAddress(field, addr); err != nil {
		return err
	}

	if err := ethav.Validate(addr); err != nil {
		return types.NewValidationError("%s address %q: %v", field, addr, err)
	}

	return nil
}

func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, types.NewValidationError("amount %q is not an integer", s)
	}

	return v, nil
}

func (req *BridgeRequest) toTransferRequest() (*types.TransferRequest, string, error) {
	direction, err := types.ParseDirection(req.Direction)
	if err != nil {
		return nil, "direction", err
	}

	semantics, err := types.ParseTransferSemantics(req.Semantics)
	if err != nil {
		return nil, "semantics", err
	}

	for _, f := range []struct{ name, addr string }{
		{"token", req.Token}, {"sender", req.Sender}, {"recipient", req.Recipient},
	} {
		if err := checkAddress(f.name, f.addr); err != nil {
			return nil, f.name, err
		}
	}

	items := make([]types.TransferItem, 0, len(req.Items))

	for _, it := range req.Items {
		var item types.TransferItem

		if strings.TrimSpace(it.ID) != "" {
			if item.ID, err = types.ParseTokenID(it.ID); err != nil {
				return nil, "items", err
			}
		}

		if item.Amount, err = parseAmount(it.Amount); err != nil {
			return nil, "items", err
		}

		items = append(items, item)
	}

	return &types.TransferRequest{
		Direction:     direction,
		Token:         types.TokenReference{Chain: req.Chain, Address: req.Token, Semantics: semantics},
		Sender:        req.Sender,
		Recipient:     req.Recipient,
		Items:         items,
		SourceOptions: req.SourceOptions,
		TargetOptions: req.TargetOptions,
	}, "", nil
}
