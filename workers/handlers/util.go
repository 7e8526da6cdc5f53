package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gotokenbridge/types"
)

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responseError(w http.ResponseWriter, err error, field string) {
	responseJSON(w, &APIResponse{
		Status:    "error",
		Message:   err.Error(),
		Field:     field,
		ReceiptID: types.ReceiptIDOf(err),
	}, statusCode(err))
}

// statusCode maps bridge error kinds onto HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrUnsupportedOperation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConfirmationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrApprovalFailed), errors.Is(err, types.ErrLockOrBurnFailed),
		errors.Is(err, types.ErrMintOrUnlockFailed), errors.Is(err, types.ErrMappingRegistration):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
