package handlers

import (
	"gotokenbridge/types"
)

type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	ReceiptID string `json:"receiptId,omitempty"`
}

type APIStateResponse struct {
	Status string              `json:"status"`
	Chains []APIChainState     `json:"chains"`
	Counts map[types.State]int `json:"counts,omitempty"`
}

type APIChainState struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	ChainID       int64  `json:"chainId"`
	Height        uint64 `json:"height"`
	Confirmations uint64 `json:"confirmations"`
	Error         string `json:"error,omitempty"`
}

// APIOperationResponse is returned by submit, query and resume.
type APIOperationResponse struct {
	Status          string      `json:"status"`
	RequestID       string      `json:"requestId"`
	ReceiptID       string      `json:"receiptId,omitempty"`
	State           types.State `json:"state"`
	ResolvedAddress string      `json:"resolvedAddress,omitempty"`
	Message         string      `json:"message,omitempty"`
	Running         bool        `json:"running"`
}

type APIBalanceResponse struct {
	Status  string `json:"status"`
	Chain   string `json:"chain"`
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	ID      string `json:"id,omitempty"`
	Balance string `json:"balance"`
}

type APIMappingResponse struct {
	Status  string `json:"status"`
	Manager string `json:"manager"`
	Origin  string `json:"origin"`
	Wrapped string `json:"wrapped"`
}

// BridgeRequest is the JSON body of POST /bridge. Ids and amounts are decimal
// or 0x-prefixed strings so that values above 2^53 survive javascript clients.
type BridgeRequest struct {
	Direction     string                    `json:"direction"`
	Chain         string                    `json:"chain,omitempty"`
	Token         string                    `json:"token"`
	Semantics     string                    `json:"semantics"`
	Sender        string                    `json:"sender"`
	Recipient     string                    `json:"recipient"`
	Items         []BridgeItem              `json:"items"`
	SourceOptions *types.TransactionOptions `json:"sourceOptions,omitempty"`
	TargetOptions *types.TransactionOptions `json:"targetOptions,omitempty"`
}

type BridgeItem struct {
	ID     string `json:"id,omitempty"`
	Amount string `json:"amount,omitempty"`
}
