package types

import (
	"strings"
)

type State string

const (
	StateInitiated            State = "initiated"
	StateValidated            State = "validated"
	StateApproved             State = "approved"
	StateLocked               State = "locked"
	StateBurned               State = "burned"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateMinted               State = "minted"
	StateUnlocked             State = "unlocked"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

var AllStates = []State{
	StateInitiated, StateValidated, StateApproved, StateLocked, StateBurned,
	StateAwaitingConfirmation, StateMinted, StateUnlocked, StateCompleted, StateFailed,
}

// progress orders states along the workflow; Failed has no position.
var progress = map[State]int{
	StateInitiated:            0,
	StateValidated:            1,
	StateApproved:             2,
	StateLocked:               3,
	StateBurned:               3,
	StateAwaitingConfirmation: 4,
	StateMinted:               5,
	StateUnlocked:             5,
	StateCompleted:            6,
}

func ParseState(s string) (State, error) {
	for _, st := range AllStates {
		if string(st) == strings.ToLower(s) {
			return st, nil
		}
	}

	return "", NewValidationError("unknown state %q", s)
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Reached reports whether s is at or past target in the workflow.
func (s State) Reached(target State) bool {
	a, ok1 := progress[s]
	b, ok2 := progress[target]

	return ok1 && ok2 && a >= b
}

// BridgeOperation is a single bridge transfer. ID stays empty until the lock or
// burn transaction is mined; RequestID is the local key used before that.
type BridgeOperation struct {
	ID            string          `json:"id"`
	RequestID     string          `json:"requestId"`
	Request       TransferRequest `json:"request"`
	Direction     Direction       `json:"direction"`
	State         State           `json:"state"`
	FailedState   State           `json:"failedState,omitempty"`   // state in which the failure happened
	MappedAddress string          `json:"mappedAddress,omitempty"` // wrapped token on the target chain
	LockBlock     uint64          `json:"lockBlock,omitempty"`
	MintTxHash    string          `json:"mintTxHash,omitempty"`
	Message       string          `json:"message,omitempty"` // messages that help to track processing/errors
	TsCreated     int64           `json:"tsCreated"`
	TsUpdated     int64           `json:"tsUpdated"`
}

func (op *BridgeOperation) AppendMessage(msg string) {
	if op.Message == "" {
		op.Message = msg
	} else {
		op.Message += "; " + msg
	}
}

// ResumeState is the state from which the workflow continues after a failure or restart.
func (op *BridgeOperation) ResumeState() State {
	if op.State == StateFailed {
		return op.FailedState
	}

	return op.State
}

// Response reports the token contract on the destination chain: the wrapped
// token when bridging out, the origin token when bridging back.
func (op *BridgeOperation) Response() *BridgeResponse {
	resolved := op.MappedAddress
	if op.Direction == TargetToSource {
		resolved = op.Request.Token.Address
	}

	return &BridgeResponse{
		ResolvedAddress: resolved,
		ReceiptID:       op.ID,
	}
}
