package types

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is against any error returned by the bridge.
var (
	ErrValidation           = errors.New("validation error")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrApprovalFailed       = errors.New("approval failed")
	ErrLockOrBurnFailed     = errors.New("lock or burn failed")
	ErrConfirmationTimeout  = errors.New("confirmation timeout")
	ErrMintOrUnlockFailed   = errors.New("mint or unlock failed")
	ErrMappingRegistration  = errors.New("mapping registration failed")
	ErrUnsupportedOperation = errors.New("operation not supported for transfer semantics")
	ErrNotFound             = errors.New("not found")
)

// BridgeError carries the kind of failure and, once the lock or burn step was
// mined, the receipt id needed to re-drive the remaining steps.
type BridgeError struct {
	Kind      error
	ReceiptID string
	Msg       string
	Err       error
}

func (e *BridgeError) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.ReceiptID != "" {
		msg += " (receipt " + e.ReceiptID + ")"
	}

	return msg
}

func (e *BridgeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func NewValidationError(format string, args ...interface{}) error {
	return &BridgeError{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func NewError(kind error, format string, args ...interface{}) error {
	return &BridgeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError tags err with kind unless err already carries a bridge error kind.
func WrapError(kind error, receiptID string, err error) error {
	if err == nil {
		return nil
	}

	var be *BridgeError
	if errors.As(err, &be) {
		if be.ReceiptID == "" && receiptID != "" {
			cp := *be
			cp.ReceiptID = receiptID

			return &cp
		}

		return err
	}

	return &BridgeError{Kind: kind, ReceiptID: receiptID, Err: err}
}

// ReceiptIDOf returns the receipt id attached to err, if any.
func ReceiptIDOf(err error) string {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.ReceiptID
	}

	return ""
}
