package types

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the sentinel returned by manager contracts for missing mappings.
var ZeroAddress = common.Address{}

type TransferRequest struct {
	Direction     Direction           `json:"direction"`
	Token         TokenReference      `json:"token"`
	Sender        string              `json:"sender"`
	Recipient     string              `json:"recipient"`
	Items         []TransferItem      `json:"items"`
	SourceOptions *TransactionOptions `json:"sourceOptions,omitempty"` // transactions sent to the source chain
	TargetOptions *TransactionOptions `json:"targetOptions,omitempty"` // transactions sent to the target chain
}

// IsZeroAddress reports whether addr is empty or the zero-address sentinel.
func IsZeroAddress(addr string) bool {
	addr = strings.TrimSpace(addr)

	return addr == "" || common.HexToAddress(addr) == ZeroAddress
}

// CheckAddress rejects empty, malformed and zero addresses.
func CheckAddress(field, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return NewValidationError("%s address is empty", field)
	}

	if !common.IsHexAddress(addr) {
		return NewValidationError("%s address %q is malformed", field, addr)
	}

	if IsZeroAddress(addr) {
		return NewValidationError("%s address is the zero address", field)
	}

	return nil
}

// ParseTokenID accepts decimal or 0x-prefixed hex, non-negative only.
func ParseTokenID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, NewValidationError("token id is empty")
	}

	id, ok := new(big.Int).SetString(s, 0)
	if !ok || id.Sign() < 0 {
		return nil, NewValidationError("token id %q is not a non-negative integer", s)
	}

	return id, nil
}

func CheckTokenID(id *big.Int) error {
	if id == nil {
		return NewValidationError("token id is missing")
	}

	if id.Sign() < 0 {
		return NewValidationError("token id %s is negative", id)
	}

	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return NewValidationError("amount is missing")
	}

	if amount.Sign() <= 0 {
		return NewValidationError("amount %s must be positive", amount)
	}

	return nil
}

// Validate performs every check that needs no chain access.
func (r *TransferRequest) Validate() error {
	if r.Direction != SourceToTarget && r.Direction != TargetToSource {
		return NewValidationError("unknown direction %q", r.Direction)
	}

	if !r.Token.Semantics.Valid() {
		return NewValidationError("unknown transfer semantics %q", r.Token.Semantics)
	}

	if r.Token.Chain == "" {
		return NewValidationError("token chain is empty")
	}

	if err := CheckAddress("token", r.Token.Address); err != nil {
		return err
	}

	if err := CheckAddress("sender", r.Sender); err != nil {
		return err
	}

	if err := CheckAddress("recipient", r.Recipient); err != nil {
		return err
	}

	if err := CheckItems(r.Token.Semantics, r.Items); err != nil {
		return err
	}

	if err := r.SourceOptions.Validate(); err != nil {
		return err
	}

	return r.TargetOptions.Validate()
}

// CheckItems applies the per-semantics id and amount rules to items.
func CheckItems(semantics TransferSemantics, items []TransferItem) error {
	if len(items) == 0 {
		return NewValidationError("no transfer items")
	}

	seen := map[string]bool{}

	for _, it := range items {
		switch semantics {
		case Fungible:
			if it.ID != nil {
				return NewValidationError("fungible transfer must not carry a token id")
			}

			if err := checkAmount(it.Amount); err != nil {
				return err
			}
		case NonFungible:
			if err := CheckTokenID(it.ID); err != nil {
				return err
			}

			if it.Amount != nil && it.Amount.Cmp(big.NewInt(1)) != 0 {
				return NewValidationError("non-fungible amount must be omitted or 1, got %s", it.Amount)
			}
		case SemiFungible:
			if err := CheckTokenID(it.ID); err != nil {
				return err
			}

			if err := checkAmount(it.Amount); err != nil {
				return err
			}
		}

		if it.ID != nil {
			key := it.ID.String()
			if seen[key] {
				return NewValidationError("duplicate token id %s", key)
			}

			seen[key] = true
		}
	}

	if semantics == Fungible && len(items) != 1 {
		return NewValidationError("fungible transfer takes exactly one amount, got %d", len(items))
	}

	return nil
}

// TotalAmount is the fungible amount of the request.
func (r *TransferRequest) TotalAmount() *big.Int {
	total := new(big.Int)
	for _, it := range r.Items {
		if it.Amount != nil {
			total.Add(total, it.Amount)
		}
	}

	return total
}
