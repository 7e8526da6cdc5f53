package types

import (
	"fmt"
	"math/big"
	"strings"
)

// TransferSemantics selects how a token contract moves value.
type TransferSemantics string

const (
	Fungible     TransferSemantics = "fungible"     // ERC20/HRC20 style
	NonFungible  TransferSemantics = "nonfungible"  // ERC721/HRC721 style
	SemiFungible TransferSemantics = "semifungible" // ERC1155/HRC1155 style, batch capable
)

func ParseTransferSemantics(s string) (TransferSemantics, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fungible", "erc20", "hrc20":
		return Fungible, nil
	case "nonfungible", "erc721", "hrc721", "nft":
		return NonFungible, nil
	case "semifungible", "erc1155", "hrc1155":
		return SemiFungible, nil
	}

	return "", NewValidationError("unknown transfer semantics %q", s)
}

func (s TransferSemantics) Valid() bool {
	return s == Fungible || s == NonFungible || s == SemiFungible
}

type Direction string

const (
	SourceToTarget Direction = "source_to_target"
	TargetToSource Direction = "target_to_source"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case SourceToTarget, "s2t", "source":
		return SourceToTarget, nil
	case TargetToSource, "t2s", "target":
		return TargetToSource, nil
	}

	return "", NewValidationError("unknown direction %q", s)
}

// TokenReference is copied by value into an operation and never changed afterwards.
type TokenReference struct {
	Chain     string            `json:"chain"`
	Address   string            `json:"address"`
	Semantics TransferSemantics `json:"semantics"`
}

func (r TokenReference) String() string {
	return fmt.Sprintf("%s:%s:%s", r.Chain, r.Semantics, r.Address)
}

// TransferItem is a single (id, amount) pair. ID is nil for fungible tokens,
// Amount is nil (implicitly 1) for non-fungible tokens.
type TransferItem struct {
	ID     *big.Int `json:"id,omitempty"`
	Amount *big.Int `json:"amount,omitempty"`
}

// NewBatchItems zips parallel id/amount arrays as used by batch semi-fungible calls.
func NewBatchItems(ids, amounts []*big.Int) ([]TransferItem, error) {
	if len(ids) == 0 || len(amounts) == 0 {
		return nil, NewValidationError("ids and amounts must not be empty")
	}

	if len(ids) != len(amounts) {
		return nil, NewValidationError("ids length %d does not match amounts length %d", len(ids), len(amounts))
	}

	items := make([]TransferItem, len(ids))
	for i := range ids {
		items[i] = TransferItem{ID: ids[i], Amount: amounts[i]}
	}

	return items, nil
}

func SplitItems(items []TransferItem) (ids []*big.Int, amounts []*big.Int) {
	ids = make([]*big.Int, len(items))
	amounts = make([]*big.Int, len(items))

	for i, it := range items {
		ids[i] = it.ID
		amounts[i] = it.Amount
		if amounts[i] == nil {
			amounts[i] = big.NewInt(1)
		}
	}

	return ids, amounts
}

// TransactionOptions are passed through to the signer. Either GasPrice (legacy)
// or MaxFeePerGas/MaxPriorityFeePerGas (dynamic) should be set, never both.
type TransactionOptions struct {
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
	GasLimit             uint64   `json:"gasLimit,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`

	// BeforeSend receives the hash of the signed transaction before it is
	// broadcast. An error aborts the submission.
	BeforeSend func(hash string) error `json:"-"`
}

func (o *TransactionOptions) Validate() error {
	if o == nil {
		return nil
	}

	if o.GasPrice != nil && (o.MaxFeePerGas != nil || o.MaxPriorityFeePerGas != nil) {
		return NewValidationError("gasPrice cannot be combined with maxFeePerGas/maxPriorityFeePerGas")
	}

	for _, v := range []*big.Int{o.GasPrice, o.MaxFeePerGas, o.MaxPriorityFeePerGas} {
		if v != nil && v.Sign() < 0 {
			return NewValidationError("negative fee value %s", v)
		}
	}

	return nil
}

type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals,omitempty"`
	URI      string `json:"uri,omitempty"` // tokenURI for NonFungible, uri for SemiFungible
}

// AddressMapping is keyed by (Manager, Origin), created on first use and never updated.
type AddressMapping struct {
	Manager   string `json:"manager"`
	Origin    string `json:"origin"`
	Wrapped   string `json:"wrapped"`
	TsCreated int64  `json:"tsCreated"`
}

type BridgeResponse struct {
	ResolvedAddress string `json:"resolvedAddress"`
	ReceiptID       string `json:"receiptId"`
}
