package types

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
	addrT = "0x3333333333333333333333333333333333333333"
)

func validRequest(sem TransferSemantics, items ...TransferItem) TransferRequest {
	return TransferRequest{
		Direction: SourceToTarget,
		Token:     TokenReference{Chain: "eth", Address: addrT, Semantics: sem},
		Sender:    addrA,
		Recipient: addrB,
		Items:     items,
	}
}

func TestTransferRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  TransferRequest
		ok   bool
	}{
		{"fungible ok", validRequest(Fungible, TransferItem{Amount: big.NewInt(40)}), true},
		{"fungible zero amount", validRequest(Fungible, TransferItem{Amount: big.NewInt(0)}), false},
		{"fungible negative amount", validRequest(Fungible, TransferItem{Amount: big.NewInt(-1)}), false},
		{"fungible with id", validRequest(Fungible, TransferItem{ID: big.NewInt(1), Amount: big.NewInt(1)}), false},
		{"fungible two amounts", validRequest(Fungible, TransferItem{Amount: big.NewInt(1)}, TransferItem{Amount: big.NewInt(1)}), false},
		{"nft ok", validRequest(NonFungible, TransferItem{ID: big.NewInt(7)}), true},
		{"nft missing id", validRequest(NonFungible, TransferItem{}), false},
		{"nft amount two", validRequest(NonFungible, TransferItem{ID: big.NewInt(7), Amount: big.NewInt(2)}), false},
		{"nft duplicate id", validRequest(NonFungible, TransferItem{ID: big.NewInt(7)}, TransferItem{ID: big.NewInt(7)}), false},
		{"semi ok", validRequest(SemiFungible, TransferItem{ID: big.NewInt(1), Amount: big.NewInt(5)}), true},
		{"semi missing amount", validRequest(SemiFungible, TransferItem{ID: big.NewInt(1)}), false},
		{"no items", validRequest(Fungible), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.req.Validate()
			if c.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrValidation)
			}
		})
	}

	t.Run("addresses", func(t *testing.T) {
		req := validRequest(Fungible, TransferItem{Amount: big.NewInt(1)})
		req.Sender = ""
		require.ErrorIs(t, req.Validate(), ErrValidation)

		req = validRequest(Fungible, TransferItem{Amount: big.NewInt(1)})
		req.Recipient = "0x0000000000000000000000000000000000000000"
		require.ErrorIs(t, req.Validate(), ErrValidation)

		req = validRequest(Fungible, TransferItem{Amount: big.NewInt(1)})
		req.Token.Address = "not-an-address"
		require.ErrorIs(t, req.Validate(), ErrValidation)
	})

	t.Run("fee options", func(t *testing.T) {
		req := validRequest(Fungible, TransferItem{Amount: big.NewInt(1)})
		req.SourceOptions = &TransactionOptions{GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(2)}
		require.ErrorIs(t, req.Validate(), ErrValidation)
	})
}

func TestNewBatchItems(t *testing.T) {
	_, err := NewBatchItems([]*big.Int{big.NewInt(1), big.NewInt(2)}, []*big.Int{big.NewInt(5)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewBatchItems(nil, nil)
	require.ErrorIs(t, err, ErrValidation)

	items, err := NewBatchItems([]*big.Int{big.NewInt(1), big.NewInt(2)}, []*big.Int{big.NewInt(5), big.NewInt(6)})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, int64(6), items[1].Amount.Int64())
}

func TestParseTokenID(t *testing.T) {
	id, err := ParseTokenID("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id.Int64())

	id, err = ParseTokenID("0x10")
	require.NoError(t, err)
	require.Equal(t, int64(16), id.Int64())

	for _, bad := range []string{"", "-1", "abc", "1.5"} {
		_, err := ParseTokenID(bad)
		require.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestBridgeError(t *testing.T) {
	cause := errors.New("reverted")
	err := WrapError(ErrMintOrUnlockFailed, "0xabc", cause)

	require.ErrorIs(t, err, ErrMintOrUnlockFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "0xabc", ReceiptIDOf(err))
	require.Contains(t, err.Error(), "receipt 0xabc")

	// an already typed error keeps its kind and gains the receipt id
	typed := NewError(ErrConfirmationTimeout, "waited too long")
	err = WrapError(ErrMintOrUnlockFailed, "0xdef", fmt.Errorf("step: %w", typed))
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.NotErrorIs(t, err, ErrMintOrUnlockFailed)
	require.Equal(t, "0xdef", ReceiptIDOf(err))
}

func TestStateReached(t *testing.T) {
	require.True(t, StateMinted.Reached(StateAwaitingConfirmation))
	require.True(t, StateBurned.Reached(StateLocked))
	require.False(t, StateApproved.Reached(StateLocked))
	require.False(t, StateFailed.Reached(StateInitiated))

	op := &BridgeOperation{State: StateFailed, FailedState: StateAwaitingConfirmation}
	require.Equal(t, StateAwaitingConfirmation, op.ResumeState())
}

func TestParseSemanticsAndDirection(t *testing.T) {
	s, err := ParseTransferSemantics("ERC1155")
	require.NoError(t, err)
	require.Equal(t, SemiFungible, s)

	_, err = ParseTransferSemantics("erc4626")
	require.ErrorIs(t, err, ErrValidation)

	d, err := ParseDirection("t2s")
	require.NoError(t, err)
	require.Equal(t, TargetToSource, d)
}
