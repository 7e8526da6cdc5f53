package main

import (
	"fmt"
	"math/big"
	"time"

	"gotokenbridge/types"

	"github.com/spf13/cobra"
)

const (
	directionFlag = "direction"
	tokenFlag     = "token"
	semanticsFlag = "semantics"
	senderFlag    = "sender"
	recipientFlag = "recipient"
	idFlag        = "id"
	amountFlag    = "amount"
	timeoutFlag   = "timeout"
)

type bridgeParams struct {
	direction string
	token     string
	semantics string
	sender    string
	recipient string
	ids       []string
	amounts   []string
	timeout   time.Duration
}

func (p *bridgeParams) setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.direction, directionFlag, string(types.SourceToTarget), "source_to_target or target_to_source")
	cmd.Flags().StringVar(&p.token, tokenFlag, "", "origin token address on the source chain")
	cmd.Flags().StringVar(&p.semantics, semanticsFlag, string(types.Fungible), "fungible, nonfungible or semifungible")
	cmd.Flags().StringVar(&p.sender, senderFlag, "", "address whose key signs the lock or burn")
	cmd.Flags().StringVar(&p.recipient, recipientFlag, "", "address receiving the tokens on the other chain")
	cmd.Flags().StringSliceVar(&p.ids, idFlag, nil, "token ids, repeat for batches")
	cmd.Flags().StringSliceVar(&p.amounts, amountFlag, nil, "amounts, matching --id for semi-fungible tokens")
	cmd.Flags().DurationVar(&p.timeout, timeoutFlag, 0, "give up after this long, the operation stays resumable")

	_ = cmd.MarkFlagRequired(tokenFlag)
	_ = cmd.MarkFlagRequired(senderFlag)
	_ = cmd.MarkFlagRequired(recipientFlag)
}

func (p *bridgeParams) request() (*types.TransferRequest, error) {
	direction, err := types.ParseDirection(p.direction)
	if err != nil {
		return nil, err
	}

	semantics, err := types.ParseTransferSemantics(p.semantics)
	if err != nil {
		return nil, err
	}

	n := len(p.ids)
	if len(p.amounts) > n {
		n = len(p.amounts)
	}

	items := make([]types.TransferItem, n)

	for i := range items {
		if i < len(p.ids) {
			if items[i].ID, err = types.ParseTokenID(p.ids[i]); err != nil {
				return nil, err
			}
		}

		if i < len(p.amounts) {
			amount, ok := new(big.Int).SetString(p.amounts[i], 0)
			if !ok {
				return nil, types.NewValidationError("amount %q is not an integer", p.amounts[i])
			}

			items[i].Amount = amount
		}
	}

	if semantics == types.SemiFungible && len(p.ids) != len(p.amounts) {
		return nil, types.NewValidationError("%d ids given with %d amounts", len(p.ids), len(p.amounts))
	}

	return &types.TransferRequest{
		Direction: direction,
		Token:     types.TokenReference{Address: p.token, Semantics: semantics},
		Sender:    p.sender,
		Recipient: p.recipient,
		Items:     items,
	}, nil
}

func getBridgeCommand(configPath *string) *cobra.Command {
	params := &bridgeParams{}

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "moves tokens across the bridge and waits for completion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := params.request()
			if err != nil {
				return err
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(params.timeout)
			defer cancel()

			res, err := a.orchestrator.Bridge(ctx, req)
			if err != nil {
				if receipt := types.ReceiptIDOf(err); receipt != "" {
					return fmt.Errorf("%w\nresume with: resume %s", err, receipt)
				}

				return err
			}

			return writeResult(cmd, res)
		},
	}

	params.setFlags(cmd)

	return cmd
}

func getResumeCommand(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resume <receipt-or-request-id>",
		Short: "continues an unfinished operation from its last persisted state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(timeout)
			defer cancel()

			res, err := a.orchestrator.Resume(ctx, args[0])
			if err != nil {
				return err
			}

			return writeResult(cmd, res)
		},
	}

	cmd.Flags().DurationVar(&timeout, timeoutFlag, 0, "give up after this long, the operation stays resumable")

	return cmd
}
