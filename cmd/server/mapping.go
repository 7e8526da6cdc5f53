package main

import (
	"context"
	"fmt"
	"math/big"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/types"

	"github.com/spf13/cobra"
)

type txResult struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
	Block  uint64 `json:"block"`
}

func waitTx(ctx context.Context, tx EVMRPC.Tx, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("error waiting for tx %s: %w", tx.Hash(), err)
	}

	res := &txResult{Hash: receipt.Hash.Hex(), Status: receipt.Status.String(), Block: receipt.BlockNumber}
	if receipt.Status != EVMRPC.TxConfirmed {
		return res, fmt.Errorf("tx %s %s", receipt.Hash, receipt.Status)
	}

	return res, nil
}

func getMappingCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "inspects and administers origin to wrapped token mappings on the target chain",
	}

	// run opens the app and passes the parsed semantics of args[0] to f
	run := func(f func(ctx context.Context, a *app, semantics types.TransferSemantics, args []string) (interface{}, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			semantics, err := types.ParseTransferSemantics(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(0)
			defer cancel()

			res, err := f(ctx, a, semantics, args[1:])
			if res != nil {
				if werr := writeResult(cmd, res); werr != nil && err == nil {
					err = werr
				}
			}

			return err
		}
	}

	var representativeID string

	register := &cobra.Command{
		Use:   "register <semantics> <origin>",
		Short: "registers the wrapped counterpart of an origin token unless it exists",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, a *app, semantics types.TransferSemantics, args []string) (interface{}, error) {
			var id *big.Int

			if representativeID != "" {
				var err error
				if id, err = types.ParseTokenID(representativeID); err != nil {
					return nil, err
				}
			}

			source, err := a.chains.Source().Token(types.TokenReference{Address: args[0], Semantics: semantics}, nil)
			if err != nil {
				return nil, err
			}

			facade, err := a.chains.Target().Manager(semantics, a.chains.Target().Master())
			if err != nil {
				return nil, err
			}

			wrapped, err := a.resolver.Resolve(ctx, args[0], facade, source, id, nil)
			if err != nil {
				return nil, err
			}

			return &types.AddressMapping{Manager: facade.Address().Hex(), Origin: args[0], Wrapped: wrapped}, nil
		}),
	}
	register.Flags().StringVar(&representativeID, idFlag, "", "token id whose URI is copied to the wrapped token")

	get := &cobra.Command{
		Use:   "get <semantics> <origin>",
		Short: "queries the manager contract for the wrapped token",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, a *app, semantics types.TransferSemantics, args []string) (interface{}, error) {
			facade, err := a.chains.Target().Manager(semantics, nil)
			if err != nil {
				return nil, err
			}

			wrapped, err := facade.Mapping(ctx, args[0])
			if err != nil {
				return nil, err
			}

			if types.IsZeroAddress(wrapped) {
				return nil, fmt.Errorf("token %s: %w", args[0], types.ErrNotFound)
			}

			return &types.AddressMapping{Manager: facade.Address().Hex(), Origin: args[0], Wrapped: wrapped}, nil
		}),
	}

	remove := &cobra.Command{
		Use:   "remove <semantics> <origin>",
		Short: "removes the mapping of an origin token from the manager",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, a *app, semantics types.TransferSemantics, args []string) (interface{}, error) {
			facade, err := a.chains.Target().Manager(semantics, a.chains.Target().Master())
			if err != nil {
				return nil, err
			}

			tx, err := facade.RemoveToken(ctx, args[0], nil)

			return waitTx(ctx, tx, err)
		}),
	}

	ward := func(use, short string, rely bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <semantics> <address>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, a *app, semantics types.TransferSemantics, args []string) (interface{}, error) {
				tm, err := a.chains.Target().TokenManager(semantics, a.chains.Target().Master())
				if err != nil {
					return nil, err
				}

				var tx EVMRPC.Tx
				if rely {
					tx, err = tm.Rely(ctx, args[0], nil)
				} else {
					tx, err = tm.Deny(ctx, args[0], nil)
				}

				return waitTx(ctx, tx, err)
			}),
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "lists the mappings memoised in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			mappings, err := a.store.GetMappings()
			if err != nil {
				return err
			}

			return writeResult(cmd, mappings)
		},
	}

	cmd.AddCommand(
		register, get, remove, list,
		ward("rely", "authorizes an address on the token manager", true),
		ward("deny", "revokes an address on the token manager", false),
	)

	return cmd
}
