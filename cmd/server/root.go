package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	configFlag     = "config"
	configFlagDesc = "path to config yml file, environment variables prefixed BRIDGE_ override it"
)

type RootCommand struct {
	baseCmd    *cobra.Command
	configPath string
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:           "gotokenbridge",
			Short:         "cross-chain token bridge service",
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}

	rootCommand.baseCmd.PersistentFlags().StringVar(&rootCommand.configPath, configFlag, "config.yml", configFlagDesc)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		getServeCommand(&rc.configPath),
		getBridgeCommand(&rc.configPath),
		getResumeCommand(&rc.configPath),
		getMappingCommand(&rc.configPath),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}

func writeResult(cmd *cobra.Command, result interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}
