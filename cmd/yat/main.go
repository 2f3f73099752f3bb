package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frankjeworrek-lab/yat/cmd/yat/commands"
)

var (
	apiURL     string
	outputJSON bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yat",
		Short: "yat management CLI",
		Long: `Command line companion for a running yat daemon.
Lists providers and models and runs one-shot chat requests against the local API.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commands.SetAPIConfig(apiURL)
			commands.SetOutputJSON(outputJSON)
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://127.0.0.1:8080", "base URL of the yat daemon")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	rootCmd.AddCommand(commands.NewProvidersCommand())
	rootCmd.AddCommand(commands.NewModelsCommand())
	rootCmd.AddCommand(commands.NewChatCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
