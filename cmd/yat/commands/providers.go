package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type providerListResponse struct {
	Providers []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		Enabled    bool   `json:"enabled"`
		Status     string `json:"status"`
		InitError  string `json:"init_error,omitempty"`
		Registered bool   `json:"registered"`
	} `json:"providers"`
	ActiveProvider string `json:"active_provider"`
	ActiveModel    string `json:"active_model"`
}

// NewProvidersCommand lists configured providers and their status.
func NewProvidersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers",
		Long:  "List configured providers with their enabled state and runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp providerListResponse
			if err := getJSON("/v1/providers", &resp); err != nil {
				return err
			}

			if outputJSON {
				return printJSON(resp)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tERROR")
			for _, p := range resp.Providers {
				marker := ""
				if p.ID == resp.ActiveProvider {
					marker = " *"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n",
					p.ID, marker, p.Name, p.Type, p.Status, p.InitError)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if resp.ActiveProvider != "" {
				fmt.Printf("\nActive: %s / %s\n", resp.ActiveProvider, resp.ActiveModel)
			}
			return nil
		},
	}

	cmd.AddCommand(newProviderEnableCommand(true))
	cmd.AddCommand(newProviderEnableCommand(false))
	return cmd
}

func newProviderEnableCommand(enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable a provider"
	if !enable {
		use, short = "disable <id>", "Disable a provider"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "enable"
			if !enable {
				action = "disable"
			}
			resp, err := apiRequest("POST", fmt.Sprintf("/v1/providers/%s/%s", args[0], action), nil)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != 200 {
				return fmt.Errorf("request failed with status %d", resp.StatusCode)
			}
			fmt.Printf("Provider %s %sd\n", args[0], action)
			return nil
		},
	}
}
