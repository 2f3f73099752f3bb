package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type modelListResponse struct {
	Models []struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		Provider          string `json:"provider"`
		ContextLength     int    `json:"context_length"`
		SupportsStreaming bool   `json:"supports_streaming"`
	} `json:"models"`
}

// NewModelsCommand lists the models of all providers, or of one.
func NewModelsCommand() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Long:  "List models offered by all registered providers, or by a single one",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := "/v1/models"
			if providerID != "" {
				endpoint = fmt.Sprintf("/v1/providers/%s/models", providerID)
			}

			var resp modelListResponse
			if err := getJSON(endpoint, &resp); err != nil {
				return err
			}

			if outputJSON {
				return printJSON(resp)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tCONTEXT")
			for _, m := range resp.Models {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.ID, m.Name, m.Provider, m.ContextLength)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "list models of this provider only")
	return cmd
}
