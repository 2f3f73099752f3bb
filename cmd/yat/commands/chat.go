package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewChatCommand runs a one-shot prompt against the daemon, streaming
// the reply to stdout.
func NewChatCommand() *cobra.Command {
	var providerID, modelID, system string
	var temperature float64
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Send a chat prompt",
		Long:  "Send a single prompt to the active (or chosen) provider and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			messages := []map[string]string{}
			if system != "" {
				messages = append(messages, map[string]string{"role": "system", "content": system})
			}
			messages = append(messages, map[string]string{"role": "user", "content": prompt})

			body := map[string]interface{}{
				"messages": messages,
				"stream":   true,
			}
			if providerID != "" {
				body["provider"] = providerID
			}
			if modelID != "" {
				body["model"] = modelID
			}
			if cmd.Flags().Changed("temperature") {
				body["temperature"] = temperature
			}
			if cmd.Flags().Changed("max-tokens") {
				body["max_tokens"] = maxTokens
			}

			resp, err := apiRequest(http.MethodPost, "/v1/chat/completions", body)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				raw, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("chat failed with status %d: %s", resp.StatusCode, string(raw))
			}

			return streamToStdout(resp.Body)
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "provider to use (default: daemon's active provider)")
	cmd.Flags().StringVar(&modelID, "model", "", "model to use (default: daemon's active model)")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.7, "sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 2000, "maximum tokens to generate")
	return cmd
}

func streamToStdout(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var event struct {
			Delta string `json:"delta"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if event.Error != "" {
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("stream error: %s", event.Error)
		}
		fmt.Print(event.Delta)
	}
	fmt.Println()
	return scanner.Err()
}
