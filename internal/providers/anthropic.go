package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	anthropicEnvKey     = "ANTHROPIC_API_KEY"
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicAPIVersion = "2023-06-01"

	// Anthropic's list endpoint does not report context windows.
	anthropicContextLength = 200000
)

func init() {
	RegisterFactory("anthropic", func(s Settings) (Provider, error) {
		return NewAnthropicProvider(s), nil
	})
}

// AnthropicProvider forwards chat requests to the Anthropic Messages API.
type AnthropicProvider struct {
	*BaseProvider
	apiKey  string
	baseURL string
}

func NewAnthropicProvider(s Settings) *AnthropicProvider {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	displayName := s.DisplayName
	if displayName == "" {
		displayName = "Anthropic"
	}

	return &AnthropicProvider{
		BaseProvider: NewBaseProvider(s.ID, displayName, "anthropic", s.Timeout),
		baseURL:      baseURL,
	}
}

func (p *AnthropicProvider) Initialize(ctx context.Context) error {
	apiKey := os.Getenv(anthropicEnvKey)
	if apiKey == "" {
		return fmt.Errorf("%s is not set", anthropicEnvKey)
	}
	p.apiKey = apiKey
	return nil
}

func (p *AnthropicProvider) CheckHealth(ctx context.Context) bool {
	return p.apiKey != ""
}

type anthropicModelList struct {
	Data []struct {
		Type        string `json:"type"`
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Models lists models with a live API call so an invalid key is
// detected immediately rather than on the first chat request.
func (p *AnthropicProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("provider not initialized")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API error: %s", apiErrorMessage(body, resp.StatusCode))
	}

	var list anthropicModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	var models []ModelInfo
	for _, m := range list.Data {
		if m.Type != "model" {
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		models = append(models, ModelInfo{
			ID:                m.ID,
			Name:              name,
			Provider:          p.DisplayName(),
			ContextLength:     anthropicContextLength,
			SupportsStreaming: true,
		})
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("anthropic API returned no models")
	}
	return models, nil
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AnthropicProvider) StreamChat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (<-chan StreamChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("provider not initialized")
	}

	system, rest := SplitSystem(messages)
	turns := make([]anthropicMessage, 0, len(rest))
	for _, m := range rest {
		turns = append(turns, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	reqBody, err := json.Marshal(anthropicChatRequest{
		Model:       modelID,
		Messages:    turns,
		System:      system,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("anthropic API error: %s", apiErrorMessage(body, resp.StatusCode))
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		p.parseStream(ctx, resp.Body, out)
	}()

	return out, nil
}

func (p *AnthropicProvider) parseStream(ctx context.Context, body io.Reader, out chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				select {
				case out <- StreamChunk{Text: event.Delta.Text}:
				case <-ctx.Done():
					return
				}
			}
		case "error":
			sendErr(ctx, out, fmt.Errorf("anthropic stream error: %s", event.Error.Message))
			return
		case "message_stop":
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		sendErr(ctx, out, fmt.Errorf("failed to read stream: %w", err))
	}
}

func (p *AnthropicProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

func apiErrorMessage(body []byte, status int) string {
	var apiErr anthropicError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func sendErr(ctx context.Context, out chan<- StreamChunk, err error) {
	select {
	case out <- StreamChunk{Err: err}:
	case <-ctx.Done():
	}
}
