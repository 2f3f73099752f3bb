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
	openaiEnvKey  = "OPENAI_API_KEY"
	openaiBaseURL = "https://api.openai.com/v1"
)

// Context windows are not part of the list response; known prefixes
// are mapped, everything else gets a conservative default.
var openaiContextLengths = map[string]int{
	"gpt-4o":        128000,
	"gpt-4-turbo":   128000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,
}

func init() {
	RegisterFactory("openai", func(s Settings) (Provider, error) {
		return NewOpenAIProvider(s), nil
	})
}

// OpenAIProvider forwards chat requests to the OpenAI chat completions API.
type OpenAIProvider struct {
	*BaseProvider
	apiKey  string
	baseURL string
}

func NewOpenAIProvider(s Settings) *OpenAIProvider {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = openaiBaseURL
	}
	displayName := s.DisplayName
	if displayName == "" {
		displayName = "OpenAI"
	}

	return &OpenAIProvider{
		BaseProvider: NewBaseProvider(s.ID, displayName, "openai", s.Timeout),
		baseURL:      baseURL,
	}
}

func (p *OpenAIProvider) Initialize(ctx context.Context) error {
	apiKey := os.Getenv(openaiEnvKey)
	if apiKey == "" {
		return fmt.Errorf("%s is not set", openaiEnvKey)
	}
	p.apiKey = apiKey
	return nil
}

func (p *OpenAIProvider) CheckHealth(ctx context.Context) bool {
	return p.apiKey != ""
}

type openaiModelList struct {
	Data []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAIProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("provider not initialized")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return nil, fmt.Errorf("openai API error: %s", openaiErrorMessage(body, resp.StatusCode))
	}

	var list openaiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	var models []ModelInfo
	for _, m := range list.Data {
		// The catalog mixes chat models with embeddings, audio and
		// image models; only chat-capable families are useful here.
		if !strings.HasPrefix(m.ID, "gpt-") && !strings.HasPrefix(m.ID, "o1") && !strings.HasPrefix(m.ID, "o3") {
			continue
		}
		models = append(models, ModelInfo{
			ID:                m.ID,
			Name:              m.ID,
			Provider:          p.DisplayName(),
			ContextLength:     openaiContextLength(m.ID),
			SupportsStreaming: true,
		})
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("openai API returned no chat models")
	}
	return models, nil
}

func openaiContextLength(modelID string) int {
	for prefix, length := range openaiContextLengths {
		if strings.HasPrefix(modelID, prefix) {
			return length
		}
	}
	return 8192
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiStreamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (<-chan StreamChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("provider not initialized")
	}

	turns := make([]openaiMessage, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, openaiMessage{Role: string(m.Role), Content: m.Content})
	}

	reqBody, err := json.Marshal(openaiChatRequest{
		Model:       modelID,
		Messages:    turns,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("openai API error: %s", openaiErrorMessage(body, resp.StatusCode))
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		p.parseStream(ctx, resp.Body, out)
	}()

	return out, nil
}

// parseStream reads the SSE body, forwarding content deltas until the
// [DONE] sentinel.
func (p *OpenAIProvider) parseStream(ctx context.Context, body io.Reader, out chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return
		}

		var chunk openaiStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			select {
			case out <- StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		sendErr(ctx, out, fmt.Errorf("failed to read stream: %w", err))
	}
}

func openaiErrorMessage(body []byte, status int) string {
	var apiErr openaiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return fmt.Sprintf("request failed with status %d", status)
}
