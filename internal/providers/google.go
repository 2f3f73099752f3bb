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
	googleEnvKey  = "GOOGLE_API_KEY"
	googleBaseURL = "https://generativelanguage.googleapis.com"
)

func init() {
	RegisterFactory("google", func(s Settings) (Provider, error) {
		return NewGoogleProvider(s), nil
	})
}

// GoogleProvider forwards chat requests to the Gemini REST API.
type GoogleProvider struct {
	*BaseProvider
	apiKey  string
	baseURL string
}

func NewGoogleProvider(s Settings) *GoogleProvider {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	displayName := s.DisplayName
	if displayName == "" {
		displayName = "Google"
	}

	return &GoogleProvider{
		BaseProvider: NewBaseProvider(s.ID, displayName, "google", s.Timeout),
		baseURL:      baseURL,
	}
}

func (p *GoogleProvider) Initialize(ctx context.Context) error {
	apiKey := os.Getenv(googleEnvKey)
	if apiKey == "" {
		return fmt.Errorf("%s is not set", googleEnvKey)
	}
	p.apiKey = apiKey
	return nil
}

func (p *GoogleProvider) CheckHealth(ctx context.Context) bool {
	return p.apiKey != ""
}

type googleModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		InputTokenLimit            int      `json:"inputTokenLimit"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

type googleErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Models lists Gemini models, keeping only those that can generate
// content and stripping the "models/" resource prefix.
func (p *GoogleProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("provider not initialized")
	}

	url := fmt.Sprintf("%s/v1beta/models?pageSize=200&key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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
		return nil, fmt.Errorf("google API error: %s", googleErrorMessage(body, resp.StatusCode))
	}

	var list googleModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	var models []ModelInfo
	for _, m := range list.Models {
		if !supportsGenerateContent(m.SupportedGenerationMethods) {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		name := m.DisplayName
		if name == "" {
			name = id
		}
		models = append(models, ModelInfo{
			ID:                id,
			Name:              name,
			Provider:          p.DisplayName(),
			ContextLength:     m.InputTokenLimit,
			SupportsStreaming: true,
		})
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("google API returned no generative models")
	}
	return models, nil
}

func supportsGenerateContent(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleChatRequest struct {
	Contents          []googleContent `json:"contents"`
	SystemInstruction *googleContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type googleStreamResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

func (p *GoogleProvider) StreamChat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (<-chan StreamChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("provider not initialized")
	}

	system, rest := SplitSystem(messages)

	chatReq := googleChatRequest{}
	chatReq.GenerationConfig.Temperature = opts.Temperature
	chatReq.GenerationConfig.MaxOutputTokens = opts.MaxTokens
	if system != "" {
		chatReq.SystemInstruction = &googleContent{Parts: []googlePart{{Text: system}}}
	}
	for _, m := range rest {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		chatReq.Contents = append(chatReq.Contents, googleContent{
			Role:  role,
			Parts: []googlePart{{Text: m.Content}},
		})
	}

	reqBody, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", p.baseURL, modelID, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("google API error: %s", googleErrorMessage(body, resp.StatusCode))
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		p.parseStream(ctx, resp.Body, out)
	}()

	return out, nil
}

func (p *GoogleProvider) parseStream(ctx context.Context, body io.Reader, out chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var chunk googleStreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			continue
		}
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case out <- StreamChunk{Text: part.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		sendErr(ctx, out, fmt.Errorf("failed to read stream: %w", err))
	}
}

func googleErrorMessage(body []byte, status int) string {
	var apiErr googleErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return fmt.Sprintf("request failed with status %d", status)
}
