package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/frankjeworrek-lab/yat/internal/metrics"
	"github.com/frankjeworrek-lab/yat/internal/providers"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type chatRequest struct {
	Provider    string              `json:"provider,omitempty"`
	Model       string              `json:"model,omitempty"`
	Messages    []providers.Message `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream"`
}

type chatResponse struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
}

type streamDelta struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

// ChatCompletions forwards one chat request to the selected provider.
// With stream=true the reply is sent as SSE text deltas; otherwise the
// full text is collected into a single JSON response.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		h.sendError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	providerID, modelID := h.resolveTarget(&req)
	if providerID == "" {
		h.sendError(w, http.StatusNotFound, "no provider selected and no default configured")
		return
	}
	if modelID == "" {
		h.sendError(w, http.StatusBadRequest, "no model selected and no default configured")
		return
	}

	p, err := h.manager.Get(providerID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}

	opts := providers.ChatOptions{
		Temperature: h.chatCfg.DefaultTemperature,
		MaxTokens:   h.chatCfg.DefaultMaxTokens,
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		opts.MaxTokens = *req.MaxTokens
	}

	id := "chat-" + uuid.NewString()
	start := time.Now()

	ctx := r.Context()
	if h.chatCfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.chatCfg.RequestTimeout)
		defer cancel()
	}

	stream, err := p.StreamChat(ctx, modelID, req.Messages, opts)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(providerID, "error").Inc()
		h.logger.Error("Failed to start chat stream",
			zap.String("provider", providerID),
			zap.String("model", modelID),
			zap.Error(err))
		h.sendError(w, http.StatusBadGateway, err.Error())
		return
	}

	if req.Stream {
		h.streamChat(w, r, id, providerID, modelID, stream, start)
		return
	}

	var sb strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			metrics.ChatRequests.WithLabelValues(providerID, "error").Inc()
			h.sendError(w, http.StatusBadGateway, chunk.Err.Error())
			return
		}
		sb.WriteString(chunk.Text)
	}

	metrics.ChatRequests.WithLabelValues(providerID, "ok").Inc()
	h.writeJSON(w, http.StatusOK, chatResponse{
		ID:       id,
		Provider: providerID,
		Model:    modelID,
		Content:  sb.String(),
	})
}

func (h *Handler) resolveTarget(req *chatRequest) (providerID, modelID string) {
	providerID = req.Provider
	modelID = req.Model
	activeProvider, activeModel := h.manager.Active()
	if providerID == "" {
		providerID = activeProvider
		if modelID == "" {
			modelID = activeModel
		}
	}
	return providerID, modelID
}

func (h *Handler) streamChat(w http.ResponseWriter, r *http.Request, id, providerID, modelID string, stream <-chan providers.StreamChunk, start time.Time) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("Streaming not supported by response writer",
			zap.String("writer_type", fmt.Sprintf("%T", w)))
		h.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	chunks := 0
	for chunk := range stream {
		if chunk.Err != nil {
			metrics.ChatRequests.WithLabelValues(providerID, "error").Inc()
			data, _ := json.Marshal(map[string]string{"error": chunk.Err.Error()})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			return
		}

		data, err := json.Marshal(streamDelta{ID: id, Delta: chunk.Text})
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client disconnected
			h.logger.Debug("Client disconnected during streaming",
				zap.String("provider", providerID))
			metrics.ChatRequests.WithLabelValues(providerID, "cancelled").Inc()
			return
		}
		flusher.Flush()
		chunks++
		metrics.StreamChunks.WithLabelValues(providerID).Inc()
	}

	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()

	metrics.ChatRequests.WithLabelValues(providerID, "ok").Inc()
	h.logger.Info("Chat stream completed",
		zap.String("provider", providerID),
		zap.String("model", modelID),
		zap.Int("chunks", chunks),
		zap.Duration("duration", time.Since(start)))
}
