package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/YoshitsuguKoike/llmhelper/internal/app"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

// LLMGateway implements CompletionGateway over a langchaingo model
type LLMGateway struct {
	model    llms.Model
	provider string
}

// NewLLMGateway wraps an already constructed model
func NewLLMGateway(model llms.Model, provider string) *LLMGateway {
	return &LLMGateway{model: model, provider: provider}
}

// Provider returns the provider name
func (g *LLMGateway) Provider() string {
	return g.provider
}

// Stream sends the conversation and forwards each streamed chunk to onChunk
func (g *LLMGateway) Stream(ctx context.Context, req output.CompletionRequest, onChunk func(chunk string) error) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("completion request has no messages")
	}

	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role, err := messageType(msg.Role)
		if err != nil {
			return "", err
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}

	var received strings.Builder
	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			received.Write(chunk)
			if onChunk != nil {
				return onChunk(string(chunk))
			}
			return nil
		}),
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}

	app.GetLogger().Debug("completion request: provider=%s model=%s messages=%d", g.provider, req.Model, len(messages))

	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// keep what arrived before the cancellation
		return received.String(), ctxErr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return received.String(), err
		}
		return "", fmt.Errorf("%s completion failed: %w", g.provider, err)
	}

	if received.Len() > 0 {
		return received.String(), nil
	}
	// providers that ignore the streaming func still return the full text
	if resp != nil && len(resp.Choices) > 0 {
		text := resp.Choices[0].Content
		if onChunk != nil && text != "" {
			if err := onChunk(text); err != nil {
				return text, err
			}
		}
		return text, nil
	}
	return "", nil
}

func messageType(role output.Role) (llms.ChatMessageType, error) {
	switch role {
	case output.RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	case output.RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case output.RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	default:
		return "", fmt.Errorf("unknown message role: %s", role)
	}
}
