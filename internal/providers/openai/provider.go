package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/viab/viab-backend/internal/config"
	"github.com/viab/viab-backend/internal/providers"
)

// Provider implements the completion service over the OpenAI chat API.
// Image and document attachments are passed as data-URL content parts, which
// OpenAI-compatible vision endpoints accept.
type Provider struct {
	role   string
	config config.AgentConfig
	client *openai.Client
}

// NewProvider creates a provider for one agent role.
func NewProvider(role string, cfg config.AgentConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		role:   role,
		config: cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return fmt.Sprintf("openai/%s", p.role)
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	if p.config.APIKey == "" {
		return errors.New("API key is required")
	}
	if p.config.Model == "" {
		return errors.New("model is required")
	}
	return nil
}

// Complete performs a non-streaming completion
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	openAIReq := p.convertRequest(req)
	openAIReq.Stream = false

	resp, err := p.client.CreateChatCompletion(ctx, openAIReq)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	return &providers.CompletionResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// StreamComplete performs a streaming completion
func (p *Provider) StreamComplete(ctx context.Context, req providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	chunks := make(chan providers.StreamChunk)

	go func() {
		defer close(chunks)

		openAIReq := p.convertRequest(req)
		openAIReq.Stream = true

		stream, err := p.client.CreateChatCompletionStream(ctx, openAIReq)
		if err != nil {
			chunks <- providers.StreamChunk{Error: err.Error()}
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- providers.StreamChunk{FinishReason: "stop"}
				return
			}
			if err != nil {
				chunks <- providers.StreamChunk{Error: err.Error()}
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			chunk := providers.StreamChunk{
				ID:    response.ID,
				Model: response.Model,
				Delta: choice.Delta.Content,
			}
			if choice.FinishReason != "" {
				chunk.FinishReason = string(choice.FinishReason)
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

func (p *Provider) convertRequest(req providers.CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	// Attachments ride on the last user message as multimodal parts.
	if len(req.Attachments) > 0 {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role != openai.ChatMessageRoleUser {
				continue
			}
			parts := []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: messages[i].Content},
			}
			for _, att := range req.Attachments {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(att),
						Detail: openai.ImageURLDetailAuto,
					},
				})
			}
			messages[i].Content = ""
			messages[i].MultiContent = parts
			break
		}
	}

	openAIReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}

	if req.Temperature != nil {
		openAIReq.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		openAIReq.MaxTokens = *req.MaxTokens
	}
	if req.UserID != "" {
		openAIReq.User = req.UserID
	}

	return openAIReq
}

func dataURL(att providers.Attachment) string {
	mime := att.MimeType
	if mime == "" {
		if att.Kind == providers.AttachmentDocument {
			mime = "application/pdf"
		} else {
			mime = "image/png"
		}
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(att.Data))
}
