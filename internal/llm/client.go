// Package llm is the generative model gateway. It speaks the OpenAI API via
// the official-compatible SDK, so the same client works against OpenAI,
// vLLM, Ollama, or any other OpenAI-compatible server by overriding the base
// URL.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/cloud-companion/cloud-companion/internal/telemetry"
)

// systemPersona is the fixed system prompt prepended to every completion.
const systemPersona = "You are Cloud Companion, an AI assistant that helps users understand and troubleshoot their cloud infrastructure."

// groundingInstruction frames retrieved resource context for the model.
const groundingInstruction = "Use the following information about the user's cloud resources to answer their question. If the information is not relevant, answer from general knowledge and say so.\n\n"

// Message is one turn of model context.
type Message struct {
	Role    string
	Content string
}

// Config holds the model backend settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

// Client is the model gateway shared by the chat engine and the ingestor.
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
}

// New builds the gateway. Local OpenAI-compatible servers accept any key, so
// an empty APIKey gets a placeholder rather than failing.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := cfg.MaxTokens
	if maxTokens < 1 {
		maxTokens = 2048
	}

	return &Client{
		api:            openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    temperature,
		maxTokens:      maxTokens,
	}, nil
}

// Complete generates one assistant reply. The persona is always the first
// system message; when grounding is non-empty it is appended as a second
// system message so resource context never mingles with user text.
// Temperature and token limits are fixed from configuration, not caller
// controlled.
func (c *Client) Complete(ctx context.Context, messages []Message, grounding string) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+2)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPersona,
	})
	if grounding != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: groundingInstruction + grounding,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	telemetry.ModelRequestDuration.WithLabelValues("complete").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embeddingModel == "" {
		return nil, fmt.Errorf("no embedding model configured")
	}

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	telemetry.ModelRequestDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return resp.Data[0].Embedding, nil
}

// Healthy probes the backend with a one-token completion. It returns false
// on any error rather than propagating, so probes never fail a request path.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err == nil
}
