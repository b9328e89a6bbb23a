package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// systemPrompt instructs the model to behave like a conventional NER
// tagger and emit machine-readable output only.
const systemPrompt = `You are a named-entity recognition tagger.
Given a document, list every named entity in the order it first appears.
Use these labels: GPE (countries, cities, states), LOC (non-GPE locations),
FAC (buildings, airports, highways), NORP (nationalities, religious or
political groups), ORG (organizations), PERSON, DATE, TIME, MONEY,
QUANTITY, CARDINAL.
Respond with a JSON array only, no prose and no code fences:
[{"label":"GPE","text":"Delhi"},...]
An empty document yields [].`

// OpenAIExtractor implements Extractor on the chat-completions API.
// Any OpenAI-compatible endpoint works via Config.BaseURL.
type OpenAIExtractor struct {
	client *openai.Client
	config Config
}

// Config holds extractor configuration.
type Config struct {
	APIKey    string
	Model     string // default: gpt-4o-mini
	BaseURL   string // optional override for compatible endpoints
	MaxTokens int    // default: 2000
	Timeout   time.Duration
}

// NewOpenAIExtractor creates a new chat-completions backed extractor.
func NewOpenAIExtractor(config Config) (*OpenAIExtractor, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIExtractor{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name.
func (e *OpenAIExtractor) Name() string {
	return "openai"
}

// Extract tags named entities in text, preserving first-appearance order.
func (e *OpenAIExtractor) Extract(ctx context.Context, text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	model := e.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := e.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	timeout := e.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.0, // deterministic tagging, not generation
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	return parseSpans(resp.Choices[0].Message.Content)
}

// parseSpans decodes the model output into spans. Models occasionally
// wrap JSON in code fences despite instructions; strip them first.
func parseSpans(content string) ([]Span, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var spans []Span
	if err := json.Unmarshal([]byte(content), &spans); err != nil {
		return nil, fmt.Errorf("malformed extractor output: %w", err)
	}

	// Drop empty spans rather than failing the whole document
	out := spans[:0]
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" || strings.TrimSpace(s.Label) == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
