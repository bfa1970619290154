// Package llm wraps the Gemini API behind the small chat-session surface the
// orchestration layer needs, so services can be tested against stubs.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Message is one turn of model-ready history. Role uses the backend
// vocabulary: "user" or "model".
type Message struct {
	Role string
	Text string
}

// Client opens chat sessions against the generative backend.
type Client interface {
	StartChat(ctx context.Context, history []Message, systemInstruction string) (Session, error)
}

// Session is a single conversation with the model. A session makes one
// attempt per call; retry policy belongs to callers.
type Session interface {
	// Send sends a message and returns the full response text.
	Send(ctx context.Context, message string) (string, error)
	// SendStream sends a message and invokes onChunk for every partial-text
	// chunk in arrival order. A non-nil onChunk error aborts the stream.
	SendStream(ctx context.Context, message string, onChunk func(text string) error) error
}

// GeminiClient implements Client on top of google.golang.org/genai.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed client for the given model.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

// StartChat opens a chat session seeded with the given history and system
// instruction.
func (g *GeminiClient) StartChat(ctx context.Context, history []Message, systemInstruction string) (Session, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		contents = append(contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}

	cfg := &genai.GenerateContentConfig{
		SafetySettings: safetySettings(),
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	chat, err := g.client.Chats.Create(ctx, g.model, cfg, contents)
	if err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}
	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) Send(ctx context.Context, message string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.Text(), nil
}

func (s *geminiSession) SendStream(ctx context.Context, message string, onChunk func(text string) error) error {
	for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: message}) {
		if err != nil {
			return fmt.Errorf("stream message: %w", err)
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		if err := onChunk(text); err != nil {
			return err
		}
	}
	return nil
}
