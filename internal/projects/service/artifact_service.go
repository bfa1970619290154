package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"

	"github.com/draftpilot/draftpilot-backend/internal/llm"
	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
	"github.com/draftpilot/draftpilot-backend/internal/projects/prompt"
)

// Fixed trailing message that triggers artifact synthesis against the
// replayed conversation.
const artifactTriggerMessage = "これまでの会話の内容を要約し、レポートとしてまとめてください。"

const untitledFallback = "untitled"

// ArtifactService converts a step's conversation into a structured artifact.
type ArtifactService struct {
	store Store
	llm   llm.Client
}

// NewArtifactService creates a new artifact service.
func NewArtifactService(store Store, llmClient llm.Client) *ArtifactService {
	return &ArtifactService{store: store, llm: llmClient}
}

// GenerateForStep resolves the step, synthesizes an artifact from its
// conversation and persists it, overwriting any previous artifact.
func (s *ArtifactService) GenerateForStep(ctx context.Context, userID, projectID, stepID string) (*domain.Artifact, error) {
	if userID == "" || projectID == "" || stepID == "" {
		return nil, domain.ErrInvalidParams
	}

	sc, err := resolveStepContext(ctx, s.store, userID, projectID, stepID)
	if err != nil {
		return nil, err
	}

	artifact, err := s.synthesize(ctx, sc.templateStep, sc.template.Steps, sc.current.Conversations)
	if err != nil {
		return nil, err
	}

	// The write is retried: the artifact itself is already paid for, only
	// the persistence can be transient.
	err = retry.Do(
		func() error {
			ok, err := s.store.UpdateStepArtifact(ctx, userID, projectID, stepID, artifact)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("artifact write rejected")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("persist artifact: %w", err)
	}

	return artifact, nil
}

// synthesize runs the second-pass generation: replay the conversation with a
// report-writing system instruction and parse the JSON object out of the
// response.
func (s *ArtifactService) synthesize(ctx context.Context, templateStep *domain.TemplateStep, templateSteps []domain.TemplateStep, conversations []domain.Conversation) (*domain.Artifact, error) {
	history := make([]llm.Message, 0, len(conversations))
	for _, conv := range conversations {
		if strings.TrimSpace(conv.Content) == "" {
			continue
		}
		history = append(history, llm.Message{Role: conv.Role, Text: conv.Content})
	}

	instruction := s.buildInstruction(templateStep, templateSteps)

	session, err := s.llm.StartChat(ctx, history, instruction)
	if err != nil {
		return nil, fmt.Errorf("start artifact session: %w", err)
	}

	raw, err := session.Send(ctx, artifactTriggerMessage)
	if err != nil {
		return nil, fmt.Errorf("generate artifact: %w", err)
	}

	return parseArtifact(raw)
}

func (s *ArtifactService) buildInstruction(templateStep *domain.TemplateStep, templateSteps []domain.TemplateStep) string {
	var b strings.Builder
	b.WriteString("あなたは会話内容からレポートを作成するアシスタントです。出力は必ず日本語で行ってください。\n\n")
	b.WriteString("以下の形式指示に従ってレポートを作成してください。\n")
	b.WriteString(templateStep.ArtifactGenerationPrompt)
	b.WriteString("\n\n# 全体のステップ構成\n")
	b.WriteString(prompt.StepIndex(templateSteps, templateStep.ID))
	b.WriteString("\n\n現在のステップ (Current Step) の内容のみを対象にしてください。")
	b.WriteString("トップレベルの結果に複数要素の配列を使用しないでください。単一のJSONオブジェクトとして出力してください。")
	return b.String()
}

// parseArtifact extracts and validates the artifact object from raw model
// output. Any missing span or parse error aborts; missing fields fall back.
func parseArtifact(raw string) (*domain.Artifact, error) {
	span, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in artifact response")
	}

	var parsed struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, fmt.Errorf("parse artifact response: %w", err)
	}

	title := parsed.Title
	if title == "" {
		title = untitledFallback
	}

	return &domain.Artifact{
		Title:     title,
		Content:   parsed.Content,
		Summary:   parsed.Summary,
		CharCount: utf8.RuneCountInString(parsed.Content),
	}, nil
}
