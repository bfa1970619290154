package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftpilot/draftpilot-backend/internal/llm"
	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
	"github.com/draftpilot/draftpilot-backend/internal/projects/prompt"
)

// turnFailureMessage replaces the pending assistant turn when composition or
// streaming fails, so the UI never shows a silently empty reply.
const turnFailureMessage = "エラーが発生しました。もう一度お試しください。"

// ChatService drives one full user-message turn: persist the turn, stream
// the model response and fire the post-turn generation triggers.
type ChatService struct {
	store     Store
	llm       llm.Client
	artifacts *ArtifactService
	examples  *ExampleService

	// Conversation count at which a completed turn triggers artifact
	// synthesis for the step.
	artifactThreshold int
}

// NewChatService creates a new chat service.
func NewChatService(store Store, llmClient llm.Client, artifacts *ArtifactService, examples *ExampleService, artifactThreshold int) *ChatService {
	return &ChatService{
		store:             store,
		llm:               llmClient,
		artifacts:         artifacts,
		examples:          examples,
		artifactThreshold: artifactThreshold,
	}
}

// ChatRequest contains the parameters of one chat turn.
type ChatRequest struct {
	UserID    string
	ProjectID string
	StepID    string
	Message   string
}

// StreamChat executes one turn. emit is called once per received chunk with
// the cumulative text so far; the same contract the SSE channel exposes to
// clients, so a missed event is recovered by the next one.
func (s *ChatService) StreamChat(ctx context.Context, req ChatRequest, emit func(cumulative string) error) error {
	if strings.TrimSpace(req.UserID) == "" ||
		strings.TrimSpace(req.ProjectID) == "" ||
		strings.TrimSpace(req.StepID) == "" ||
		strings.TrimSpace(req.Message) == "" {
		return domain.ErrInvalidParams
	}

	sc, err := resolveStepContext(ctx, s.store, req.UserID, req.ProjectID, req.StepID)
	if err != nil {
		return err
	}

	// Persist the user turn, then an empty assistant placeholder. The
	// placeholder reserves the ordering slot so the UI can key a pending
	// indicator by its id before any token arrives.
	userTurn := domain.Conversation{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   req.Message,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendConversation(ctx, req.UserID, req.ProjectID, req.StepID, userTurn); err != nil {
		return err
	}

	placeholder := domain.Conversation{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   "",
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendConversation(ctx, req.UserID, req.ProjectID, req.StepID, placeholder); err != nil {
		return err
	}

	instruction := prompt.ComposeSystemInstruction(prompt.Input{
		TemplateStep:  sc.templateStep,
		TemplateSteps: sc.template.Steps,
		ProjectSteps:  sc.projectSteps,
		CurrentStep:   sc.current,
	})
	history := prompt.BuildHistory(sc.templateStep.FirstMessageTemplate, sc.current.Conversations)

	session, err := s.llm.StartChat(ctx, history, instruction)
	if err != nil {
		s.failTurn(ctx, req, placeholder.ID, err)
		return err
	}

	var full strings.Builder
	err = session.SendStream(ctx, req.Message, func(chunk string) error {
		full.WriteString(chunk)
		return emit(full.String())
	})
	if err != nil {
		s.failTurn(ctx, req, placeholder.ID, err)
		return err
	}

	if err := s.store.SetConversationContent(ctx, req.UserID, req.ProjectID, req.StepID, placeholder.ID, full.String()); err != nil {
		s.failTurn(ctx, req, placeholder.ID, err)
		return err
	}

	s.fireTurnTriggers(ctx, req, len(sc.current.Conversations)+2)
	return nil
}

// failTurn overwrites the placeholder with the fixed apology. Best effort:
// the turn is already failed, a second failure here only gets logged.
func (s *ChatService) failTurn(ctx context.Context, req ChatRequest, placeholderID string, cause error) {
	slog.Error("chat turn failed",
		"user_id", req.UserID,
		"project_id", req.ProjectID,
		"step_id", req.StepID,
		"error", cause)

	// The request context may already be canceled (client gone mid-stream);
	// the apology write still has to land.
	if err := s.store.SetConversationContent(context.WithoutCancel(ctx), req.UserID, req.ProjectID, req.StepID, placeholderID, turnFailureMessage); err != nil {
		slog.Error("failed to persist turn failure message",
			"step_id", req.StepID, "conversation_id", placeholderID, "error", err)
	}
}

// fireTurnTriggers launches the post-turn side effects: artifact synthesis
// once the step's conversation count reaches the threshold, and fresh example
// replies on every completed turn. Both run detached from the request; their
// failure never alters the turn outcome and they carry no mutual ordering.
func (s *ChatService) fireTurnTriggers(ctx context.Context, req ChatRequest, conversationCount int) {
	bg := context.WithoutCancel(ctx)

	if conversationCount >= s.artifactThreshold {
		go func() {
			if _, err := s.artifacts.GenerateForStep(bg, req.UserID, req.ProjectID, req.StepID); err != nil {
				slog.Warn("post-turn artifact synthesis failed",
					"project_id", req.ProjectID, "step_id", req.StepID, "error", err)
			}
		}()
	}

	go func() {
		if _, err := s.examples.GenerateForStep(bg, req.UserID, req.ProjectID, req.StepID); err != nil {
			slog.Warn("post-turn example generation failed",
				"project_id", req.ProjectID, "step_id", req.StepID, "error", err)
		}
	}()
}
