package http

import (
	"context"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
	"github.com/draftpilot/draftpilot-backend/internal/projects/service"
)

// ChatStreamer executes one streamed chat turn.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req service.ChatRequest, emit func(cumulative string) error) error
}

// ArtifactGenerator synthesizes and persists a step artifact.
type ArtifactGenerator interface {
	GenerateForStep(ctx context.Context, userID, projectID, stepID string) (*domain.Artifact, error)
}

// ExampleGenerator produces and persists example replies for a step.
type ExampleGenerator interface {
	GenerateForStep(ctx context.Context, userID, projectID, stepID string) ([]string, error)
}

// ProjectReader serves the thin project/step read endpoints.
type ProjectReader interface {
	GetProject(ctx context.Context, userID, projectID string) (*domain.Project, error)
	GetProjectSteps(ctx context.Context, userID, projectID string) ([]domain.ProjectStep, error)
}

// Handler bundles the dependencies for the chat and project HTTP endpoints.
type Handler struct {
	chat      ChatStreamer
	artifacts ArtifactGenerator
	examples  ExampleGenerator
	reader    ProjectReader
}

func New(chat ChatStreamer, artifacts ArtifactGenerator, examples ExampleGenerator, reader ProjectReader) *Handler {
	return &Handler{
		chat:      chat,
		artifacts: artifacts,
		examples:  examples,
		reader:    reader,
	}
}
