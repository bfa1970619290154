package service

import (
	"context"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

// Store is the persistence surface the orchestration services need. The
// Firestore repository implements it; tests use in-memory fakes. Reads
// return (nil, nil) for missing documents, never an error.
type Store interface {
	GetProject(ctx context.Context, userID, projectID string) (*domain.Project, error)
	GetProjectStep(ctx context.Context, userID, projectID, stepID string) (*domain.ProjectStep, error)
	GetProjectSteps(ctx context.Context, userID, projectID string) ([]domain.ProjectStep, error)
	GetProjectTemplate(ctx context.Context, userID string, project *domain.Project) (*domain.Template, error)

	AppendConversation(ctx context.Context, userID, projectID, stepID string, conv domain.Conversation) error
	SetConversationContent(ctx context.Context, userID, projectID, stepID, conversationID, content string) error
	UpdateStepArtifact(ctx context.Context, userID, projectID, stepID string, artifact *domain.Artifact) (bool, error)
	SetGeneratedChoices(ctx context.Context, userID, projectID, stepID string, choices []string) error
}

// stepContext is the fully resolved input of one orchestrated operation.
type stepContext struct {
	project      *domain.Project
	template     *domain.Template
	projectSteps []domain.ProjectStep
	current      *domain.ProjectStep
	templateStep *domain.TemplateStep
}

// resolveStepContext loads project, template and steps, failing with the
// sentinel naming whichever entity was missing.
func resolveStepContext(ctx context.Context, store Store, userID, projectID, stepID string) (*stepContext, error) {
	project, err := store.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	template, err := store.GetProjectTemplate(ctx, userID, project)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, domain.ErrTemplateNotFound
	}
	if len(template.Steps) == 0 {
		return nil, domain.ErrTemplateStepNotFound
	}

	projectSteps, err := store.GetProjectSteps(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	var current *domain.ProjectStep
	for i := range projectSteps {
		if projectSteps[i].ID == stepID {
			current = &projectSteps[i]
			break
		}
	}
	if current == nil {
		return nil, domain.ErrStepNotFound
	}

	templateStep := template.StepByID(current.TemplateStepID)
	if templateStep == nil {
		return nil, domain.ErrTemplateStepNotFound
	}

	return &stepContext{
		project:      project,
		template:     template,
		projectSteps: projectSteps,
		current:      current,
		templateStep: templateStep,
	}, nil
}
