package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

const (
	usersCollection              = "users"
	projectsCollection           = "projects"
	stepsCollection              = "steps"
	privateTemplatesCollection   = "projectTemplates"
	publishedTemplatesCollection = "publishedProjectTemplates"
)

// Repo provides Firestore persistence for projects, steps and templates.
// Reads return (nil, nil) for missing documents; only I/O failures error.
type Repo struct {
	client *firestore.Client
	cache  *TemplateCache
}

// NewRepo creates a new repository. cache may be nil to disable the
// published-template cache.
func NewRepo(client *firestore.Client, cache *TemplateCache) *Repo {
	return &Repo{client: client, cache: cache}
}

func (r *Repo) projectRef(userID, projectID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID).
		Collection(projectsCollection).Doc(projectID)
}

func (r *Repo) stepRef(userID, projectID, stepID string) *firestore.DocumentRef {
	return r.projectRef(userID, projectID).Collection(stepsCollection).Doc(stepID)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// GetProject fetches a single project document.
func (r *Repo) GetProject(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	snap, err := r.projectRef(userID, projectID).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p domain.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

// GetProjectStep fetches a single step document.
func (r *Repo) GetProjectStep(ctx context.Context, userID, projectID, stepID string) (*domain.ProjectStep, error) {
	snap, err := r.stepRef(userID, projectID, stepID).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project step: %w", err)
	}

	var s domain.ProjectStep
	if err := snap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("decode project step: %w", err)
	}
	s.ID = snap.Ref.ID
	return &s, nil
}

// GetProjectSteps returns all steps of a project ordered by their step order.
func (r *Repo) GetProjectSteps(ctx context.Context, userID, projectID string) ([]domain.ProjectStep, error) {
	iter := r.projectRef(userID, projectID).Collection(stepsCollection).
		OrderBy("order", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var steps []domain.ProjectStep
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate project steps: %w", err)
		}

		var s domain.ProjectStep
		if err := snap.DataTo(&s); err != nil {
			return nil, fmt.Errorf("decode project step: %w", err)
		}
		s.ID = snap.Ref.ID
		steps = append(steps, s)
	}
	return steps, nil
}

// GetProjectTemplate resolves the project's template, dispatching on the
// templateType discriminator. Published templates go through the cache.
func (r *Repo) GetProjectTemplate(ctx context.Context, userID string, project *domain.Project) (*domain.Template, error) {
	if project.TemplateType == domain.TemplatePublished {
		return r.getPublishedTemplate(ctx, project.TemplateID)
	}
	return r.getPrivateTemplate(ctx, userID, project.TemplateID)
}

func (r *Repo) getPrivateTemplate(ctx context.Context, userID, templateID string) (*domain.Template, error) {
	ref := r.client.Collection(usersCollection).Doc(userID).
		Collection(privateTemplatesCollection).Doc(templateID)
	return r.decodeTemplate(ctx, ref, domain.TemplatePrivate)
}

func (r *Repo) getPublishedTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	if r.cache != nil {
		if tpl, err := r.cache.Get(ctx, templateID); err != nil {
			slog.Warn("template cache read failed", "template_id", templateID, "error", err)
		} else if tpl != nil {
			return tpl, nil
		}
	}

	ref := r.client.Collection(publishedTemplatesCollection).Doc(templateID)
	tpl, err := r.decodeTemplate(ctx, ref, domain.TemplatePublished)
	if err != nil || tpl == nil {
		return tpl, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, tpl); err != nil {
			slog.Warn("template cache write failed", "template_id", templateID, "error", err)
		}
	}
	return tpl, nil
}

func (r *Repo) decodeTemplate(ctx context.Context, ref *firestore.DocumentRef, templateType string) (*domain.Template, error) {
	snap, err := ref.Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	var t domain.Template
	if err := snap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	t.ID = snap.Ref.ID
	t.Type = templateType
	return &t, nil
}

// AppendConversation appends one turn to a step's conversation array.
func (r *Repo) AppendConversation(ctx context.Context, userID, projectID, stepID string, conv domain.Conversation) error {
	_, err := r.stepRef(userID, projectID, stepID).Update(ctx, []firestore.Update{
		{Path: "conversations", Value: firestore.ArrayUnion(conv)},
	})
	if err != nil {
		return fmt.Errorf("append conversation: %w", err)
	}
	return nil
}

// SetConversationContent overwrites the content of one conversation entry.
// The whole array is rewritten inside a transaction so a concurrent append
// between read and write cannot be lost.
func (r *Repo) SetConversationContent(ctx context.Context, userID, projectID, stepID, conversationID, content string) error {
	ref := r.stepRef(userID, projectID, stepID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var s domain.ProjectStep
		if err := snap.DataTo(&s); err != nil {
			return err
		}

		found := false
		for i := range s.Conversations {
			if s.Conversations[i].ID == conversationID {
				s.Conversations[i].Content = content
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("conversation %s not in step %s", conversationID, stepID)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "conversations", Value: s.Conversations},
		})
	})
	if err != nil {
		return fmt.Errorf("set conversation content: %w", err)
	}
	return nil
}

// UpdateStepArtifact overwrites a step's artifact. Returns false when the
// write fails; reads never created the artifact, so there is nothing to merge.
func (r *Repo) UpdateStepArtifact(ctx context.Context, userID, projectID, stepID string, artifact *domain.Artifact) (bool, error) {
	artifact.CreatedAt = time.Now()
	_, err := r.stepRef(userID, projectID, stepID).Update(ctx, []firestore.Update{
		{Path: "artifact", Value: artifact},
	})
	if err != nil {
		return false, fmt.Errorf("update step artifact: %w", err)
	}
	return true, nil
}

// SetGeneratedChoices replaces the step's example-reply suggestions.
func (r *Repo) SetGeneratedChoices(ctx context.Context, userID, projectID, stepID string, choices []string) error {
	_, err := r.stepRef(userID, projectID, stepID).Update(ctx, []firestore.Update{
		{Path: "stepState", Value: domain.StepState{GeneratedChoices: choices}},
	})
	if err != nil {
		return fmt.Errorf("set generated choices: %w", err)
	}
	return nil
}

// ListPublishedTemplates returns the most-used published templates. Used by
// the cache warmer.
func (r *Repo) ListPublishedTemplates(ctx context.Context, limit int) ([]domain.Template, error) {
	iter := r.client.Collection(publishedTemplatesCollection).
		OrderBy("usageCount", firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var templates []domain.Template
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate published templates: %w", err)
		}

		var t domain.Template
		if err := snap.DataTo(&t); err != nil {
			return nil, fmt.Errorf("decode published template: %w", err)
		}
		t.ID = snap.Ref.ID
		t.Type = domain.TemplatePublished
		templates = append(templates, t)
	}
	return templates, nil
}
