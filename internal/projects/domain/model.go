package domain

import (
	"errors"
	"time"
)

// Conversation roles as stored in Firestore.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrInvalidParams        = errors.New("missing required parameters")
	ErrProjectNotFound      = errors.New("project not found")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrStepNotFound         = errors.New("step not found")
	ErrTemplateStepNotFound = errors.New("template step not found")
)

// Project is a user's live instantiation of a template.
type Project struct {
	ID           string    `json:"id" firestore:"-"`
	UserID       string    `json:"userId" firestore:"userId"`
	TemplateID   string    `json:"templateId" firestore:"templateId"`
	TemplateType string    `json:"templateType" firestore:"templateType"`
	Title        string    `json:"title" firestore:"title"`
	Description  string    `json:"description" firestore:"description"`
	Status       string    `json:"status" firestore:"status"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// ProjectStep carries one stage of a project: its conversation, document
// toggles and the generated artifact, if any.
type ProjectStep struct {
	ID                string              `json:"id" firestore:"-"`
	TemplateStepID    string              `json:"templateStepId" firestore:"templateStepId"`
	Order             int                 `json:"order" firestore:"order"`
	Conversations     []Conversation      `json:"conversations" firestore:"conversations"`
	Documents         []DocumentToggle    `json:"documents" firestore:"documents"`
	UploadedDocuments []ReferenceDocument `json:"uploadedDocuments" firestore:"uploadedDocuments"`
	Artifact          *Artifact           `json:"artifact,omitempty" firestore:"artifact"`
	StepState         StepState           `json:"stepState" firestore:"stepState"`
}

// DocumentToggle enables or disables one of the step's reference documents.
type DocumentToggle struct {
	ID        string `json:"id" firestore:"id"`
	IsEnabled bool   `json:"isEnabled" firestore:"isEnabled"`
}

// StepState holds per-step UI state generated by the backend.
type StepState struct {
	GeneratedChoices []string `json:"generatedChoices" firestore:"generatedChoices"`
}

// Conversation is one turn of a step's chat. The list is append-only and
// replayed verbatim as model history, so insertion order matters.
type Conversation struct {
	ID        string    `json:"id" firestore:"id"`
	Role      string    `json:"role" firestore:"role"`
	Content   string    `json:"content" firestore:"content"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Artifact is the structured output synthesized from a step's conversation.
// Regeneration overwrites it; there is no versioning.
type Artifact struct {
	Title     string    `json:"title" firestore:"title"`
	Content   string    `json:"content" firestore:"content"`
	Summary   string    `json:"summary" firestore:"summary"`
	CharCount int       `json:"charCount" firestore:"charCount"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Complete reports whether the artifact has all three generated fields.
// Only complete artifacts feed the prior-step digest in prompts.
func (a *Artifact) Complete() bool {
	return a != nil && a.Title != "" && a.Content != "" && a.Summary != ""
}

// ReferenceDocument is plain text injected verbatim into prompts. Content is
// extracted and truncated upstream; here it is opaque.
type ReferenceDocument struct {
	ID      string `json:"id" firestore:"id"`
	Title   string `json:"title" firestore:"title"`
	Content string `json:"content" firestore:"content"`
	Type    string `json:"type" firestore:"type"`
}
