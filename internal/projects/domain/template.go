package domain

import "time"

// Template type discriminators stored on Project.TemplateType.
const (
	TemplatePrivate   = "private"
	TemplatePublished = "published"
)

// TemplateStep is one stage of a template. Immutable once a live project
// references it; edits only affect future reads.
type TemplateStep struct {
	ID                       string              `json:"id" firestore:"id"`
	Title                    string              `json:"title" firestore:"title"`
	Order                    int                 `json:"order" firestore:"order"`
	SystemPrompt             string              `json:"systemPrompt" firestore:"systemPrompt"`
	ArtifactGenerationPrompt string              `json:"artifactGenerationPrompt" firestore:"artifactGenerationPrompt"`
	FirstMessageTemplate     string              `json:"firstMessageTemplate" firestore:"firstMessageTemplate"`
	UserChoicePromptTemplate string              `json:"userChoicePromptTemplate,omitempty" firestore:"userChoicePromptTemplate"`
	ReferenceDocuments       []ReferenceDocument `json:"referenceDocuments" firestore:"referenceDocuments"`
}

// Template is the tagged union over the private and published variants. Both
// carry the same ordered steps; the orchestrator only ever reads Steps, the
// variant-specific metadata rides along for API responses.
type Template struct {
	ID          string         `json:"id" firestore:"-"`
	Type        string         `json:"type" firestore:"-"`
	Title       string         `json:"title" firestore:"title"`
	Description string         `json:"description" firestore:"description"`
	Steps       []TemplateStep `json:"steps" firestore:"steps"`

	// Private variant only.
	IsPublished         bool   `json:"isPublished,omitempty" firestore:"isPublished"`
	PublishedTemplateID string `json:"publishedTemplateId,omitempty" firestore:"publishedTemplateId"`

	// Published variant only.
	OriginalTemplateID string    `json:"originalTemplateId,omitempty" firestore:"originalTemplateId"`
	UserID             string    `json:"userId,omitempty" firestore:"userId"`
	AuthorName         string    `json:"authorName,omitempty" firestore:"authorName"`
	Categories         []string  `json:"categories,omitempty" firestore:"categories"`
	UsageCount         int       `json:"usageCount,omitempty" firestore:"usageCount"`
	PublishedAt        time.Time `json:"publishedAt,omitempty" firestore:"publishedAt"`
}

// StepByID returns the template step with the given id, or nil.
func (t *Template) StepByID(id string) *TemplateStep {
	for i := range t.Steps {
		if t.Steps[i].ID == id {
			return &t.Steps[i]
		}
	}
	return nil
}
