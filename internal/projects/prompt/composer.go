// Package prompt assembles system instructions and model-ready histories for
// step conversations.
package prompt

import (
	"fmt"
	"strings"

	"github.com/draftpilot/draftpilot-backend/internal/llm"
	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

const (
	// Fixed scope-limiting instruction appended to every step's system prompt.
	scopeInstruction = "あなたは現在のステップのトピックに関する対話のみを行ってください。現在のステップの範囲外の話題には踏み込まず、ユーザーを現在のステップの作業に集中させてください。"
	// Fixed output-language directive.
	languageInstruction = "回答は必ず日本語で行ってください。"
	// Synthetic user greeting that opens every seed history.
	seedGreeting = "よろしくお願いします。"

	currentStepMarker = " (Current Step)"
)

// Input bundles everything the composer needs for one turn.
type Input struct {
	TemplateStep  *domain.TemplateStep
	TemplateSteps []domain.TemplateStep
	ProjectSteps  []domain.ProjectStep
	CurrentStep   *domain.ProjectStep
}

// ComposeSystemInstruction builds the full system instruction for the current
// step: base prompt, scope limit, step index, prior-artifact digest,
// reference-document context and the output-language directive.
func ComposeSystemInstruction(in Input) string {
	var b strings.Builder

	b.WriteString(in.TemplateStep.SystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(scopeInstruction)

	b.WriteString("\n\n# 全体のステップ構成\n")
	b.WriteString(StepIndex(in.TemplateSteps, in.TemplateStep.ID))

	if digest := ArtifactDigest(in.TemplateSteps, in.ProjectSteps, in.TemplateStep.Order); digest != "" {
		b.WriteString("\n\n# これまでのステップの成果物\n")
		b.WriteString(digest)
	}

	if docs := DocumentContext(in.CurrentStep); docs != "" {
		b.WriteString("\n\n# 参考資料\n")
		b.WriteString(docs)
	}

	b.WriteString("\n\n")
	b.WriteString(languageInstruction)

	return b.String()
}

// StepIndex renders "Step N: <title>" for every template step, flagging the
// current one.
func StepIndex(steps []domain.TemplateStep, currentStepID string) string {
	lines := make([]string, 0, len(steps))
	for i, ts := range steps {
		line := fmt.Sprintf("Step %d: %s", i+1, ts.Title)
		if ts.ID == currentStepID {
			line += currentStepMarker
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ArtifactDigest lists step title and artifact summary for every step whose
// order precedes currentOrder and whose artifact is complete. Summaries only;
// full content would blow up the prompt. An empty digest is not an error.
func ArtifactDigest(templateSteps []domain.TemplateStep, projectSteps []domain.ProjectStep, currentOrder int) string {
	byID := make(map[string]*domain.TemplateStep, len(templateSteps))
	for i := range templateSteps {
		byID[templateSteps[i].ID] = &templateSteps[i]
	}

	var lines []string
	for i := range projectSteps {
		ps := &projectSteps[i]
		ts, ok := byID[ps.TemplateStepID]
		if !ok || ts.Order >= currentOrder {
			continue
		}
		if !ps.Artifact.Complete() {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", ts.Title, ps.Artifact.Summary))
	}
	return strings.Join(lines, "\n")
}

// DocumentContext renders the enabled reference documents of a step. Disabled
// or unresolved toggles contribute nothing.
func DocumentContext(step *domain.ProjectStep) string {
	if step == nil {
		return ""
	}

	var parts []string
	for _, toggle := range step.Documents {
		if !toggle.IsEnabled {
			continue
		}
		for _, ref := range step.UploadedDocuments {
			if ref.ID == toggle.ID {
				parts = append(parts, fmt.Sprintf("Document: %s\n%s", ref.Title, ref.Content))
				break
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// BuildHistory produces the model-ready history: a synthetic greeting pair
// seeded from the step's first-message template, followed by every stored
// conversation with non-empty content. Whitespace-only turns are streaming
// placeholders and must never reach the model.
func BuildHistory(firstMessageTemplate string, conversations []domain.Conversation) []llm.Message {
	history := []llm.Message{
		{Role: "user", Text: seedGreeting},
		{Role: "model", Text: firstMessageTemplate},
	}

	for _, conv := range conversations {
		if strings.TrimSpace(conv.Content) == "" {
			continue
		}
		role := conv.Role
		if role == domain.RoleAssistant {
			role = "model"
		}
		history = append(history, llm.Message{Role: role, Text: conv.Content})
	}
	return history
}
