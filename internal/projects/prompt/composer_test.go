package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

func threeStepTemplate() []domain.TemplateStep {
	return []domain.TemplateStep{
		{ID: "ts1", Title: "市場調査", Order: 1},
		{ID: "ts2", Title: "戦略立案", Order: 2},
		{ID: "ts3", Title: "実行計画", Order: 3},
	}
}

func TestComposeSystemInstruction_StepIndexAndDigest(t *testing.T) {
	templateSteps := threeStepTemplate()
	projectSteps := []domain.ProjectStep{
		{ID: "s1", TemplateStepID: "ts1", Order: 1, Artifact: &domain.Artifact{
			Title: "調査レポート", Content: "本文", Summary: "S1",
		}},
		{ID: "s2", TemplateStepID: "ts2", Order: 2},
		{ID: "s3", TemplateStepID: "ts3", Order: 3, Artifact: &domain.Artifact{
			Title: "後続", Content: "後続本文", Summary: "S3",
		}},
	}

	instruction := ComposeSystemInstruction(Input{
		TemplateStep:  &templateSteps[1],
		TemplateSteps: templateSteps,
		ProjectSteps:  projectSteps,
		CurrentStep:   &projectSteps[1],
	})

	assert.Contains(t, instruction, "Step 1: 市場調査")
	assert.Contains(t, instruction, "Step 2: 戦略立案 (Current Step)")
	assert.Contains(t, instruction, "Step 3: 実行計画")
	assert.NotContains(t, instruction, "Step 1: 市場調査 (Current Step)")

	// Only artifacts of preceding steps feed the digest, summaries only.
	assert.Contains(t, instruction, "S1")
	assert.NotContains(t, instruction, "S3")
	assert.NotContains(t, instruction, "本文")
}

func TestArtifactDigest_IncompleteArtifactsExcluded(t *testing.T) {
	templateSteps := threeStepTemplate()
	projectSteps := []domain.ProjectStep{
		{ID: "s1", TemplateStepID: "ts1", Order: 1, Artifact: &domain.Artifact{
			Title: "題のみ", Summary: "",
		}},
		{ID: "s2", TemplateStepID: "ts2", Order: 2},
	}

	digest := ArtifactDigest(templateSteps, projectSteps, 2)
	assert.Empty(t, digest)
}

func TestArtifactDigest_NoPriorArtifactsIsEmpty(t *testing.T) {
	templateSteps := threeStepTemplate()
	projectSteps := []domain.ProjectStep{
		{ID: "s1", TemplateStepID: "ts1", Order: 1},
	}
	assert.Empty(t, ArtifactDigest(templateSteps, projectSteps, 2))
}

func TestDocumentContext(t *testing.T) {
	step := &domain.ProjectStep{
		Documents: []domain.DocumentToggle{
			{ID: "d1", IsEnabled: true},
			{ID: "d2", IsEnabled: false},
			{ID: "d3", IsEnabled: true}, // no uploaded counterpart
		},
		UploadedDocuments: []domain.ReferenceDocument{
			{ID: "d1", Title: "基礎資料", Content: "資料本文1"},
			{ID: "d2", Title: "無効資料", Content: "資料本文2"},
		},
	}

	ctx := DocumentContext(step)
	assert.Contains(t, ctx, "Document: 基礎資料\n資料本文1")
	assert.NotContains(t, ctx, "資料本文2")
	assert.NotContains(t, ctx, "無効資料")
}

func TestDocumentContext_AllDisabled(t *testing.T) {
	step := &domain.ProjectStep{
		Documents: []domain.DocumentToggle{{ID: "d1", IsEnabled: false}},
		UploadedDocuments: []domain.ReferenceDocument{
			{ID: "d1", Title: "資料", Content: "本文"},
		},
	}
	assert.Empty(t, DocumentContext(step))
}

func TestBuildHistory(t *testing.T) {
	conversations := []domain.Conversation{
		{ID: "c1", Role: domain.RoleUser, Content: "質問です"},
		{ID: "c2", Role: domain.RoleAssistant, Content: "回答です"},
		{ID: "c3", Role: domain.RoleAssistant, Content: "  "},
		{ID: "c4", Role: domain.RoleUser, Content: ""},
	}

	history := BuildHistory("はじめまして", conversations)

	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "はじめまして", history[1].Text)
	assert.Equal(t, "user", history[2].Role)
	assert.Equal(t, "質問です", history[2].Text)
	assert.Equal(t, "model", history[3].Role)
	assert.Equal(t, "回答です", history[3].Text)
}
