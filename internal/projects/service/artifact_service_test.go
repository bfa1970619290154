package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

func TestParseArtifact(t *testing.T) {
	t.Run("object embedded in prose", func(t *testing.T) {
		raw := "こちらがレポートです:\n{\"title\":\"市場分析\",\"content\":\"本文です\",\"summary\":\"要約\"}\n以上です。"
		a, err := parseArtifact(raw)
		require.NoError(t, err)
		assert.Equal(t, "市場分析", a.Title)
		assert.Equal(t, "本文です", a.Content)
		assert.Equal(t, "要約", a.Summary)
		// Character count, not byte count.
		assert.Equal(t, 4, a.CharCount)
	})

	t.Run("missing fields fall back", func(t *testing.T) {
		a, err := parseArtifact(`{"summary":"要約のみ"}`)
		require.NoError(t, err)
		assert.Equal(t, "untitled", a.Title)
		assert.Empty(t, a.Content)
		assert.Equal(t, 0, a.CharCount)
	})

	t.Run("no JSON span is an error, not a panic", func(t *testing.T) {
		a, err := parseArtifact("すみません、レポートを作成できませんでした。")
		require.Error(t, err)
		assert.Nil(t, a)
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		a, err := parseArtifact(`{"title": "broken`)
		require.Error(t, err)
		assert.Nil(t, a)
	})
}

func TestGenerateForStep_PersistsArtifact(t *testing.T) {
	store := chatFixture()
	store.steps[1].Conversations = []domain.Conversation{
		{ID: "c1", Role: domain.RoleUser, Content: "相談です"},
		{ID: "c2", Role: domain.RoleAssistant, Content: "回答です"},
		{ID: "c3", Role: domain.RoleAssistant, Content: ""},
	}
	session := &fakeSession{sendResp: `{"title":"T","content":"CC","summary":"S"}`}
	llmClient := &fakeLLM{session: session}
	svc := NewArtifactService(store, llmClient)

	a, err := svc.GenerateForStep(context.Background(), "u1", "p1", "s2")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "T", a.Title)
	assert.Equal(t, 2, a.CharCount)

	require.Len(t, store.artifacts, 1)
	assert.Equal(t, a, store.artifacts[0])

	// Empty-content turns never reach the synthesis history; stored roles
	// pass through unchanged.
	require.Len(t, llmClient.lastHistory, 2)
	assert.Equal(t, domain.RoleAssistant, llmClient.lastHistory[1].Role)

	// The trailing trigger is the only message sent.
	require.Len(t, session.sent, 1)
	assert.Equal(t, artifactTriggerMessage, session.sent[0])

	assert.Contains(t, llmClient.lastInstruct, "レポート形式")
	assert.Contains(t, llmClient.lastInstruct, "Step 2: 構成 (Current Step)")
}

func TestGenerateForStep_DeterministicStubIsIdempotent(t *testing.T) {
	store := chatFixture()
	store.steps[1].Conversations = []domain.Conversation{
		{ID: "c1", Role: domain.RoleUser, Content: "相談です"},
	}
	llmClient := &fakeLLM{session: &fakeSession{sendResp: `{"title":"T","content":"同じ内容","summary":"S"}`}}
	svc := NewArtifactService(store, llmClient)

	first, err := svc.GenerateForStep(context.Background(), "u1", "p1", "s2")
	require.NoError(t, err)
	second, err := svc.GenerateForStep(context.Background(), "u1", "p1", "s2")
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.CharCount, second.CharCount)
	assert.Equal(t, len([]rune(first.Content)), first.CharCount)

	// Regeneration overwrites; two persisted writes, no merge.
	assert.Equal(t, 2, store.artifactCount())
}

func TestGenerateForStep_NoSpanDoesNotPersist(t *testing.T) {
	store := chatFixture()
	llmClient := &fakeLLM{session: &fakeSession{sendResp: "no object here"}}
	svc := NewArtifactService(store, llmClient)

	a, err := svc.GenerateForStep(context.Background(), "u1", "p1", "s2")
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, 0, store.artifactCount())
}

func TestGenerateForStep_MissingParams(t *testing.T) {
	svc := NewArtifactService(newFakeStore(), &fakeLLM{session: &fakeSession{}})
	_, err := svc.GenerateForStep(context.Background(), "", "p1", "s1")
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}
