package service

import (
	"context"
	"sync"

	"github.com/draftpilot/draftpilot-backend/internal/llm"
	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

// fakeStore is an in-memory Store. Mutex-guarded because the post-turn
// triggers write from detached goroutines.
type fakeStore struct {
	mu sync.Mutex

	project  *domain.Project
	template *domain.Template
	steps    []domain.ProjectStep

	appended      []domain.Conversation
	contents      map[string]string
	artifacts     []*domain.Artifact
	choices       [][]string
	artifactCalls int

	appendErr  error
	contentErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{contents: make(map[string]string)}
}

func (f *fakeStore) GetProject(_ context.Context, _, _ string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.project, nil
}

func (f *fakeStore) GetProjectStep(_ context.Context, _, _, stepID string) (*domain.ProjectStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.steps {
		if f.steps[i].ID == stepID {
			s := f.steps[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetProjectSteps(_ context.Context, _, _ string) ([]domain.ProjectStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ProjectStep, len(f.steps))
	copy(out, f.steps)
	return out, nil
}

func (f *fakeStore) GetProjectTemplate(_ context.Context, _ string, _ *domain.Project) (*domain.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.template, nil
}

func (f *fakeStore) AppendConversation(_ context.Context, _, _, stepID string, conv domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, conv)
	for i := range f.steps {
		if f.steps[i].ID == stepID {
			f.steps[i].Conversations = append(f.steps[i].Conversations, conv)
		}
	}
	return nil
}

func (f *fakeStore) SetConversationContent(_ context.Context, _, _, stepID, conversationID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contentErr != nil {
		return f.contentErr
	}
	f.contents[conversationID] = content
	for i := range f.steps {
		if f.steps[i].ID != stepID {
			continue
		}
		for j := range f.steps[i].Conversations {
			if f.steps[i].Conversations[j].ID == conversationID {
				f.steps[i].Conversations[j].Content = content
			}
		}
	}
	return nil
}

func (f *fakeStore) UpdateStepArtifact(_ context.Context, _, _, _ string, artifact *domain.Artifact) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifactCalls++
	f.artifacts = append(f.artifacts, artifact)
	return true, nil
}

func (f *fakeStore) SetGeneratedChoices(_ context.Context, _, _, _ string, choices []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.choices = append(f.choices, choices)
	return nil
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended) + len(f.contents) + len(f.artifacts) + len(f.choices)
}

func (f *fakeStore) artifactCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artifactCalls
}

func (f *fakeStore) choicesCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.choices)
}

// fakeLLM hands out one scripted session per StartChat call and records what
// it was given.
type fakeLLM struct {
	mu           sync.Mutex
	session      *fakeSession
	startErr     error
	calls        int
	lastHistory  []llm.Message
	lastInstruct string
}

func (f *fakeLLM) StartChat(_ context.Context, history []llm.Message, systemInstruction string) (llm.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastHistory = history
	f.lastInstruct = systemInstruction
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.session, nil
}

type fakeSession struct {
	mu        sync.Mutex
	chunks    []string
	sendResp  string
	sendErr   error
	streamErr error
	sent      []string
}

func (s *fakeSession) Send(_ context.Context, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, message)
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return s.sendResp, nil
}

func (s *fakeSession) SendStream(_ context.Context, message string, onChunk func(string) error) error {
	s.mu.Lock()
	s.sent = append(s.sent, message)
	chunks := s.chunks
	streamErr := s.streamErr
	s.mu.Unlock()

	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return streamErr
}

// fixture returns a store populated with a three-step template and project,
// the current step being step 2.
func chatFixture() *fakeStore {
	store := newFakeStore()
	store.project = &domain.Project{
		ID:           "p1",
		UserID:       "u1",
		TemplateID:   "t1",
		TemplateType: domain.TemplatePrivate,
	}
	store.template = &domain.Template{
		ID:   "t1",
		Type: domain.TemplatePrivate,
		Steps: []domain.TemplateStep{
			{ID: "ts1", Title: "企画", Order: 1, SystemPrompt: "step one prompt", FirstMessageTemplate: "ようこそ"},
			{ID: "ts2", Title: "構成", Order: 2, SystemPrompt: "step two prompt", FirstMessageTemplate: "構成を考えましょう", ArtifactGenerationPrompt: "レポート形式"},
			{ID: "ts3", Title: "執筆", Order: 3, SystemPrompt: "step three prompt", FirstMessageTemplate: "執筆します"},
		},
	}
	store.steps = []domain.ProjectStep{
		{ID: "s1", TemplateStepID: "ts1", Order: 1},
		{ID: "s2", TemplateStepID: "ts2", Order: 2},
		{ID: "s3", TemplateStepID: "ts3", Order: 3},
	}
	return store
}
