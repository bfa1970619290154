package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/draftpilot/draftpilot-backend/internal/llm"
	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

// exampleReplyKey is the JSON key the model is instructed to respond with.
const exampleReplyKey = "exampleTalkResponse"

// recentTurnWindow is how many trailing conversation turns feed the
// example-reply prompt.
const recentTurnWindow = 5

// ExampleService generates short example replies a user could send next.
type ExampleService struct {
	store Store
	llm   llm.Client
	count int
}

// NewExampleService creates an example-reply service that requests count
// suggestions per call.
func NewExampleService(store Store, llmClient llm.Client, count int) *ExampleService {
	return &ExampleService{store: store, llm: llmClient, count: count}
}

// GenerateForStep produces example replies for the step's current
// conversation and persists them into the step state, replacing any previous
// suggestions.
func (s *ExampleService) GenerateForStep(ctx context.Context, userID, projectID, stepID string) ([]string, error) {
	if userID == "" || projectID == "" || stepID == "" {
		return nil, domain.ErrInvalidParams
	}

	sc, err := resolveStepContext(ctx, s.store, userID, projectID, stepID)
	if err != nil {
		return nil, err
	}

	examples, err := s.generate(ctx, sc.templateStep.SystemPrompt, sc.current.Conversations)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetGeneratedChoices(ctx, userID, projectID, stepID, examples); err != nil {
		return nil, err
	}
	return examples, nil
}

// generate issues one non-streamed request and parses the suggestion array
// out of the raw response. Any parse or validation failure yields nil.
func (s *ExampleService) generate(ctx context.Context, systemPrompt string, conversations []domain.Conversation) ([]string, error) {
	session, err := s.llm.StartChat(ctx, nil, s.buildInstruction())
	if err != nil {
		return nil, fmt.Errorf("start example session: %w", err)
	}

	raw, err := session.Send(ctx, s.buildMessage(systemPrompt, conversations))
	if err != nil {
		return nil, fmt.Errorf("generate examples: %w", err)
	}

	examples := parseExampleReplies(raw)
	if examples == nil {
		return nil, fmt.Errorf("no usable suggestions in response")
	}
	return examples, nil
}

func (s *ExampleService) buildInstruction() string {
	return fmt.Sprintf(
		"あなたはユーザーの立場になりきって、次にユーザーが送りそうな短い返答の候補を考えるアシスタントです。"+
			"各候補は15文字程度にしてください。"+
			"出力は必ず次の形式の単一のJSONオブジェクトのみとしてください: "+
			`{"%s": ["候補1", "候補2", "候補3"]}`+
			" 候補はちょうど%d個にしてください。",
		exampleReplyKey, s.count)
}

func (s *ExampleService) buildMessage(systemPrompt string, conversations []domain.Conversation) string {
	recent := conversations
	if len(recent) > recentTurnWindow {
		recent = recent[len(recent)-recentTurnWindow:]
	}

	lines := make([]string, 0, len(recent))
	for _, conv := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", conv.Role, conv.Content))
	}

	var b strings.Builder
	b.WriteString("# アシスタントのシステムプロンプト\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n# 直近の会話\n")
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// parseExampleReplies scans raw output for the suggestion object. Returns nil
// when no top-level JSON span exists, parsing fails or the expected key is
// missing.
func parseExampleReplies(raw string) []string {
	span, ok := extractJSONObject(raw)
	if !ok {
		return nil
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil
	}

	field, ok := parsed[exampleReplyKey]
	if !ok {
		return nil
	}

	var examples []string
	if err := json.Unmarshal(field, &examples); err != nil {
		return nil
	}
	if len(examples) == 0 {
		return nil
	}
	return examples
}
