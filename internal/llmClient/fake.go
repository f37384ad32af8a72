package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
)

type ctxKeyKind struct{}

// GenerationKind labels what a GenerateJSON call is producing so offline
// clients can fabricate a matching payload.
type GenerationKind string

const (
	KindTags         GenerationKind = "tags"
	KindQuestions    GenerationKind = "questions"
	KindAnswer       GenerationKind = "answer"
	KindConversation GenerationKind = "conversation"
)

// WithKind attaches the generation kind to the context.
func WithKind(ctx context.Context, kind GenerationKind) context.Context {
	return context.WithValue(ctx, ctxKeyKind{}, kind)
}

// KindFrom retrieves the generation kind, or "".
func KindFrom(ctx context.Context) GenerationKind {
	if k, ok := ctx.Value(ctxKeyKind{}).(GenerationKind); ok {
		return k
	}
	return ""
}

// FakeClient returns deterministic, minimal JSON payloads per generation
// kind for offline runs and tests.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// probe is the subset of request fields the fake cares about.
type probe struct {
	Count       int    `json:"count"`
	ParentLabel string `json:"parentLabel"`
	CurrentTag  string `json:"currentTag"`
	TagPath     string `json:"tagPath"`
	Question    string `json:"question"`
	Rounds      int    `json:"rounds"`
	RoleA       string `json:"roleA"`
	RoleB       string `json:"roleB"`
}

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var p probe
	if b, err := json.Marshal(input); err == nil {
		_ = json.Unmarshal(b, &p)
	}

	var obj any
	switch KindFrom(ctx) {
	case KindTags:
		labels := make([]string, 0, p.Count)
		for i := 0; i < p.Count; i++ {
			labels = append(labels, fmt.Sprintf("%s subtopic %d", nonEmpty(p.ParentLabel, "topic"), i+1))
		}
		obj = map[string]any{"tags": labels}
	case KindQuestions:
		questions := make([]string, 0, p.Count)
		for i := 0; i < p.Count; i++ {
			questions = append(questions, fmt.Sprintf("What about %s (%d)?", nonEmpty(p.CurrentTag, "this"), i+1))
		}
		obj = map[string]any{"questions": questions}
	case KindAnswer:
		obj = map[string]any{"answer": "fake answer: " + p.Question}
	case KindConversation:
		rounds := p.Rounds
		if rounds < 1 {
			rounds = 1
		}
		turns := make([]map[string]string, 0, rounds*2)
		for i := 0; i < rounds; i++ {
			turns = append(turns,
				map[string]string{"role": nonEmpty(p.RoleA, "A"), "content": fmt.Sprintf("fake question round %d", i+1)},
				map[string]string{"role": nonEmpty(p.RoleB, "B"), "content": fmt.Sprintf("fake answer round %d", i+1)},
			)
		}
		obj = map[string]any{"turns": turns}
	default:
		obj = map[string]any{}
	}
	b, _ := json.Marshal(obj)
	return json.RawMessage(b), nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
