package career

import (
	"context"
	"iter"

	"github.com/benvon/sculptor/internal/services/ai"
)

type mockProvider struct {
	streamFunc       func(ctx context.Context, req ai.ChatRequest) (iter.Seq2[string, error], error)
	completeFunc     func(ctx context.Context, req ai.CompletionRequest) (string, error)
	generateJSONFunc func(ctx context.Context, req ai.StructuredRequest) (string, error)
}

var _ ai.Provider = (*mockProvider)(nil)

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) StreamChat(ctx context.Context, req ai.ChatRequest) (iter.Seq2[string, error], error) {
	if m.streamFunc != nil {
		return m.streamFunc(ctx, req)
	}
	return fragments(), nil
}

func (m *mockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return "", nil
}

func (m *mockProvider) GenerateJSON(ctx context.Context, req ai.StructuredRequest) (string, error) {
	if m.generateJSONFunc != nil {
		return m.generateJSONFunc(ctx, req)
	}
	return "[]", nil
}

// fragments yields each fragment in order
func fragments(parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// failingFragments yields parts and then err
func failingFragments(err error, parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
		yield("", err)
	}
}
