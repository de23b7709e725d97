package career

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/session"
	"go.uber.org/zap"
)

func TestSculptEngine_BuildPrompt(t *testing.T) {
	t.Parallel()

	engine := NewSculptEngine(&mockProvider{}, nil, "", zap.NewNop())
	profile := models.UserProfile{Name: "Jane Doe", Email: "jane@example.com", BaseResumeText: "profile resume"}

	tests := []struct {
		name     string
		session  *models.ChatSession
		contains []string
		excludes []string
	}{
		{
			name: "profile background and fallback job",
			session: &models.ChatSession{
				Type:     models.SessionTypeResume,
				Messages: []models.Message{{Content: "line one"}, {Content: "line two"}},
			},
			contains: []string{"profile resume", "line one\nline two", DefaultCatalog().FallbackJobLabel, "Name: Jane Doe", "Email: jane@example.com"},
		},
		{
			name: "session override and job target",
			session: &models.ChatSession{
				Type:           models.SessionTypeCoverLetter,
				ResumeText:     models.StringPtr("override resume"),
				JobDescription: models.StringPtr("Backend Engineer at Acme"),
			},
			contains: []string{"override resume", "Backend Engineer at Acme", "cover letter"},
			excludes: []string{"profile resume"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prompt := engine.BuildPrompt(tt.session, profile)
			for _, want := range tt.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("Expected prompt to contain %q", want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(prompt, unwanted) {
					t.Errorf("Expected prompt not to contain %q", unwanted)
				}
			}
		})
	}
}

func TestSculptEngine_FailureKeepsPreviousDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous *string
	}{
		{"no previous document", nil},
		{"existing document", models.StringPtr("# Old")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newLocalStore(t)
			id, _ := store.Create(models.SessionTypeResume, nil)
			if tt.previous != nil {
				store.Update(id, session.Patch{FinalResume: tt.previous})
			}

			engine := NewSculptEngine(&mockProvider{
				completeFunc: func(context.Context, ai.CompletionRequest) (string, error) {
					return "", errors.New("provider down")
				},
			}, nil, "", zap.NewNop())

			doc, err := engine.Sculpt(context.Background(), store, models.UserProfile{}, id)
			if !errors.Is(err, ErrSculptFailed) {
				t.Fatalf("Expected ErrSculptFailed, got %v", err)
			}
			if doc != "" {
				t.Errorf("Expected no document, got %q", doc)
			}

			sess, _ := store.Get(id)
			switch {
			case tt.previous == nil && sess.FinalResume != nil:
				t.Errorf("Expected final document to stay nil, got %q", *sess.FinalResume)
			case tt.previous != nil && (sess.FinalResume == nil || *sess.FinalResume != *tt.previous):
				t.Errorf("Expected previous document to be kept")
			}
		})
	}
}

func TestSculptEngine_BlankCompletionIsFailure(t *testing.T) {
	t.Parallel()

	for _, reply := range []string{"", "  \n\t"} {
		store := newLocalStore(t)
		id, _ := store.Create(models.SessionTypeResume, nil)
		previous := "# Old"
		store.Update(id, session.Patch{FinalResume: &previous})

		engine := NewSculptEngine(&mockProvider{
			completeFunc: func(context.Context, ai.CompletionRequest) (string, error) { return reply, nil },
		}, nil, "", zap.NewNop())

		_, err := engine.Sculpt(context.Background(), store, models.UserProfile{}, id)
		if !errors.Is(err, ErrSculptFailed) || !errors.Is(err, ai.ErrEmptyResponse) {
			t.Errorf("Expected ErrSculptFailed wrapping ErrEmptyResponse for %q, got %v", reply, err)
		}
		if sess, _ := store.Get(id); sess.FinalResume == nil || *sess.FinalResume != previous {
			t.Errorf("Expected previous document kept for %q, got %v", reply, sess.FinalResume)
		}
	}
}

func TestSculptEngine_StoresVerbatim(t *testing.T) {
	t.Parallel()

	store := newLocalStore(t)
	id, _ := store.Create(models.SessionTypeResignationLetter, nil)
	reply := "Here you go:\n# Letter\nThanks"

	engine := NewSculptEngine(&mockProvider{
		completeFunc: func(context.Context, ai.CompletionRequest) (string, error) { return reply, nil },
	}, nil, "", zap.NewNop())

	if _, err := engine.Sculpt(context.Background(), store, models.UserProfile{}, id); err != nil {
		t.Fatalf("Sculpt failed: %v", err)
	}
	sess, _ := store.Get(id)
	if sess.FinalResume == nil || *sess.FinalResume != reply {
		t.Errorf("Expected reply stored verbatim, got %v", sess.FinalResume)
	}
}

func TestResumeSessionEndToEnd(t *testing.T) {
	t.Parallel()

	store := newLocalStore(t)
	id, err := store.Create(models.SessionTypeResume, &models.InitialContext{JobDescription: "Backend Engineer at Acme"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	provider := &mockProvider{
		streamFunc: func(context.Context, ai.ChatRequest) (iter.Seq2[string, error], error) {
			return fragments("Great, let's ", "highlight that."), nil
		},
		completeFunc: func(context.Context, ai.CompletionRequest) (string, error) {
			return "# Resume\n...", nil
		},
	}
	chat := NewChatEngine(provider, nil, "", zap.NewNop())
	sculpt := NewSculptEngine(provider, nil, "", zap.NewNop())

	if _, err := chat.Send(context.Background(), store, models.UserProfile{}, id, TurnInput{Text: "I have 5 years of Go experience"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	sess, _ := store.Get(id)
	if len(sess.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(sess.Messages))
	}
	if sess.Messages[1].Role != models.RoleAssistant || sess.Messages[1].Content != "Great, let's highlight that." {
		t.Errorf("Unexpected assistant message %+v", sess.Messages[1])
	}

	if _, err := sculpt.Sculpt(context.Background(), store, models.UserProfile{}, id); err != nil {
		t.Fatalf("Sculpt failed: %v", err)
	}
	sess, _ = store.Get(id)
	if sess.FinalResume == nil || *sess.FinalResume != "# Resume\n..." {
		t.Errorf("Expected final document to be stored, got %v", sess.FinalResume)
	}
	if !sess.InPreview() {
		t.Error("Expected session to be flagged for preview")
	}
}
