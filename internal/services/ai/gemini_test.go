package ai

import (
	"bytes"
	"testing"

	"google.golang.org/genai"
)

func TestBuildContents_AudioParts(t *testing.T) {
	t.Parallel()

	clip := &Audio{MIMEType: "audio/webm", Data: []byte{0x1a, 0x45, 0xdf, 0xa3}}

	tests := []struct {
		name      string
		message   string
		audio     *Audio
		wantText  string
		wantParts int
		wantAudio bool
	}{
		{name: "text only", message: "I led the billing migration", wantText: "I led the billing migration", wantParts: 1},
		{name: "audio only drops text", message: "", audio: clip, wantParts: 1, wantAudio: true},
		{name: "blank text with audio drops text", message: "  \n", audio: clip, wantParts: 1, wantAudio: true},
		{name: "text and audio", message: "see attached", audio: clip, wantText: "see attached", wantParts: 2, wantAudio: true},
		{name: "empty text without audio keeps text part", message: "", wantParts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			contents := buildContents(nil, tt.message, tt.audio)
			if len(contents) != 1 {
				t.Fatalf("Expected 1 content, got %d", len(contents))
			}
			last := contents[0]
			if last.Role != string(genai.RoleUser) {
				t.Errorf("Expected role %q, got %q", genai.RoleUser, last.Role)
			}
			if len(last.Parts) != tt.wantParts {
				t.Fatalf("Expected %d parts, got %d", tt.wantParts, len(last.Parts))
			}

			var text string
			var blob *genai.Blob
			for _, part := range last.Parts {
				if part.InlineData != nil {
					blob = part.InlineData
					continue
				}
				text += part.Text
			}
			if text != tt.wantText {
				t.Errorf("Expected text %q, got %q", tt.wantText, text)
			}
			if tt.wantAudio {
				if blob == nil {
					t.Fatal("Expected inline audio part")
				}
				if blob.MIMEType != clip.MIMEType || !bytes.Equal(blob.Data, clip.Data) {
					t.Errorf("Expected audio %s/%x, got %s/%x", clip.MIMEType, clip.Data, blob.MIMEType, blob.Data)
				}
			} else if blob != nil {
				t.Error("Expected no inline audio part")
			}
		})
	}
}

func TestBuildContents_HistoryRoles(t *testing.T) {
	t.Parallel()

	history := []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "What was your last role?"},
		{Role: RoleUser, Content: "Staff engineer"},
	}

	contents := buildContents(history, "next", nil)
	if len(contents) != len(history)+1 {
		t.Fatalf("Expected %d contents, got %d", len(history)+1, len(contents))
	}

	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser), string(genai.RoleUser)}
	wantText := []string{"hello", "What was your last role?", "Staff engineer", "next"}
	for i, c := range contents {
		if c.Role != wantRoles[i] {
			t.Errorf("Content %d: expected role %q, got %q", i, wantRoles[i], c.Role)
		}
		if len(c.Parts) != 1 || c.Parts[0].Text != wantText[i] {
			t.Errorf("Content %d: expected text %q, got %+v", i, wantText[i], c.Parts)
		}
	}
}

func TestToGenaiSchema_Bounds(t *testing.T) {
	t.Parallel()

	schema := &Schema{
		Type:     TypeObject,
		Required: []string{"questions", "score"},
		Properties: map[string]*Schema{
			"questions": {
				Type:     TypeArray,
				MinItems: Int64(1),
				MaxItems: Int64(50),
				Items: &Schema{
					Type:        TypeObject,
					Description: "one question",
					Properties: map[string]*Schema{
						"answer_index": {Type: TypeInteger},
						"flagged":      {Type: TypeBoolean},
						"prompt":       {Type: TypeString},
					},
				},
			},
			"score": {Type: TypeNumber, Minimum: Float(0), Maximum: Float(1)},
		},
	}

	out := toGenaiSchema(schema)
	if out.Type != genai.TypeObject {
		t.Errorf("Expected object type, got %q", out.Type)
	}
	if len(out.Required) != 2 {
		t.Errorf("Expected 2 required fields, got %v", out.Required)
	}

	questions := out.Properties["questions"]
	if questions == nil || questions.Type != genai.TypeArray {
		t.Fatalf("Expected array property, got %+v", questions)
	}
	if questions.MinItems == nil || *questions.MinItems != 1 {
		t.Errorf("Expected MinItems 1, got %v", questions.MinItems)
	}
	if questions.MaxItems == nil || *questions.MaxItems != 50 {
		t.Errorf("Expected MaxItems 50, got %v", questions.MaxItems)
	}
	if questions.Items == nil || questions.Items.Description != "one question" {
		t.Fatalf("Expected item schema with description, got %+v", questions.Items)
	}

	wantTypes := map[string]genai.Type{
		"answer_index": genai.TypeInteger,
		"flagged":      genai.TypeBoolean,
		"prompt":       genai.TypeString,
	}
	for name, want := range wantTypes {
		if got := questions.Items.Properties[name]; got == nil || got.Type != want {
			t.Errorf("Expected %s to be %q, got %+v", name, want, got)
		}
	}

	score := out.Properties["score"]
	if score == nil || score.Type != genai.TypeNumber {
		t.Fatalf("Expected number property, got %+v", score)
	}
	if score.Minimum == nil || *score.Minimum != 0 {
		t.Errorf("Expected Minimum 0, got %v", score.Minimum)
	}
	if score.Maximum == nil || *score.Maximum != 1 {
		t.Errorf("Expected Maximum 1, got %v", score.Maximum)
	}

	if toGenaiSchema(nil) != nil {
		t.Error("Expected nil schema to map to nil")
	}
}
