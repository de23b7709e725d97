package career

import (
	"strings"
	"testing"

	"github.com/benvon/sculptor/internal/models"
)

func TestDefaultCatalogCoversEveryType(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	for _, st := range models.SessionTypes {
		if c.Personas[st].Name == "" {
			t.Errorf("Expected persona name for %q", st)
		}
		if c.Documents[st] == "" {
			t.Errorf("Expected document instruction for %q", st)
		}
	}
}

func TestParseCatalog_RejectsIncomplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "personas: ["},
		{"missing personas", "documents:\n  resume: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseCatalog([]byte(tt.yaml)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestSystemInstruction(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	s := &models.ChatSession{
		Type:           models.SessionTypeCareerCopilot,
		JobDescription: models.StringPtr("Staff Engineer"),
	}
	profile := models.UserProfile{Name: "Jane", BaseResumeText: "10 years backend", DailyAvailability: 3}

	first := c.SystemInstruction(NewContext(s, profile, ""))
	second := c.SystemInstruction(NewContext(s, profile, ""))
	if first != second {
		t.Error("Expected system instruction to be deterministic")
	}
	for _, want := range []string{"career coach", "Name: Jane", "Daily availability: 3 hours", "Staff Engineer", "10 years backend"} {
		if !strings.Contains(first, want) {
			t.Errorf("Expected instruction to contain %q", want)
		}
	}

	resume := c.SystemInstruction(NewContext(&models.ChatSession{Type: models.SessionTypeResume}, models.UserProfile{}, ""))
	if strings.Contains(resume, "Target job") {
		t.Error("Expected no job section without a job target")
	}
}

func TestNewContext_BackgroundPrecedence(t *testing.T) {
	t.Parallel()

	profile := models.UserProfile{BaseResumeText: "profile"}
	if got := NewContext(&models.ChatSession{}, profile, "").Background; got != "profile" {
		t.Errorf("Expected profile background, got %q", got)
	}
	override := &models.ChatSession{ResumeText: models.StringPtr("override")}
	if got := NewContext(override, profile, "").Background; got != "override" {
		t.Errorf("Expected session override, got %q", got)
	}
	blank := &models.ChatSession{ResumeText: models.StringPtr("  ")}
	if got := NewContext(blank, profile, "").Background; got != "profile" {
		t.Errorf("Expected blank override to fall back, got %q", got)
	}
}
