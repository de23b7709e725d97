// Package career implements the document-assistant engines: streamed chat turns,
// document sculpting, study material and career roadmaps.
package career

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/benvon/sculptor/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultCatalogYAML []byte

// Persona is the assistant voice used for one session type
type Persona struct {
	Name        string `yaml:"name"`
	Instruction string `yaml:"instruction"`
}

// Catalog maps session types onto personas and document instructions
type Catalog struct {
	FallbackJobLabel string                        `yaml:"fallback_job_label"`
	Personas         map[models.SessionType]Persona `yaml:"personas"`
	Documents        map[models.SessionType]string  `yaml:"documents"`
}

// ParseCatalog decodes a catalog and checks that every session type is covered
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse persona catalog: %w", err)
	}
	for _, t := range models.SessionTypes {
		if strings.TrimSpace(c.Personas[t].Instruction) == "" {
			return nil, fmt.Errorf("persona catalog missing persona for %q", t)
		}
		if strings.TrimSpace(c.Documents[t]) == "" {
			return nil, fmt.Errorf("persona catalog missing document instruction for %q", t)
		}
	}
	if c.FallbackJobLabel == "" {
		c.FallbackJobLabel = "a general role"
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Context is everything a prompt needs besides the transcript
type Context struct {
	Type       models.SessionType
	JobTarget  string
	Background string
	Profile    models.UserProfile
	Model      string
}

// NewContext assembles the prompt context for a session. The session's resume
// override wins over the profile's base resume.
func NewContext(s *models.ChatSession, profile models.UserProfile, model string) Context {
	c := Context{
		Type:       s.Type,
		Background: profile.BaseResumeText,
		Profile:    profile,
		Model:      model,
	}
	if s.ResumeText != nil && strings.TrimSpace(*s.ResumeText) != "" {
		c.Background = *s.ResumeText
	}
	if s.JobDescription != nil {
		c.JobTarget = strings.TrimSpace(*s.JobDescription)
	}
	return c
}

// SystemInstruction renders the persona plus interpolated profile and job context.
// The output depends only on its inputs.
func (c *Catalog) SystemInstruction(ctx Context) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Personas[ctx.Type].Instruction))

	if contact := ctx.Profile.ContactBlock(); contact != "" {
		b.WriteString("\n\nCandidate profile:\n")
		b.WriteString(contact)
	}
	if ctx.Profile.DailyAvailability > 0 {
		fmt.Fprintf(&b, "Daily availability: %d hours\n", ctx.Profile.DailyAvailability)
	}
	if ctx.JobTarget != "" {
		b.WriteString("\nTarget job:\n")
		b.WriteString(ctx.JobTarget)
		b.WriteByte('\n')
	}
	if ctx.Background != "" {
		b.WriteString("\nCandidate background:\n")
		b.WriteString(ctx.Background)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// JobLabel returns the job target or the catalog's fallback label
func (c *Catalog) JobLabel(ctx Context) string {
	if ctx.JobTarget != "" {
		return ctx.JobTarget
	}
	return c.FallbackJobLabel
}
