package ai

import (
	"context"
	"fmt"
	"iter"
	"sort"
)

// Role tags a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of a conversation
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Audio is an inline audio attachment carried with the newest user turn
type Audio struct {
	MIMEType string
	Data     []byte
}

// ChatRequest is a streamed conversational completion
type ChatRequest struct {
	Model             string
	SystemInstruction string
	Temperature       float64
	// History holds the prior turns; Message is always sent as the final user turn
	History []Turn
	Message string
	Audio   *Audio
}

// CompletionRequest is a single non-streaming prompt
type CompletionRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Temperature       float64
}

// StructuredRequest asks for output constrained by a JSON schema
type StructuredRequest struct {
	Model       string
	Prompt      string
	SchemaName  string
	Schema      *Schema
	Temperature float64
}

// Provider is the interface for AI providers
type Provider interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// StreamChat opens a streamed completion. The returned sequence yields text
	// fragments in arrival order and ends after the first error.
	StreamChat(ctx context.Context, req ChatRequest) (iter.Seq2[string, error], error)

	// Complete returns the full text of a single completion. A completion with
	// no text other than whitespace is ErrEmptyResponse, never ""; GenerateJSON follows the same rule.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// GenerateJSON returns the raw JSON payload of a schema-guided completion
	GenerateJSON(ctx context.Context, req StructuredRequest) (string, error)
}

// ProviderFactory creates an AI provider from string settings
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// Names lists registered providers in sorted order
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	p, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
	}
	return p, nil
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
