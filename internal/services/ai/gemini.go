package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/benvon/sculptor/internal/metrics"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Provider on the Gemini API. It is the only
// provider that accepts inline audio on the newest user turn.
type GeminiProvider struct {
	client *genai.Client
	model  string
	log    callLogger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider. baseURL is optional.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		log:    callLogger{logger: logger, debugMode: debugMode, provider: ProviderGemini},
	}, nil
}

// Name implements Provider
func (g *GeminiProvider) Name() string { return ProviderGemini }

func (g *GeminiProvider) modelFor(requested string) string {
	if requested != "" {
		return requested
	}
	return g.model
}

// buildContents maps the conversation onto genai contents. The final user
// content carries the message text and, when present, the audio blob.
func buildContents(history []Turn, message string, audio *Audio) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	var parts []*genai.Part
	if strings.TrimSpace(message) != "" || audio == nil {
		parts = append(parts, genai.NewPartFromText(message))
	}
	if audio != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: audio.MIMEType,
				Data:     audio.Data,
			},
		})
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

func generationConfig(system string, temperature float64) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(temperature))
	}
	return cfg
}

// StreamChat implements Provider
func (g *GeminiProvider) StreamChat(ctx context.Context, req ChatRequest) (iter.Seq2[string, error], error) {
	model := g.modelFor(req.Model)
	contents := buildContents(req.History, req.Message, req.Audio)
	cfg := generationConfig(req.SystemInstruction, req.Temperature)

	g.log.request(ctx, "stream_chat", model, req.Message, len(contents))
	started := time.Now()

	return func(yield func(string, error) bool) {
		var (
			err     error
			content strings.Builder
		)
		defer func() {
			metrics.ObserveAI(ProviderGemini, "stream_chat", started, err)
			if err != nil {
				g.log.failure(ctx, "stream_chat", model, err, time.Since(started))
				return
			}
			g.log.response(ctx, "stream_chat", model, content.String(), time.Since(started))
		}()

		for resp, streamErr := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if streamErr != nil {
				err = wrapProviderError("stream chat completion", streamErr)
				yield("", err)
				return
			}
			fragment := resp.Text()
			if fragment == "" {
				continue
			}
			content.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}
	}, nil
}

// Complete implements Provider
func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := g.modelFor(req.Model)
	cfg := generationConfig(req.SystemInstruction, req.Temperature)
	return g.generate(ctx, "complete", model, req.Prompt, cfg)
}

// GenerateJSON implements Provider
func (g *GeminiProvider) GenerateJSON(ctx context.Context, req StructuredRequest) (string, error) {
	if req.Schema == nil {
		return "", errors.New("failed to generate json: schema is required")
	}
	model := g.modelFor(req.Model)
	cfg := generationConfig("", req.Temperature)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = toGenaiSchema(req.Schema)
	return g.generate(ctx, "generate_json", model, req.Prompt, cfg)
}

func (g *GeminiProvider) generate(ctx context.Context, operation, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	g.log.request(ctx, operation, model, prompt, 1)

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	latency := time.Since(start)
	if err != nil {
		err = wrapProviderError(strings.ReplaceAll(operation, "_", " "), err)
		metrics.ObserveAI(ProviderGemini, operation, start, err)
		g.log.failure(ctx, operation, model, err, latency)
		return "", err
	}

	content := result.Text()
	if strings.TrimSpace(content) == "" {
		metrics.ObserveAI(ProviderGemini, operation, start, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	metrics.ObserveAI(ProviderGemini, operation, start, nil)
	g.log.response(ctx, operation, model, content, latency)
	return content, nil
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
		MinItems:    s.MinItems,
		MaxItems:    s.MaxItems,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
