package ai

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/sculptor/internal/metrics"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a whole API call, including a full streamed answer
	DefaultTimeout = 2 * time.Minute
)

// OpenAIProvider implements Provider using OpenAI's chat completions API
type OpenAIProvider struct {
	client openai.Client
	model  string
	log    callLogger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool, opts ...option.RequestOption) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	}, opts...)

	return &OpenAIProvider{
		client: openai.NewClient(clientOpts...),
		model:  model,
		log:    callLogger{logger: logger, debugMode: debugMode, provider: ProviderOpenAI},
	}
}

// Name implements Provider
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) modelFor(requested string) string {
	if requested != "" {
		return requested
	}
	return p.model
}

func chatMessages(system string, history []Turn, message string) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, turn := range history {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	return append(messages, openai.UserMessage(message))
}

// StreamChat implements Provider
func (p *OpenAIProvider) StreamChat(ctx context.Context, req ChatRequest) (iter.Seq2[string, error], error) {
	if req.Audio != nil {
		return nil, ErrAudioUnsupported
	}

	model := p.modelFor(req.Model)
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: chatMessages(req.SystemInstruction, req.History, req.Message),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	p.log.request(ctx, "stream_chat", model, req.Message, len(params.Messages))
	started := time.Now()
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	return func(yield func(string, error) bool) {
		defer func() { _ = stream.Close() }()

		var (
			err     error
			content strings.Builder
		)
		defer func() {
			metrics.ObserveAI(ProviderOpenAI, "stream_chat", started, err)
			if err != nil {
				p.log.failure(ctx, "stream_chat", model, err, time.Since(started))
				return
			}
			p.log.response(ctx, "stream_chat", model, content.String(), time.Since(started))
		}()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			fragment := chunk.Choices[0].Delta.Content
			if fragment == "" {
				continue
			}
			content.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}
		if streamErr := stream.Err(); streamErr != nil {
			err = wrapProviderError("stream chat completion", streamErr)
			yield("", err)
		}
	}, nil
}

// Complete implements Provider
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := p.modelFor(req.Model)
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: chatMessages(req.SystemInstruction, nil, req.Prompt),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return p.send(ctx, "complete", model, req.Prompt, params)
}

// GenerateJSON implements Provider
func (p *OpenAIProvider) GenerateJSON(ctx context.Context, req StructuredRequest) (string, error) {
	if req.Schema == nil {
		return "", errors.New("failed to generate json: schema is required")
	}
	name := req.SchemaName
	if name == "" {
		name = "response"
	}

	model := p.modelFor(req.Model)
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: chatMessages("Respond with valid JSON only.", nil, req.Prompt),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema.Map(),
				},
			},
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	return p.send(ctx, "generate_json", model, req.Prompt, params)
}

func (p *OpenAIProvider) send(ctx context.Context, operation, model, prompt string, params openai.ChatCompletionNewParams) (string, error) {
	p.log.request(ctx, operation, model, prompt, len(params.Messages))

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		err = wrapProviderError(strings.ReplaceAll(operation, "_", " "), err)
		metrics.ObserveAI(ProviderOpenAI, operation, start, err)
		p.log.failure(ctx, operation, model, err, latency)
		return "", err
	}
	if len(resp.Choices) == 0 {
		metrics.ObserveAI(ProviderOpenAI, operation, start, ErrNoChoicesInResponse)
		return "", ErrNoChoicesInResponse
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		metrics.ObserveAI(ProviderOpenAI, operation, start, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	metrics.ObserveAI(ProviderOpenAI, operation, start, nil)
	p.log.response(ctx, operation, model, content, latency)
	return content, nil
}
