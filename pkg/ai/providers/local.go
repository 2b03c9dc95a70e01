package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/config"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

const (
	localDefaultAPIKey  = "not-needed"
	localDefaultTimeout = 120
	localDialTimeout    = 5 * time.Second
)

// ErrEndpointUnreachable wraps connection failures to LOCAL_LLM_URL, usually a
// server that is not running or a wrong port.
var ErrEndpointUnreachable = errors.New("local LLM endpoint unreachable")

// LocalProvider implements the Provider interface against a locally hosted
// OpenAI-compatible server such as Ollama or llama.cpp.
type LocalProvider struct {
	client             openai.Client
	baseURL            string
	defaultModel       string
	defaultTemperature float64
	defaultMaxTokens   int
}

// NewLocalProvider creates a new local provider from config.
func NewLocalProvider(cfg config.Config) (*LocalProvider, error) {
	timeout := cfg.LLM.APITimeoutSeconds
	if timeout <= 0 {
		timeout = localDefaultTimeout
	}
	return newLocalProviderWithHTTPClient(cfg, newLocalHTTPClient(time.Duration(timeout)*time.Second))
}

// newLocalHTTPClient bounds connecting and waiting for response headers
// (a cold model load) but not reading the body: a long streamed answer is
// bounded by the caller's context instead.
func newLocalHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: localDialTimeout}).DialContext
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

func newLocalProviderWithHTTPClient(cfg config.Config, httpClient *http.Client) (*LocalProvider, error) {
	baseURL := strings.TrimSpace(cfg.LocalLLMURL)
	if baseURL == "" {
		return nil, config.ErrMissingEndpoint
	}

	// Local servers ignore the key, but the client refuses to send an empty one.
	apiKey := strings.TrimSpace(cfg.LLM.APIKey)
	if apiKey == "" {
		apiKey = localDefaultAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(opts...)

	slog.Debug("local_provider_ready",
		"base_url", baseURL,
		"default_model", strings.TrimSpace(cfg.Model),
	)

	return &LocalProvider{
		client:             client,
		baseURL:            baseURL,
		defaultModel:       strings.TrimSpace(cfg.Model),
		defaultTemperature: cfg.LLM.Temperature,
		defaultMaxTokens:   cfg.LLM.MaxTokens,
	}, nil
}

// BaseURL returns the endpoint the provider talks to.
func (p *LocalProvider) BaseURL() string {
	return p.baseURL
}

// CreateChatCompletion sends a non-streaming chat completion request.
func (p *LocalProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	params, err := p.buildChatParams(req)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	slog.Debug("local_chat_request",
		"base_url", p.baseURL,
		"model", params.Model,
		"messages", len(params.Messages),
	)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.ChatResponse{}, p.wrapError(err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return ai.ChatResponse{
		Content: content,
		Model:   resp.Model,
	}, nil
}

// CreateChatCompletionStream sends a streaming chat completion request.
func (p *LocalProvider) CreateChatCompletionStream(ctx context.Context, req ai.ChatRequest) (ai.ChatStream, error) {
	params, err := p.buildChatParams(req)
	if err != nil {
		return nil, err
	}

	slog.Debug("local_chat_stream_request",
		"base_url", p.baseURL,
		"model", params.Model,
		"messages", len(params.Messages),
	)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, p.wrapError(err)
	}

	return &localStream{stream: stream}, nil
}

// wrapError tags dial failures with ErrEndpointUnreachable and the base URL.
// Other errors, including HTTP error responses from the server, pass through.
func (p *LocalProvider) wrapError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		slog.Debug("local_endpoint_unreachable", "base_url", p.baseURL, "error", err)
		return fmt.Errorf("%w at %s: %w", ErrEndpointUnreachable, p.baseURL, err)
	}
	return err
}

func (p *LocalProvider) buildChatParams(req ai.ChatRequest) (openai.ChatCompletionNewParams, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		param, err := toChatMessageParam(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	temperature := p.defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	maxTokens := p.defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	return params, nil
}

func toChatMessageParam(msg ai.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch ai.Role(strings.ToLower(strings.TrimSpace(string(msg.Role)))) {
	case ai.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case ai.RoleUser:
		return openai.UserMessage(msg.Content), nil
	case ai.RoleAssistant:
		return openai.AssistantMessage(msg.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role: %s", msg.Role)
	}
}

type localStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *localStream) Next() bool {
	return s.stream.Next()
}

func (s *localStream) Content() string {
	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

func (s *localStream) Err() error {
	return s.stream.Err()
}

func (s *localStream) Close() error {
	return s.stream.Close()
}

// Ensure interface compliance
var _ ai.Provider = (*LocalProvider)(nil)
