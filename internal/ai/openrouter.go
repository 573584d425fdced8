package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// openrouterProvider speaks the OpenAI-compatible wire format with the
// extra attribution headers OpenRouter expects.
type openrouterProvider struct {
	inner       *openAIProvider
	httpReferer string
	xTitle      string
}

func (p *openrouterProvider) Name() string {
	return "openrouter"
}

func (p *openrouterProvider) Chat(ctx context.Context, modelName string, message string, opts ChatOptions) (*model.ChatReply, error) {
	if p.inner.apiKey == "" {
		return nil, ErrUnavailable
	}
	reqBody := openAIChatRequest{
		Model:       modelName,
		Messages:    []openAIChatMsg{{Role: "user", Content: message}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	}
	raw, err := p.post(ctx, reqBody)
	if err != nil {
		return nil, wrapUpstream(errs.ErrUpstreamChat, err)
	}
	var out openAIChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, malformed("decode openrouter response: %v", err)
	}
	if len(out.Choices) == 0 {
		return nil, malformed("openrouter response has no choices")
	}
	reply := &model.ChatReply{
		Message: strings.TrimSpace(out.Choices[0].Message.Content),
	}
	if out.Usage != nil {
		reply.Usage.PromptTokens = out.Usage.PromptTokens
		reply.Usage.CompletionTokens = out.Usage.CompletionTokens
		reply.Usage.TotalTokens = out.Usage.TotalTokens
	}
	return reply, nil
}

func (p *openrouterProvider) post(ctx context.Context, body interface{}) ([]byte, error) {
	endpoint := strings.TrimRight(p.inner.baseURL, "/") + "/chat/completions"
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.inner.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if p.httpReferer != "" {
		req.Header.Set("HTTP-Referer", p.httpReferer)
	}
	if p.xTitle != "" {
		req.Header.Set("X-Title", p.xTitle)
	}
	resp, err := p.inner.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readAPIBody(resp)
}

func createOpenRouterFactory(args interface{}) (IChatProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &openrouterProvider{
		inner: &openAIProvider{
			apiKey:  strings.TrimSpace(cfg.APIKey),
			baseURL: baseURL,
			client:  http.DefaultClient,
		},
		httpReferer: strings.TrimSpace(cfg.HTTPReferer),
		xTitle:      strings.TrimSpace(cfg.XTitle),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
