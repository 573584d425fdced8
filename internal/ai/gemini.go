package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Chat(ctx context.Context, modelName string, message string, opts ChatOptions) (*model.ChatReply, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, wrapUpstream(errs.ErrUpstreamChat, err)
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		modelName,
		[]*genai.Content{{Parts: []*genai.Part{{Text: message}}}},
		cfg,
	)
	if err != nil {
		return nil, wrapUpstream(errs.ErrUpstreamChat, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, malformed("gemini response has no candidates")
	}
	reply := &model.ChatReply{Message: text}
	// Usage counters stay zero when usage metadata is absent.
	if resp.UsageMetadata != nil {
		reply.Usage.PromptTokens = uint32(resp.UsageMetadata.PromptTokenCount)
		reply.Usage.CompletionTokens = uint32(resp.UsageMetadata.CandidatesTokenCount)
		reply.Usage.TotalTokens = uint32(resp.UsageMetadata.TotalTokenCount)
	}
	return reply, nil
}

type geminiEmbedProvider struct {
	apiKey string
}

func (p *geminiEmbedProvider) Name() string {
	return "gemini"
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, modelName string, text string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, wrapUpstream(errs.ErrUpstreamEmbedding, err)
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		modelName,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, wrapUpstream(errs.ErrUpstreamEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, malformed("gemini response has no embedding values")
	}
	return resp.Embeddings[0].Values, nil
}

func createGeminiFactory(args interface{}) (IChatProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiEmbedProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
