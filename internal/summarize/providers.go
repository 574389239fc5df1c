package summarize

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/n2p5/ytt/internal/quota"
)

// Gemini generates text with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend for one API key.
func NewGemini(ctx context.Context, apiKey, model string, httpClient *http.Client) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate implements Backend.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// OpenAI generates text with any OpenAI-compatible chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-compatible backend. An empty baseURL uses the
// library default.
func NewOpenAI(apiKey, baseURL, model string, httpClient *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate implements Backend.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// ClassifyGemini maps Gemini API errors to outcomes.
func ClassifyGemini(err error) quota.Outcome {
	if o, ok := classifyCommon(err); ok {
		return o
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Status+" "+apiErr.Message)
	}
	return quota.TransientFailure
}

// ClassifyOpenAI maps OpenAI-compatible API errors to outcomes.
func ClassifyOpenAI(err error) quota.Outcome {
	if o, ok := classifyCommon(err); ok {
		return o
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return classifyStatus(apiErr.HTTPStatusCode, code+" "+apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, "")
	}
	return quota.TransientFailure
}

func classifyCommon(err error) (quota.Outcome, bool) {
	switch {
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, context.Canceled):
		return quota.PermanentFailure, true
	case errors.Is(err, context.DeadlineExceeded):
		return quota.TransientFailure, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return quota.TransientFailure, true
	}
	return 0, false
}

// classifyStatus treats a 429 that mentions quota as exhaustion of the key
// and a plain 429 as a rate limit worth waiting for.
func classifyStatus(code int, detail string) quota.Outcome {
	detail = strings.ToLower(detail)
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return quota.QuotaExceeded
	case code == http.StatusTooManyRequests:
		if strings.Contains(detail, "quota") || strings.Contains(detail, "resource_exhausted") {
			return quota.QuotaExceeded
		}
		return quota.TransientFailure
	case code == http.StatusBadRequest && strings.Contains(detail, "api key"):
		return quota.QuotaExceeded
	case code >= 500:
		return quota.TransientFailure
	default:
		return quota.PermanentFailure
	}
}
