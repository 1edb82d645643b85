package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/profjobell/studio-sub000/internal/domain/ai"
	"github.com/profjobell/studio-sub000/internal/domain/reports"
	"github.com/profjobell/studio-sub000/internal/infra/ai/prompt"
)

const maxTokens = 4096

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Analyze(ctx context.Context, content string, intent domai.Intent) (*domai.Output, error) {
	model := c.Model
	if model == "" {
		model = openai.GPT4o
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt(string(intent))},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(content)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return nil, domai.ErrQuotaExceeded
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, domai.ErrEmptyResponse
	}

	return DecodeOutput(intent, resp.Choices[0].Message.Content)
}

// DecodeOutput parses the model's JSON payload for the given intent. A
// payload whose error key is set is a failure, the same as a transport
// error, per the collaborator contract.
func DecodeOutput(intent domai.Intent, raw string) (*domai.Output, error) {
	var env struct {
		Analysis *reports.AnalysisResult `json:"analysis"`
		Teaching *reports.TeachingResult `json:"teaching"`
		DeepDive string                  `json:"deep_dive"`
		Error    string                  `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("malformed model payload: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("%w: %s", domai.ErrModelRefusal, env.Error)
	}

	out := &domai.Output{Analysis: env.Analysis, Teaching: env.Teaching, DeepDive: env.DeepDive}
	switch intent {
	case domai.IntentPrimary:
		if out.Analysis == nil || strings.TrimSpace(out.Analysis.Summary) == "" {
			return nil, domai.ErrEmptyResponse
		}
	case domai.IntentTeaching:
		if out.Teaching == nil || strings.TrimSpace(out.Teaching.FullReport) == "" {
			return nil, domai.ErrEmptyResponse
		}
	case domai.IntentDeepDive:
		if strings.TrimSpace(out.DeepDive) == "" {
			return nil, domai.ErrEmptyResponse
		}
	}
	return out, nil
}
