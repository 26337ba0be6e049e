package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"scing/internal/config"
)

// OpenAIBackend sends chat completions through the official SDK. SDK
// retries are disabled; the gateway decides about the one fallback call.
type OpenAIBackend struct {
	client openai.Client
}

// ClientOptions are the SDK options shared by every OpenAI client of the
// process: credentials, optional base URL and proxied client, no retries.
func ClientOptions(cfg config.Gateway, httpClient *http.Client) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

func NewOpenAIBackend(cfg config.Gateway, httpClient *http.Client) *OpenAIBackend {
	return &OpenAIBackend{client: openai.NewClient(ClientOptions(cfg, httpClient)...)}
}

func (b *OpenAIBackend) Complete(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       openai.ChatModel(req.Model),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &BackendError{
				StatusCode: apiErr.StatusCode,
				Code:       apiErr.Code,
				Type:       apiErr.Type,
				Message:    apiErr.Message,
				Err:        err,
			}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}

	return content, nil
}
