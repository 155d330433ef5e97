package ai

import (
	"context"
	_ "embed"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

//go:embed prompts/translate_query.txt
var translateQueryPrompt string

// QueryTranslator rewrites search queries into English before text embedding.
type QueryTranslator struct {
	client *openai.Client
}

// NewQueryTranslator creates a translator backed by OpenAI.
func NewQueryTranslator(apiKey string, requestOpts ...option.RequestOption) *QueryTranslator {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, requestOpts...)...)
	return &QueryTranslator{client: &client}
}

// Translate returns the English query. On failure it returns the original
// text together with the error, so callers can continue untranslated.
func (t *QueryTranslator) Translate(ctx context.Context, text string) (string, error) {
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(translateQueryPrompt),
			openai.UserMessage(text),
		},
		MaxTokens: openai.Int(100),
	})
	if err != nil {
		return text, err
	}
	if len(resp.Choices) == 0 {
		return text, nil
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return text, nil
	}
	return translated, nil
}
