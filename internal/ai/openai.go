package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIClassifier labels photos with an OpenAI vision model.
type OpenAIClassifier struct {
	client *openai.Client
	opts   Options

	mu    sync.Mutex
	usage Usage
}

// NewOpenAIClassifier creates a classifier. Extra request options (such as
// option.WithBaseURL) are passed to the client.
func NewOpenAIClassifier(apiKey string, opts Options, requestOpts ...option.RequestOption) *OpenAIClassifier {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, requestOpts...)...)
	return &OpenAIClassifier{client: &client, opts: opts.withDefaults()}
}

func (p *OpenAIClassifier) Name() string {
	return chatModel
}

// GetUsage returns the accumulated token usage.
func (p *OpenAIClassifier) GetUsage() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

func (p *OpenAIClassifier) trackUsage(inputTokens, outputTokens int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
}

func (p *OpenAIClassifier) Classify(ctx context.Context, imageData []byte) ([]LabelWithConfidence, error) {
	resizedData, err := ResizeImage(imageData, p.opts.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resizedData)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildClassifyPrompt(p.opts.MaxLabels)),
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Label this photo."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(400),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}
		p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		content := resp.Choices[0].Message.Content
		lastResponse = content

		labels, err := parseLabels(content)
		if err != nil {
			lastError = err
			messages = append(messages,
				openai.AssistantMessage(content),
				openai.UserMessage(parseRetryMessage(err)),
			)
			continue
		}
		return labels, nil
	}

	return nil, fmt.Errorf("failed to parse labels JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
