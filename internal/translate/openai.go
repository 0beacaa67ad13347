package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
)

// OpenAI translates with a chat completion model.
type OpenAI struct {
	client *openai.Client
	model  string
	target language.Tag
}

// NewOpenAI creates the backend. baseURL may be empty to use the public API.
func NewOpenAI(apiKey, baseURL string, target language.Tag) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
		target: target,
	}
}

func (o *OpenAI) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: Prompt(o.target),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: truncate(text, maxChars),
			},
		},
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return SanitizeAIText(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

// Prompt is the instruction shared by the language model backends.
func Prompt(target language.Tag) string {
	return fmt.Sprintf(`Translate the following news headline to %s.
Keep the meaning and the journalistic tone. Do not translate brand or organisation names.
Answer with the translation only, without quotes, notes or comments.
If the text is already in %s, return it unchanged.`, LanguageName(target), LanguageName(target))
}
