package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/deusflow/newsdigest/internal/translate"
)

const defaultModel = "gemini-1.5-flash"

// Client translates headlines with a Gemini model. It implements
// translate.Translator.
type Client struct {
	client *genai.Client
	model  string
	target language.Tag
}

func NewClient(ctx context.Context, apiKey string, target language.Tag) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: defaultModel, target: target}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(translate.Prompt(c.target)))
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(500)

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(resp)
}

// responseText joins the text parts of the first candidate and strips any
// disclaimer the model added.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	out := translate.SanitizeAIText(strings.TrimSpace(b.String()))
	if out == "" {
		return "", errors.New("empty response from Gemini")
	}
	return out, nil
}
