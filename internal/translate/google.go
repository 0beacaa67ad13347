package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/deusflow/newsdigest/internal/httpclient"
)

// GoogleEndpoint is the free, keyless Google Translate endpoint.
const GoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// Google translates through the public "gtx" endpoint. The source language
// is detected by the service.
type Google struct {
	client   *httpclient.Client
	endpoint string
	target   string
}

// NewGoogle creates the backend. An empty endpoint means GoogleEndpoint.
func NewGoogle(client *httpclient.Client, endpoint, target string) *Google {
	if endpoint == "" {
		endpoint = GoogleEndpoint
	}
	return &Google{client: client, endpoint: endpoint, target: target}
}

func (g *Google) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", g.target)
	params.Set("dt", "t")
	params.Set("q", truncate(text, maxChars))

	body, err := g.client.Get(ctx, g.endpoint+"?"+params.Encode())
	if err != nil {
		return "", err
	}

	translation, err := parseGoogleResponse(body)
	if err != nil {
		return "", fmt.Errorf("error parsing google response: %w", err)
	}
	return translation, nil
}

// parseGoogleResponse joins the translated segments of a gtx answer, which is
// an array whose first element lists [translated, original, ...] tuples.
func parseGoogleResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}

	if len(response) == 0 {
		return "", errors.New("empty response")
	}

	segments, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, segment := range segments {
		if parts, ok := segment.([]interface{}); ok && len(parts) > 0 {
			if translated, ok := parts[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}

	return result.String(), nil
}
