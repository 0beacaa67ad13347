package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestResponseText(t *testing.T) {
	out, err := responseText(candidate(genai.Text("Sciopero dei treni "), genai.Text("venerdì")))
	require.NoError(t, err)
	assert.Equal(t, "Sciopero dei treni venerdì", out)
}

func TestResponseTextStripsDisclaimer(t *testing.T) {
	out, err := responseText(candidate(genai.Text("Nuovo ponte a Genova\nNote: translated automatically.")))
	require.NoError(t, err)
	assert.Equal(t, "Nuovo ponte a Genova", out)
}

func TestResponseTextEmpty(t *testing.T) {
	_, err := responseText(nil)
	assert.Error(t, err)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = responseText(candidate(genai.Blob{MIMEType: "image/png"}))
	assert.Error(t, err)
}
