package scanning

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/abenov/tenge-scan/internal/fault"
)

// transcriptionPrompt asks the model for a verbatim transcription. All
// structuring happens downstream in the parser, so the engine must not
// summarize or reformat.
const transcriptionPrompt = `Transcribe all text visible in this receipt image exactly as printed, line by line. Preserve numbers, punctuation and the original language (Russian, Kazakh or English). Do not translate, summarize, or add any commentary. Output only the transcribed text.`

// Gemini implements Engine using Google Gemini vision. It is the
// general-purpose engine: fast to integrate and good on clean print, with no
// local model assets.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini engine. A missing API key is a configuration
// failure, reported before any scan is attempted.
func NewGemini(apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fault.New(fault.EngineConfig, "gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fault.Wrap(fault.EngineConfig, "creating gemini client", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Recognize sends the image for transcription and returns the raw text.
func (g *Gemini) Recognize(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	pngData, err := normalizeToPNG(data)
	if err != nil {
		return "", fmt.Errorf("preparing image: %w", err)
	}

	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcriptionPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	return collectText(resp), nil
}

// collectText flattens the text parts of the first candidate. Safety-blocked
// candidates carry a nil Content and yield no text.
func collectText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return strings.TrimSpace(text.String())
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
