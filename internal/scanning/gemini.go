package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt is sent with every page image
const transcribePrompt = `You are reading a photographed or scanned page of study material (course notes, textbook page, handout).
Transcribe ALL readable text exactly as it appears.

Rules:
- Keep the original reading order and line breaks
- Keep headings, numbered items and bullet markers
- Do not translate, summarize, correct or comment
- If the page contains no readable text, return an empty response
- Do not use markdown code blocks`

// GeminiOCR implements ImageOCR using Google Gemini vision models
type GeminiOCR struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGeminiOCR creates a new Gemini OCR engine
func NewGeminiOCR(apiKey string, modelName string) (*GeminiOCR, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiOCR{
		client:  client,
		model:   model,
		timeout: 30 * time.Second,
	}, nil
}

// Recognize transcribes the text in a PNG image
func (g *GeminiOCR) Recognize(ctx context.Context, pngData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// genai.ImageData expects the format suffix, not the full MIME type
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return cleanTranscript(text.String()), nil
}

// Close closes the Gemini client
func (g *GeminiOCR) Close() error {
	return g.client.Close()
}
