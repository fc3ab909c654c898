// Package copywriter generates the short promotional blurbs shown on
// the marketing site's service cards.
package copywriter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// FallbackText is returned whenever generation is unavailable or fails.
// Callers never see an error; the marketing site always has something
// to show.
const FallbackText = "Experience the power of modern automation. Contact us for a live demo."

const secondaryFallback = "Contact us to learn more about this service."

const defaultModel = "gemini-3-flash-preview"

// generator is the slice of the genai client the writer needs. Narrowed
// for tests.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Writer produces service explanations. The zero-value-like writer
// returned when no API key is configured serves the fallback text.
type Writer struct {
	gen   generator
	model string
}

// New creates a writer. An empty apiKey yields a writer that always
// serves FallbackText, which is how local development runs.
func New(ctx context.Context, apiKey string) (*Writer, error) {
	w := &Writer{model: defaultModel}
	if apiKey == "" {
		slog.Warn("No generation API key configured, promo text uses fallback")
		return w, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	w.gen = client.Models
	return w, nil
}

// ServiceExplanation writes a short punchy pitch for one service. It
// never fails: any generation problem degrades to the fixed fallback.
func (w *Writer) ServiceExplanation(ctx context.Context, serviceName, serviceDetails string) string {
	if w.gen == nil {
		return FallbackText
	}

	prompt := fmt.Sprintf(`You are an expert business efficiency consultant for service-based businesses.
Write a compelling, punchy explanation (max 80 words) of how implementing %q specifically helps a business owner modernise their operations, save time, and increase revenue.

Context: %s

Focus on the business outcome: "Imagine never missing a client call..." or "Picture your schedule filling up automatically...".
Do not use markdown formatting. Keep it plain text.`, serviceName, serviceDetails)

	resp, err := w.gen.GenerateContent(ctx, w.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		slog.Error("Promo text generation failed", "service", serviceName, "err", err)
		return FallbackText
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text
	}
	return secondaryFallback
}
