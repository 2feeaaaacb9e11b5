package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"preventivo/internal/models"
	"preventivo/internal/pricing"
)

// ContentGenerator produces free-text output for a prompt. Satisfied by the
// Gemini-backed generator in production and by stubs in tests.
type ContentGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// GeminiGenerator wraps a Gemini generative model.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGenerator{client: client, model: client.GenerativeModel(model)}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	var out strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				out.WriteString(string(txt))
			}
		}
	}
	if out.Len() == 0 {
		return "", errors.New("empty model response")
	}
	return out.String(), nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// AnalysisService summarizes a document's commercial content for employees.
type AnalysisService struct {
	docs      *DocumentService
	quotes    *QuoteService
	generator ContentGenerator
}

func NewAnalysisService(docs *DocumentService, quotes *QuoteService, generator ContentGenerator) *AnalysisService {
	return &AnalysisService{docs: docs, quotes: quotes, generator: generator}
}

// AnalyzeDocument builds a summary prompt from the priced document and asks
// the generator for a short commercial assessment.
func (s *AnalysisService) AnalyzeDocument(ctx context.Context, hash string) (string, error) {
	doc, err := s.docs.GetByHash(hash)
	if err != nil {
		return "", err
	}
	breakdown, err := s.quotes.Price(doc)
	if err != nil {
		return "", err
	}
	return s.generator.Generate(ctx, analysisPrompt(doc, breakdown))
}

func analysisPrompt(doc *models.Document, b *pricing.Breakdown) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant for a sales team. Summarize the following quote in a few sentences: ")
	sb.WriteString("highlight the overall value, the discount level, and anything a salesperson should double-check before sending it.\n\n")
	fmt.Fprintf(&sb, "State: %s\n", doc.State)
	fmt.Fprintf(&sb, "Products: %d\n", len(b.Products))
	for _, p := range b.Products {
		fmt.Fprintf(&sb, "- %s: %.2f (discount %.0f%%, %d accessories)\n", p.Name, p.Price, p.Discount, len(p.Components))
	}
	fmt.Fprintf(&sb, "Subtotal: %.2f\n", b.TotalAll)
	fmt.Fprintf(&sb, "After line discounts: %.2f\n", b.TotalAllDiscounted)
	fmt.Fprintf(&sb, "Additional discount: %.2f\n", doc.Discount)
	fmt.Fprintf(&sb, "Total with VAT: %.2f\n", b.TotalAllWithTaxes)
	if doc.Note != "" {
		fmt.Fprintf(&sb, "Note: %s\n", doc.Note)
	}
	return sb.String()
}
