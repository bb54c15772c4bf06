// Package llm produces answers grounded in retrieved document passages.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"pdf-rag-chat/internal/models"
)

// Generator turns a question and its supporting passages into an answer.
type Generator struct {
	model       llms.Model
	temperature float64
}

func NewGenerator(model llms.Model, temperature float64) *Generator {
	return &Generator{
		model:       model,
		temperature: temperature,
	}
}

func (g *Generator) Generate(ctx context.Context, question string, sources []models.Source) (string, error) {
	prompt := g.buildPrompt(question, sources)

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return strings.TrimSpace(answer), nil
}

func (g *Generator) buildPrompt(question string, sources []models.Source) string {
	var contextStr strings.Builder

	contextStr.WriteString("You are a helpful assistant that answers questions about a PDF document the user uploaded.\n\n")
	contextStr.WriteString("Document Excerpts:\n")

	for i, src := range sources {
		contextStr.WriteString(fmt.Sprintf("\nExcerpt %d (page %d):\n", i+1, src.PageNumber))
		contextStr.WriteString(fmt.Sprintf("%s\n", src.Text))
		contextStr.WriteString("---\n")
	}

	contextStr.WriteString(fmt.Sprintf("\nQuestion: %s\n", question))
	contextStr.WriteString("\nPlease answer the question based ONLY on the document excerpts above and cite page numbers where helpful. If the answer cannot be found in the excerpts, say so clearly.\n\nAnswer: ")

	return contextStr.String()
}
