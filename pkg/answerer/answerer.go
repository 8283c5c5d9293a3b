// Package answerer turns retrieved context into the final Catalan prose via
// a strategy-specific prompt triplet, then strips any table the model
// emitted despite instructions.
package answerer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/castellsqa/enxaneta/pkg/llms"
)

// Request carries the question and whichever contexts the chosen strategy
// produced. On the hybrid path both contexts are set and the SQL context
// always precedes the document context in the user message.
type Request struct {
	Question   string
	Strategy   string
	SQLContext string
	RAGContext string
}

// Answerer synthesizes the user-visible answer.
type Answerer struct {
	provider llms.Provider
	logger   *slog.Logger
}

func New(provider llms.Provider, logger *slog.Logger) *Answerer {
	return &Answerer{provider: provider, logger: logger}
}

// Answer generates and post-processes the prose.
func (a *Answerer) Answer(ctx context.Context, req Request) (string, error) {
	msgs := llms.Messages{
		System:    systemPrompt,
		Developer: developerPrompt(req.Strategy),
		User:      buildUserMessage(req),
	}

	text, err := a.provider.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	answer := StripTables(text)
	if answer == "" {
		return "", fmt.Errorf("answer empty after post-processing")
	}

	usage := a.provider.LastUsage()
	a.logger.Debug("answer generated",
		"strategy", req.Strategy,
		"input_tokens", usage.Input,
		"output_tokens", usage.Output)
	return answer, nil
}

func buildUserMessage(req Request) string {
	var b strings.Builder

	if req.SQLContext != "" {
		b.WriteString("Dades de la base de dades:\n")
		b.WriteString(req.SQLContext)
		b.WriteString("\n\n")
	}
	if req.RAGContext != "" {
		b.WriteString("Documents de context:\n")
		b.WriteString(req.RAGContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Pregunta: ")
	b.WriteString(req.Question)
	return b.String()
}
