package adaptive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/adaptive-rag/classify"
	"github.com/sweetpotato0/adaptive-rag/errors"
)

// generator synthesizes an answer from the query and the filtered evidence.
// It keeps no memory of prior attempts; retry diversity is the engine's
// problem, which is why generation attempts are bounded.
type generator struct {
	classifier *classify.Classifier
	prompt     string
	logger     *slog.Logger
}

func newGenerator(classifier *classify.Classifier, cfg *Config, logger *slog.Logger) *generator {
	return &generator{
		classifier: classifier,
		prompt:     cfg.GenerationPrompt,
		logger:     logger,
	}
}

func (g *generator) Generate(ctx context.Context, question string, evidence []Evidence) (string, error) {
	payload := fmt.Sprintf("Question: %s\nContext:\n%s\nAnswer:", question, formatEvidence(evidence))

	answer, err := g.classifier.Generate(ctx, g.prompt, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrGeneration, err)
	}
	if answer == "" {
		return "", fmt.Errorf("%w: empty generation", errors.ErrGeneration)
	}

	g.logger.Info("answer generated", "length", len(answer))
	return answer, nil
}

// formatEvidence joins evidence into one context blob, order preserved, with
// each fragment attributed to its source so the generator can cite facts.
func formatEvidence(evidence []Evidence) string {
	if len(evidence) == 0 {
		return "No external context was retrieved."
	}
	var b strings.Builder
	for i, ev := range evidence {
		source := ev.Source
		if source == "" {
			source = fmt.Sprintf("fragment-%d", i+1)
		}
		fmt.Fprintf(&b, "[%s]\n%s\n---\n", source, ev.Content)
	}
	return b.String()
}
