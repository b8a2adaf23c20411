package adaptive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/adaptive-rag/classify"
	"github.com/sweetpotato0/adaptive-rag/errors"
)

// rewriter reformulates the current query to improve retrieval. The
// user-visible original query is never touched; only the retrieval query
// changes.
type rewriter struct {
	classifier *classify.Classifier
	prompt     string
	logger     *slog.Logger
}

func newRewriter(classifier *classify.Classifier, cfg *Config, logger *slog.Logger) *rewriter {
	return &rewriter{
		classifier: classifier,
		prompt:     cfg.RewritePrompt,
		logger:     logger,
	}
}

func (r *rewriter) Rewrite(ctx context.Context, question string) (string, error) {
	payload := fmt.Sprintf("Refine the following question to improve its effectiveness for retrieval:\n\n"+
		"Original Question: %s\n\n"+
		"Provide an optimized version of the question. I want only the optimized version of the question, nothing else, no explanation needed.", question)

	rewritten, err := r.classifier.Generate(ctx, r.prompt, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrGeneration, err)
	}
	if rewritten == "" {
		return "", fmt.Errorf("%w: empty rewrite", errors.ErrGeneration)
	}

	r.logger.Info("query rewritten", "length", len(rewritten))
	return rewritten, nil
}
