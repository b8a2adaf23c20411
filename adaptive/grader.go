package adaptive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/adaptive-rag/classify"
)

// docGrader filters evidence by relevance to the current query. The grading
// criterion is deliberately permissive: false positives are tolerated, the
// failure mode to avoid is discarding genuinely relevant evidence.
type docGrader struct {
	classifier *classify.Classifier
	prompt     string
	logger     *slog.Logger
}

func newDocGrader(classifier *classify.Classifier, cfg *Config, logger *slog.Logger) *docGrader {
	return &docGrader{
		classifier: classifier,
		prompt:     cfg.GraderPrompt,
		logger:     logger,
	}
}

// Filter returns the order-preserving sub-sequence of evidence graded
// relevant. An empty input returns empty without issuing any classifier call.
func (g *docGrader) Filter(ctx context.Context, question string, evidence []Evidence) ([]Evidence, error) {
	if len(evidence) == 0 {
		return nil, nil
	}

	filtered := make([]Evidence, 0, len(evidence))
	for _, ev := range evidence {
		payload := fmt.Sprintf("Evaluate the relevance of the following document:\n\n"+
			"Retrieved Document:\n%s\n\n"+
			"User Question: %s\n\n"+
			"Provide a binary score ('yes' or 'no').", ev.Content, question)

		label, err := g.classifier.Classify(ctx, g.prompt, payload, string(GradeYes), string(GradeNo))
		if err != nil {
			return nil, err
		}

		if Grade(label) == GradeYes {
			g.logger.Debug("evidence graded relevant", "source", ev.Source)
			filtered = append(filtered, ev)
		} else {
			g.logger.Debug("evidence graded not relevant", "source", ev.Source)
		}
	}

	g.logger.Info("evidence graded", "in", len(evidence), "kept", len(filtered))
	return filtered, nil
}
