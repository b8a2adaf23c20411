package adaptive

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/adaptive-rag/classify"
)

// router classifies the incoming question into one of the two provider
// routes. It has no side effects beyond the single classifier call, so
// routing the same question twice yields the same decision.
type router struct {
	classifier *classify.Classifier
	prompt     string
	topics     []string
	logger     *slog.Logger
}

func newRouter(classifier *classify.Classifier, cfg *Config, logger *slog.Logger) *router {
	return &router{
		classifier: classifier,
		prompt:     cfg.RouterPrompt,
		topics:     cfg.Topics,
		logger:     logger,
	}
}

func (r *router) Route(ctx context.Context, question string) (Route, error) {
	system := strings.ReplaceAll(r.prompt, "{{topics}}", strings.Join(r.topics, ", "))

	label, err := r.classifier.Classify(ctx, system, question,
		string(RouteKnowledgeBase), string(RouteWebSearch))
	if err != nil {
		return "", err
	}

	route := Route(label)
	r.logger.Info("question routed", "route", string(route))
	return route, nil
}
