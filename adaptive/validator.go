package adaptive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/adaptive-rag/classify"
)

// validator applies the two-stage grading cascade to a candidate answer:
// groundedness first, then relevance. The relevance check is skipped when the
// answer is not grounded; an answer can only be useful once it is grounded.
type validator struct {
	classifier          *classify.Classifier
	hallucinationPrompt string
	answerPrompt        string
	logger              *slog.Logger
}

func newValidator(classifier *classify.Classifier, cfg *Config, logger *slog.Logger) *validator {
	return &validator{
		classifier:          classifier,
		hallucinationPrompt: cfg.HallucinationPrompt,
		answerPrompt:        cfg.AnswerPrompt,
		logger:              logger,
	}
}

// Validate produces exactly one of {useful, unsupported, irrelevant}.
func (v *validator) Validate(ctx context.Context, question, generation string, evidence []Evidence) (Verdict, error) {
	facts := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		facts = append(facts, ev.Content)
	}

	groundedPayload := fmt.Sprintf("Evaluate the factual grounding of the following response:\n\n"+
		"Set of Facts:\n%s\n\n"+
		"LLM-Generated Response: %s\n\n"+
		"Provide a binary score ('yes' or 'no').", strings.Join(facts, "\n\n"), generation)

	grounded, err := v.classifier.Classify(ctx, v.hallucinationPrompt, groundedPayload, string(GradeYes), string(GradeNo))
	if err != nil {
		return "", err
	}
	if Grade(grounded) != GradeYes {
		v.logger.Info("generation not grounded in evidence")
		return VerdictUnsupported, nil
	}

	answerPayload := fmt.Sprintf("Evaluate whether the following response adequately addresses the user's question:\n\n"+
		"User Question: %s\n\n"+
		"LLM-Generated Response: %s\n\n"+
		"Provide a binary score ('yes' or 'no').", question, generation)

	addresses, err := v.classifier.Classify(ctx, v.answerPrompt, answerPayload, string(GradeYes), string(GradeNo))
	if err != nil {
		return "", err
	}
	if Grade(addresses) == GradeYes {
		v.logger.Info("generation grounded and addresses the question")
		return VerdictUseful, nil
	}

	v.logger.Info("generation grounded but does not address the question")
	return VerdictIrrelevant, nil
}
