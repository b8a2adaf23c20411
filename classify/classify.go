package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/adaptive-rag/errors"
	"github.com/sweetpotato0/adaptive-rag/llm"
	"github.com/sweetpotato0/adaptive-rag/message"
	"github.com/sweetpotato0/adaptive-rag/pkg/logging"
)

// Classifier wraps an LLM client and restricts it to produce one of a fixed
// set of labels from a prompt-shaped input. Free-text roles use Generate.
type Classifier struct {
	llm    llm.Client
	logger *slog.Logger
}

// New creates a classifier over the given LLM client.
func New(client llm.Client) *Classifier {
	return &Classifier{
		llm:    client,
		logger: logging.WithComponent("classifier"),
	}
}

// Classify issues one constrained classification call and returns exactly one
// of the allowed labels. Any transport failure or unparseable output surfaces
// as errors.ErrClassification.
func (c *Classifier) Classify(ctx context.Context, system, payload string, allowed ...string) (string, error) {
	if c.llm == nil {
		return "", fmt.Errorf("%w: classifier LLM is not configured", errors.ErrConfiguration)
	}
	if len(allowed) == 0 {
		return "", fmt.Errorf("%w: no allowed labels supplied", errors.ErrConfiguration)
	}

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, system),
		message.NewMessage(message.RoleUser, payload),
	}

	resp, err := c.llm.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrClassification, err)
	}
	if resp == nil || resp.Text() == "" {
		return "", fmt.Errorf("%w: empty classifier response", errors.ErrClassification)
	}

	label, ok := extractLabel(resp.Text(), allowed)
	if !ok {
		c.logger.Warn("classifier output did not match any allowed label",
			"output", trimForLog(resp.Text(), 120),
			"allowed", strings.Join(allowed, ","),
		)
		return "", fmt.Errorf("%w: output %q not in allowed labels", errors.ErrClassification, trimForLog(resp.Text(), 120))
	}
	return label, nil
}

// Generate issues one free-text call for generator/rewriter roles. Errors are
// returned raw so the caller can apply its own failure taxonomy.
func (c *Classifier) Generate(ctx context.Context, system, payload string) (string, error) {
	if c.llm == nil {
		return "", fmt.Errorf("%w: generation LLM is not configured", errors.ErrConfiguration)
	}

	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, system),
		message.NewMessage(message.RoleUser, payload),
	}

	resp, err := c.llm.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("empty generation response")
	}
	return strings.TrimSpace(resp.Text()), nil
}

// extractLabel normalises raw model output and matches it against the allowed
// label set. JSON-wrapped and fenced outputs are tolerated.
func extractLabel(raw string, allowed []string) (string, bool) {
	clean := sanitize(raw)

	if label, ok := matchLabel(clean, allowed); ok {
		return label, ok
	}

	// Structured-output models often wrap the label in a small JSON object.
	var obj map[string]any
	if err := json.Unmarshal([]byte(clean), &obj); err == nil {
		for _, v := range obj {
			if s, ok := v.(string); ok {
				if label, ok := matchLabel(s, allowed); ok {
					return label, true
				}
			}
		}
	}

	// Last resort: accept when exactly one allowed label appears in the text.
	lower := strings.ToLower(clean)
	var found string
	for _, label := range allowed {
		if strings.Contains(lower, strings.ToLower(label)) {
			if found != "" {
				return "", false
			}
			found = label
		}
	}
	return found, found != ""
}

func matchLabel(text string, allowed []string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, `"'.`)
	for _, label := range allowed {
		if normalized == strings.ToLower(label) {
			return label, true
		}
	}
	return "", false
}

func sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if idx := strings.Index(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

func trimForLog(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
