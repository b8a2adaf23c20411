package adaptive

import (
	"strings"
	"time"
)

// Config controls the behaviour of the pipeline engine. It groups routing
// topics, loop bounds, timeouts, and the system prompts of every LLM role so
// callers can construct reproducible engines from a single struct.
type Config struct {
	Name string // Logical name for tracing/logging

	// Topics the knowledge base covers; anything outside routes to live search.
	Topics []string

	MaxRewrites    int // Upper bound on query rewrites per turn
	MaxGenerations int // Upper bound on generation attempts per turn

	// CallTimeout applies to every external call (classifier, retrieval,
	// search). Zero disables the per-call timeout.
	CallTimeout time.Duration

	RouterPrompt        string // System prompt for the query router
	GraderPrompt        string // System prompt for the document grader
	GenerationPrompt    string // System prompt for the answer generator
	HallucinationPrompt string // System prompt for the groundedness check
	AnswerPrompt        string // System prompt for the answer-relevance check
	RewritePrompt       string // System prompt for the question rewriter

	// ExhaustedMessage is recorded in the transcript when loop bounds are
	// reached without an acceptable answer.
	ExhaustedMessage string
}

// Option customises the engine configuration.
type Option func(*Config)

// WithName sets the logical engine name used in logs and traces.
func WithName(name string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(name) != "" {
			cfg.Name = name
		}
	}
}

// WithTopics sets the closed set of topics the knowledge base covers.
func WithTopics(topics ...string) Option {
	return func(cfg *Config) {
		if len(topics) > 0 {
			cfg.Topics = topics
		}
	}
}

// WithMaxRewrites bounds how many times the query may be rewritten per turn.
func WithMaxRewrites(max int) Option {
	return func(cfg *Config) {
		if max > 0 {
			cfg.MaxRewrites = max
		}
	}
}

// WithMaxGenerations bounds how many generation attempts are allowed per turn.
func WithMaxGenerations(max int) Option {
	return func(cfg *Config) {
		if max > 0 {
			cfg.MaxGenerations = max
		}
	}
}

// WithCallTimeout sets the timeout applied to each external call.
func WithCallTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d >= 0 {
			cfg.CallTimeout = d
		}
	}
}

// WithRouterPrompt overrides the router system prompt. The {{topics}}
// placeholder expands to the configured topic list.
func WithRouterPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.RouterPrompt = prompt
		}
	}
}

// WithGraderPrompt overrides the document grader system prompt.
func WithGraderPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.GraderPrompt = prompt
		}
	}
}

// WithGenerationPrompt overrides the answer generator system prompt.
func WithGenerationPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.GenerationPrompt = prompt
		}
	}
}

// WithHallucinationPrompt overrides the groundedness-check system prompt.
func WithHallucinationPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.HallucinationPrompt = prompt
		}
	}
}

// WithAnswerPrompt overrides the answer-relevance system prompt.
func WithAnswerPrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.AnswerPrompt = prompt
		}
	}
}

// WithRewritePrompt overrides the question rewriter system prompt.
func WithRewritePrompt(prompt string) Option {
	return func(cfg *Config) {
		if prompt != "" {
			cfg.RewritePrompt = prompt
		}
	}
}

// WithExhaustedMessage customises the message recorded when loop bounds are
// reached without an acceptable answer.
func WithExhaustedMessage(msg string) Option {
	return func(cfg *Config) {
		if strings.TrimSpace(msg) != "" {
			cfg.ExhaustedMessage = msg
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:           "adaptive-rag",
		Topics:         []string{"Agents", "Prompt Engineering", "Adversarial Attacks"},
		MaxRewrites:    3,
		MaxGenerations: 3,
		CallTimeout:    60 * time.Second,
		RouterPrompt: `You are an expert in intelligently routing user queries to the most appropriate data source.

The knowledge base contains documents specifically related to the following topics:
{{topics}}

For queries related to these topics, use the knowledge base.
For all other queries, use live web search to fetch real-time information from the internet.
Answer with exactly one label: "knowledge-base" or "live-search".`,
		GraderPrompt: `You are an expert grader evaluating the relevance of a retrieved document to a user question.

Criteria for grading:
- If the document contains keywords, phrases, or semantic meaning related to the user question, classify it as relevant.
- The evaluation does not need to be overly strict; the primary goal is to filter out clearly incorrect retrievals.
- Provide a binary score:
- "yes" means relevant to the question.
- "no" means not relevant to the question.`,
		GenerationPrompt: `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.`,
		HallucinationPrompt: `You are an expert grader assessing whether an LLM-generated response is factually grounded in a provided set of retrieved facts.

Evaluation Criteria:
- If the generated response is fully supported by the provided facts, classify it as 'yes'.
- If the response contains information that is not explicitly supported or contradicts the facts, classify it as 'no'.

Provide a binary score:
- "yes" means the response is grounded in the given facts.
- "no" means the response contains hallucinations or unsupported information.`,
		AnswerPrompt: `You are an expert grader evaluating whether an answer adequately addresses a given question.

Evaluation Criteria:
- If the answer fully resolves the question, classify it as 'yes'.
- If the answer is incomplete, off-topic, or does not sufficiently resolve the question, classify it as 'no'.

Provide a binary score:
- "yes" means the answer sufficiently resolves the question.
- "no" means the answer does not adequately address the question.`,
		RewritePrompt: `You are an expert question rewriter specializing in optimizing queries for knowledge retrieval.

Task:
- Convert an input question into a more effective version that enhances retrieval accuracy.
- Analyze the underlying semantic intent and meaning to refine the question.
- Ensure the rewritten question is clear, specific, and optimized for retrieving relevant results.`,
		ExhaustedMessage: "I could not produce a satisfactory answer to this question. Please rephrase it or provide more context.",
	}
}

func applyOptions(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}
