// Package adaptive implements an adaptive retrieval-augmented answering
// pipeline: a router chooses between a knowledge index and live web search,
// retrieved evidence is filtered for relevance, and the generated answer is
// validated for grounding and relevance with bounded rewrite/regeneration
// loops.
package adaptive

import "context"

// Route identifies which evidence-provider path a query takes.
type Route string

const (
	// RouteKnowledgeBase sends the query to the precomputed vector index.
	RouteKnowledgeBase Route = "knowledge-base"
	// RouteWebSearch sends the query to a live web-search service.
	RouteWebSearch Route = "live-search"
)

// Grade is the binary label emitted by yes/no graders.
type Grade string

const (
	GradeYes Grade = "yes"
	GradeNo  Grade = "no"
)

// Verdict is the three-way outcome of the output validator.
type Verdict string

const (
	// VerdictUseful means the generation is grounded and addresses the question.
	VerdictUseful Verdict = "useful"
	// VerdictUnsupported means the generation contains claims the evidence
	// does not support.
	VerdictUnsupported Verdict = "unsupported"
	// VerdictIrrelevant means the generation is grounded but does not address
	// the question.
	VerdictIrrelevant Verdict = "irrelevant"
)

// Evidence is a retrieved or searched text fragment used as context for
// generation. Ordering from the provider is preserved through filtering.
type Evidence struct {
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

// Provider returns ranked evidence for a query. Implementations only read
// the query and must not mutate pipeline state.
type Provider interface {
	Fetch(ctx context.Context, query string) ([]Evidence, error)
}

// Providers binds each route to an evidence provider. Both bindings are
// required; a missing one is a configuration error at engine construction.
type Providers struct {
	Retrieval Provider
	WebSearch Provider
}

// Step identifies a state of the workflow engine.
type Step int

const (
	StepRoute Step = iota
	StepProvideEvidence
	StepGradeDocs
	StepRewrite
	StepGenerate
	StepValidate
	StepDone
	StepFailed
)

// String returns the step name for logs and traces.
func (s Step) String() string {
	switch s {
	case StepRoute:
		return "route"
	case StepProvideEvidence:
		return "provide_evidence"
	case StepGradeDocs:
		return "grade_docs"
	case StepRewrite:
		return "rewrite"
	case StepGenerate:
		return "generate"
	case StepValidate:
		return "validate"
	case StepDone:
		return "done"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the unit of data threaded through the state machine. It is created
// fresh per user turn, mutated in place by each step, and discarded once a
// terminal step is reached.
type State struct {
	// OriginalQuery is the user's question as asked; it is immutable and the
	// only query shown back to the caller.
	OriginalQuery string
	// CurrentQuery is the query used for retrieval; rewrites replace it.
	CurrentQuery string
	// Route is the provider path chosen at routing time; rewrite loops
	// re-fetch from the same route.
	Route Route
	// Evidence holds, after grading, only items that passed the relevance
	// filter, in provider order.
	Evidence []Evidence
	// Generation is the current candidate answer, present only after a
	// generate step.
	Generation string
	// Rewrites counts query rewrites within this turn.
	Rewrites int
	// Generations counts answer generation attempts within this turn.
	Generations int
	// FailureReason is set when the turn ends in StepFailed.
	FailureReason string
}

// Status reports how a turn terminated.
type Status string

const (
	// StatusAnswered means the validator accepted a generation.
	StatusAnswered Status = "answered"
	// StatusExhausted means a rewrite or regeneration bound was reached
	// before an acceptable answer was produced.
	StatusExhausted Status = "exhausted"
)

// Result is the per-turn outcome the engine emits to its caller.
type Result struct {
	// Query is the original user query, regardless of rewrites.
	Query string
	// Answer is the accepted generation when Status is StatusAnswered.
	Answer string
	// Status reports the terminal outcome.
	Status Status
	// FailureReason describes why no satisfactory answer was produced when
	// Status is StatusExhausted.
	FailureReason string
	// Rewrites and Generations expose the loop counters for observability.
	Rewrites    int
	Generations int
}
