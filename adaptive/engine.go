package adaptive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/adaptive-rag/classify"
	"github.com/sweetpotato0/adaptive-rag/errors"
	"github.com/sweetpotato0/adaptive-rag/llm"
	"github.com/sweetpotato0/adaptive-rag/pkg/logging"
	"github.com/sweetpotato0/adaptive-rag/pkg/telemetry"
)

// stepHandler executes one workflow step against the turn state and returns
// the next step to enter.
type stepHandler func(ctx context.Context, st *State) (Step, error)

// Engine is the state machine that sequences routing, retrieval, grading,
// generation, and validation for one question at a time. A turn executes on
// one logical thread of control; every step blocks on exactly one external
// call before the engine advances.
type Engine struct {
	cfg       *Config
	providers Providers
	router    *router
	grader    *docGrader
	generator *generator
	rewriter  *rewriter
	validator *validator
	handlers  map[Step]stepHandler
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates a fully wired engine. Both evidence providers must be bound;
// a missing binding is a configuration error here rather than a runtime
// "tool not found" surprise.
func New(client llm.Client, providers Providers, opts ...Option) (*Engine, error) {
	cfg := applyOptions(opts)

	if client == nil {
		return nil, fmt.Errorf("%w: LLM client is required", errors.ErrConfiguration)
	}
	if providers.Retrieval == nil {
		return nil, fmt.Errorf("%w: no evidence provider registered for route %q", errors.ErrConfiguration, RouteKnowledgeBase)
	}
	if providers.WebSearch == nil {
		return nil, fmt.Errorf("%w: no evidence provider registered for route %q", errors.ErrConfiguration, RouteWebSearch)
	}

	classifier := classify.New(client)
	logger := logging.WithComponent("adaptive_engine").With("engine", cfg.Name)

	e := &Engine{
		cfg:       cfg,
		providers: providers,
		router:    newRouter(classifier, cfg, logger),
		grader:    newDocGrader(classifier, cfg, logger),
		generator: newGenerator(classifier, cfg, logger),
		rewriter:  newRewriter(classifier, cfg, logger),
		validator: newValidator(classifier, cfg, logger),
		logger:    logger,
		tracer:    telemetry.Tracer("adaptive"),
	}

	e.handlers = map[Step]stepHandler{
		StepRoute:           e.routeStep,
		StepProvideEvidence: e.provideStep,
		StepGradeDocs:       e.gradeStep,
		StepRewrite:         e.rewriteStep,
		StepGenerate:        e.generateStep,
		StepValidate:        e.validateStep,
	}

	logger.Info("engine initialised",
		"topics", strings.Join(cfg.Topics, ","),
		"max_rewrites", cfg.MaxRewrites,
		"max_generations", cfg.MaxGenerations,
	)
	return e, nil
}

// Run executes one turn for the given question. Infrastructure failures
// (classifier, provider, generator) abort the turn and are returned as
// errors. Exhausted loop bounds are a normal terminal outcome reported via
// Result with StatusExhausted, not an error.
func (e *Engine) Run(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	ctx, span := e.tracer.Start(ctx, "engine.run",
		trace.WithAttributes(attribute.String("engine.name", e.cfg.Name)))

	st := &State{
		OriginalQuery: question,
		CurrentQuery:  question,
	}

	step := StepRoute
	for step != StepDone && step != StepFailed {
		// Every step boundary is a cancellation point.
		if err := ctx.Err(); err != nil {
			telemetry.End(span, err)
			return nil, err
		}

		handler, ok := e.handlers[step]
		if !ok {
			err := fmt.Errorf("%w: no handler for step %s", errors.ErrConfiguration, step)
			telemetry.End(span, err)
			return nil, err
		}

		stepCtx, stepSpan := e.tracer.Start(ctx, "step."+step.String())
		next, err := handler(stepCtx, st)
		telemetry.End(stepSpan, err)
		if err != nil {
			e.logger.Error("step failed", "step", step.String(), "error", err)
			telemetry.End(span, err)
			return nil, err
		}
		e.logger.Debug("step completed", "step", step.String(), "next", next.String())
		step = next
	}

	result := &Result{
		Query:       st.OriginalQuery,
		Rewrites:    st.Rewrites,
		Generations: st.Generations,
	}
	if step == StepFailed {
		result.Status = StatusExhausted
		result.FailureReason = st.FailureReason
		e.logger.Warn("turn exhausted", "reason", st.FailureReason,
			"rewrites", st.Rewrites, "generations", st.Generations)
	} else {
		result.Status = StatusAnswered
		result.Answer = st.Generation
		e.logger.Info("turn answered", "rewrites", st.Rewrites, "generations", st.Generations)
	}
	telemetry.End(span, nil)
	return result, nil
}

func (e *Engine) routeStep(ctx context.Context, st *State) (Step, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	// Routing is cheap to redo on the next user turn, so a classifier
	// failure here aborts without retry.
	route, err := e.router.Route(cctx, st.CurrentQuery)
	if err != nil {
		return 0, err
	}
	st.Route = route
	return StepProvideEvidence, nil
}

func (e *Engine) provideStep(ctx context.Context, st *State) (Step, error) {
	provider, err := e.providerFor(st.Route)
	if err != nil {
		return 0, err
	}

	cctx, cancel := e.callCtx(ctx)
	evidence, err := provider.Fetch(cctx, st.CurrentQuery)
	timedOut := cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil
	cancel()

	if err != nil {
		if timedOut {
			// A timed-out fetch is retryable, charged against the rewrite
			// budget so it cannot loop forever.
			if st.Rewrites >= e.cfg.MaxRewrites {
				st.FailureReason = fmt.Sprintf("%s: evidence fetch timed out after %d attempts", errors.ErrLoopBound, st.Rewrites)
				return StepFailed, nil
			}
			st.Rewrites++
			e.logger.Warn("evidence fetch timed out, retrying", "route", string(st.Route), "attempt", st.Rewrites)
			return StepProvideEvidence, nil
		}
		return 0, fmt.Errorf("%w: %v", errors.ErrProvider, err)
	}

	st.Evidence = evidence
	e.logger.Info("evidence fetched", "route", string(st.Route), "count", len(evidence))
	return StepGradeDocs, nil
}

func (e *Engine) gradeStep(ctx context.Context, st *State) (Step, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	filtered, err := e.grader.Filter(cctx, st.CurrentQuery, st.Evidence)
	if err != nil {
		return 0, err
	}
	st.Evidence = filtered

	// Structural decision, no judgment call: empty evidence means the query
	// needs rewriting, anything else is enough to attempt generation.
	if len(filtered) == 0 {
		return StepRewrite, nil
	}
	return StepGenerate, nil
}

func (e *Engine) rewriteStep(ctx context.Context, st *State) (Step, error) {
	if st.Rewrites >= e.cfg.MaxRewrites {
		st.FailureReason = fmt.Sprintf("%s: no relevant evidence after %d query rewrites", errors.ErrLoopBound, st.Rewrites)
		return StepFailed, nil
	}
	st.Rewrites++

	cctx, cancel := e.callCtx(ctx)
	rewritten, err := e.rewriter.Rewrite(cctx, st.CurrentQuery)
	timedOut := cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil
	cancel()

	if err != nil {
		if timedOut {
			return StepRewrite, nil
		}
		return 0, err
	}

	st.CurrentQuery = rewritten
	st.Evidence = nil
	st.Generation = ""
	return StepProvideEvidence, nil
}

func (e *Engine) generateStep(ctx context.Context, st *State) (Step, error) {
	st.Generations++

	cctx, cancel := e.callCtx(ctx)
	generation, err := e.generator.Generate(cctx, st.CurrentQuery, st.Evidence)
	timedOut := cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil
	cancel()

	if err != nil {
		if timedOut {
			if st.Generations >= e.cfg.MaxGenerations {
				st.FailureReason = fmt.Sprintf("%s: generation timed out after %d attempts", errors.ErrLoopBound, st.Generations)
				return StepFailed, nil
			}
			e.logger.Warn("generation timed out, retrying", "attempt", st.Generations)
			return StepGenerate, nil
		}
		return 0, err
	}

	st.Generation = generation
	return StepValidate, nil
}

func (e *Engine) validateStep(ctx context.Context, st *State) (Step, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	verdict, err := e.validator.Validate(cctx, st.CurrentQuery, st.Generation, st.Evidence)
	if err != nil {
		return 0, err
	}

	switch verdict {
	case VerdictUseful:
		return StepDone, nil
	case VerdictUnsupported:
		// Regenerate from the same query and evidence; attempts are already
		// counted on entry to the generate step.
		if st.Generations >= e.cfg.MaxGenerations {
			st.FailureReason = fmt.Sprintf("%s: no grounded answer after %d generation attempts", errors.ErrLoopBound, st.Generations)
			return StepFailed, nil
		}
		return StepGenerate, nil
	case VerdictIrrelevant:
		// The rewrite step enforces its own bound on entry.
		return StepRewrite, nil
	default:
		return 0, fmt.Errorf("%w: unexpected verdict %q", errors.ErrClassification, verdict)
	}
}

func (e *Engine) providerFor(route Route) (Provider, error) {
	switch route {
	case RouteKnowledgeBase:
		return e.providers.Retrieval, nil
	case RouteWebSearch:
		return e.providers.WebSearch, nil
	default:
		return nil, fmt.Errorf("%w: no evidence provider registered for route %q", errors.ErrConfiguration, route)
	}
}

// callCtx derives the per-call timeout context mandated for every external
// call.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}
