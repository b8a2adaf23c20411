package adaptive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	ragerrors "github.com/sweetpotato0/adaptive-rag/errors"
	"github.com/sweetpotato0/adaptive-rag/llm"
	"github.com/sweetpotato0/adaptive-rag/message"
)

// scriptedLLM plays every LLM role in the pipeline, dispatching on the system
// prompt of the incoming call. Each role's behaviour is scripted per test.
type scriptedLLM struct {
	mu sync.Mutex

	route    string                      // router label
	grade    func(payload string) string // per-document relevance label
	answer   string                      // generator output
	grounded []string                    // groundedness labels, consumed in order
	useful   []string                    // answer-relevance labels, consumed in order
	err      error                       // when set, every call fails

	calls            []string
	generatePayloads []string
	rewriteCount     int
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{
		route:  string(RouteKnowledgeBase),
		answer: "Scripted answer.",
	}
}

func (s *scriptedLLM) Generate(ctx context.Context, msgs []*message.Message) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("unexpected message count %d", len(msgs))
	}
	system, payload := msgs[0].Content, msgs[1].Content

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	switch {
	case strings.Contains(system, "routing user queries"):
		s.calls = append(s.calls, "route")
		return reply(s.route), nil
	case strings.Contains(system, "relevance of a retrieved document"):
		s.calls = append(s.calls, "grade")
		if s.grade != nil {
			return reply(s.grade(payload)), nil
		}
		return reply(string(GradeYes)), nil
	case strings.Contains(system, "question-answering tasks"):
		s.calls = append(s.calls, "generate")
		s.generatePayloads = append(s.generatePayloads, payload)
		return reply(s.answer), nil
	case strings.Contains(system, "factually grounded"):
		s.calls = append(s.calls, "grounded")
		return reply(s.pop(&s.grounded)), nil
	case strings.Contains(system, "adequately addresses"):
		s.calls = append(s.calls, "useful")
		return reply(s.pop(&s.useful)), nil
	case strings.Contains(system, "question rewriter"):
		s.calls = append(s.calls, "rewrite")
		s.rewriteCount++
		return reply(fmt.Sprintf("refined query %d", s.rewriteCount)), nil
	}
	return nil, fmt.Errorf("unrecognised system prompt: %.60s", system)
}

func (s *scriptedLLM) SetTemperature(float64) {}
func (s *scriptedLLM) SetMaxTokens(int64)     {}
func (s *scriptedLLM) SetModel(string)        {}

func (s *scriptedLLM) pop(seq *[]string) string {
	if len(*seq) == 0 {
		return string(GradeYes)
	}
	label := (*seq)[0]
	*seq = (*seq)[1:]
	return label
}

func (s *scriptedLLM) count(role string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == role {
			n++
		}
	}
	return n
}

func reply(text string) *message.Message {
	return message.NewMessage(message.RoleAssistant, text)
}

// stubProvider records the queries it receives.
type stubProvider struct {
	mu      sync.Mutex
	fetch   func(query string) ([]Evidence, error)
	block   bool // block until the call context is cancelled
	queries []string
}

func (p *stubProvider) Fetch(ctx context.Context, query string) ([]Evidence, error) {
	p.mu.Lock()
	p.queries = append(p.queries, query)
	fetch, block := p.fetch, p.block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fetch == nil {
		return nil, nil
	}
	return fetch(query)
}

func (p *stubProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queries...)
}

func docs(contents ...string) []Evidence {
	evidence := make([]Evidence, 0, len(contents))
	for i, content := range contents {
		evidence = append(evidence, Evidence{
			Content: content,
			Source:  fmt.Sprintf("doc-%d", i+1),
		})
	}
	return evidence
}

func newTestEngine(t *testing.T, client *scriptedLLM, kb, web Provider, opts ...Option) *Engine {
	t.Helper()
	engine, err := New(client, Providers{Retrieval: kb, WebSearch: web}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine
}

func TestRunAnswersFromKnowledgeBase(t *testing.T) {
	client := newScriptedLLM()
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("Agents plan with tools.", "Agents decompose tasks."), nil
	}}
	web := &stubProvider{}

	engine := newTestEngine(t, client, kb, web)
	result, err := engine.Run(context.Background(), "What is an agent?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusAnswered {
		t.Fatalf("status = %v, want %v", result.Status, StatusAnswered)
	}
	if result.Answer != "Scripted answer." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Query != "What is an agent?" {
		t.Errorf("query = %q, want the original question", result.Query)
	}
	if result.Rewrites != 0 || result.Generations != 1 {
		t.Errorf("rewrites = %d, generations = %d, want 0 and 1", result.Rewrites, result.Generations)
	}
	if got := kb.calls(); len(got) != 1 || got[0] != "What is an agent?" {
		t.Errorf("knowledge-base queries = %v", got)
	}
	if got := web.calls(); len(got) != 0 {
		t.Errorf("web search was consulted: %v", got)
	}
}

func TestRunRoutesToWebSearchAndStaysOnRouteAfterRewrite(t *testing.T) {
	client := newScriptedLLM()
	client.route = string(RouteWebSearch)
	client.grade = func(payload string) string {
		if strings.Contains(payload, "stale") {
			return string(GradeNo)
		}
		return string(GradeYes)
	}

	kb := &stubProvider{}
	web := &stubProvider{fetch: func(query string) ([]Evidence, error) {
		if strings.HasPrefix(query, "refined") {
			return docs("Fresh election results."), nil
		}
		return docs("stale snippet"), nil
	}}

	engine := newTestEngine(t, client, kb, web)
	result, err := engine.Run(context.Background(), "Who won the election?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusAnswered {
		t.Fatalf("status = %v, want %v", result.Status, StatusAnswered)
	}
	if result.Query != "Who won the election?" {
		t.Errorf("query = %q, want the original question", result.Query)
	}
	if result.Rewrites != 1 {
		t.Errorf("rewrites = %d, want 1", result.Rewrites)
	}

	got := web.calls()
	if len(got) != 2 {
		t.Fatalf("web search queries = %v, want 2 fetches", got)
	}
	if got[0] != "Who won the election?" || got[1] != "refined query 1" {
		t.Errorf("web search queries = %v", got)
	}
	if kbCalls := kb.calls(); len(kbCalls) != 0 {
		t.Errorf("knowledge base was consulted on a web-search route: %v", kbCalls)
	}
}

func TestRunExhaustsGenerationBudget(t *testing.T) {
	client := newScriptedLLM()
	client.grounded = []string{"no", "no", "no"}
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("Prompt engineering basics."), nil
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{}, WithMaxGenerations(3))
	result, err := engine.Run(context.Background(), "Explain prompt engineering")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusExhausted {
		t.Fatalf("status = %v, want %v", result.Status, StatusExhausted)
	}
	if result.FailureReason == "" {
		t.Error("failure reason is empty")
	}
	if got := client.count("generate"); got != 3 {
		t.Errorf("generator invoked %d times, want exactly 3", got)
	}
	if result.Generations != 3 {
		t.Errorf("generations = %d, want 3", result.Generations)
	}
	if result.Answer != "" {
		t.Errorf("answer = %q, want empty on exhaustion", result.Answer)
	}
}

func TestRunExhaustsRewriteBudget(t *testing.T) {
	client := newScriptedLLM()
	client.grade = func(string) string { return string(GradeNo) }
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("unrelated snippet"), nil
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{}, WithMaxRewrites(3))
	result, err := engine.Run(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusExhausted {
		t.Fatalf("status = %v, want %v", result.Status, StatusExhausted)
	}
	if result.Rewrites != 3 {
		t.Errorf("rewrites = %d, want 3", result.Rewrites)
	}
	if got := len(kb.calls()); got != 4 {
		t.Errorf("fetches = %d, want 4 (initial plus one per rewrite)", got)
	}
	if got := client.count("generate"); got != 0 {
		t.Errorf("generator invoked %d times on an all-irrelevant corpus", got)
	}
}

func TestRunRegenerationKeepsQueryAndEvidence(t *testing.T) {
	client := newScriptedLLM()
	client.grounded = []string{"no", "yes"}
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("Adversarial attacks perturb inputs."), nil
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{})
	result, err := engine.Run(context.Background(), "What is an adversarial attack?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusAnswered {
		t.Fatalf("status = %v, want %v", result.Status, StatusAnswered)
	}
	if result.Generations != 2 {
		t.Errorf("generations = %d, want 2", result.Generations)
	}
	if got := client.count("rewrite"); got != 0 {
		t.Errorf("rewriter invoked %d times during regeneration", got)
	}
	if len(client.generatePayloads) != 2 {
		t.Fatalf("generator payloads = %d, want 2", len(client.generatePayloads))
	}
	if client.generatePayloads[0] != client.generatePayloads[1] {
		t.Error("regeneration changed the query or evidence")
	}
	if got := len(kb.calls()); got != 1 {
		t.Errorf("fetches = %d, want 1 (no re-retrieval on regeneration)", got)
	}
}

func TestRunIrrelevantAnswerTriggersRewrite(t *testing.T) {
	client := newScriptedLLM()
	client.useful = []string{"no", "yes"}
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("Agent memory architectures."), nil
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{})
	result, err := engine.Run(context.Background(), "How do agents remember?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusAnswered {
		t.Fatalf("status = %v, want %v", result.Status, StatusAnswered)
	}
	if result.Rewrites != 1 {
		t.Errorf("rewrites = %d, want 1", result.Rewrites)
	}
	if got := kb.calls(); len(got) != 2 || got[1] != "refined query 1" {
		t.Errorf("fetches = %v, want re-retrieval with the rewritten query", got)
	}
}

func TestRunEmptyFetchSkipsGrading(t *testing.T) {
	client := newScriptedLLM()
	var fetches int
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		fetches++
		if fetches == 1 {
			return nil, nil
		}
		return docs("Found on the second pass."), nil
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{})
	result, err := engine.Run(context.Background(), "obscure question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusAnswered {
		t.Fatalf("status = %v, want %v", result.Status, StatusAnswered)
	}
	if result.Rewrites != 1 {
		t.Errorf("rewrites = %d, want 1", result.Rewrites)
	}
	// The empty first fetch must not cost any grading calls.
	if got := client.count("grade"); got != 1 {
		t.Errorf("grader invoked %d times, want 1 (second fetch only)", got)
	}
}

func TestRunGraderPreservesEvidenceOrder(t *testing.T) {
	client := newScriptedLLM()
	client.grade = func(payload string) string {
		if strings.Contains(payload, "discard") {
			return string(GradeNo)
		}
		return string(GradeYes)
	}
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("first kept fact", "discard this one", "second kept fact"), nil
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{})
	if _, err := engine.Run(context.Background(), "ordering question"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(client.generatePayloads) != 1 {
		t.Fatalf("generator payloads = %d, want 1", len(client.generatePayloads))
	}
	payload := client.generatePayloads[0]
	first := strings.Index(payload, "first kept fact")
	second := strings.Index(payload, "second kept fact")
	if first < 0 || second < 0 || first > second {
		t.Errorf("kept evidence out of order in generator context:\n%s", payload)
	}
	if strings.Contains(payload, "discard this one") {
		t.Errorf("discarded evidence leaked into generator context:\n%s", payload)
	}
}

func TestRunRoutingIsIdempotent(t *testing.T) {
	client := newScriptedLLM()
	client.route = string(RouteWebSearch)
	web := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return docs("live result"), nil
	}}
	kb := &stubProvider{}

	engine := newTestEngine(t, client, kb, web)
	for i := 0; i < 2; i++ {
		if _, err := engine.Run(context.Background(), "same question"); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}

	if got := len(web.calls()); got != 2 {
		t.Errorf("web fetches = %d, want one per turn", got)
	}
	if got := len(kb.calls()); got != 0 {
		t.Errorf("route flapped to the knowledge base: %v", kb.calls())
	}
}

func TestRunProviderFailureAborts(t *testing.T) {
	client := newScriptedLLM()
	kb := &stubProvider{fetch: func(string) ([]Evidence, error) {
		return nil, fmt.Errorf("index unavailable")
	}}

	engine := newTestEngine(t, client, kb, &stubProvider{})
	result, err := engine.Run(context.Background(), "any question")
	if result != nil {
		t.Errorf("result = %+v, want nil on infrastructure failure", result)
	}
	if !errors.Is(err, ragerrors.ErrProvider) {
		t.Errorf("error = %v, want ErrProvider", err)
	}
}

func TestRunClassifierFailureAborts(t *testing.T) {
	client := newScriptedLLM()
	client.err = fmt.Errorf("model overloaded")

	engine := newTestEngine(t, client, &stubProvider{}, &stubProvider{})
	result, err := engine.Run(context.Background(), "any question")
	if result != nil {
		t.Errorf("result = %+v, want nil on classifier failure", result)
	}
	if !errors.Is(err, ragerrors.ErrClassification) {
		t.Errorf("error = %v, want ErrClassification", err)
	}
}

func TestRunFetchTimeoutChargedToRewriteBudget(t *testing.T) {
	client := newScriptedLLM()
	kb := &stubProvider{block: true}

	engine := newTestEngine(t, client, kb, &stubProvider{},
		WithMaxRewrites(2), WithCallTimeout(10*time.Millisecond))
	result, err := engine.Run(context.Background(), "slow question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != StatusExhausted {
		t.Fatalf("status = %v, want %v", result.Status, StatusExhausted)
	}
	if got := len(kb.calls()); got != 3 {
		t.Errorf("fetch attempts = %d, want 3 (initial plus two retries)", got)
	}
	if result.Rewrites != 2 {
		t.Errorf("rewrites = %d, want 2", result.Rewrites)
	}
}

func TestRunEmptyQuestion(t *testing.T) {
	engine := newTestEngine(t, newScriptedLLM(), &stubProvider{}, &stubProvider{})
	if _, err := engine.Run(context.Background(), "   "); err == nil {
		t.Error("Run() accepted a blank question")
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	engine := newTestEngine(t, newScriptedLLM(), &stubProvider{}, &stubProvider{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx, "any question")
	if result != nil {
		t.Errorf("result = %+v, want nil after cancellation", result)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestNewValidatesWiring(t *testing.T) {
	client := newScriptedLLM()
	provider := &stubProvider{}

	cases := []struct {
		name      string
		client    *scriptedLLM
		providers Providers
	}{
		{"nil client", nil, Providers{Retrieval: provider, WebSearch: provider}},
		{"missing retrieval", client, Providers{WebSearch: provider}},
		{"missing web search", client, Providers{Retrieval: provider}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c llm.Client
			if tc.client != nil {
				c = tc.client
			}
			_, err := New(c, tc.providers)
			if !errors.Is(err, ragerrors.ErrConfiguration) {
				t.Errorf("New() error = %v, want ErrConfiguration", err)
			}
		})
	}
}
