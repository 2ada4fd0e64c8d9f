package decompose

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/ragtest"
	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type fakeRunner struct {
	mu          sync.Mutex
	citations   map[string][]store.Citation
	failOn      map[string]bool
	delay       time.Duration
	calls       []string
	inFlight    int
	maxInFlight int
}

func (r *fakeRunner) RunSubQuery(ctx context.Context, query string) (string, []store.Citation, error) {
	r.mu.Lock()
	r.calls = append(r.calls, query)
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.failOn[query] {
		return "", nil, errors.New("retrieval broke")
	}
	return "answer to " + query, r.citations[query], nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

const splitThree = `{"sub_queries":[{"text":"q1"},{"text":"q2"},{"text":"q3"}]}`

func TestSplitUsesLLMPlan(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{splitThree}}
	e := NewEngine(provider, discardLogger())

	subs := e.Split(context.Background(), "compare a and b and c", rag.DefaultConfig())

	assert.Len(t, subs, 3)
	assert.Equal(t, "q1", subs[0].Text)
	assert.Equal(t, "q3", subs[2].Text)
}

func TestSplitCapsSubQueryCount(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{
		`{"sub_queries":[{"text":"a"},{"text":"b"},{"text":"c"},{"text":"d"},{"text":"e"},{"text":"f"},{"text":"g"}]}`,
	}}
	e := NewEngine(provider, discardLogger())

	cfg := rag.DefaultConfig()
	subs := e.Split(context.Background(), "everything at once", cfg)

	assert.Len(t, subs, cfg.MaxSubQueries)
}

func TestSplitFallsBackOnLLMFailure(t *testing.T) {
	provider := &ragtest.FakeLLM{Err: errors.New("model offline")}
	e := NewEngine(provider, discardLogger())

	subs := e.Split(context.Background(), "compare chapter 1 and chapter 3", rag.DefaultConfig())

	assert.GreaterOrEqual(t, len(subs), 2, "compound query must still split")
}

func TestSplitFallsBackOnJunkJSON(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{"no json here"}}
	e := NewEngine(provider, discardLogger())

	subs := e.Split(context.Background(), "first check the totals, then the footnotes", rag.DefaultConfig())

	assert.GreaterOrEqual(t, len(subs), 2)
	for _, sq := range subs {
		assert.NotEmpty(t, sq.Text)
	}
}

func TestFallbackSplitNeverEmpty(t *testing.T) {
	subs := fallbackSplit("single question without conjunctions", 5)
	assert.Len(t, subs, 1)
	assert.Equal(t, "single question without conjunctions", subs[0].Text)
}

func TestExecuteBatchesBoundConcurrency(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{
		`{"sub_queries":[{"text":"q1"},{"text":"q2"},{"text":"q3"},{"text":"q4"},{"text":"q5"}]}`,
		"final synthesis",
	}}
	runner := &fakeRunner{delay: 15 * time.Millisecond}
	e := NewEngine(provider, discardLogger())

	cfg := rag.DefaultConfig()
	result, err := e.Execute(context.Background(), "five part question", runner, cfg)

	assert.NoError(t, err)
	assert.Equal(t, 5, runner.callCount())
	assert.LessOrEqual(t, runner.maxInFlight, cfg.SubQueryBatchSize,
		"a batch must finish before the next one starts")
	assert.Equal(t, "final synthesis", result.Answer)
}

func TestExecutePlaceholderOnSubQueryFailure(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{splitThree, "synthesized"}}
	runner := &fakeRunner{failOn: map[string]bool{"q2": true}}
	e := NewEngine(provider, discardLogger())

	result, err := e.Execute(context.Background(), "three part question", runner, rag.DefaultConfig())

	assert.NoError(t, err, "one failed part must not abort the decomposition")
	assert.Equal(t, 3, runner.callCount(), "remaining parts still run")

	assert.False(t, result.SubQueries[0].Failed)
	assert.True(t, result.SubQueries[1].Failed)
	assert.Equal(t, PlaceholderAnswer, result.SubQueries[1].Answer)
	assert.Equal(t, "answer to q3", result.SubQueries[2].Answer)
}

func TestExecuteSingleSynthesisCall(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{splitThree, "synthesized"}}
	runner := &fakeRunner{}
	e := NewEngine(provider, discardLogger())

	_, err := e.Execute(context.Background(), "three part question", runner, rag.DefaultConfig())

	assert.NoError(t, err)
	assert.Equal(t, 2, provider.CallCount(), "exactly one split call and one synthesis call")
}

func TestExecuteCitationUnion(t *testing.T) {
	provider := &ragtest.FakeLLM{Responses: []string{splitThree, "synthesized"}}
	runner := &fakeRunner{citations: map[string][]store.Citation{
		"q1": {
			{FileName: "a.pdf", PageNumber: 1, Snippet: "one"},
			{FileName: "b.pdf", PageNumber: 2, Snippet: "two"},
		},
		"q2": {
			{FileName: "a.pdf", PageNumber: 1, Snippet: "duplicate"},
			{FileName: "c.pdf", PageNumber: 3, Snippet: "three"},
			{FileName: "d.pdf", PageNumber: 4, Snippet: "four"},
		},
	}}
	e := NewEngine(provider, discardLogger())

	result, err := e.Execute(context.Background(), "three part question", runner, rag.DefaultConfig())

	assert.NoError(t, err)
	assert.Len(t, result.Citations, 3, "union is capped")
	assert.Equal(t, "a.pdf", result.Citations[0].FileName)
	assert.Equal(t, "b.pdf", result.Citations[1].FileName)
	assert.Equal(t, "c.pdf", result.Citations[2].FileName)
}

func TestExecuteSynthesisFailure(t *testing.T) {
	provider := &ragtest.FakeLLM{
		GenerateFunc: func(prompt string) (string, error) {
			return "", errors.New("generation broke")
		},
	}
	runner := &fakeRunner{}
	e := NewEngine(provider, discardLogger())

	_, err := e.Execute(context.Background(), "compare a and b", runner, rag.DefaultConfig())

	assert.Error(t, err)
	kind, ok := rag.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, rag.KindGeneration, kind)
}
