package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/smallnest/reviewgraph/llms"
	"github.com/smallnest/reviewgraph/tool"
)

// fakeLLM answers according to which system prompt it receives.
type fakeLLM struct {
	mu       sync.Mutex
	prompts  PromptSet
	queries  [][]string // structured answers, consumed in order
	raw      []string   // raw structured answers that override queries when set
	failOn   string     // node whose call fails
	failErr  error
	calls    []string
	messages map[string][][]llms.Message
	drafts   int
}

func newFakeLLM(queries ...[]string) *fakeLLM {
	return &fakeLLM{prompts: CodeReviewPrompts, queries: queries, messages: map[string][][]llms.Message{}}
}

func (f *fakeLLM) classify(messages []llms.Message) string {
	system := messages[0].Content
	switch {
	case system == f.prompts.Plan:
		return NodePlanner
	case system == f.prompts.ResearchPlan:
		return NodeResearchPlan
	case system == f.prompts.Reflection:
		return NodeReflect
	case system == f.prompts.ResearchCritique:
		return NodeResearchCritique
	case strings.HasPrefix(system, strings.Split(f.prompts.Writer, "{content}")[0]):
		return NodeGenerate
	}
	return "unknown"
}

func (f *fakeLLM) record(messages []llms.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	node := f.classify(messages)
	f.calls = append(f.calls, node)
	f.messages[node] = append(f.messages[node], messages)
	if node == f.failOn {
		return node, f.failErr
	}
	return node, nil
}

func (f *fakeLLM) Generate(_ context.Context, messages []llms.Message) (string, error) {
	node, err := f.record(messages)
	if err != nil {
		return "", err
	}
	switch node {
	case NodePlanner:
		return "the plan", nil
	case NodeReflect:
		return "needs more depth", nil
	case NodeGenerate:
		f.mu.Lock()
		f.drafts++
		n := f.drafts
		f.mu.Unlock()
		return fmt.Sprintf("draft %d", n), nil
	}
	return "", fmt.Errorf("unexpected generate call for %s", node)
}

func (f *fakeLLM) GenerateStructured(_ context.Context, messages []llms.Message, _ *llms.Schema) (string, error) {
	if _, err := f.record(messages); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.raw) > 0 {
		r := f.raw[0]
		f.raw = f.raw[1:]
		return r, nil
	}
	var q []string
	if len(f.queries) > 0 {
		q = f.queries[0]
		f.queries = f.queries[1:]
	}
	if q == nil {
		q = []string{}
	}
	b, _ := json.Marshal(Queries{Queries: q})
	return string(b), nil
}

func (f *fakeLLM) count(node string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == node {
			n++
		}
	}
	return n
}

// fakeSearch returns perQuery snippets named after the query.
type fakeSearch struct {
	mu       sync.Mutex
	perQuery int
	err      error
	queries  []string
	limits   []int
}

func (s *fakeSearch) Search(_ context.Context, query string, maxResults int) ([]tool.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, maxResults)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]tool.SearchResult, 0, s.perQuery)
	for i := 0; i < s.perQuery; i++ {
		out = append(out, tool.SearchResult{Content: fmt.Sprintf("%s#%d", query, i+1)})
	}
	return out, nil
}
