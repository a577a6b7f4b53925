package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/reviewgraph/graph"
	"github.com/smallnest/reviewgraph/llms"
	"github.com/smallnest/reviewgraph/log"
	"github.com/smallnest/reviewgraph/store/memory"
)

func newTestWorkflow(t *testing.T, llm *fakeLLM, search *fakeSearch, opts ...Option) *Workflow {
	t.Helper()
	opts = append([]Option{WithLogger(&log.NoOpLogger{}), WithGraphOptions(graph.WithMetrics(graph.NoopMetrics{}))}, opts...)
	w, err := New(llm, search, opts...)
	require.NoError(t, err)
	return w
}

func TestRun_OneRevision(t *testing.T) {
	llm := newFakeLLM([]string{"q1", "q2"})
	search := &fakeSearch{perQuery: 2}
	w := newTestWorkflow(t, llm, search)

	res, err := w.Run(context.Background(), "review main.go", 1, "s-a")
	require.NoError(t, err)

	assert.Equal(t, []string{NodePlanner, NodeResearchPlan, NodeGenerate}, res.Steps)
	assert.Equal(t, "draft 1", res.Draft)
	assert.Equal(t, 2, res.RevisionNumber)
	assert.Equal(t, "s-a", res.SessionID)
	assert.Equal(t, 1, llm.count(NodeGenerate))
	assert.Equal(t, []string{"q1", "q2"}, search.queries)
	assert.Equal(t, []int{2, 2}, search.limits)
}

func TestRun_TwoRevisions(t *testing.T) {
	llm := newFakeLLM([]string{"q1"}, []string{"c1", "c2"})
	search := &fakeSearch{perQuery: 2}
	w := newTestWorkflow(t, llm, search)

	res, err := w.Run(context.Background(), "review main.go", 2, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		NodePlanner, NodeResearchPlan, NodeGenerate, NodeReflect, NodeResearchCritique, NodeGenerate,
	}, res.Steps)
	assert.Equal(t, "draft 2", res.Draft)
	assert.Equal(t, 3, res.RevisionNumber)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 2, llm.count(NodeGenerate))

	// the reflect step critiques the first draft; the second generate sees all research in order
	assert.Equal(t, "draft 1", llm.messages[NodeReflect][0][1].Content)
	assert.Equal(t, "needs more depth", llm.messages[NodeResearchCritique][0][1].Content)
	second := llm.messages[NodeGenerate][1][0].Content
	assert.Contains(t, second, "q1#1\n\nq1#2\n\nc1#1\n\nc1#2\n\nc2#1\n\nc2#2")
	assert.Equal(t, "review main.go\n\nHere is my plan:\n\nthe plan", llm.messages[NodeGenerate][1][1].Content)
}

func TestRun_GenerateCountEqualsBudget(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 34, 40} {
		llm := newFakeLLM()
		w := newTestWorkflow(t, llm, &fakeSearch{perQuery: 1})

		res, err := w.Run(context.Background(), "task", n, "")
		require.NoError(t, err)
		assert.Equal(t, n, llm.count(NodeGenerate), "max_revisions=%d", n)
		assert.Equal(t, n+1, res.RevisionNumber)
	}
}

func TestRun_NoSearchResults(t *testing.T) {
	llm := newFakeLLM([]string{"a", "b", "c"}, []string{"d"})
	search := &fakeSearch{perQuery: 0}
	w := newTestWorkflow(t, llm, search, WithStore(memory.NewMemoryCheckpointStore()))

	events, _, err := w.Stream(context.Background(), "task", 2, "s-c")
	require.NoError(t, err)

	var last Event
	for e := range events {
		if e.Event == graph.NodeEventComplete {
			assert.Empty(t, e.State.Content)
		}
		last = e
	}
	assert.Equal(t, graph.NodeEventComplete, last.Event)
	assert.Equal(t, NodeGenerate, last.NodeName)
	assert.Equal(t, "draft 2", last.State.Draft)
	assert.Len(t, search.queries, 4)
}

func TestRun_ZeroQueriesSkipsSearch(t *testing.T) {
	llm := newFakeLLM([]string{})
	search := &fakeSearch{perQuery: 2}
	w := newTestWorkflow(t, llm, search)

	res, err := w.Run(context.Background(), "task", 1, "")
	require.NoError(t, err)
	assert.Empty(t, search.queries)
	assert.Equal(t, "draft 1", res.Draft)
}

func TestRun_ReflectFailure(t *testing.T) {
	boom := &llms.APIError{StatusCode: 500, Message: "upstream down"}
	llm := newFakeLLM([]string{"q"})
	llm.failOn = NodeReflect
	llm.failErr = boom
	w := newTestWorkflow(t, llm, &fakeSearch{perQuery: 1})

	res, err := w.Run(context.Background(), "task", 2, "s-e")
	require.Error(t, err)
	assert.Empty(t, res.Draft)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, NodeReflect, runErr.Node)
	assert.True(t, runErr.HasDraft)
	assert.Equal(t, "draft 1", runErr.Draft)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, NodeReflect, clientErr.Node)
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, llm.count(NodeResearchCritique))
	assert.Equal(t, 1, llm.count(NodeGenerate))
}

func TestRun_FailureBeforeDraft(t *testing.T) {
	llm := newFakeLLM()
	llm.failOn = NodePlanner
	llm.failErr = errors.New("invalid api key")
	w := newTestWorkflow(t, llm, &fakeSearch{})

	_, err := w.Run(context.Background(), "task", 2, "")
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.False(t, runErr.HasDraft)
	assert.Equal(t, NodePlanner, runErr.Node)
}

func TestRun_SearchFailure(t *testing.T) {
	llm := newFakeLLM([]string{"q"})
	w := newTestWorkflow(t, llm, &fakeSearch{err: errors.New("429")})

	_, err := w.Run(context.Background(), "task", 1, "")
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "search", clientErr.Op)
	assert.Equal(t, NodeResearchPlan, clientErr.Node)
}

func TestRun_TooManyQueriesFailsClosed(t *testing.T) {
	llm := newFakeLLM([]string{"1", "2", "3", "4"})
	search := &fakeSearch{perQuery: 1}
	w := newTestWorkflow(t, llm, search)

	_, err := w.Run(context.Background(), "task", 1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, llms.ErrSchemaMismatch)
	assert.Empty(t, search.queries)
}

func TestRun_MalformedStructuredOutput(t *testing.T) {
	llm := newFakeLLM()
	llm.raw = []string{`{"query": "singular"}`}
	w := newTestWorkflow(t, llm, &fakeSearch{perQuery: 1})

	_, err := w.Run(context.Background(), "task", 1, "")
	assert.ErrorIs(t, err, llms.ErrSchemaMismatch)
}

func TestRun_MaxQueriesOption(t *testing.T) {
	llm := newFakeLLM([]string{"1", "2"})
	w := newTestWorkflow(t, llm, &fakeSearch{perQuery: 1}, WithMaxQueries(1))

	_, err := w.Run(context.Background(), "task", 1, "")
	assert.ErrorIs(t, err, llms.ErrSchemaMismatch)
}

func TestRun_InputErrors(t *testing.T) {
	llm := newFakeLLM()
	w := newTestWorkflow(t, llm, &fakeSearch{})

	_, err := w.Run(context.Background(), "   ", 2, "")
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, ErrEmptyTask)

	_, err = w.Run(context.Background(), "task", 0, "")
	assert.ErrorIs(t, err, ErrInvalidRevisions)

	_, _, err = w.Stream(context.Background(), "", 1, "")
	assert.ErrorIs(t, err, ErrEmptyTask)

	assert.Empty(t, llm.calls)
}

func TestRun_ResumeAfterFailure(t *testing.T) {
	st := memory.NewMemoryCheckpointStore()
	llm := newFakeLLM([]string{"q"}, []string{"c"})
	llm.failOn = NodeReflect
	llm.failErr = errors.New("timeout")
	search := &fakeSearch{perQuery: 1}
	w := newTestWorkflow(t, llm, search, WithStore(st))

	_, err := w.Run(context.Background(), "task", 2, "resume-me")
	require.Error(t, err)

	llm.failOn = ""
	res, err := w.Run(context.Background(), "task", 2, "resume-me")
	require.NoError(t, err)

	assert.Equal(t, []string{NodeReflect, NodeResearchCritique, NodeGenerate}, res.Steps)
	assert.Equal(t, "draft 2", res.Draft)
	assert.Equal(t, 1, llm.count(NodePlanner))
	assert.Equal(t, []string{"q", "c"}, search.queries)

	trace, err := Trace(context.Background(), st, "resume-me")
	require.NoError(t, err)
	assert.Equal(t, []string{
		NodePlanner, NodeResearchPlan, NodeGenerate, NodeReflect, NodeResearchCritique, NodeGenerate,
	}, trace)

	// a finished session returns its draft without calling the model again
	calls := len(llm.calls)
	again, err := w.Run(context.Background(), "task", 2, "resume-me")
	require.NoError(t, err)
	assert.Equal(t, "draft 2", again.Draft)
	assert.Empty(t, again.Steps)
	assert.Len(t, llm.calls, calls)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &fakeSearch{})
	assert.Error(t, err)
	_, err = New(newFakeLLM(), nil)
	assert.Error(t, err)
}

func TestWithKind_ProjectContext(t *testing.T) {
	llm := newFakeLLM()
	llm.prompts = ProjectContextPrompts
	w := newTestWorkflow(t, llm, &fakeSearch{}, WithKind(KindProjectContext))
	assert.Equal(t, KindProjectContext, w.Kind())

	res, err := w.Run(context.Background(), BuildTask(KindProjectContext, "File: go.mod"), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "draft 1", res.Draft)
	assert.Equal(t, ProjectContextPrompts.Plan, llm.messages[NodePlanner][0][0].Content)
}

func TestRun_CancelledRunNamesNode(t *testing.T) {
	llm := newFakeLLM()
	w := newTestWorkflow(t, llm, &fakeSearch{perQuery: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Run(ctx, "task", 2, "s-cancel")
	require.ErrorIs(t, err, context.Canceled)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, NodePlanner, runErr.Node)
	assert.False(t, runErr.HasDraft)
	assert.Empty(t, llm.calls)
}
