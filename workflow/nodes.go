package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/reviewgraph/graph"
	"github.com/smallnest/reviewgraph/llms"
)

// Node names.
const (
	NodePlanner          = "planner"
	NodeResearchPlan     = "research_plan"
	NodeGenerate         = "generate"
	NodeReflect          = "reflect"
	NodeResearchCritique = "research_critique"
)

// MaxQueries is the most queries a research step accepts from the model.
const MaxQueries = 3

// Queries is the structured answer of the research steps.
type Queries struct {
	Queries []string `json:"queries" description:"Web search queries, at most 3. Empty when no research is needed."`
}

// Validate implements llms.Validator.
func (q *Queries) Validate() error {
	if len(q.Queries) > MaxQueries {
		return fmt.Errorf("got %d queries, at most %d allowed", len(q.Queries), MaxQueries)
	}
	return nil
}

func (w *Workflow) planner(ctx context.Context, s State) (Update, error) {
	plan, err := w.llm.Generate(ctx, []llms.Message{
		llms.System(w.opts.Prompts.Plan),
		llms.User(s.Task),
	})
	if err != nil {
		return Update{}, &ClientError{Node: NodePlanner, Op: "generate", Err: err}
	}
	return Update{Plan: ptr(plan)}, nil
}

func (w *Workflow) researchPlan(ctx context.Context, s State) (Update, error) {
	return w.research(ctx, NodeResearchPlan, w.opts.Prompts.ResearchPlan, s.Task, s.Content)
}

func (w *Workflow) researchCritique(ctx context.Context, s State) (Update, error) {
	return w.research(ctx, NodeResearchCritique, w.opts.Prompts.ResearchCritique, s.Critique, s.Content)
}

// research asks for a query batch and appends every snippet, query by
// query and in provider order, to a copy of the existing content.
func (w *Workflow) research(ctx context.Context, node, prompt, input string, existing []string) (Update, error) {
	q, err := llms.Structured[Queries](ctx, w.llm, []llms.Message{
		llms.System(prompt),
		llms.User(input),
	}, "queries", "Search queries for the research step")
	if err != nil {
		return Update{}, &ClientError{Node: node, Op: "structured", Err: err}
	}
	if len(q.Queries) > w.opts.MaxQueries {
		return Update{}, &ClientError{Node: node, Op: "structured",
			Err: fmt.Errorf("%w: got %d queries, limit %d", llms.ErrSchemaMismatch, len(q.Queries), w.opts.MaxQueries)}
	}

	content := slices.Clone(existing)
	if content == nil {
		content = []string{}
	}
	for _, query := range q.Queries {
		results, err := w.search.Search(ctx, query, w.opts.MaxResultsPerQuery)
		if err != nil {
			return Update{}, &ClientError{Node: node, Op: "search", Err: fmt.Errorf("query %q: %w", query, err)}
		}
		for _, r := range results {
			content = append(content, r.Content)
		}
		w.logger.Debug("%s: query %q returned %d results", node, query, len(results))
	}
	return Update{Content: content}, nil
}

func (w *Workflow) generate(ctx context.Context, s State) (Update, error) {
	content := strings.Join(s.Content, "\n\n")
	draft, err := w.llm.Generate(ctx, []llms.Message{
		llms.System(w.opts.Prompts.WriterFor(content)),
		llms.User(fmt.Sprintf("%s\n\nHere is my plan:\n\n%s", s.Task, s.Plan)),
	})
	if err != nil {
		return Update{}, &ClientError{Node: NodeGenerate, Op: "generate", Err: err}
	}

	revision := s.RevisionNumber
	if revision == 0 {
		revision = 1
	}
	return Update{Draft: ptr(draft), RevisionNumber: ptr(revision + 1)}, nil
}

func (w *Workflow) reflect(ctx context.Context, s State) (Update, error) {
	critique, err := w.llm.Generate(ctx, []llms.Message{
		llms.System(w.opts.Prompts.Reflection),
		llms.User(s.Draft),
	})
	if err != nil {
		return Update{}, &ClientError{Node: NodeReflect, Op: "generate", Err: err}
	}
	return Update{Critique: ptr(critique)}, nil
}

func shouldContinue(_ context.Context, s State) string {
	if Done(s) {
		return graph.END
	}
	return NodeReflect
}

func (w *Workflow) build(name string) (*graph.Runnable[State, Update], error) {
	g := graph.NewStateGraph(Merge)
	g.SetName(name)
	g.AddNode(NodePlanner, "Outline the document", w.planner)
	g.AddNode(NodeResearchPlan, "Search for material relevant to the task", w.researchPlan)
	g.AddNode(NodeGenerate, "Write or revise the draft", w.generate)
	g.AddNode(NodeReflect, "Critique the draft", w.reflect)
	g.AddNode(NodeResearchCritique, "Search for material the critique asks for", w.researchCritique)

	g.SetEntryPoint(NodePlanner)
	g.AddEdge(NodePlanner, NodeResearchPlan)
	g.AddEdge(NodeResearchPlan, NodeGenerate)
	g.AddConditionalEdge(NodeGenerate, shouldContinue, NodeReflect, graph.END)
	g.AddEdge(NodeReflect, NodeResearchCritique)
	g.AddEdge(NodeResearchCritique, NodeGenerate)

	return g.Compile()
}
