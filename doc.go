// Package reviewgraph writes code reviews and project context documents for
// GitHub repositories with a plan, research, draft and critique loop.
//
// The loop is a typed state graph:
//
//	planner -> research_plan -> generate -> (done?) -> END
//	                               ^            |
//	                               |            v
//	                    research_critique <- reflect
//
// generate increments the revision number and the run stops once it exceeds
// the revision budget, so a budget of N produces exactly N drafts.
//
// # Packages
//
//   - graph: generic sequential state graph with checkpoints, listeners, tracing and metrics
//   - workflow: the review loop, its state, prompts and error types
//   - llms, llms/openai, llms/langchain: text-generation clients with structured output
//   - tool: Tavily and Brave search clients
//   - store and its subpackages: checkpoint stores (memory, file, redis, postgres, sqlite)
//   - repo: clones and formatted file contents
//   - report: markdown to sanitized HTML and heading outline
//   - config, log, retry: ambient support
//   - server and cmd/reviewgraph: HTTP API and CLI
//
// # Quick Start
//
//	llm := openai.New(os.Getenv("OPENAI_API_KEY"))
//	search, _ := tool.NewTavilySearch("")
//	wf, _ := workflow.New(llm, search, workflow.WithKind(workflow.KindCodeReview))
//	res, err := wf.Run(ctx, task, 2, "")
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Draft)
package reviewgraph
