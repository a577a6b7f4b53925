// Package graph is a small sequential state-graph executor.
//
// A StateGraph is parameterised by a state type S and a partial-update
// type U. Nodes read the state and return an update; a reducer merges the
// update into the state before the outgoing edge is evaluated. Exactly one
// node runs at a time.
//
//	g := graph.NewStateGraph(func(s Counter, u CounterUpdate) Counter {
//		s.N += u.Delta
//		return s
//	})
//	g.AddNode("inc", "increment", inc)
//	g.AddConditionalEdge("inc", func(ctx context.Context, s Counter) string {
//		if s.N >= 3 {
//			return graph.END
//		}
//		return "inc"
//	}, "inc", graph.END)
//	g.SetEntryPoint("inc")
//
//	r, err := g.Compile()
//	final, err := r.Invoke(ctx, Counter{}, graph.WithSessionID("s1"), graph.WithCheckpointStore(st))
//
// With a session id and a checkpoint store, every step is saved together
// with the node that runs next, and a later Invoke with the same session
// id continues from there. Runs produce OpenTelemetry spans and metrics
// through the global providers unless WithTracer or WithMetrics is given.
package graph
