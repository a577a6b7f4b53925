package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/reviewgraph/graph"
	"github.com/smallnest/reviewgraph/workflow"
)

var (
	nodeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Width(18)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	doneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// progress prints one line per completed node.
type progress struct {
	out io.Writer
}

var _ graph.NodeListener[workflow.State, workflow.Update] = (*progress)(nil)

func (p *progress) OnNodeEvent(_ context.Context, e workflow.Event) {
	switch e.Event {
	case graph.NodeEventComplete:
		fmt.Fprintln(p.out, nodeStyle.Render(e.NodeName)+infoStyle.Render(fmt.Sprintf(
			"step %d  %s  revision %d  snippets %d",
			e.Step, e.Duration.Round(time.Millisecond), e.State.RevisionNumber, len(e.State.Content))))
	case graph.NodeEventError:
		fmt.Fprintln(p.out, nodeStyle.Render(e.NodeName)+errStyle.Render(e.Err.Error()))
	}
}

func summary(res workflow.Result) string {
	return doneStyle.Render(fmt.Sprintf("session %s\nrevision %d after %d steps", res.SessionID, res.RevisionNumber, len(res.Steps)))
}
