package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/otsync/internal/simulation"
	"golang.org/x/term"
)

// ReportMarkdown renders a simulation report as a markdown summary.
func ReportMarkdown(r *simulation.Report) string {
	var b strings.Builder
	verdict := "converged"
	if !r.Converged {
		verdict = "**DIVERGED**"
	}
	fmt.Fprintf(&b, "# Simulation (seed %d): %s\n\n", r.Seed, verdict)
	fmt.Fprintf(&b, "Server revision **%d** after %d steps, %d accepted submissions, %d drops, %d rollbacks.\n\n",
		r.Revision, r.Steps, r.Accepted, r.Drops, r.Rollbacks())
	b.WriteString("| client | state | revision | edits | sent | acks | remote | rollbacks | resets |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, c := range r.Clients {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %d | %d | %d |\n",
			c.Name, c.State, c.Revision, c.Edits, c.Sent, c.Acks, c.Remote, c.Rollbacks, c.Resets)
	}
	fmt.Fprintf(&b, "\n```\n%s```\n", r.Text)
	return b.String()
}

// PrintReport writes the report to w, rendered through glamour when w is a terminal.
func PrintReport(w io.Writer, r *simulation.Report) error {
	md := ReportMarkdown(r)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rendered, err := NewRenderer()(md)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(w, md)
	return err
}
