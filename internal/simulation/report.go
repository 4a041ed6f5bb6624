package simulation

import (
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/sanity-io/litter"
)

// Report summarizes a run.
type Report struct {
	Seed      int64
	Revision  int
	Text      string
	Converged bool // Every replica is synchronized at the server revision with the server text
	Identical bool // Converged including formatting attributes
	Steps     int
	Accepted  int
	Drops     int
	Clients   []ClientReport
}

// ClientReport is what one replica ended with and what it went through.
type ClientReport struct {
	Name        string
	Text        string
	Revision    int
	State       domain.StateKind
	Edits       int
	Sent        int
	Acks        int
	Remote      int
	Rollbacks   int
	Resets      int
	ApplyErrors int
}

// Rollbacks sums rollbacks across clients.
func (r *Report) Rollbacks() int {
	total := 0
	for _, c := range r.Clients {
		total += c.Rollbacks
	}
	return total
}

// Dump renders the report as Go-like literal text.
func (r *Report) Dump() string {
	return litter.Options{
		HidePrivateFields: true,
		StripPackageNames: true,
	}.Sdump(r)
}
