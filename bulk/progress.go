package bulk

import (
	"fmt"
	"io"
)

// progress prints a single self-overwriting "label n/total" line.
type progress struct {
	w     io.Writer
	label string
	total int
	n     int
}

func newProgress(w io.Writer, label string, total int) *progress {
	p := &progress{w: w, label: label, total: total}
	p.print()
	return p
}

func (p *progress) tick() {
	p.n++
	p.print()
}

func (p *progress) done() {
	if p.w == nil {
		return
	}
	_, _ = fmt.Fprintln(p.w)
}

func (p *progress) print() {
	if p.w == nil {
		return
	}
	_, _ = fmt.Fprintf(p.w, "\r%s %d/%d", p.label, p.n, p.total)
}
