package render

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

// Progress draws an indexing progress bar. It draws nothing unless the
// output is a terminal.
type Progress struct {
	out     io.Writer
	enabled bool
	bar     progress.Model

	total   int
	current int
	drawn   int
}

// NewProgress creates a progress bar on out.
func NewProgress(out io.Writer) *Progress {
	return newProgress(out, isTerminal(out))
}

func newProgress(out io.Writer, enabled bool) *Progress {
	return &Progress{
		out:     out,
		enabled: enabled,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		drawn:   -1,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start resets the bar for total items.
func (p *Progress) Start(total int) {
	p.total = total
	p.current = 0
	p.drawn = -1
	p.draw()
}

// Increment advances the bar by one item.
func (p *Progress) Increment() {
	p.current++
	p.draw()
}

// Done draws the final state and ends the line.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.drawn = -1
	p.draw()
	fmt.Fprintln(p.out)
}

func (p *Progress) percent() float64 {
	if p.total <= 0 {
		return 1
	}
	return min(float64(p.current)/float64(p.total), 1)
}

// draw redraws only when the whole percentage changes.
func (p *Progress) draw() {
	if !p.enabled {
		return
	}
	percent := p.percent()
	whole := int(percent * 100)
	if whole == p.drawn {
		return
	}
	p.drawn = whole
	fmt.Fprintf(p.out, "\rIndexing %s %d/%d", p.bar.ViewAs(percent), p.current, p.total)
}
