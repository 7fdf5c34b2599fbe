package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes notifications as styled lines. Colors are only emitted
// when w is a terminal that supports them.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	success lipgloss.Style
	failure lipgloss.Style
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		success: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// Notify writes one line for n.
func (p *Printer) Notify(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch n.Level {
	case LevelError:
		fmt.Fprintf(p.w, "%s %s\n", p.failure.Render("✗"), n.Message)
	default:
		fmt.Fprintf(p.w, "%s %s\n", p.success.Render("✓"), n.Message)
	}
}
