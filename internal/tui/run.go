package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesh-intelligence/worksite/internal/notify"
)

// Toasts is a notify.Notifier that forwards notifications to the running
// browser. Notifications sent while no browser runs are dropped.
type Toasts struct {
	mu sync.Mutex
	p  *tea.Program
}

// Notify implements notify.Notifier.
func (t *Toasts) Notify(n notify.Notification) {
	t.mu.Lock()
	p := t.p
	t.mu.Unlock()
	if p != nil {
		p.Send(ToastMsg(n))
	}
}

func (t *Toasts) attach(p *tea.Program) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p = p
}

// Run shows the browser over st and blocks until the user quits or ctx
// ends. Store state changes reach the browser through st.Subscribe.
// toasts, when non-nil, should be the notifier st was created with.
func Run(ctx context.Context, st Store, toasts *Toasts, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, st), opts...)

	unsubscribe := st.Subscribe(func(s State) { p.Send(StateMsg(s)) })
	defer unsubscribe()
	if toasts != nil {
		toasts.attach(p)
		defer toasts.attach(nil)
	}

	_, err := p.Run()
	return err
}
