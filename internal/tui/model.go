// Package tui is the interactive worker browser. It renders one page of a
// worker store as a table and drives the store from key presses; state
// changes and notifications arrive as messages.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mesh-intelligence/worksite/internal/notify"
	"github.com/mesh-intelligence/worksite/internal/store"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

// State is the worker store snapshot the browser renders.
type State = store.State[types.Worker, types.WorkerFilters]

// Store is the part of the worker store the browser drives.
type Store interface {
	State() State
	Subscribe(fn func(State)) (unsubscribe func())
	Fetch(ctx context.Context, q store.Query[types.WorkerFilters]) ([]types.Worker, error)
	Refresh(ctx context.Context) ([]types.Worker, error)
	SetFilters(filters types.WorkerFilters)
	Delete(ctx context.Context, id int64) error
}

// StateMsg delivers a new store snapshot.
type StateMsg State

// ToastMsg delivers a notification to show in the status line.
type ToastMsg notify.Notification

// Model is the bubbletea model of the worker browser.
type Model struct {
	ctx   context.Context
	store Store

	table     table.Model
	search    textinput.Model
	searching bool

	state  State
	toast  *notify.Notification
	width  int
	styles styles
}

var columns = []table.Column{
	{Title: "ID", Width: 6},
	{Title: "Name", Width: 28},
	{Title: "Age", Width: 5},
	{Title: "Position", Width: 20},
	{Title: "Salary", Width: 10},
}

// New creates a browser over st. Actions run with ctx.
func New(ctx context.Context, st Store) Model {
	rows := st.State().Pagination.PageSize
	if rows <= 0 {
		rows = types.DefaultPageSize
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(rows+1),
	)

	si := textinput.New()
	si.Placeholder = "name or position"
	si.Prompt = "Search: "
	si.CharLimit = 50
	si.Width = 40

	m := Model{
		ctx:    ctx,
		store:  st,
		table:  t,
		search: si,
		styles: defaultStyles(),
	}
	m.setState(st.State())
	return m
}

// Init loads the first page.
func (m Model) Init() tea.Cmd {
	return m.fetch(store.Query[types.WorkerFilters]{Filters: m.state.Filters, Page: m.state.Pagination.Page})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.setState(State(msg))
		return m, nil

	case ToastMsg:
		n := notify.Notification(msg)
		m.toast = &n
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-7, 3))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.state.Pagination
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n":
		if !p.HasNext() {
			return m, nil
		}
		return m, m.fetch(store.Query[types.WorkerFilters]{Filters: m.state.Filters, Page: p.Page + 1})
	case "p":
		if !p.HasPrev() {
			return m, nil
		}
		return m, m.fetch(store.Query[types.WorkerFilters]{Filters: m.state.Filters, Page: p.Page - 1})
	case "r":
		return m, m.refresh()
	case "d":
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		return m, m.delete(id)
	case "/":
		m.searching = true
		m.search.SetValue(m.state.Filters.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		filters := m.state.Filters
		filters.Search = strings.TrimSpace(m.search.Value())
		return m, m.applyFilters(filters)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// setState replaces the rendered snapshot and rebuilds the rows.
func (m *Model) setState(s State) {
	m.state = s
	rows := make([]table.Row, 0, len(s.Items))
	for _, w := range s.Items {
		rows = append(rows, table.Row{
			strconv.FormatInt(w.ID, 10),
			w.Name,
			strconv.Itoa(w.Age),
			w.Position,
			strconv.FormatInt(w.Salary, 10),
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Model) selectedID() (int64, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	return id, err == nil
}

// The commands below run store actions off the event loop. Each returns
// the resulting snapshot so the model stays current even when nothing is
// subscribed to the store.

func (m Model) fetch(q store.Query[types.WorkerFilters]) tea.Cmd {
	st, ctx := m.store, m.ctx
	return func() tea.Msg {
		_, _ = st.Fetch(ctx, q)
		return StateMsg(st.State())
	}
}

func (m Model) refresh() tea.Cmd {
	st, ctx := m.store, m.ctx
	return func() tea.Msg {
		_, _ = st.Refresh(ctx)
		return StateMsg(st.State())
	}
}

func (m Model) applyFilters(f types.WorkerFilters) tea.Cmd {
	st, ctx := m.store, m.ctx
	return func() tea.Msg {
		st.SetFilters(f)
		_, _ = st.Fetch(ctx, store.Query[types.WorkerFilters]{Filters: f, Page: 1})
		return StateMsg(st.State())
	}
}

// delete removes the worker and reloads the page so it stays full.
func (m Model) delete(id int64) tea.Cmd {
	st, ctx := m.store, m.ctx
	return func() tea.Msg {
		if err := st.Delete(ctx, id); err == nil {
			_, _ = st.Refresh(ctx)
		}
		return StateMsg(st.State())
	}
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Workers"))
	if f := m.state.Filters.Search; f != "" {
		b.WriteString(m.styles.muted.Render(fmt.Sprintf("  matching %q", f)))
	}
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	if len(m.state.Items) == 0 && m.state.Loading != types.LoadingPending {
		b.WriteString(m.styles.muted.Render("No workers found."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.table.Render(m.table.View()))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("n next · p prev · r refresh · d delete · / search · q quit"))
	return b.String()
}

func (m Model) statusLine() string {
	p := m.state.Pagination
	parts := []string{fmt.Sprintf("Page %d of %d · %d worker(s)", p.Page, max(p.Pages(), 1), p.Total)}

	switch m.state.Loading {
	case types.LoadingPending:
		parts = append(parts, m.styles.muted.Render("loading…"))
	case types.LoadingError:
		parts = append(parts, m.styles.failure.Render(m.state.Err))
	}

	if m.toast != nil {
		if m.toast.Level == notify.LevelError {
			parts = append(parts, m.styles.failure.Render("✗ "+m.toast.Message))
		} else {
			parts = append(parts, m.styles.success.Render("✓ "+m.toast.Message))
		}
	}
	return strings.Join(parts, "  ")
}
