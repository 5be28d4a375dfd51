// Package tui は HTTP API を叩くターミナル UI。
package tui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// API は TUI が使う操作（internal/client.Client が満たす）。
type API interface {
	List(ctx context.Context) ([]*domain_todo.Todo, error)
	Create(ctx context.Context, title string) (*domain_todo.Todo, error)
	Toggle(ctx context.Context, id int64) (*domain_todo.Todo, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// ---- messages ----

type loadedMsg struct {
	todos []*domain_todo.Todo
	err   error
}

// doneMsg は変更系 API の結果。成功したら一覧を読み直す。
type doneMsg struct {
	status string
	err    error
}

// ---- list item ----

type listItem struct {
	todo   domain_todo.Todo
	marked bool
}

func (i listItem) Title() string       { return i.todo.Title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Title }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}

	box := mutedStyle.Render(boxUnchecked)
	text := it.todo.Title
	if text == "" {
		text = mutedStyle.Render("(untitled)")
	}
	if it.todo.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}

	mark := " "
	if it.marked {
		mark = markStyle.Render("*")
	}

	prefix := "  "
	if index == m.Index() {
		prefix = cursorStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s %s\n", prefix, mark, box, text)
}

// ---- keys ----

var (
	addKey    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	toggleKey = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteKey = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	markKey   = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "select"))
	dropKey   = key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "drop selected"))
	reloadKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload"))
	quitKey   = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit"))
)

// ---- model ----

type Model struct {
	api     API
	timeout time.Duration

	list   list.Model
	ti     textinput.Model
	adding bool

	// id → 選択中。一覧を読み直しても、残っている id の選択は維持する
	marked map[int64]bool

	status string
	err    error
}

func New(api API) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = titleStyle.Render("Todos")
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	extra := func() []key.Binding {
		return []key.Binding{addKey, toggleKey, deleteKey, markKey, dropKey, reloadKey}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = 200

	return Model{
		api:     api,
		timeout: 5 * time.Second,
		list:    l,
		ti:      ti,
		marked:  map[int64]bool{},
	}
}

// Run は TUI を起動して終了まで待つ。
func Run(api API) error {
	_, err := tea.NewProgram(New(api), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return m.load() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := panelStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case loadedMsg:
		// 成功しても直前の変更系エラーは消さない
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.setTodos(msg.todos)

	case doneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
		} else {
			m.err = nil
			m.status = msg.status
		}
		// 失敗しても一部は反映されている可能性があるので読み直す
		return m, m.load()
	}

	if m.adding {
		return m.updateAdding(msg)
	}

	// フィルタ入力中のキーは list に渡す
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, quitKey):
			return m, tea.Quit
		case key.Matches(k, addKey):
			m.adding = true
			m.ti.SetValue("")
			m.ti.Focus()
			return m, textinput.Blink
		case key.Matches(k, reloadKey):
			m.err, m.status = nil, ""
			return m, m.load()
		case key.Matches(k, toggleKey):
			if it, ok := m.current(); ok {
				return m, m.toggle(it.todo.ID)
			}
			return m, nil
		case key.Matches(k, deleteKey):
			if it, ok := m.current(); ok {
				return m, m.remove(it.todo.ID)
			}
			return m, nil
		case key.Matches(k, markKey):
			if it, ok := m.current(); ok {
				m.marked[it.todo.ID] = !m.marked[it.todo.ID]
				if !m.marked[it.todo.ID] {
					delete(m.marked, it.todo.ID)
				}
				it.marked = m.marked[it.todo.ID]
				m.list.SetItem(m.list.Index(), it)
			}
			return m, nil
		case key.Matches(k, dropKey):
			ids := m.markedIDs()
			if len(ids) == 0 {
				m.status = "nothing selected"
				return m, nil
			}
			return m, m.drop(ids)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			// 空白や空文字も含めて、入力どおりに送る
			title := m.ti.Value()
			m.adding = false
			m.ti.Blur()
			m.ti.SetValue("")
			return m, m.create(title)
		case "esc":
			m.adding = false
			m.ti.Blur()
			m.ti.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.list.View())

	if m.adding {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render("Add new todo\n" + m.ti.View()))
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("✖ "+m.err.Error()))
	case m.status != "":
		b.WriteString("\n" + successStyle.Render("✔ "+m.status))
	}
	return panelStyle.Render(b.String())
}

func (m Model) header() string {
	var done, pending int
	for _, it := range m.list.Items() {
		if li, ok := it.(listItem); ok && li.todo.Completed {
			done++
		} else {
			pending++
		}
	}
	return fmt.Sprintf("%s %d  %s %d  %s %d  %s %d",
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		markStyle.Render("*"), len(m.marked),
		accentStyle.Render("Total"), done+pending,
	)
}

// ---- helpers ----

func (m Model) current() (listItem, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it, ok
}

func (m Model) markedIDs() []int64 {
	ids := make([]int64, 0, len(m.marked))
	for id := range m.marked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Model) setTodos(todos []*domain_todo.Todo) tea.Cmd {
	present := make(map[int64]bool, len(todos))
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		present[t.ID] = true
		items = append(items, listItem{todo: *t, marked: m.marked[t.ID]})
	}
	// 消えた id の選択は捨てる
	for id := range m.marked {
		if !present[id] {
			delete(m.marked, id)
		}
	}
	return m.list.SetItems(items)
}

// ---- commands ----

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		todos, err := m.api.List(ctx)
		return loadedMsg{todos: todos, err: err}
	}
}

func (m Model) create(title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		t, err := m.api.Create(ctx, title)
		if err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{status: fmt.Sprintf("added #%d", t.ID)}
	}
}

func (m Model) toggle(id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		t, err := m.api.Toggle(ctx, id)
		if err != nil {
			return doneMsg{err: err}
		}
		state := "pending"
		if t.Completed {
			state = "done"
		}
		return doneMsg{status: fmt.Sprintf("#%d marked %s", id, state)}
	}
}

func (m Model) remove(id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := m.api.Delete(ctx, id); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{status: fmt.Sprintf("deleted #%d", id)}
	}
}

func (m Model) drop(ids []int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := m.api.DeleteMany(ctx, ids); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{status: fmt.Sprintf("dropped %d todos", len(ids))}
	}
}
