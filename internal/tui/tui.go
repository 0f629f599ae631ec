// Package tui is the interactive list view. It renders snapshots pushed by a
// query.Cache and turns key presses into cache mutations; mutation outcomes
// come back as notifications shown in the status bar.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
)

type mode int

const (
	modeBrowse mode = iota
	modeAddTitle
	modeAddContent
	modeEditTitle
	modeEditContent
	modeConfirmDelete
)

type (
	snapshotMsg query.Snapshot
	closedMsg   struct{}
	notifyMsg   query.Notification
)

// programNotifier forwards cache notifications into the running program.
type programNotifier struct {
	p *tea.Program
}

func (n *programNotifier) Notify(note query.Notification) {
	if n.p != nil {
		n.p.Send(notifyMsg(note))
	}
}

type modelTUI struct {
	cache *query.Cache
	sub   <-chan query.Snapshot

	list list.Model
	spin spinner.Model
	ti   textinput.Model // shared text input (add & edit)

	mode    mode
	snap    query.Snapshot
	draft   model.Draft
	target  model.Item // item being edited or deleted
	formErr string

	width, height int
}

// Run opens the interactive list over store. The cache lives for the
// duration of the program.
func Run(store query.Store, logger *log.Logger) error {
	bridge := &programNotifier{}
	cache := query.New(store, query.WithNotifier(bridge), query.WithLogger(logger))
	defer cache.Close()

	m := newModel(cache)
	p := tea.NewProgram(m, tea.WithAltScreen())
	bridge.p = p

	_, err := p.Run()
	return err
}

func newModel(cache *query.Cache) modelTUI {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = titleStyle.Render("Todos")
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")

	// Extend help with our bindings
	binds := []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return binds }
	l.AdditionalFullHelpKeys = func() []key.Binding { return binds }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sub, _ := cache.Subscribe()

	return modelTUI{
		cache: cache,
		sub:   sub,
		list:  l,
		spin:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		ti:    ti,
		width: 80, height: 24,
	}
}

func waitForSnapshot(sub <-chan query.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-sub
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(s)
	}
}

// mutate runs a cache mutation off the UI loop. Its outcome arrives as a
// notifyMsg and the refreshed collection as a snapshotMsg.
func mutate(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		_ = fn(context.Background())
		return nil
	}
}

func (m modelTUI) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.sub), m.spin.Tick)
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case snapshotMsg:
		m.snap = query.Snapshot(msg)
		m.list.Title = header(m.snap.Items)
		cmd := m.list.SetItems(toListItems(m.snap.Items))
		return m, tea.Batch(cmd, waitForSnapshot(m.sub))

	case closedMsg:
		return m, tea.Quit

	case notifyMsg:
		text := successStyle.Render("✔ " + msg.Message)
		if msg.Kind == query.KindError {
			text = errorStyle.Render("✖ " + msg.Message)
		}
		return m, m.list.NewStatusMessage(text)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateForm(msg)
		}
		if !m.list.SettingFilter() {
			if next, cmd, handled := m.updateBrowse(msg); handled {
				return next, cmd
			}
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if _, isKey := msg.(tea.KeyMsg); !isKey || m.mode == modeBrowse {
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.mode != modeBrowse && m.mode != modeConfirmDelete {
		m.ti, cmd = m.ti.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m modelTUI) selected() (model.Item, bool) {
	li, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return li.item, true
}

func (m modelTUI) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return m, tea.Quit, true
	case "esc":
		if m.list.FilterState() == list.Unfiltered {
			return m, tea.Quit, true
		}
	case " ":
		if it, ok := m.selected(); ok {
			return m, mutate(func(ctx context.Context) error {
				_, err := m.cache.ToggleCompleted(ctx, it.ID, it.IsCompleted)
				return err
			}), true
		}
		return m, nil, true
	case "a":
		m.draft = model.Draft{}
		cmd := m.startInput(modeAddTitle, "", "New item title...")
		return m, cmd, true
	case "e":
		if it, ok := m.selected(); ok {
			m.target = it
			cmd := m.startInput(modeEditTitle, it.Title, "Edit item title...")
			return m, cmd, true
		}
		return m, nil, true
	case "d":
		if it, ok := m.selected(); ok {
			m.target = it
			m.mode = modeConfirmDelete
			m.resize()
		}
		return m, nil, true
	case "r":
		m.cache.Invalidate()
		return m, nil, true
	}
	return m, nil, false
}

func (m *modelTUI) startInput(md mode, value, placeholder string) tea.Cmd {
	m.mode = md
	m.formErr = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.resize()
	return m.ti.Focus()
}

func (m *modelTUI) endInput() {
	m.mode = modeBrowse
	m.formErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m modelTUI) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirmDelete {
		switch msg.String() {
		case "y", "Y", "enter":
			it := m.target
			m.endInput()
			return m, mutate(func(ctx context.Context) error {
				return m.cache.Delete(ctx, it.ID)
			})
		case "n", "N", "esc", "q":
			m.endInput()
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.endInput()
		return m, nil
	case "enter":
		value := m.ti.Value()
		switch m.mode {
		case modeAddTitle, modeEditTitle:
			title := strings.TrimSpace(value)
			if err := model.ValidateTitle(title); err != nil {
				m.formErr = "Title is required"
				return m, nil
			}
			m.draft.Title = title
			var cmd tea.Cmd
			if m.mode == modeAddTitle {
				cmd = m.startInput(modeAddContent, "", "Content (optional)")
			} else {
				cmd = m.startInput(modeEditContent, m.target.Content, "Content (optional)")
			}
			return m, cmd

		case modeAddContent:
			d := model.Draft{Title: m.draft.Title, Content: strings.TrimSpace(value)}
			m.endInput()
			return m, mutate(func(ctx context.Context) error {
				_, err := m.cache.Create(ctx, d)
				return err
			})

		case modeEditContent:
			id, title, content := m.target.ID, m.draft.Title, strings.TrimSpace(value)
			m.endInput()
			return m, mutate(func(ctx context.Context) error {
				_, err := m.cache.Update(ctx, id, model.Patch{Title: &title, Content: &content})
				return err
			})
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *modelTUI) resize() {
	h := m.height - 5 // frame + status line
	if m.mode != modeBrowse {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func header(items []model.Item) string {
	d, p := model.Stats(items)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), d,
		pendingStyle.Render("•"), p,
		accentStyle.Render("Total"), len(items),
	)
}

func (m modelTUI) View() string {
	loaded := !m.snap.UpdatedAt.IsZero()

	if !loaded {
		switch m.snap.State {
		case query.StateFailed:
			msg := "unknown error"
			if m.snap.Err != nil {
				msg = m.snap.Err.Error()
			}
			return frameStyle.Render(errorStyle.Render("Error") + "\n" + msg + "\n\n" + helpStyle.Render("r retry • q quit"))
		default:
			return frameStyle.Render(m.spin.View() + " Loading todos...")
		}
	}

	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	switch m.snap.State {
	case query.StateLoading:
		b.WriteString(mutedStyle.Render(m.spin.View() + " refreshing"))
	case query.StateFailed:
		b.WriteString(errorStyle.Render("✖ " + m.snap.Err.Error()))
	}

	switch m.mode {
	case modeConfirmDelete:
		b.WriteString("\n" + frameStyle.Render(fmt.Sprintf("Delete %q? %s", m.target.Title, helpStyle.Render("y/n"))))
	case modeAddTitle, modeAddContent, modeEditTitle, modeEditContent:
		title := "Add new item"
		if m.mode == modeEditTitle || m.mode == modeEditContent {
			title = "Edit item"
		}
		if m.formErr != "" {
			title += " " + errorStyle.Render(m.formErr)
		}
		b.WriteString("\n" + frameStyle.Render(title+"\n"+m.ti.View()))
	}
	return frameStyle.Render(b.String())
}
