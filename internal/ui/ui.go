package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskpad/internal/config"
	"taskpad/internal/task"
	"taskpad/internal/viewmodel"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeAddPriority
	modeRename
)

type opKind int

const (
	opOther opKind = iota
	opResetInput
)

type loadedMsg struct{}

type opDoneMsg struct {
	kind   opKind
	status string
	err    error
}

type Model struct {
	vm         *viewmodel.ViewModel
	cfg        config.Config
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	draft      task.Priority
	renameID   string
}

func New(vm *viewmodel.ViewModel, cfg config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = task.MaxTitleLength
	ti.Width = 40

	return Model{
		vm:     vm,
		cfg:    cfg,
		input:  ti,
		mode:   modeList,
		draft:  task.PriorityMedium,
		status: "Loading tasks...",
	}
}

func Run(vm *viewmodel.ViewModel, cfg config.Config) error {
	program := tea.NewProgram(New(vm, cfg))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	vm := m.vm
	return func() tea.Msg {
		vm.Load(context.Background())
		return loadedMsg{}
	}
}

// run performs op off the update loop and reports back with an opDoneMsg.
func (m Model) run(kind opKind, status string, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := op(context.Background())
		return opDoneMsg{kind: kind, status: status, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if m.vm.Err() == "" {
			m.status = fmt.Sprintf("Loaded %d tasks", len(m.vm.Tasks()))
		} else {
			m.status = "Load failed"
		}
		m.cursor = clampCursor(m.cursor, len(m.vm.Visible()))
	case opDoneMsg:
		if msg.err != nil {
			m.status = "Operation failed"
		} else {
			m.status = msg.status
			if msg.kind == opResetInput {
				m.input.SetValue("")
			}
		}
		m.cursor = clampCursor(m.cursor, len(m.vm.Visible()))
	case tea.KeyMsg:
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd:
		return m.updateAddMode(key, msg)
	case modeAddPriority:
		return m.updateAddPriorityMode(key)
	case modeRename:
		return m.updateRenameMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.mode = modeList
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		if _, err := task.NormalizeTitle(m.input.Value()); err != nil {
			m.status = capitalize(err.Error())
			return m, nil
		}
		m.input.Blur()
		m.mode = modeAddPriority
		m.status = m.priorityPrompt()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateAddPriorityMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.mode = modeList
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.PriorityUp, "right", "l":
		m.draft = m.draft.Raise()
		m.status = m.priorityPrompt()
		return m, nil
	case m.cfg.Keys.PriorityDown, "left", "h":
		m.draft = m.draft.Lower()
		m.status = m.priorityPrompt()
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		title, prio := m.input.Value(), m.draft
		vm := m.vm
		m.mode = modeList
		m.status = "Saving..."
		return m, m.run(opResetInput, "Added task", func(ctx context.Context) error {
			_, err := vm.Add(ctx, title, prio)
			return err
		})
	}
	return m, nil
}

func (m Model) updateRenameMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.mode = modeList
		m.renameID = ""
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Rename cancelled"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		if _, err := task.NormalizeTitle(m.input.Value()); err != nil {
			m.status = capitalize(err.Error())
			return m, nil
		}
		id, title := m.renameID, m.input.Value()
		vm := m.vm
		m.mode = modeList
		m.renameID = ""
		m.input.Blur()
		return m, m.run(opResetInput, "Renamed task", func(ctx context.Context) error {
			return vm.Edit(ctx, id, title)
		})
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	visible := m.vm.Visible()
	vm := m.vm
	k := m.cfg.Keys

	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		if len(visible) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(visible))
	case k.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(visible))
		}
	case k.Add:
		m.mode = modeAdd
		m.draft = task.PriorityMedium
		m.input.Placeholder = "Task title"
		m.input.Focus()
		m.status = "Add mode: type a title and press Enter"
	case k.Toggle:
		t, ok := selected(visible, m.cursor)
		if !ok {
			return m, nil
		}
		return m, m.run(opOther, "Toggled task", func(ctx context.Context) error {
			return vm.Toggle(ctx, t.ID)
		})
	case k.Delete:
		t, ok := selected(visible, m.cursor)
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.Rename:
		t, ok := selected(visible, m.cursor)
		if !ok {
			m.status = "No tasks to rename"
			return m, nil
		}
		m.mode = modeRename
		m.renameID = t.ID
		m.input.SetValue(t.Title)
		m.input.Focus()
		m.status = "Rename: edit the title and press Enter"
	case k.PriorityUp, k.PriorityDown:
		t, ok := selected(visible, m.cursor)
		if !ok {
			return m, nil
		}
		next := t.Priority.Raise()
		if key == k.PriorityDown {
			next = t.Priority.Lower()
		}
		if next == t.Priority {
			return m, nil
		}
		return m, m.run(opOther, "Priority set to "+string(next), func(ctx context.Context) error {
			return vm.SetPriority(ctx, t.ID, next)
		})
	case k.FilterStatus:
		next := nextStatus(m.vm.Filters().Status)
		m.setFilters(task.FilterPatch{Status: &next})
	case k.FilterPriority:
		next := nextPriorityFilter(m.vm.Filters().Priority)
		m.setFilters(task.FilterPatch{Priority: &next})
	case k.SortName:
		by := task.SortByName
		m.setFilters(task.FilterPatch{SortBy: &by})
	case k.SortPriority:
		by := task.SortByPriority
		m.setFilters(task.FilterPatch{SortBy: &by})
	case k.SortCreated:
		by := task.SortByCreatedAt
		m.setFilters(task.FilterPatch{SortBy: &by})
	case k.SortOrder:
		order := task.SortAsc
		if m.vm.Filters().SortOrder == task.SortAsc {
			order = task.SortDesc
		}
		m.setFilters(task.FilterPatch{SortOrder: &order})
	case k.ResetFilters:
		m.vm.ResetFilters()
		m.cursor = 0
		m.status = "Filters reset"
	case k.ClearCompleted:
		if m.vm.Stats().Completed == 0 {
			m.status = "No completed tasks"
			return m, nil
		}
		return m, m.run(opOther, "Cleared completed tasks", func(ctx context.Context) error {
			_, err := vm.ClearCompleted(ctx)
			return err
		})
	case k.Reload:
		m.status = "Reloading..."
		return m, m.loadCmd()
	}
	return m, nil
}

func (m *Model) setFilters(p task.FilterPatch) {
	if err := m.vm.SetFilters(p); err != nil {
		m.status = fmt.Sprintf("filter rejected: %v", err)
		return
	}
	m.cursor = 0
	m.status = describeFilters(m.vm.Filters())
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		id := m.pendingDel.ID
		vm := m.vm
		m.confirmDel = false
		m.pendingDel = nil
		return m, m.run(opOther, "Deleted task", func(ctx context.Context) error {
			return vm.Remove(ctx, id)
		})
	default:
		return m, nil
	}
}

func (m Model) priorityPrompt() string {
	return fmt.Sprintf("Priority: %s (%s/%s to change, Enter to save, Esc to cancel)",
		m.draft, m.cfg.Keys.PriorityDown, m.cfg.Keys.PriorityUp)
}

func selected(tasks []task.Task, cursor int) (task.Task, bool) {
	if len(tasks) == 0 {
		return task.Task{}, false
	}
	return tasks[clampCursor(cursor, len(tasks))], true
}

var statusCycle = []task.StatusFilter{task.StatusAll, task.StatusPending, task.StatusCompleted}

func nextStatus(cur task.StatusFilter) task.StatusFilter {
	for i, s := range statusCycle {
		if s == cur {
			return statusCycle[wrapIndex(i+1, len(statusCycle))]
		}
	}
	return task.StatusAll
}

var priorityCycle = []task.PriorityFilter{
	task.PriorityAll,
	task.PriorityFilter(task.PriorityHigh),
	task.PriorityFilter(task.PriorityMedium),
	task.PriorityFilter(task.PriorityLow),
}

func nextPriorityFilter(cur task.PriorityFilter) task.PriorityFilter {
	for i, p := range priorityCycle {
		if p == cur {
			return priorityCycle[wrapIndex(i+1, len(priorityCycle))]
		}
	}
	return task.PriorityAll
}

func describeFilters(f task.Filters) string {
	return fmt.Sprintf("Showing %s • priority %s • sorted by %s %s", f.Status, f.Priority, f.SortBy, f.SortOrder)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
