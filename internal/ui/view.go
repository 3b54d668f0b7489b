package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskpad/internal/config"
	"taskpad/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

const timeLayout = "Jan 2 15:04"

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Taskpad"))
	b.WriteString("\n")
	b.WriteString(renderStats(m.vm.Stats()))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(describeFilters(m.vm.Filters())))
	b.WriteString("\n\n")

	visible := m.vm.Visible()
	switch {
	case m.vm.Loading() && len(m.vm.Tasks()) == 0:
		b.WriteString("Loading...")
	case len(m.vm.Tasks()) == 0:
		b.WriteString(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add))
	case len(visible) == 0:
		b.WriteString("No tasks match the current filters.")
	default:
		b.WriteString(m.renderTaskList(visible))
	}

	b.WriteString("\n---\n")
	switch m.mode {
	case modeAdd:
		b.WriteString("Add Task: ")
		b.WriteString(m.input.View())
	case modeAddPriority:
		b.WriteString(fmt.Sprintf("Add Task: %s [%s]", m.input.Value(), renderPriority(m.draft)))
	case modeRename:
		b.WriteString("Rename: ")
		b.WriteString(m.input.View())
	default:
		b.WriteString(renderDetailPanel(visible, m.cursor))
	}

	if msg := m.vm.Err(); msg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Error: " + msg))
	}
	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func (m Model) renderTaskList(tasks []task.Task) string {
	var b strings.Builder
	for i, t := range tasks {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}

		checkbox := "[ ]"
		title := t.Title
		if t.Completed {
			checkbox = "[x]"
			title = doneStyle.Render(title)
		}

		b.WriteString(fmt.Sprintf("%s %s %s %s", cursor, checkbox, renderPriority(t.Priority), title))
		b.WriteString("\n")
	}
	return b.String()
}

func renderPriority(p task.Priority) string {
	label := fmt.Sprintf("%-6s", p)
	if style, ok := priorityStyles[p]; ok {
		return style.Render(label)
	}
	return label
}

func renderStats(s task.Stats) string {
	return fmt.Sprintf("Total %d • Completed %d (%d%%) • Pending %d • High %d • Medium %d • Low %d",
		s.Total, s.Completed, s.CompletionRate(), s.Pending,
		s.ByPriority[task.PriorityHigh], s.ByPriority[task.PriorityMedium], s.ByPriority[task.PriorityLow])
}

func renderDetailPanel(tasks []task.Task, cursor int) string {
	t, ok := selected(tasks, cursor)
	if !ok {
		return "No task selected"
	}
	var b strings.Builder
	b.WriteString("Details\n")
	b.WriteString(fmt.Sprintf("Title     : %s\n", t.Title))
	b.WriteString(fmt.Sprintf("Status    : %s\n", humanDone(t.Completed)))
	b.WriteString(fmt.Sprintf("Priority  : %s\n", t.Priority))
	b.WriteString(fmt.Sprintf("Created   : %s\n", t.CreatedAt.Local().Format(timeLayout)))
	b.WriteString(fmt.Sprintf("Updated   : %s", t.UpdatedAt.Local().Format(timeLayout)))
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s rename • %s toggle • %s delete • %s/%s priority • "+
		"%s status • %s prio filter • %s/%s/%s sort • %s order • %s reset • %s clear done • %s reload • %s quit",
		k.Up, k.Down, k.Add, k.Rename, keyLabel(k.Toggle), k.Delete, k.PriorityUp, k.PriorityDown,
		k.FilterStatus, k.FilterPriority, k.SortName, k.SortPriority, k.SortCreated, k.SortOrder,
		k.ResetFilters, k.ClearCompleted, k.Reload, k.Quit)
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func humanDone(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}
