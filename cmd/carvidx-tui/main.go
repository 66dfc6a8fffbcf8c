// Command carvidx-tui is an interactive browser over a carving run: point
// it at a volume image, pick a few options, and page through the live and
// deleted directory entries it recovers.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/forensicgo/carvidx/internal/config"
	"github.com/forensicgo/carvidx/internal/disk"
	"github.com/forensicgo/carvidx/internal/ntfs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	slackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))
)

// State represents the current screen.
type State int

const (
	StateEnterPath State = iota
	StateEnterMount
	StateSelectOptions
	StateConfirm
	StateRunning
	StateBrowse
	StateDetail
)

type optionItem struct {
	label   string
	enabled bool
}

type model struct {
	state  State
	width  int
	height int
	err    error

	pathInput  textinput.Model
	mountInput textinput.Model

	slackOnly      bool
	deletedOnly    bool
	includeDeleted bool
	optionCursor   int

	spinner   spinner.Model
	statusMsg string

	entries    []ntfs.Entry
	entryList  list.Model
	selected   ntfs.Entry
}

type entryItem struct {
	entry ntfs.Entry
}

func (i entryItem) Title() string {
	if i.entry.IsSlack {
		return slackStyle.Render(i.entry.Filename) + "  (slack)"
	}
	return i.entry.Filename
}

func (i entryItem) Description() string {
	return fmt.Sprintf("%s  |  %d bytes", i.entry.ParentPath, i.entry.Size)
}

func (i entryItem) FilterValue() string { return i.entry.Filename }

type walkCompleteMsg struct {
	entries []ntfs.Entry
	err     error
}

func initialModel() model {
	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/volume.img"
	pathInput.Focus()
	pathInput.Width = 50

	mountInput := textinput.New()
	mountInput.Placeholder = config.DefaultMountPoint
	mountInput.SetValue(config.DefaultMountPoint)
	mountInput.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return model{
		state:      StateEnterPath,
		pathInput:  pathInput,
		mountInput: mountInput,
		spinner:    s,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != StateRunning && m.state != StateEnterPath && m.state != StateEnterMount {
				return m, tea.Quit
			}
		case "esc":
			if m.state == StateDetail {
				m.state = StateBrowse
				return m, nil
			}
			if m.state == StateBrowse {
				m.state = StateConfirm
				return m, nil
			}
			if m.state > StateEnterPath && m.state != StateRunning {
				m.state--
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.entryList.Items() != nil {
			m.entryList.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case walkCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateEnterPath
			return m, nil
		}
		m.entries = msg.entries
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = entryItem{entry: e}
		}
		m.entryList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-10)
		m.entryList.Title = fmt.Sprintf("Recovered Entries (%d)", len(msg.entries))
		m.entryList.SetShowStatusBar(true)
		m.entryList.SetFilteringEnabled(true)
		m.state = StateBrowse
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.state {
	case StateEnterPath:
		return m.updateEnterPath(msg)
	case StateEnterMount:
		return m.updateEnterMount(msg)
	case StateSelectOptions:
		return m.updateSelectOptions(msg)
	case StateConfirm:
		return m.updateConfirm(msg)
	case StateRunning:
		return m.updateRunning(msg)
	case StateBrowse:
		return m.updateBrowse(msg)
	case StateDetail:
		return m, nil
	}
	return m, nil
}

func (m model) updateEnterPath(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if m.pathInput.Value() != "" {
			m.err = nil
			m.state = StateEnterMount
			m.mountInput.Focus()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m model) updateEnterMount(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		m.state = StateSelectOptions
		return m, nil
	}
	var cmd tea.Cmd
	m.mountInput, cmd = m.mountInput.Update(msg)
	return m, cmd
}

func (m model) options() []optionItem {
	return []optionItem{
		{label: "Slack-only (suppress live entries)", enabled: m.slackOnly},
		{label: "Deleted-only (suppress anything still live on the volume)", enabled: m.deletedOnly},
		{label: "Include directories whose own MFT record is deleted", enabled: m.includeDeleted},
	}
}

func (m model) updateSelectOptions(msg tea.Msg) (tea.Model, tea.Cmd) {
	numOptions := len(m.options())
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.optionCursor > 0 {
				m.optionCursor--
			}
		case "down", "j":
			if m.optionCursor < numOptions-1 {
				m.optionCursor++
			}
		case " ":
			switch m.optionCursor {
			case 0:
				m.slackOnly = !m.slackOnly
			case 1:
				m.deletedOnly = !m.deletedOnly
			case 2:
				m.includeDeleted = !m.includeDeleted
			}
		case "enter":
			m.state = StateConfirm
		}
	}
	return m, nil
}

func (m model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			m.state = StateRunning
			m.statusMsg = "Walking MFT and carving index records..."
			return m, tea.Batch(m.spinner.Tick, m.runWalk())
		case "n", "N":
			m.state = StateEnterPath
		}
	}
	return m, nil
}

func (m model) updateRunning(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m model) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if selected, ok := m.entryList.SelectedItem().(entryItem); ok {
			m.selected = selected.entry
			m.state = StateDetail
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.entryList, cmd = m.entryList.Update(msg)
	return m, cmd
}

func (m model) runWalk() tea.Cmd {
	return func() tea.Msg {
		reader, err := disk.Open(m.pathInput.Value())
		if err != nil {
			return walkCompleteMsg{err: err}
		}
		defer reader.Close()

		cfg := config.Default()
		cfg.MountPoint = m.mountInput.Value()
		cfg.SlackOnly = m.slackOnly
		cfg.DeletedOnly = m.deletedOnly
		cfg.IncludeDeletedDirs = m.includeDeleted

		walker, err := ntfs.NewWalker(reader, cfg, zap.NewNop().Sugar())
		if err != nil {
			return walkCompleteMsg{err: err}
		}

		var entries []ntfs.Entry
		for entry := range walker.Walk {
			entries = append(entries, entry)
		}
		return walkCompleteMsg{entries: entries}
	}
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" carvidx "))
	s.WriteString("\n\n")

	switch m.state {
	case StateEnterPath:
		s.WriteString(subtitleStyle.Render("Enter Volume Image Path"))
		s.WriteString("\n\n")
		s.WriteString(m.pathInput.View())
	case StateEnterMount:
		s.WriteString(subtitleStyle.Render("Mount Point Prefix"))
		s.WriteString("\n\n")
		s.WriteString(m.mountInput.View())
	case StateSelectOptions:
		s.WriteString(m.viewSelectOptions())
	case StateConfirm:
		s.WriteString(m.viewConfirm())
	case StateRunning:
		s.WriteString(m.spinner.View())
		s.WriteString(" ")
		s.WriteString(m.statusMsg)
	case StateBrowse:
		s.WriteString(m.entryList.View())
	case StateDetail:
		s.WriteString(m.viewDetail())
	}

	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press q to quit • esc to go back"))
	return s.String()
}

func (m model) viewSelectOptions() string {
	var s strings.Builder
	s.WriteString(subtitleStyle.Render("Select Options"))
	s.WriteString("\n\n")

	for i, opt := range m.options() {
		cursor := "  "
		if i == m.optionCursor {
			cursor = "> "
		}
		checkbox := "[ ]"
		if opt.enabled {
			checkbox = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", cursor, checkbox, opt.label)
		if i == m.optionCursor {
			s.WriteString(selectedStyle.Render(line))
		} else {
			s.WriteString(line)
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓ to move • Space to toggle • Enter to continue"))
	return s.String()
}

func (m model) viewConfirm() string {
	var s strings.Builder
	s.WriteString(subtitleStyle.Render("Confirm"))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("  Volume:       %s\n", m.pathInput.Value()))
	s.WriteString(fmt.Sprintf("  Mount point:  %s\n", m.mountInput.Value()))
	s.WriteString(fmt.Sprintf("  Slack-only:   %v\n", m.slackOnly))
	s.WriteString(fmt.Sprintf("  Deleted-only: %v\n", m.deletedOnly))
	s.WriteString("\n")
	s.WriteString(selectedStyle.Render("Press Y to start, N to go back"))
	return s.String()
}

func (m model) viewDetail() string {
	e := m.selected
	var s strings.Builder
	s.WriteString(subtitleStyle.Render(e.Filename))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("  Parent path:    %s\n", e.ParentPath))
	s.WriteString(fmt.Sprintf("  File reference: %d-%d\n", e.FileReference.Index, e.FileReference.Sequence))
	s.WriteString(fmt.Sprintf("  Parent ref:     %d-%d\n", e.ParentReference.Index, e.ParentReference.Sequence))
	s.WriteString(fmt.Sprintf("  Size:           %d\n", e.Size))
	s.WriteString(fmt.Sprintf("  Allocated size: %d\n", e.AllocatedSize))
	s.WriteString(fmt.Sprintf("  Created:        %s\n", e.CreationTime))
	s.WriteString(fmt.Sprintf("  Modified:       %s\n", e.LastModificationTime))
	s.WriteString(fmt.Sprintf("  Accessed:       %s\n", e.LastAccessTime))
	s.WriteString(fmt.Sprintf("  MFT changed:    %s\n", e.LastMFTChangeTime))
	s.WriteString(fmt.Sprintf("  Flags:          %s\n", strings.Join(e.Flags.Names(), "|")))
	s.WriteString(fmt.Sprintf("  Source:         %s\n", sourceLabel(e)))
	return s.String()
}

func sourceLabel(e ntfs.Entry) string {
	if e.IsSlack {
		return "Index Slack"
	}
	return "Index Record"
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
