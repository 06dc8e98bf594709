// Package ui is the live dashboard: it tails the daemon's event bus,
// shows dev-server health and pending tool confirmations, and lets the
// user resolve confirmations without leaving the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"overseer/internal/client"
	"overseer/internal/types"
)

type entry struct {
	role    string
	content string
}

type Model struct {
	client   *client.Client
	styles   styles
	markdown *markdownRenderer

	width  int
	height int
	ready  bool

	viewport viewport.Model
	spinner  spinner.Model

	streaming  bool
	transcript []entry
	partial    strings.Builder

	events       <-chan types.StreamEvent
	cancelStream func()

	dev        types.DevServerState
	pending    []*types.Confirmation
	comparison *types.ComparisonState

	notice  string
	lastErr error
}

func NewModel(c *client.Client) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		client:   c,
		styles:   newStyles(),
		spinner:  sp,
		markdown: newMarkdownRenderer(80),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		connectStream(m.client),
		fetchStatus(m.client),
		pollTick(),
		m.spinner.Tick,
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := m.height - 6
		if contentHeight < 3 {
			contentHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = contentHeight
		}
		m.markdown = newMarkdownRenderer(min(m.width-2, 100))
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelStream != nil {
				m.cancelStream()
			}
			return m, tea.Quit
		case "a":
			if len(m.pending) > 0 {
				return m, resolveConfirmation(m.client, m.pending[0].ID, true)
			}
		case "r":
			if len(m.pending) > 0 {
				return m, resolveConfirmation(m.client, m.pending[0].ID, false)
			}
		case "y":
			if content := m.lastAssistant(); content != "" {
				return m, copyToClipboard(content)
			}
		case "up", "k":
			m.viewport.LineUp(1)
		case "down", "j":
			m.viewport.LineDown(1)
		case "pgup":
			m.viewport.ViewUp()
		case "pgdown":
			m.viewport.ViewDown()
		}
		return m, nil

	case connectedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.events = msg.events
		m.cancelStream = msg.cancel
		return m, waitEvent(m.events)

	case streamEventMsg:
		m.applyEvent(msg.event)
		return m, waitEvent(m.events)

	case streamClosedMsg:
		m.streaming = false
		m.notice = "event stream disconnected"
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
		}
		if msg.dev != nil {
			m.dev = *msg.dev
		}
		m.pending = msg.pending
		m.comparison = msg.comparison
		return m, nil

	case pollTickMsg:
		return m, tea.Batch(fetchStatus(m.client), pollTick())

	case resolvedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		}
		return m, fetchStatus(m.client)

	case copiedMsg:
		if msg.err != nil {
			m.notice = "copy failed"
		} else {
			m.notice = "copied to clipboard"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyEvent(event types.StreamEvent) {
	switch event.Type {
	case types.EventTypeDelta:
		m.streaming = true
		m.partial.WriteString(event.Delta)
	case types.EventTypeMessage:
		if event.Message != nil {
			m.transcript = append(m.transcript, entry{
				role:    string(event.Message.Role),
				content: event.Message.Content,
			})
		}
		m.partial.Reset()
	case types.EventTypeToolCall:
		m.transcript = append(m.transcript, entry{
			role:    "tool",
			content: fmt.Sprintf("→ %s %s", event.ToolName, event.ToolArgs),
		})
	case types.EventTypeToolResult:
		m.transcript = append(m.transcript, entry{
			role:    "tool",
			content: event.ToolResult,
		})
	case types.EventTypeError:
		m.transcript = append(m.transcript, entry{role: "error", content: event.Error})
		m.partial.Reset()
	case types.EventTypeEnd:
		if m.partial.Len() > 0 {
			m.transcript = append(m.transcript, entry{
				role:    "assistant",
				content: m.partial.String(),
			})
			m.partial.Reset()
		}
		m.streaming = false
	}
	m.refreshViewport()
}

func (m *Model) lastAssistant() string {
	for i := len(m.transcript) - 1; i >= 0; i-- {
		if m.transcript[i].role == "assistant" {
			return m.transcript[i].content
		}
	}
	return ""
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, item := range m.transcript {
		switch item.role {
		case "assistant":
			b.WriteString(m.markdown.Render(item.content))
		case "user":
			b.WriteString(m.styles.UserMsg.Render("> " + item.content))
		case "error":
			b.WriteString(m.styles.ErrorMsg.Render(item.content))
		default:
			b.WriteString(item.content)
		}
		b.WriteString("\n")
	}
	if m.partial.Len() > 0 {
		b.WriteString(m.partial.String())
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	var sections []string
	sections = append(sections, m.styles.Title.Render("overseer"))
	sections = append(sections, m.viewport.View())
	if len(m.pending) > 0 {
		first := m.pending[0]
		sections = append(sections, m.styles.Pending.Render(
			fmt.Sprintf("confirm %s (%s): %s  [a]pprove / [r]eject  (%d pending)",
				first.ToolName, first.Category, truncate(first.Input, 48), len(m.pending)),
		))
	}
	sections = append(sections, m.statusLine())
	sections = append(sections, m.styles.Help.Render("a approve · r reject · y copy · j/k scroll · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) statusLine() string {
	var parts []string
	if m.streaming {
		parts = append(parts, m.spinner.View()+" streaming")
	} else {
		parts = append(parts, "idle")
	}
	parts = append(parts, m.devStatus())
	if m.comparison != nil {
		parts = append(parts, fmt.Sprintf("comparison %s (%d runs)", m.comparison.Phase, len(m.comparison.Runs)))
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	if m.lastErr != nil {
		parts = append(parts, m.styles.StatusBad.Render(truncate(m.lastErr.Error(), 40)))
	}
	return m.styles.StatusBar.Render(truncate(strings.Join(parts, " · "), max(m.width, 20)))
}

func (m *Model) devStatus() string {
	label := fmt.Sprintf("app %s", m.dev.Status)
	if m.dev.Port > 0 && m.dev.Status == types.DevServerRunning {
		label = fmt.Sprintf("app :%d", m.dev.Port)
	}
	switch m.dev.Status {
	case types.DevServerRunning:
		return m.styles.StatusGood.Render(label)
	case types.DevServerCrashed:
		return m.styles.StatusBad.Render(label)
	case types.DevServerStarting, types.DevServerRestarting:
		return m.styles.StatusWarn.Render(label)
	default:
		return m.styles.StatusBar.Render(label)
	}
}

func truncate(s string, width int) string {
	return runewidth.Truncate(strings.ReplaceAll(s, "\n", " "), width, "…")
}

// Run starts the dashboard connected to the given daemon client.
func Run(c *client.Client) error {
	program := tea.NewProgram(NewModel(c), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
