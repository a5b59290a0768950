package watch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hooksink/hooksink/internal/store"
)

const pollInterval = 2 * time.Second

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	token  string

	width  int
	height int

	// State
	events    []store.Record
	count     int
	connected bool
	lastFetch time.Time

	theme     Theme
	lastError string
}

// New creates a new watch TUI model.
func New(apiURL, token string) *Model {
	return &Model{
		apiURL: apiURL,
		token:  token,
		theme:  NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchEvents(m.apiURL, m.token),
		tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(
			fetchEvents(m.apiURL, m.token),
			tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case eventsMsg:
		m.events = msg.Events
		m.count = msg.Count
		m.connected = true
		m.lastFetch = time.Now()
		m.lastError = ""

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to hooksink..."
	}

	header := m.renderHeader()
	events := m.renderEvents()

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.ErrorText.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := m.theme.Dim.Render(" [q] Quit")

	parts := []string{header, events}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) renderHeader() string {
	innerWidth := m.width - 4

	status := m.theme.StatusOK.Render("CONNECTED")
	if !m.connected {
		status = m.theme.StatusFailed.Render("DISCONNECTED")
	}

	lastFetch := "never"
	if !m.lastFetch.IsZero() {
		lastFetch = fmt.Sprintf("%s ago", time.Since(m.lastFetch).Round(time.Second))
	}

	title := m.theme.Title.Render("HOOKSINK WATCH")
	stats := fmt.Sprintf(" %s  Stored: %d  Last poll: %s  %s",
		status, m.count, lastFetch, m.theme.Dim.Render(m.apiURL))

	content := lipgloss.JoinVertical(lipgloss.Left, title, stats)
	return m.theme.Border.Width(innerWidth).Render(content)
}

func (m Model) renderEvents() string {
	innerWidth := m.width - 4

	if len(m.events) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("DELIVERIES"),
			m.theme.Dim.Render("  Waiting for deliveries..."),
		)
		return m.theme.Border.Width(innerWidth).Render(content)
	}

	maxRows := m.height - 10
	if maxRows < 3 {
		maxRows = 3
	}

	var lines []string
	for i, e := range m.events {
		if i >= maxRows {
			break
		}
		lines = append(lines, m.formatRecord(e))
	}

	body := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("DELIVERIES"),
		body,
	)
	return m.theme.Border.Width(innerWidth).Render(content)
}

func (m Model) formatRecord(r store.Record) string {
	ts := m.theme.Dim.Render(r.ReceivedAt.Local().Format("15:04:05"))

	typeStyle := m.theme.EventType
	if r.Event == "ping" {
		typeStyle = m.theme.Highlight
	}
	event := typeStyle.Render(fmt.Sprintf("%-16s", r.Event))

	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}

	return fmt.Sprintf("%s %s [%s] %s", ts, event, m.theme.Dim.Render(id), summarizePayload(r.Payload, m.theme))
}

// summarizePayload renders a one-line description of a delivery payload.
func summarizePayload(payload any, theme Theme) string {
	if m, ok := payload.(map[string]any); ok {
		if perr, ok := m["parse_error"].(string); ok {
			return theme.ErrorText.Render("decode failed: " + perr)
		}

		var parts []string
		if action, ok := m["action"].(string); ok {
			parts = append(parts, action)
		}
		if repo, ok := m["repository"].(map[string]any); ok {
			if name, ok := repo["full_name"].(string); ok {
				parts = append(parts, name)
			}
		}
		if ref, ok := m["ref"].(string); ok {
			parts = append(parts, ref)
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	s := string(raw)
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return s
}
