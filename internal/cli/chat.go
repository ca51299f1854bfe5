package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/supportdesk/internal/chat"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/spf13/cobra"
)

// refreshInterval is how often the transcript is redrawn while a turn is
// in flight, so the optimistic user message and typing indicator show up.
const refreshInterval = 50 * time.Millisecond

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the support assistant",
	Long: `Open an interactive support chat.

Keys:
  enter    send the message
  ctrl+r   retry the last message after an error
  ctrl+n   start a new chat
  esc      quit

When the conversation is escalated, a ticket is created and input is
disabled until you start a new chat.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runChat,
}

func newSession() *chat.Session {
	return chat.NewSession(apiClient,
		chat.WithClientID(cfg.ClientID),
		chat.WithLogger(logger),
		chat.WithMetrics(collector),
	)
}

func runChat(cmd *cobra.Command, args []string) error {
	if !isTerminal() {
		return errors.New("chat needs an interactive terminal; use 'supportdesk ask' instead")
	}

	p := tea.NewProgram(newChatModel(newSession(), currentTheme()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// refreshMsg triggers re-reading the session state.
type refreshMsg time.Time

// turnDoneMsg carries the outcome of a send or retry.
type turnDoneMsg struct {
	err error
}

// chatModel is the bubbletea model for the chat transcript.
type chatModel struct {
	session *chat.Session
	input   textinput.Model
	theme   Theme
	state   chat.State
	lastErr error
	// inFlight is set when a turn is dispatched, before the session
	// snapshot shows it loading.
	inFlight bool
}

func newChatModel(s *chat.Session, theme Theme) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 2000
	ti.Focus()

	return chatModel{
		session: s,
		input:   ti,
		theme:   theme,
		state:   s.Snapshot(),
	}
}

// Init returns the initial command.
func (m chatModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			return m.submit()

		case "ctrl+r":
			if !m.state.Err || !m.canSend() {
				return m, nil
			}
			m.lastErr = nil
			m.inFlight = true
			return m, tea.Batch(m.retry(), refreshCmd())

		case "ctrl+n":
			m.session.Reset()
			m.state = m.session.Snapshot()
			m.lastErr = nil
			m.input.Reset()
			cmd := m.input.Focus()
			return m, cmd
		}

	case refreshMsg:
		m.state = m.session.Snapshot()
		if m.state.Loading {
			return m, refreshCmd()
		}
		return m, nil

	case turnDoneMsg:
		m.inFlight = false
		m.state = m.session.Snapshot()
		if msg.err != nil && !errors.Is(msg.err, chat.ErrStaleTurn) {
			m.lastErr = msg.err
		}
		if m.state.Gate == chat.GateLocked {
			m.input.Blur()
		}
		return m, nil
	}

	if !m.canSend() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// canSend reports whether input is accepted right now.
func (m chatModel) canSend() bool {
	return m.state.CanSend() && !m.inFlight
}

// submit sends the input line. The text is kept when sending is blocked.
func (m chatModel) submit() (chatModel, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" || !m.canSend() {
		return m, nil
	}
	m.input.Reset()
	m.lastErr = nil
	m.inFlight = true
	return m, tea.Batch(m.send(content), refreshCmd())
}

// send runs in a command so the network call does not block Update.
func (m chatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Send(context.Background(), content)
		return turnDoneMsg{err: err}
	}
}

func (m chatModel) retry() tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Retry(context.Background())
		return turnDoneMsg{err: err}
	}
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// View renders the transcript and input.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	var b strings.Builder

	b.WriteString(m.theme.statusStyle().Render("Support chat"))
	if m.state.ThreadID != "" {
		b.WriteString(m.theme.hintStyle().Render("  thread " + m.state.ThreadID))
	}
	b.WriteString("\n\n")

	if len(m.state.Messages) == 0 {
		b.WriteString(m.theme.hintStyle().Render("Ask us anything about your order, account or billing."))
		b.WriteString("\n")
	}
	for _, msg := range m.state.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.state.Loading || m.inFlight {
		b.WriteString(m.theme.hintStyle().Render("Assistant is typing..."))
		b.WriteString("\n")
	}
	if m.state.Err {
		msg := "Something went wrong sending your message."
		if m.lastErr != nil {
			msg += " (" + m.lastErr.Error() + ")"
		}
		b.WriteString(m.theme.errorStyle().Render(msg))
		b.WriteString(" ")
		b.WriteString(m.theme.hintStyle().Render("Press ctrl+r to retry."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state.Gate == chat.GateLocked {
		b.WriteString(m.theme.bannerStyle().Render(ticketBanner(m.state.Banner)))
		b.WriteString("\n")
		b.WriteString(m.theme.hintStyle().Render("ctrl+n new chat • esc quit"))
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.hintStyle().Render("enter send • ctrl+n new chat • esc quit"))
	return b.String()
}

func (m chatModel) renderMessage(msg models.Message) string {
	stamp := m.theme.hintStyle().Render(msg.Timestamp.Format("15:04"))
	if msg.Role == models.RoleUser {
		return fmt.Sprintf("%s %s %s", stamp, m.theme.userStyle().Render("You:"), msg.Content)
	}
	line := fmt.Sprintf("%s %s %s", stamp, m.theme.statusStyle().Render("Assistant:"), m.theme.assistantStyle().Render(msg.Content))
	if msg.IsEscalated {
		line += " " + m.theme.bannerStyle().UnsetBorderStyle().UnsetPadding().Render("[escalated]")
	}
	return line
}

// ticketBanner is the locked-conversation notice. ticket is the ticket id
// or the pending placeholder.
func ticketBanner(ticket string) string {
	return fmt.Sprintf("Ticket created: %s\nA support agent will follow up with you.", ticket)
}
