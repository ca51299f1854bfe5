package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/raphaelgruber/supportdesk/internal/notify"
	"github.com/raphaelgruber/supportdesk/internal/toast"
	"github.com/spf13/cobra"
)

// uiTick redraws the panel so toasts expire on time.
const uiTick = time.Second

var (
	watchPlain       bool
	watchInterval    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for newly escalated tickets",
	Long: `Poll the ticket list and alert when new tickets arrive.

The interactive panel shows an unread badge and the most recent tickets.
Press space or enter to mark everything as seen, q to quit.

With --plain (or when output is not a terminal) each alert is printed as
a line instead.

Examples:
  supportdesk watch
  supportdesk watch --plain --interval 30s
  supportdesk watch --metrics-addr :9091`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print alerts as lines instead of the interactive panel")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default from SUPPORTDESK_POLL_INTERVAL)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchMetricsAddr != "" {
		shutdown := serveMetrics(watchMetricsAddr)
		defer shutdown()
	}

	interval := watchInterval
	if interval <= 0 {
		interval = cfg.PollInterval
	}

	if watchPlain || !isTerminal() {
		return watchLines(ctx, interval)
	}

	poller := notify.NewPoller(apiClient, notify.Options{
		Interval: interval,
		Logger:   logger,
		Metrics:  collector,
		Toasts:   toasts,
	})

	p := tea.NewProgram(newWatchModel(poller, toasts, currentTheme()))
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}
	return nil
}

func watchLines(ctx context.Context, interval time.Duration) error {
	theme := currentTheme()
	poller := notify.NewPoller(apiClient, notify.Options{
		Interval: interval,
		Logger:   logger,
		Metrics:  collector,
		OnAlert: func(a notify.Alert) {
			fmt.Printf("%s %s\n",
				theme.hintStyle().Render(a.At.Local().Format(time.TimeOnly)),
				theme.bannerStyle().UnsetBorderStyle().UnsetPadding().Render(a.Message()))
			for _, t := range a.Tickets {
				fmt.Printf("  %s  %s\n", t.Key(), truncate(t.Query, 70))
			}
		},
	})

	fmt.Println(theme.statusStyle().Render(fmt.Sprintf("Watching for new tickets every %s (Ctrl+C to stop)", poller.Interval())))
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveMetrics exposes the collector registry until the returned func is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint available", "url", fmt.Sprintf("http://%s/metrics", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}

// uiTickMsg redraws the panel.
type uiTickMsg time.Time

// pollTickMsg triggers a poll. Only the tick carrying the model's current
// sequence number is acted on, so at most one poll chain is alive.
type pollTickMsg struct {
	seq int
}

// pollResultMsg carries the outcome of a baseline or poll.
type pollResultMsg struct {
	alert *notify.Alert
	err   error
}

// watchModel is the bubbletea model for the notification panel.
type watchModel struct {
	poller   *notify.Poller
	toasts   *toast.Store
	theme    Theme
	started  bool
	polling  bool
	tickSeq  int
	lastPoll time.Time
	err      error
	now      time.Time
}

func newWatchModel(p *notify.Poller, toasts *toast.Store, theme Theme) watchModel {
	return watchModel{
		poller:  p,
		toasts:  toasts,
		theme:   theme,
		now:     time.Now(),
		polling: true, // Init runs the baseline
	}
}

// Init takes the baseline and starts the UI clock.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.baseline(), uiTickCmd())
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "space", "enter":
			m.poller.MarkSeen()
			return m, nil
		case "r":
			return m.refresh()
		}

	case uiTickMsg:
		m.now = time.Time(msg)
		return m, uiTickCmd()

	case pollTickMsg:
		// Stale ticks are dropped; while a poll is in flight its result
		// schedules the next tick.
		if msg.seq != m.tickSeq || m.polling {
			return m, nil
		}
		m.polling = true
		return m, m.poll()

	case pollResultMsg:
		m.started = true
		m.polling = false
		m.lastPoll = time.Now()
		m.now = m.lastPoll
		m.err = msg.err
		cmd := m.schedulePoll()
		return m, cmd
	}

	return m, nil
}

// baseline runs in a command so the first fetch does not block the UI.
func (m watchModel) baseline() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return pollResultMsg{err: m.poller.Baseline(ctx)}
	}
}

func (m watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		alert, err := m.poller.Poll(ctx)
		return pollResultMsg{alert: alert, err: err}
	}
}

// refresh polls now unless a fetch is already running.
func (m watchModel) refresh() (watchModel, tea.Cmd) {
	if m.polling {
		return m, nil
	}
	m.polling = true
	return m, m.poll()
}

// schedulePoll arms the next interval tick and invalidates any pending one.
func (m *watchModel) schedulePoll() tea.Cmd {
	m.tickSeq++
	seq := m.tickSeq
	return tea.Tick(m.poller.Interval(), func(time.Time) tea.Msg {
		return pollTickMsg{seq: seq}
	})
}

func uiTickCmd() tea.Cmd {
	return tea.Tick(uiTick, func(t time.Time) tea.Msg {
		return uiTickMsg(t)
	})
}

// View renders the notification panel.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	var b strings.Builder

	b.WriteString(m.theme.statusStyle().Render("Notifications"))
	if n := m.poller.Unread(); n > 0 {
		b.WriteString(" ")
		b.WriteString(m.theme.bannerStyle().UnsetBorderStyle().Render(unreadBadge(n)))
	}
	b.WriteString("\n\n")

	if !m.started {
		b.WriteString("Loading tickets...\n")
		return b.String()
	}

	recent := m.poller.Recent(notify.RecentLimit)
	if len(recent) == 0 {
		b.WriteString(m.theme.hintStyle().Render("No tickets yet."))
		b.WriteString("\n")
	}
	for _, t := range recent {
		b.WriteString(m.renderTicket(t))
		b.WriteString("\n")
	}

	for _, t := range m.toasts.Active(m.now) {
		b.WriteString("\n")
		line := t.Title
		if t.Description != "" {
			line += "\n" + t.Description
		}
		if t.Variant == toast.VariantDestructive {
			b.WriteString(m.theme.errorStyle().Render(line))
		} else {
			b.WriteString(m.theme.bannerStyle().Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(m.theme.errorStyle().Render("Last poll failed: " + m.err.Error()))
		b.WriteString("\n")
	}
	status := fmt.Sprintf("Last checked %s • every %s", m.lastPoll.Format(time.TimeOnly), m.poller.Interval())
	if m.polling {
		status = "Checking..."
	}
	b.WriteString(m.theme.hintStyle().Render(status))
	b.WriteString("\n")
	b.WriteString(m.theme.hintStyle().Render("space mark seen • r refresh • q quit"))
	return b.String()
}

func (m watchModel) renderTicket(t models.Ticket) string {
	status := m.theme.completedStyle().Render(string(t.Status))
	if !t.IsResolved() {
		status = m.theme.bannerStyle().UnsetBorderStyle().UnsetPadding().Render(string(t.Status))
	}
	return fmt.Sprintf("%s %s %s %s",
		m.theme.hintStyle().Render(humanize.RelTime(t.CreatedAt, m.now, "ago", "from now")),
		m.theme.statusStyle().Render(t.Key()),
		status,
		truncate(t.Query, 60))
}

// unreadBadge caps the displayed unread count.
func unreadBadge(n int) string {
	if n > 9 {
		return "9+"
	}
	return fmt.Sprintf("%d", n)
}
