// Package cli provides the command-line interface for supportdesk.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/client"
	"github.com/raphaelgruber/supportdesk/internal/config"
	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/toast"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	apiURL  string

	// Process-wide state, built in PersistentPreRunE and torn down after
	// the command finishes.
	cfg       config.Config
	state     *config.State
	apiClient *client.Client
	collector *metrics.Collector
	toasts    *toast.Store
	logger    *slog.Logger
	closeLog  func() error
)

// annotationTUI marks commands that take over the terminal.
const annotationTUI = "tui"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "supportdesk",
	Short: "Customer support chat and ticket desk",
	Long: `Supportdesk is a terminal client for a customer support backend.

Visitors chat with the answering service; when a conversation is escalated
it becomes a ticket. Administrators review, resolve and delete tickets,
manage knowledge base documents, and watch for new tickets as they arrive.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if apiURL != "" {
			cfg.APIURL = apiURL
		}

		level := cfg.LogLevel
		if verbose && level > slog.LevelDebug {
			level = slog.LevelDebug
		}
		if usesTerminalUI(cmd) {
			logger, closeLog = config.SetupFileLogger(cfg.LogFile, level)
		} else {
			logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		}
		slog.SetDefault(logger)

		var err error
		state, err = config.LoadState(cfg.StateFile)
		if err != nil {
			return fmt.Errorf("load client state: %w", err)
		}

		collector = metrics.NewCollector()
		toasts = toast.New(toast.WithLogger(logger))
		apiClient = client.New(client.Options{
			BaseURL: cfg.APIURL,
			Timeout: cfg.ClientTimeout,
			Tokens:  state,
			Metrics: collector,
			Logger:  logger,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && collector != nil {
			printMetrics(collector.Snapshot())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "support backend URL (overrides SUPPORTDESK_API_URL)")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(themeCmd)
}

// usesTerminalUI reports whether cmd will run a full-screen UI, in which
// case logs must not go to stderr.
func usesTerminalUI(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationTUI] != "true" {
		return false
	}
	if cmd == watchCmd && watchPlain {
		return false
	}
	return isTerminal()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// printToasts writes the notifications raised during a one-shot command.
func printToasts() {
	theme := currentTheme()
	for _, t := range toasts.Drain() {
		line := t.Title
		if t.Description != "" {
			line += ": " + t.Description
		}
		switch t.Variant {
		case toast.VariantDestructive:
			fmt.Fprintln(os.Stderr, theme.errorStyle().Render("✗ "+line))
		case toast.VariantSuccess:
			fmt.Println(theme.completedStyle().Render("✓ " + line))
		default:
			fmt.Println(line)
		}
	}
}

func printMetrics(snap metrics.Snapshot) {
	fmt.Fprintf(os.Stderr, "\nRequests (uptime %s):\n", time.Duration(snap.UptimeSeconds*float64(time.Second)).Round(time.Millisecond))
	for _, op := range snap.Operations {
		fmt.Fprintf(os.Stderr, "  %-18s count=%d failures=%d avg=%.0fms min=%dms max=%dms\n",
			op.Name, op.Count, op.Failures, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
	events := make([]string, 0, len(snap.Events))
	for name := range snap.Events {
		events = append(events, name)
	}
	slices.Sort(events)
	for _, name := range events {
		fmt.Fprintf(os.Stderr, "  %-18s %d\n", name, snap.Events[name])
	}
}
