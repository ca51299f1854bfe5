package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raphaelgruber/supportdesk/internal/chat"
	"github.com/spf13/cobra"
)

var askThread string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the support assistant a single question",
	Long: `Send one message to the support assistant and print the answer.

Pass --thread to continue an earlier conversation. If the conversation is
escalated, the ticket id is printed and further messages on that thread
are answered by a support agent.

Examples:
  supportdesk ask "Where is my order?"
  supportdesk ask --thread 3f2a... "I want a refund"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askThread, "thread", "", "continue an existing conversation thread")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	theme := currentTheme()

	s := newSession()
	if askThread != "" {
		s.Resume(askThread)
	}

	turn, err := s.Send(context.Background(), question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	printTurn(os.Stdout, turn, s.Snapshot(), theme)
	return nil
}

// printTurn writes the answer and, when the conversation is locked, the
// ticket banner. The lock state comes from the session so a ticket id
// without the escalated flag still shows the banner.
func printTurn(w io.Writer, turn chat.Turn, st chat.State, theme Theme) {
	fmt.Fprintln(w, theme.assistantStyle().Render(turn.Answer))
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.hintStyle().Render("thread: "+turn.ThreadID))

	if st.Gate == chat.GateLocked {
		fmt.Fprintln(w, theme.bannerStyle().Render(ticketBanner(st.Banner)))
	}
}
