package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/raphaelgruber/supportdesk/internal/tickets"
	"github.com/spf13/cobra"
)

var (
	ticketsFilter string
	resolveRemark string
	deleteForce   bool
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "List escalated tickets",
	Long: `List escalated conversations, newest first.

Examples:
  supportdesk tickets
  supportdesk tickets --filter open
  supportdesk tickets resolve TKT-12 --remark "Refund issued"
  supportdesk tickets delete TKT-12`,
	Args: cobra.NoArgs,
	RunE: runTicketsList,
}

var ticketsResolveCmd = &cobra.Command{
	Use:   "resolve <ticket-id>",
	Short: "Resolve a ticket with a remark",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsResolve,
}

var ticketsDeleteCmd = &cobra.Command{
	Use:   "delete <ticket-id>",
	Short: "Delete a resolved ticket",
	Long: `Delete a resolved ticket.

Only resolved tickets can be deleted. Requires confirmation unless --force
is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketsDelete,
}

func init() {
	ticketsCmd.Flags().StringVar(&ticketsFilter, "filter", "all", "show all, open or resolved tickets")

	ticketsResolveCmd.Flags().StringVarP(&resolveRemark, "remark", "r", "", "resolution remark (required)")
	_ = ticketsResolveCmd.MarkFlagRequired("remark")

	ticketsDeleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")

	ticketsCmd.AddCommand(ticketsResolveCmd)
	ticketsCmd.AddCommand(ticketsDeleteCmd)
}

func loadBoard(ctx context.Context) (*tickets.Board, error) {
	board := tickets.NewBoard(apiClient, toasts, logger)
	if err := board.Load(ctx); err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	return board, nil
}

func runTicketsList(cmd *cobra.Command, args []string) error {
	filter, err := models.ParseTicketFilter(ticketsFilter)
	if err != nil {
		return err
	}

	board, err := loadBoard(context.Background())
	if err != nil {
		return err
	}

	counts := board.Counts()
	theme := currentTheme()
	fmt.Println(theme.statusStyle().Render(
		fmt.Sprintf("All %d  •  Open %d  •  Resolved %d", counts.All, counts.Open, counts.Resolved)))

	list := board.Tickets(filter)
	if len(list) == 0 {
		fmt.Println(theme.hintStyle().Render("No tickets found."))
		return nil
	}

	fmt.Println(ticketTable(list, theme))
	return nil
}

func ticketTable(list []models.Ticket, theme Theme) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Hint)).
		Headers("ID", "STATUS", "CREATED", "USER", "QUERY")

	for _, tk := range list {
		user := tk.UserName
		if user == "" {
			user = tk.UserEmail
		}
		t.Row(tk.Key(), string(tk.Status), tk.CreatedAt.Local().Format(time.DateTime), user, truncate(tk.Query, 50))
	}

	return t.StyleFunc(func(row, col int) lipgloss.Style {
		style := lipgloss.NewStyle().Padding(0, 1)
		if row == table.HeaderRow {
			return style.Bold(true)
		}
		if col == 1 && row >= 0 && row < len(list) {
			if list[row].IsResolved() {
				return style.Foreground(theme.Success)
			}
			return style.Foreground(theme.Banner)
		}
		return style
	}).String()
}

func runTicketsResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	board, err := loadBoard(ctx)
	if err != nil {
		return err
	}

	err = board.Resolve(ctx, args[0], resolveRemark)
	printToasts()
	if err != nil {
		return fmt.Errorf("resolve ticket: %w", err)
	}
	return nil
}

func runTicketsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	board, err := loadBoard(ctx)
	if err != nil {
		return err
	}

	id := args[0]
	tk, ok := board.Get(id)
	if !ok {
		return fmt.Errorf("ticket not found: %s", id)
	}
	if !tk.IsResolved() {
		return fmt.Errorf("ticket %s is not resolved; resolve it first", id)
	}

	// Confirm deletion
	if !deleteForce {
		fmt.Printf("About to delete ticket %s (%s)\n", tk.Key(), truncate(tk.Query, 60))
		ok, err := confirm("\nThis action cannot be undone. Continue? [y/N]: ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	err = board.Delete(ctx, id)
	printToasts()
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y or yes is a no.
func confirm(prompt string) (bool, error) {
	fmt.Print(prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
