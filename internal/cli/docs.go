package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/supportdesk/internal/docs"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/spf13/cobra"
)

var docsDeleteForce bool

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List knowledge base documents",
	Long: `List the documents the support assistant answers from.

Examples:
  supportdesk docs
  supportdesk docs upload ./faq.pdf
  supportdesk docs delete 6c1d...`,
	Args: cobra.NoArgs,
	RunE: runDocsList,
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF to the knowledge base",
	Long: `Upload a PDF to the knowledge base.

Only PDF files are accepted. The file is checked by extension and content
before anything is sent.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runDocsUpload,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Delete a document from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsDeleteCmd.Flags().BoolVarP(&docsDeleteForce, "force", "f", false, "skip confirmation")

	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

func newLibrary() *docs.Library {
	return docs.NewLibrary(apiClient, toasts, logger)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	lib := newLibrary()
	if err := lib.Load(context.Background()); err != nil {
		printToasts()
		return err
	}

	theme := currentTheme()
	list := lib.Documents()
	if len(list) == 0 {
		fmt.Println(theme.hintStyle().Render("No documents uploaded yet."))
		return nil
	}

	fmt.Println(documentTable(list, theme))
	return nil
}

func documentTable(list []models.Document, theme Theme) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Hint)).
		Headers("ID", "NAME", "STATUS", "SIZE", "UPLOADED")

	for _, d := range list {
		t.Row(d.Key(), d.Name, string(d.Status), humanize.Bytes(uint64(max(d.Size, 0))), humanize.Time(d.UploadDate))
	}

	return t.StyleFunc(func(row, col int) lipgloss.Style {
		style := lipgloss.NewStyle().Padding(0, 1)
		if row == table.HeaderRow {
			return style.Bold(true)
		}
		if col == 2 && row >= 0 && row < len(list) {
			switch list[row].Status {
			case models.DocumentIndexed:
				return style.Foreground(theme.Success)
			case models.DocumentFailed:
				return style.Foreground(theme.Error)
			default:
				return style.Foreground(theme.Status)
			}
		}
		return style
	}).String()
}

func runDocsUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	lib := newLibrary()

	// Reject before opening the progress display.
	if err := docs.Validate(path); err != nil {
		return err
	}

	var (
		res *models.UploadResult
		err error
	)
	if isTerminal() {
		res, err = runUploadProgress(lib, path)
	} else {
		res, err = lib.Upload(context.Background(), path, nil)
	}
	printToasts()
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %s (%s) as %s\n", res.Name, res.Size, res.DocID)
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	docID := args[0]
	ctx := context.Background()

	if !docsDeleteForce {
		fmt.Printf("About to delete document %s\n", docID)
		ok, err := confirm("\nContinue? [y/N]: ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	err := newLibrary().Delete(ctx, docID)
	printToasts()
	return err
}

// uploadProgressMsg reports bytes sent so far.
type uploadProgressMsg struct {
	sent, total int64
}

// uploadDoneMsg carries the upload outcome.
type uploadDoneMsg struct {
	res *models.UploadResult
	err error
}

// uploadModel is the bubbletea model for a single upload.
type uploadModel struct {
	name     string
	sent     int64
	total    int64
	progress progress.Model
	theme    Theme
	done     bool
	res      *models.UploadResult
	err      error
}

func newUploadModel(name string, theme Theme) uploadModel {
	return uploadModel{
		name: name,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: theme,
	}
}

// Init returns the initial command.
func (m uploadModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case uploadProgressMsg:
		m.sent, m.total = msg.sent, msg.total
		return m, nil

	case uploadDoneMsg:
		m.done = true
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the progress display.
func (m uploadModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m uploadModel) renderContent() string {
	if m.done {
		if m.err != nil {
			return m.theme.errorStyle().Render(fmt.Sprintf("✗ Upload of %s failed\n", m.name))
		}
		return m.theme.completedStyle().Render(fmt.Sprintf("✓ Uploaded %s\n", m.name))
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.sent) / float64(m.total)
	}
	status := m.theme.statusStyle().Render("[uploading]")
	counts := fmt.Sprintf("%s/%s", humanize.Bytes(uint64(m.sent)), humanize.Bytes(uint64(m.total)))
	return fmt.Sprintf("%s %s %s %s\n", status, m.progress.ViewAs(pct), counts, m.name)
}

// runUploadProgress uploads path while rendering a progress bar. The upload
// runs on its own goroutine and reports through p.Send.
func runUploadProgress(lib *docs.Library, path string) (*models.UploadResult, error) {
	p := tea.NewProgram(newUploadModel(filepath.Base(path), currentTheme()))

	go func() {
		res, err := lib.Upload(context.Background(), path, func(sent, total int64) {
			p.Send(uploadProgressMsg{sent: sent, total: total})
		})
		p.Send(uploadDoneMsg{res: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}
	m, ok := final.(uploadModel)
	if !ok || !m.done {
		return nil, fmt.Errorf("upload interrupted")
	}
	return m.res, m.err
}
