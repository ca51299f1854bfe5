package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raphaelgruber/supportdesk/internal/client"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail string
	validate   = validator.New(validator.WithRequiredStructEnabled())
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as an administrator",
	Long: `Sign in as an administrator and store the access token.

The password is read from the terminal without echo, or from the
SUPPORTDESK_PASSWORD environment variable when set.

Examples:
  supportdesk login --email admin@example.com`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in administrator",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "administrator email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	email := strings.TrimSpace(loginEmail)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	password, err := readPassword(reader)
	if err != nil {
		return err
	}

	req := models.LoginRequest{Email: email, Password: password}
	if err := validate.Struct(req); err != nil {
		return loginValidationError(err)
	}

	resp, err := apiClient.Login(context.Background(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New("invalid email or password")
		}
		return fmt.Errorf("login: %w", err)
	}

	if err := state.SetToken(resp.AccessToken); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	logger.Info("admin signed in", "email", resp.Email)
	fmt.Println(currentTheme().completedStyle().Render("✓ Signed in as " + resp.Email))
	return nil
}

func readPassword(reader *bufio.Reader) (string, error) {
	if pw := os.Getenv("SUPPORTDESK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Print("Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// loginValidationError turns validator output into a short message.
func loginValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func runLogout(cmd *cobra.Command, args []string) error {
	if state.Token() == "" {
		fmt.Println("Not signed in.")
		return nil
	}

	// The local token is cleared even when the backend call fails.
	if err := apiClient.Logout(context.Background()); err != nil {
		logger.Warn("logout request failed", "error", err)
	}
	if err := state.ClearToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	fmt.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if state.Token() == "" {
		return errors.New("not signed in; run 'supportdesk login'")
	}

	admin, err := apiClient.Me(context.Background())
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New("session expired; run 'supportdesk login'")
		}
		return fmt.Errorf("whoami: %w", err)
	}

	fmt.Printf("%s <%s>\n", admin.Name, admin.Email)
	fmt.Println(currentTheme().hintStyle().Render("id " + admin.ID))
	return nil
}
