package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"quickpic/pkg/auth"
	"quickpic/pkg/ui"
)

func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored CM Cloud credentials",
		Long: `Manage stored CM Cloud credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables QUICKPIC_EMAIL and QUICKPIC_PASSWORD (read-only)`,
	}

	loginCmd := &cobra.Command{
		Use:   "login <email> [password]",
		Short: "Store the password of an account",
		Long: `Store the password of a CM Cloud account so downloads do not ask for it.

If the password is not given it is prompted for without echo.`,
		Example: `  quickpic auth login me@example.com`,
		Args:    cobra.RangeArgs(1, 2),
		RunE:    runLogin,
	}

	logoutCmd := &cobra.Command{
		Use:     "logout <email>",
		Short:   "Remove the stored password of an account",
		Example: `  quickpic auth logout me@example.com`,
		Args:    cobra.ExactArgs(1),
		RunE:    runLogout,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	authCmd.AddCommand(loginCmd, logoutCmd, listCmd)
	return authCmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	email := strings.TrimSpace(args[0])
	password := ""
	if len(args) > 1 {
		password = args[1]
	}
	if password == "" {
		if password, err = passwordPrompt(email); err != nil {
			return err
		}
	}

	if err := manager.Store(&auth.Account{Email: email, Password: password}); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials stored for %s", email))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	email := strings.TrimSpace(args[0])
	if err := manager.Delete(email); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored credentials", email)
			return nil
		}
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials removed for %s", email))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts. Run 'quickpic auth login <email>' to add one.")
		return nil
	}

	for _, account := range accounts {
		safe := auth.SanitizeAccount(account)
		updated := "from environment"
		if !safe.LastModified.IsZero() {
			updated = "updated " + humanize.Time(safe.LastModified)
		}
		ui.PrintInfo(safe.Email, fmt.Sprintf("%s %s", safe.Password, ui.Dim("("+updated+")")))
	}
	return nil
}
