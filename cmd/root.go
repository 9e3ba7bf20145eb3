package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"librarydesk/configs"
	"librarydesk/library"
)

var (
	cfg     configs.Config
	manager *library.LibraryManager
)

var rootCmd = &cobra.Command{
	Use:           "librarydesk",
	Short:         "Manage books, users and loans from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = configs.LoadConfig()
		m, err := library.NewLibraryManager(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		m.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		m.SetLoanPeriod(cfg.LoanPeriodDays)
		m.SetFineRate(cfg.FinePerDay)
		m.SetCoversDir(cfg.CoversDir)
		manager = m
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if manager != nil {
			return manager.Close()
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func init() {
	rootCmd.AddCommand(bookCmd, userCmd, loanCmd, reportCmd, seedCmd)
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// authenticateUser prompts for the user's password and verifies it.
func authenticateUser(userID int64) (*library.User, error) {
	user, err := manager.GetUser(userID)
	if err != nil {
		return nil, err
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", user.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return manager.Authenticate(user.Username, password)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID: %s", what, arg)
	}
	return id, nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
