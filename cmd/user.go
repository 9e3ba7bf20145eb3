package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librarydesk/library"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage readers and librarians",
}

var userRegisterFlags struct {
	email    string
	name     string
	userType string
}

var userRegisterCmd = &cobra.Command{
	Use:   "register USERNAME",
	Short: "Register a new user (password prompted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(fmt.Sprintf("Password for %s: ", args[0]))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		user := &library.User{
			Username: args[0],
			FullName: userRegisterFlags.name,
			Email:    userRegisterFlags.email,
			UserType: library.UserType(userRegisterFlags.userType),
		}
		if err := manager.RegisterUser(user, password); err != nil {
			return err
		}
		fmt.Printf("Registered %s '%s' with ID %d\n", user.UserType, user.Username, user.ID)
		return nil
	},
}

var userListFlags struct {
	userType string
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := manager.AllUsers(library.UserType(userListFlags.userType))
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No users registered.")
			return nil
		}
		fmt.Printf("%-5s %-20s %-25s %-30s %-10s %s\n", "ID", "Username", "Name", "Email", "Type", "Loans")
		fmt.Println(strings.Repeat("-", 100))
		for _, u := range users {
			total, active, err := manager.UserLoanCounts(u.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%-5d %-20s %-25s %-30s %-10s %d open, %d total\n",
				u.ID, u.Username, truncateString(u.FullName, 25),
				truncateString(u.Email, 30), u.UserType, active, total)
		}
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete USER_ID",
	Short: "Delete a user (fails while loans are open)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "user")
		if err != nil {
			return err
		}
		if err := manager.DeleteUser(id); err != nil {
			return err
		}
		fmt.Printf("Deleted user %d\n", id)
		return nil
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd USER_ID",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "user")
		if err != nil {
			return err
		}
		user, err := manager.GetUser(id)
		if err != nil {
			return err
		}
		password, err := readPassword(fmt.Sprintf("New password for %s: ", user.Username))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if err := manager.UpdateUserPassword(id, password); err != nil {
			return err
		}
		fmt.Printf("Password updated for %s\n", user.Username)
		return nil
	},
}

func init() {
	userRegisterCmd.Flags().StringVar(&userRegisterFlags.email, "email", "", "email address (required)")
	userRegisterCmd.Flags().StringVar(&userRegisterFlags.name, "name", "", "full name (required)")
	userRegisterCmd.Flags().StringVar(&userRegisterFlags.userType, "type", "reader", "user type: reader or librarian")
	_ = userRegisterCmd.MarkFlagRequired("email")
	_ = userRegisterCmd.MarkFlagRequired("name")

	userListCmd.Flags().StringVar(&userListFlags.userType, "type", "", "filter by user type")

	userCmd.AddCommand(userRegisterCmd, userListCmd, userDeleteCmd, userPasswdCmd)
}
