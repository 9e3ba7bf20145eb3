package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"librarydesk/library"
)

var loanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Circulation: checkout, return, extend",
}

var loanCheckoutFlags struct {
	noAuth bool
}

var loanCheckoutCmd = &cobra.Command{
	Use:   "checkout BOOK_ID USER_ID",
	Short: "Check a book out to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, err := parseID(args[0], "book")
		if err != nil {
			return err
		}
		userID, err := parseID(args[1], "user")
		if err != nil {
			return err
		}

		if !loanCheckoutFlags.noAuth {
			if _, err := authenticateUser(userID); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
		}

		loan, err := manager.CheckoutBook(bookID, userID)
		if err != nil {
			return err
		}

		book, _ := manager.GetBook(bookID)
		user, _ := manager.GetUser(userID)
		fmt.Printf("Book '%s' checked out to %s (loan %d), due %s\n",
			book.Title, user.Username, loan.ID, loan.DueDate.Format("2006-01-02"))
		return nil
	},
}

var loanReturnCmd = &cobra.Command{
	Use:   "return LOAN_ID",
	Short: "Return a loaned book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loanID, err := parseID(args[0], "loan")
		if err != nil {
			return err
		}
		// Snapshot the fine while the loan is still open; a returned
		// loan no longer accrues one.
		loan, err := manager.GetLoan(loanID)
		if err != nil {
			return err
		}
		fine := manager.LoanFine(loan)

		if _, err := manager.ReturnLoan(loanID); err != nil {
			return err
		}

		book, _ := manager.GetBook(loan.BookID)
		fmt.Printf("Book '%s' returned.\n", book.Title)
		if fine > 0 {
			fmt.Printf("Overdue fine due: %.2f\n", fine)
		}
		return nil
	},
}

var loanExtendFlags struct {
	days int
}

var loanExtendCmd = &cobra.Command{
	Use:   "extend LOAN_ID",
	Short: "Push a loan's due date out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loanID, err := parseID(args[0], "loan")
		if err != nil {
			return err
		}
		days := loanExtendFlags.days
		if days == 0 {
			days = cfg.ExtensionDays
		}
		loan, err := manager.ExtendLoan(loanID, days)
		if err != nil {
			return err
		}
		fmt.Printf("Loan %d extended; new due date %s\n", loan.ID, loan.DueDate.Format("2006-01-02"))
		return nil
	},
}

var loanDeleteCmd = &cobra.Command{
	Use:   "delete LOAN_ID",
	Short: "Remove a loan record (active loans put the copy back first)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loanID, err := parseID(args[0], "loan")
		if err != nil {
			return err
		}
		if err := manager.DeleteLoan(loanID); err != nil {
			return err
		}
		fmt.Printf("Deleted loan %d\n", loanID)
		return nil
	},
}

var loanListFlags struct {
	status string
	user   int64
	book   int64
	active bool
}

var loanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			loans []*library.Loan
			err   error
		)
		switch {
		case loanListFlags.user != 0:
			loans, err = manager.UserLoans(loanListFlags.user, loanListFlags.active)
		case loanListFlags.book != 0:
			loans, err = manager.BookLoans(loanListFlags.book, loanListFlags.active)
		default:
			loans, err = manager.AllLoans(library.LoanStatus(loanListFlags.status))
		}
		if err != nil {
			return err
		}
		printLoans(loans)
		return nil
	},
}

var loanOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List overdue loans with accrued fines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loans, err := manager.OverdueLoans()
		if err != nil {
			return err
		}
		if len(loans) == 0 {
			fmt.Println("No overdue loans.")
			return nil
		}
		fmt.Printf("%-6s %-8s %-8s %-12s %-8s %s\n", "Loan", "Book", "User", "Due", "Days", "Fine")
		fmt.Println(strings.Repeat("-", 60))
		for _, l := range loans {
			fmt.Printf("%-6d %-8d %-8d %-12s %-8d %.2f\n",
				l.ID, l.BookID, l.UserID, l.DueDate.Format("2006-01-02"),
				l.DaysOverdue(), manager.LoanFine(l))
		}
		return nil
	},
}

var loanDueSoonFlags struct {
	days int
}

var loanDueSoonCmd = &cobra.Command{
	Use:   "due-soon",
	Short: "List loans due within the next days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loans, err := manager.LoansDueWithin(loanDueSoonFlags.days)
		if err != nil {
			return err
		}
		if len(loans) == 0 {
			fmt.Printf("Nothing due within %d days.\n", loanDueSoonFlags.days)
			return nil
		}
		printLoans(loans)
		return nil
	},
}

func printLoans(loans []*library.Loan) {
	if len(loans) == 0 {
		fmt.Println("No loans found.")
		return
	}
	now := time.Now()
	fmt.Printf("%-6s %-8s %-8s %-12s %-12s %-12s %s\n",
		"Loan", "Book", "User", "Borrowed", "Due", "Returned", "Status")
	fmt.Println(strings.Repeat("-", 80))
	for _, l := range loans {
		returned := "-"
		if l.ReturnDate != nil {
			returned = l.ReturnDate.Format("2006-01-02")
		}
		fmt.Printf("%-6d %-8d %-8d %-12s %-12s %-12s %s\n",
			l.ID, l.BookID, l.UserID,
			l.LoanDate.Format("2006-01-02"), l.DueDate.Format("2006-01-02"),
			returned, l.StatusAt(now))
	}
}

func init() {
	loanCheckoutCmd.Flags().BoolVar(&loanCheckoutFlags.noAuth, "no-auth", false,
		"skip the borrower password prompt (librarian desk mode)")

	loanExtendCmd.Flags().IntVar(&loanExtendFlags.days, "days", 0, "additional days (default: configured extension)")

	loanListCmd.Flags().StringVar(&loanListFlags.status, "status", "", "filter: active, overdue or returned")
	loanListCmd.Flags().Int64Var(&loanListFlags.user, "user", 0, "loans of one user")
	loanListCmd.Flags().Int64Var(&loanListFlags.book, "book", 0, "loans of one book")
	loanListCmd.Flags().BoolVar(&loanListFlags.active, "active", false, "with --user/--book: unreturned loans only")

	loanDueSoonCmd.Flags().IntVar(&loanDueSoonFlags.days, "days", 3, "look-ahead window in days")

	loanCmd.AddCommand(loanCheckoutCmd, loanReturnCmd, loanExtendCmd, loanDeleteCmd,
		loanListCmd, loanOverdueCmd, loanDueSoonCmd)
}
