package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librarydesk/library"
)

var reportFlags struct {
	popular int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Library statistics and popular titles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := manager.Stats()
		if err != nil {
			return err
		}

		fmt.Println("Library overview")
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("Books:        %d titles, %d copies (%d available)\n",
			stats.TotalBooks, stats.TotalCopies, stats.AvailableCopies)
		fmt.Printf("Users:        %d (%d readers, %d librarians)\n",
			stats.TotalUsers, stats.Readers, stats.Librarians)
		fmt.Printf("Loans:        %d total, %d open, %d overdue, %d returned\n",
			stats.TotalLoans, stats.ActiveLoans, stats.OverdueLoans, stats.ReturnedLoans)

		if reportFlags.popular > 0 {
			books, err := manager.PopularBooks(reportFlags.popular)
			if err != nil {
				return err
			}
			fmt.Printf("\nMost borrowed titles\n")
			fmt.Println(strings.Repeat("-", 40))
			for i, b := range books {
				fmt.Printf("%2d. %s\n", i+1, library.PrettyBook(b))
			}
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportFlags.popular, "popular", 5, "number of popular titles to show (0 to hide)")
}
