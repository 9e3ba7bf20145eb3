package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"librarydesk/library"
)

var seedFlags struct {
	file string
}

// seedCmd imports a catalog from a CSV file with the columns
// title,author,isbn,genre,year,copies. Lines that fail validation are
// reported and skipped.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import a book catalog from a CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(filepath.Clean(seedFlags.file))
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = 6
		reader.TrimLeadingSpace = true

		records, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("parse catalog: %w", err)
		}

		successCount := 0
		errorCount := 0

		for i, rec := range records {
			// Skip a header row if present.
			if i == 0 && strings.EqualFold(rec[0], "title") {
				continue
			}

			copies, _ := strconv.Atoi(rec[5])
			book := library.NewBook(rec[0], rec[1], copies)
			book.ISBN = rec[2]
			book.Genre = rec[3]
			book.PublicationYear, _ = strconv.Atoi(rec[4])

			fmt.Printf("Importing: %s by %s... ", book.Title, book.Author)
			if err := manager.AddBook(book); err != nil {
				fmt.Printf("ERROR - %v\n", err)
				errorCount++
				continue
			}
			fmt.Printf("SUCCESS (ID: %d)\n", book.ID)
			successCount++
		}

		fmt.Printf("\nImport complete!\n")
		fmt.Printf("Successfully imported: %d books\n", successCount)
		fmt.Printf("Errors: %d\n", errorCount)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.file, "file", "books.csv", "CSV catalog to import")
}
