package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librarydesk/library"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage the catalog",
}

var (
	bookAddFlags struct {
		isbn   string
		genre  string
		year   int
		copies int
		cover  string
	}
	bookSearchFlags struct {
		genre         string
		author        string
		availableOnly bool
	}
)

var bookAddCmd = &cobra.Command{
	Use:   "add TITLE AUTHOR",
	Short: "Add a book to the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		book := library.NewBook(args[0], args[1], bookAddFlags.copies)
		book.ISBN = bookAddFlags.isbn
		book.Genre = bookAddFlags.genre
		book.PublicationYear = bookAddFlags.year

		if err := manager.AddBook(book); err != nil {
			return err
		}
		if bookAddFlags.cover != "" {
			if _, err := manager.SaveBookCover(book.ID, bookAddFlags.cover); err != nil {
				fmt.Printf("Warning: could not save cover image: %v\n", err)
			}
		}
		fmt.Printf("Added book '%s' with ID %d (%d copies)\n", book.Title, book.ID, book.TotalCopies)
		return nil
	},
}

var bookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := manager.AllBooks()
		if err != nil {
			return err
		}
		printBooks(books)
		return nil
	},
}

var bookSearchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Search books by title, author or genre",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		search := library.BookSearch{
			Genre:         bookSearchFlags.genre,
			Author:        bookSearchFlags.author,
			AvailableOnly: bookSearchFlags.availableOnly,
		}
		if len(args) == 1 {
			search.Query = args[0]
		}
		books, err := manager.SearchBooks(search)
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Println("No books found.")
			return nil
		}
		printBooks(books)
		return nil
	},
}

var bookDeleteCmd = &cobra.Command{
	Use:   "delete BOOK_ID",
	Short: "Delete a book (fails while copies are on loan)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "book")
		if err != nil {
			return err
		}
		if err := manager.DeleteBook(id); err != nil {
			return err
		}
		fmt.Printf("Deleted book %d\n", id)
		return nil
	},
}

var bookHistoryCmd = &cobra.Command{
	Use:   "history BOOK_ID",
	Short: "Show who borrowed a book and when",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "book")
		if err != nil {
			return err
		}
		book, err := manager.GetBook(id)
		if err != nil {
			return err
		}
		entries, err := manager.BookBorrowingHistory(id)
		if err != nil {
			return err
		}

		fmt.Printf("Borrowing history for '%s' by %s:\n", book.Title, book.Author)
		if len(entries) == 0 {
			fmt.Println("Never borrowed.")
			return nil
		}
		fmt.Printf("%-6s %-20s %-25s %-12s %-12s\n", "Loan", "Username", "Name", "Borrowed", "Returned")
		fmt.Println(strings.Repeat("-", 80))
		for _, e := range entries {
			returned := "-"
			if e.ReturnDate != nil {
				returned = e.ReturnDate.Format("2006-01-02")
			}
			fmt.Printf("%-6d %-20s %-25s %-12s %-12s\n",
				e.LoanID, e.Username, truncateString(e.FullName, 25),
				e.LoanDate.Format("2006-01-02"), returned)
		}
		return nil
	},
}

var bookCoverCmd = &cobra.Command{
	Use:   "cover BOOK_ID IMAGE_PATH",
	Short: "Attach a cover image to a book",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "book")
		if err != nil {
			return err
		}
		dest, err := manager.SaveBookCover(id, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Cover saved to %s\n", dest)
		return nil
	},
}

func printBooks(books []*library.Book) {
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-5s %-35s %-25s %-15s %-6s %s\n", "ID", "Title", "Author", "Genre", "Year", "Copies")
	fmt.Println(strings.Repeat("-", 100))
	for _, b := range books {
		year := "-"
		if b.PublicationYear > 0 {
			year = fmt.Sprintf("%d", b.PublicationYear)
		}
		fmt.Printf("%-5d %-35s %-25s %-15s %-6s %d/%d\n",
			b.ID, truncateString(b.Title, 35), truncateString(b.Author, 25),
			truncateString(b.Genre, 15), year, b.AvailableCopies, b.TotalCopies)
	}
}

func init() {
	bookAddCmd.Flags().StringVar(&bookAddFlags.isbn, "isbn", "", "ISBN (must be unique when set)")
	bookAddCmd.Flags().StringVar(&bookAddFlags.genre, "genre", "", "genre")
	bookAddCmd.Flags().IntVar(&bookAddFlags.year, "year", 0, "publication year")
	bookAddCmd.Flags().IntVar(&bookAddFlags.copies, "copies", 1, "number of copies")
	bookAddCmd.Flags().StringVar(&bookAddFlags.cover, "cover", "", "path to a cover image")

	bookSearchCmd.Flags().StringVar(&bookSearchFlags.genre, "genre", "", "filter by genre")
	bookSearchCmd.Flags().StringVar(&bookSearchFlags.author, "author", "", "filter by author")
	bookSearchCmd.Flags().BoolVar(&bookSearchFlags.availableOnly, "available", false, "only books with free copies")

	bookCmd.AddCommand(bookAddCmd, bookListCmd, bookSearchCmd, bookDeleteCmd, bookHistoryCmd, bookCoverCmd)
}
