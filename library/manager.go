package library

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LibraryManager is a thin façade over the Database, keeping CLI code
// simple. It also carries the fine rate and the covers directory, which
// are policy rather than storage.
type LibraryManager struct {
	db         *Database
	finePerDay float64
	coversDir  string
	log        *slog.Logger
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{
		db:         db,
		finePerDay: DefaultFinePerDay,
		coversDir:  "assets/book_covers",
		log:        slog.Default(),
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// SetLogger replaces the manager's logger.
func (lm *LibraryManager) SetLogger(l *slog.Logger) {
	if l != nil {
		lm.log = l
	}
}

// SetFineRate overrides the per-day overdue fine.
func (lm *LibraryManager) SetFineRate(ratePerDay float64) {
	if ratePerDay >= 0 {
		lm.finePerDay = ratePerDay
	}
}

// SetLoanPeriod overrides the loan period for new loans.
func (lm *LibraryManager) SetLoanPeriod(days int) { lm.db.SetLoanPeriod(days) }

// SetCoversDir changes where SaveBookCover places image files.
func (lm *LibraryManager) SetCoversDir(dir string) {
	if dir != "" {
		lm.coversDir = dir
	}
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(b *Book) error               { return lm.db.SaveBook(b) }
func (lm *LibraryManager) UpdateBook(b *Book) error            { return lm.db.SaveBook(b) }
func (lm *LibraryManager) GetBook(id int64) (*Book, error)     { return lm.db.GetBook(id) }
func (lm *LibraryManager) AllBooks() ([]*Book, error)          { return lm.db.AllBooks("title") }
func (lm *LibraryManager) DeleteBook(id int64) error           { return lm.db.DeleteBook(id) }
func (lm *LibraryManager) FindBookByISBN(isbn string) (*Book, error) {
	return lm.db.FindBookByISBN(isbn)
}

func (lm *LibraryManager) SearchBooks(s BookSearch) ([]*Book, error) {
	return lm.db.SearchBooks(s)
}

func (lm *LibraryManager) PopularBooks(limit int) ([]*Book, error) {
	return lm.db.PopularBooks(limit)
}

func (lm *LibraryManager) BookBorrowingHistory(bookID int64) ([]*LoanHistoryEntry, error) {
	return lm.db.BookBorrowingHistory(bookID)
}

// SaveBookCover copies the image at sourcePath into the covers directory
// and records the new path on the book.
func (lm *LibraryManager) SaveBookCover(bookID int64, sourcePath string) (string, error) {
	if _, err := lm.db.GetBook(bookID); err != nil {
		return "", err
	}

	src, err := os.Open(filepath.Clean(sourcePath))
	if err != nil {
		return "", fmt.Errorf("open cover image: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(lm.coversDir, 0o755); err != nil {
		return "", fmt.Errorf("create covers dir: %w", err)
	}

	dest := filepath.Join(lm.coversDir, fmt.Sprintf("book_%d%s", bookID, filepath.Ext(sourcePath)))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create cover file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("copy cover: %w", err)
	}

	if err := lm.db.SetBookImage(bookID, dest); err != nil {
		lm.log.Warn("cover copied but book row not updated",
			slog.Int64("book_id", bookID), slog.String("path", dest))
		return "", err
	}
	return dest, nil
}

// ------------------ User helpers ------------------

func (lm *LibraryManager) RegisterUser(u *User, password string) error {
	return lm.db.RegisterUser(u, password)
}

func (lm *LibraryManager) UpdateUser(u *User) error        { return lm.db.UpdateUser(u) }
func (lm *LibraryManager) GetUser(id int64) (*User, error) { return lm.db.GetUser(id) }
func (lm *LibraryManager) DeleteUser(id int64) error       { return lm.db.DeleteUser(id) }

func (lm *LibraryManager) FindUserByUsername(username string) (*User, error) {
	return lm.db.FindUserByUsername(username)
}

func (lm *LibraryManager) AllUsers(userType UserType) ([]*User, error) {
	return lm.db.AllUsers(userType)
}

func (lm *LibraryManager) Authenticate(usernameOrEmail, password string) (*User, error) {
	return lm.db.Authenticate(usernameOrEmail, password)
}

func (lm *LibraryManager) UpdateUserPassword(id int64, newPassword string) error {
	return lm.db.UpdateUserPassword(id, newPassword)
}

func (lm *LibraryManager) UserLoanCounts(userID int64) (total, active int, err error) {
	return lm.db.UserLoanCounts(userID)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) CheckoutBook(bookID, userID int64) (*Loan, error) {
	return lm.db.CreateLoan(bookID, userID)
}

func (lm *LibraryManager) ReturnLoan(loanID int64) (*Loan, error) {
	return lm.db.ReturnLoan(loanID)
}

func (lm *LibraryManager) ExtendLoan(loanID int64, additionalDays int) (*Loan, error) {
	return lm.db.ExtendLoan(loanID, additionalDays)
}

func (lm *LibraryManager) DeleteLoan(loanID int64) error { return lm.db.DeleteLoan(loanID) }
func (lm *LibraryManager) GetLoan(id int64) (*Loan, error) {
	return lm.db.GetLoan(id)
}

// LoanFine evaluates the fine for a loan at the configured per-day rate.
func (lm *LibraryManager) LoanFine(l *Loan) float64 { return l.Fine(lm.finePerDay) }

// FineRate exposes the configured per-day fine for display.
func (lm *LibraryManager) FineRate() float64 { return lm.finePerDay }

// ------------------ Queries ------------------

func (lm *LibraryManager) AllLoans(status LoanStatus) ([]*Loan, error) {
	return lm.db.AllLoans(status)
}

func (lm *LibraryManager) UserLoans(userID int64, activeOnly bool) ([]*Loan, error) {
	return lm.db.UserLoans(userID, activeOnly)
}

func (lm *LibraryManager) BookLoans(bookID int64, activeOnly bool) ([]*Loan, error) {
	return lm.db.BookLoans(bookID, activeOnly)
}

func (lm *LibraryManager) OverdueLoans() ([]*Loan, error) { return lm.db.OverdueLoans() }

func (lm *LibraryManager) LoansDueWithin(days int) ([]*Loan, error) {
	return lm.db.LoansDueWithin(days)
}

func (lm *LibraryManager) Stats() (*LibraryStats, error) { return lm.db.Stats() }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-5d %-30s %-25s %7d/%d", b.ID, b.Title, b.Author, b.AvailableCopies, b.TotalCopies)
}
