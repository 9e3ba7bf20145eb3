package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

// bookColumns is the column list every book query selects, in scanBook
// order.
const bookColumns = `id, title, author, COALESCE(isbn,''), COALESCE(genre,''),
    COALESCE(publication_year,0), total_copies, available_copies,
    COALESCE(image_path,''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre,
		&b.PublicationYear, &b.TotalCopies, &b.AvailableCopies,
		&b.ImagePath, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// NewBook builds a catalog entry with all copies available.
func NewBook(title, author string, totalCopies int) *Book {
	if totalCopies < 1 {
		totalCopies = 1
	}
	return &Book{
		Title:           title,
		Author:          author,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}
}

// SaveBook inserts the book when ID is zero and updates it otherwise.
// Validation failures come back as a ValidationError with one message per
// violated rule; a duplicate ISBN (ignoring the book's own row) is a
// ConflictError.
func (d *Database) SaveBook(b *Book) error {
	if err := validateBook(b); err != nil {
		return err
	}

	if isbn := strings.TrimSpace(b.ISBN); isbn != "" {
		var existing int64
		err := d.db.QueryRow(`SELECT id FROM books WHERE isbn=? AND id != ?`, isbn, b.ID).Scan(&existing)
		switch {
		case err == nil:
			return &ConflictError{Message: "A book with this ISBN already exists"}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check isbn: %w", err)
		}
	}

	if b.ID != 0 {
		res, err := d.db.Exec(
			`UPDATE books SET title=?, author=?, isbn=?, genre=?, publication_year=?,
                total_copies=?, available_copies=?, image_path=? WHERE id=?`,
			b.Title, b.Author, b.ISBN, b.Genre, b.PublicationYear,
			b.TotalCopies, b.AvailableCopies, b.ImagePath, b.ID)
		if err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "book", ID: b.ID}
		}
		return nil
	}

	res, err := d.insertBookStmt.Exec(b.Title, b.Author, b.ISBN, b.Genre,
		b.PublicationYear, b.TotalCopies, b.AvailableCopies, b.ImagePath)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// GetBook fetches a single book.
func (d *Database) GetBook(id int64) (*Book, error) {
	b, err := scanBook(d.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "book", ID: id}
	}
	return b, err
}

// FindBookByISBN fetches a book by its ISBN, nil when no match exists.
func (d *Database) FindBookByISBN(isbn string) (*Book, error) {
	b, err := scanBook(d.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE isbn=?`, isbn))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// AllBooks returns every book ordered by the given column. Unknown
// columns fall back to title.
func (d *Database) AllBooks(orderBy string) ([]*Book, error) {
	switch orderBy {
	case "title", "author", "genre", "publication_year", "id":
	default:
		orderBy = "title"
	}
	rows, err := d.db.Query(`SELECT ` + bookColumns + ` FROM books ORDER BY ` + orderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

// BookSearch filters SearchBooks. Query matches title, author or genre;
// Genre and Author narrow the result further; AvailableOnly drops books
// with no free copies.
type BookSearch struct {
	Query         string
	Genre         string
	Author        string
	AvailableOnly bool
}

// SearchBooks performs a case-insensitive substring search ordered by
// title.
func (d *Database) SearchBooks(s BookSearch) ([]*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books`

	var conditions []string
	var params []any

	if q := strings.TrimSpace(s.Query); q != "" {
		conditions = append(conditions, `(title LIKE ? OR author LIKE ? OR genre LIKE ?)`)
		pattern := "%" + q + "%"
		params = append(params, pattern, pattern, pattern)
	}
	if s.Genre != "" {
		conditions = append(conditions, `genre LIKE ?`)
		params = append(params, "%"+s.Genre+"%")
	}
	if s.Author != "" {
		conditions = append(conditions, `author LIKE ?`)
		params = append(params, "%"+s.Author+"%")
	}
	if s.AvailableOnly {
		conditions = append(conditions, `available_copies > 0`)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY title"

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

// DeleteBook removes a book that has no active loans. The cover image, if
// any, is removed best-effort alongside the row.
func (d *Database) DeleteBook(id int64) error {
	book, err := d.GetBook(id)
	if err != nil {
		return err
	}

	var active int
	if err := d.db.QueryRow(
		`SELECT COUNT(*) FROM loans WHERE book_id=? AND return_date IS NULL`, id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return &ReferentialError{Message: fmt.Sprintf("Cannot delete book with %d active loans", active)}
	}

	if _, err := d.db.Exec(`DELETE FROM books WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	// Only after the row is gone; a failed delete must not orphan the
	// stored image_path.
	if book.ImagePath != "" {
		_ = os.Remove(book.ImagePath)
	}
	return nil
}

// SetBookImage updates just the cover-image path of a book.
func (d *Database) SetBookImage(id int64, path string) error {
	res, err := d.db.Exec(`UPDATE books SET image_path=? WHERE id=?`, path, id)
	if err != nil {
		return fmt.Errorf("update image path: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "book", ID: id}
	}
	return nil
}

// BookLoanCounts returns the total and active loan counts for a book.
func (d *Database) BookLoanCounts(bookID int64) (total, active int, err error) {
	err = d.db.QueryRow(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE return_date IS NULL) FROM loans WHERE book_id=?`,
		bookID).Scan(&total, &active)
	return total, active, err
}

// PopularBooks returns the most-loaned books, ties broken by title.
func (d *Database) PopularBooks(limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.Query(`
        SELECT b.id, b.title, b.author, COALESCE(b.isbn,''), COALESCE(b.genre,''),
               COALESCE(b.publication_year,0), b.total_copies, b.available_copies,
               COALESCE(b.image_path,''), b.created_at
        FROM books b
        LEFT JOIN loans l ON l.book_id = b.id
        GROUP BY b.id
        ORDER BY COUNT(l.id) DESC, b.title
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func collectBooks(rows *sql.Rows) ([]*Book, error) {
	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ---------------------------------------------------------------------------
// Copy-count mutations
// ---------------------------------------------------------------------------

// checkoutCopy decrements available_copies inside a loan transaction. The
// guard on the UPDATE doubles as a compare-and-swap so the count can never
// go negative, even with a second process on the same file.
func checkoutCopy(tx *sql.Tx, bookID int64) error {
	res, err := tx.Exec(
		`UPDATE books SET available_copies = available_copies - 1
         WHERE id=? AND available_copies > 0`, bookID)
	if err != nil {
		return fmt.Errorf("decrement copies: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StateError{Message: "Book is not available for checkout"}
	}
	return nil
}

// returnCopy increments available_copies inside a loan transaction,
// refusing to push the count past total_copies.
func returnCopy(tx *sql.Tx, bookID int64) error {
	res, err := tx.Exec(
		`UPDATE books SET available_copies = available_copies + 1
         WHERE id=? AND available_copies < total_copies`, bookID)
	if err != nil {
		return fmt.Errorf("increment copies: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StateError{Message: "All copies are already available"}
	}
	return nil
}
