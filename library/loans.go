package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const loanColumns = `id, book_id, user_id, loan_date, due_date, return_date`

func scanLoan(row rowScanner) (*Loan, error) {
	var l Loan
	var returned sql.NullTime
	err := row.Scan(&l.ID, &l.BookID, &l.UserID, &l.LoanDate, &l.DueDate, &returned)
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		t := returned.Time
		l.ReturnDate = &t
	}
	return &l, nil
}

// CreateLoan checks a book out to a user. All preconditions are verified
// and the loan insert plus the copy decrement are applied inside one
// transaction, so a failure in either half leaves nothing behind.
// Precondition failures come back as a single ValidationError listing
// every violated rule.
func (d *Database) CreateLoan(bookID, userID int64) (*Loan, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var msgs []string

	var available int
	err = tx.QueryRow(`SELECT available_copies FROM books WHERE id=?`, bookID).Scan(&available)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		msgs = append(msgs, "Book not found")
	case err != nil:
		return nil, err
	case available == 0:
		msgs = append(msgs, "Book is not available for checkout")
	}

	var userExists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, userID).Scan(&userExists); err != nil {
		return nil, err
	}
	if !userExists {
		msgs = append(msgs, "User not found")
	}

	var duplicate bool
	if err := tx.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=? AND book_id=? AND return_date IS NULL)`,
		userID, bookID).Scan(&duplicate); err != nil {
		return nil, err
	}
	if duplicate {
		msgs = append(msgs, "User already has this book checked out")
	}

	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	loanDate := d.today()
	dueDate := loanDate.AddDate(0, 0, d.loanPeriodDays)

	res, err := tx.Stmt(d.insertLoanStmt).Exec(bookID, userID, loanDate, dueDate)
	if err != nil {
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := checkoutCopy(tx, bookID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Loan{
		ID:       id,
		BookID:   bookID,
		UserID:   userID,
		LoanDate: loanDate,
		DueDate:  dueDate,
	}, nil
}

// ReturnLoan closes an active loan: the return date and the copy
// increment land in the same transaction. Returning twice is a
// StateError.
func (d *Database) ReturnLoan(loanID int64) (*Loan, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l, err := scanLoan(tx.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id=?`, loanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "loan", ID: loanID}
	}
	if err != nil {
		return nil, err
	}
	if l.Returned() {
		return nil, &StateError{Message: "Book has already been returned"}
	}

	returnDate := d.today()
	if _, err := tx.Exec(`UPDATE loans SET return_date=? WHERE id=?`, returnDate, loanID); err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	if err := returnCopy(tx, l.BookID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	l.ReturnDate = &returnDate
	return l, nil
}

// ExtendLoan pushes the due date out by additionalDays (default 7) and
// persists the change itself. Extending a returned loan is a StateError
// and leaves the due date untouched.
func (d *Database) ExtendLoan(loanID int64, additionalDays int) (*Loan, error) {
	if additionalDays <= 0 {
		additionalDays = DefaultExtensionDays
	}

	l, err := d.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	if l.Returned() {
		return nil, &StateError{Message: "Cannot extend loan for returned book"}
	}
	if l.DueDate.IsZero() {
		return nil, &StateError{Message: "No due date set for this loan"}
	}

	newDue := l.DueDate.AddDate(0, 0, additionalDays)
	if _, err := d.db.Exec(`UPDATE loans SET due_date=? WHERE id=?`, newDue, loanID); err != nil {
		return nil, fmt.Errorf("extend loan: %w", err)
	}
	l.DueDate = newDue
	return l, nil
}

// DeleteLoan removes a loan record. If the loan is still active the copy
// goes back on the shelf in the same transaction, so the counts never
// drift.
func (d *Database) DeleteLoan(loanID int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	l, err := scanLoan(tx.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id=?`, loanID))
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: "loan", ID: loanID}
	}
	if err != nil {
		return err
	}

	if !l.Returned() {
		if err := returnCopy(tx, l.BookID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM loans WHERE id=?`, loanID); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	return tx.Commit()
}

// GetLoan fetches a single loan.
func (d *Database) GetLoan(id int64) (*Loan, error) {
	l, err := scanLoan(d.db.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "loan", ID: id}
	}
	return l, err
}

// ---------------------------------------------------------------------------
// Bulk queries
// ---------------------------------------------------------------------------

// AllLoans returns loans ordered by loan date descending, optionally
// narrowed to one derived status. "active" here means on time;
// use UserLoans/BookLoans with activeOnly for "not yet returned".
func (d *Database) AllLoans(status LoanStatus) ([]*Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans`
	var params []any

	switch status {
	case LoanActive:
		query += ` WHERE return_date IS NULL AND due_date >= ?`
		params = append(params, d.today())
	case LoanOverdue:
		query += ` WHERE return_date IS NULL AND due_date < ?`
		params = append(params, d.today())
	case LoanReturned:
		query += ` WHERE return_date IS NOT NULL`
	}

	query += ` ORDER BY loan_date DESC`
	return d.queryLoans(query, params...)
}

// UserLoans returns a user's loans, newest first.
func (d *Database) UserLoans(userID int64, activeOnly bool) ([]*Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id=?`
	if activeOnly {
		query += ` AND return_date IS NULL`
	}
	query += ` ORDER BY loan_date DESC`
	return d.queryLoans(query, userID)
}

// BookLoans returns a book's loans, newest first.
func (d *Database) BookLoans(bookID int64, activeOnly bool) ([]*Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE book_id=?`
	if activeOnly {
		query += ` AND return_date IS NULL`
	}
	query += ` ORDER BY loan_date DESC`
	return d.queryLoans(query, bookID)
}

// OverdueLoans returns every unreturned loan past its due date.
func (d *Database) OverdueLoans() ([]*Loan, error) {
	return d.AllLoans(LoanOverdue)
}

// LoansDueWithin returns unreturned, not-yet-overdue loans whose due date
// falls within the next N days, oldest loan first.
func (d *Database) LoansDueWithin(days int) ([]*Loan, error) {
	today := d.today()
	return d.queryLoans(
		`SELECT `+loanColumns+` FROM loans
         WHERE return_date IS NULL AND due_date >= ? AND due_date <= ?
         ORDER BY loan_date`,
		today, today.AddDate(0, 0, days))
}

func (d *Database) queryLoans(query string, params ...any) ([]*Loan, error) {
	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// LoanHistoryEntry is one row of a book's borrowing history.
type LoanHistoryEntry struct {
	LoanID     int64
	Username   string
	FullName   string
	LoanDate   time.Time
	ReturnDate *time.Time
}

// BookBorrowingHistory lists who borrowed a book and when, newest first.
func (d *Database) BookBorrowingHistory(bookID int64) ([]*LoanHistoryEntry, error) {
	rows, err := d.db.Query(`
        SELECT l.id, u.username, u.full_name, l.loan_date, l.return_date
        FROM loans l
        JOIN users u ON u.id = l.user_id
        WHERE l.book_id = ?
        ORDER BY l.loan_date DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LoanHistoryEntry
	for rows.Next() {
		var e LoanHistoryEntry
		var returned sql.NullTime
		if err := rows.Scan(&e.LoanID, &e.Username, &e.FullName, &e.LoanDate, &returned); err != nil {
			return nil, err
		}
		if returned.Valid {
			t := returned.Time
			e.ReturnDate = &t
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
