package library

import "time"

// Loan policy defaults. The configs package can override these per
// installation.
const (
	DefaultLoanPeriodDays = 14
	DefaultExtensionDays  = 7
	DefaultFinePerDay     = 1.0
)

// UserType distinguishes readers from librarians.
type UserType string

const (
	UserTypeReader    UserType = "reader"
	UserTypeLibrarian UserType = "librarian"
)

// Book represents a title in the catalog together with its copy counts.
// AvailableCopies is mutated only by the loan operations; everywhere else
// it is read-only.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn,omitempty"`
	Genre           string    `json:"genre,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	ImagePath       string    `json:"image_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsAvailable reports whether at least one copy can be checked out.
func (b *Book) IsAvailable() bool { return b.AvailableCopies > 0 }

// User represents a registered reader or librarian.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Don't serialize password hash
	UserType     UserType  `json:"user_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoanStatus is derived from (return_date, due_date, today) on every read.
// It is never persisted, so it cannot drift from the dates it is computed
// from.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// Loan records one checkout of one copy of a book by one user. All dates
// are day-granular (UTC midnight). ReturnDate is nil while the loan is
// active; an active loan implies the book's AvailableCopies was
// decremented by exactly one at creation.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	UserID     int64      `json:"user_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Returned reports whether the loan has been closed.
func (l *Loan) Returned() bool { return l.ReturnDate != nil }

// StatusAt derives the loan status as of the given instant.
func (l *Loan) StatusAt(at time.Time) LoanStatus {
	switch {
	case l.Returned():
		return LoanReturned
	case l.IsOverdueAt(at):
		return LoanOverdue
	default:
		return LoanActive
	}
}

// Status derives the loan status as of now.
func (l *Loan) Status() LoanStatus { return l.StatusAt(time.Now()) }

// IsOverdueAt reports whether the loan is unreturned and past due as of
// the given instant.
func (l *Loan) IsOverdueAt(at time.Time) bool {
	if l.Returned() || l.DueDate.IsZero() {
		return false
	}
	return DateOnly(at).After(DateOnly(l.DueDate))
}

// IsOverdue reports whether the loan is overdue as of now.
func (l *Loan) IsOverdue() bool { return l.IsOverdueAt(time.Now()) }

// DaysOverdueAt returns the number of whole days past the due date, zero
// if the loan is not overdue.
func (l *Loan) DaysOverdueAt(at time.Time) int {
	if !l.IsOverdueAt(at) {
		return 0
	}
	return daysBetween(l.DueDate, at)
}

// DaysOverdue returns the days overdue as of now.
func (l *Loan) DaysOverdue() int { return l.DaysOverdueAt(time.Now()) }

// DaysRemainingAt returns the days until the due date (negative once past
// due), or zero for a returned loan.
func (l *Loan) DaysRemainingAt(at time.Time) int {
	if l.Returned() || l.DueDate.IsZero() {
		return 0
	}
	return daysBetween(at, l.DueDate)
}

// DaysRemaining returns the days remaining as of now.
func (l *Loan) DaysRemaining() int { return l.DaysRemainingAt(time.Now()) }

// FineAt computes the accrued fine at the given per-day rate, zero if the
// loan is not overdue.
func (l *Loan) FineAt(at time.Time, ratePerDay float64) float64 {
	return float64(l.DaysOverdueAt(at)) * ratePerDay
}

// Fine computes the accrued fine as of now.
func (l *Loan) Fine(ratePerDay float64) float64 { return l.FineAt(time.Now(), ratePerDay) }

// DateOnly truncates t to UTC midnight. All loan-date arithmetic runs on
// day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b after both are truncated
// to dates.
func daysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
