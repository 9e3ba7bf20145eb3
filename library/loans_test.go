package library

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckoutReturnRoundTrip(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Round Trip", "Author", 3)
	user := addUser(t, db, "alice")

	loan, err := db.CreateLoan(book.ID, user.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	after, _ := db.GetBook(book.ID)
	if after.AvailableCopies != 2 {
		t.Fatalf("want 2 available after checkout, got %d", after.AvailableCopies)
	}

	if _, err := db.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	// Round-trip law: available copies back to the pre-checkout value.
	restored, _ := db.GetBook(book.ID)
	if restored.AvailableCopies != 3 {
		t.Fatalf("want 3 available after return, got %d", restored.AvailableCopies)
	}
}

func TestDueDateIsLoanDatePlusPeriod(t *testing.T) {
	db := tempDB(t)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Dated", "Author", 1)
	user := addUser(t, db, "alice")

	loan, err := db.CreateLoan(book.ID, user.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !loan.LoanDate.Equal(mustDate(t, "2024-01-01")) {
		t.Fatalf("loan date: %v", loan.LoanDate)
	}
	if !loan.DueDate.Equal(mustDate(t, "2024-01-15")) {
		t.Fatalf("due date: %v", loan.DueDate)
	}

	// The persisted row carries the same dates.
	stored, err := db.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if !stored.DueDate.Equal(loan.DueDate) {
		t.Fatalf("stored due date %v != %v", stored.DueDate, loan.DueDate)
	}
}

func TestConfigurableLoanPeriod(t *testing.T) {
	db := tempDB(t)
	db.SetLoanPeriod(21)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Long Loan", "Author", 1)
	user := addUser(t, db, "alice")

	loan, err := db.CreateLoan(book.ID, user.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !loan.DueDate.Equal(mustDate(t, "2024-01-22")) {
		t.Fatalf("due date with 21-day period: %v", loan.DueDate)
	}
}

func TestCheckoutUnavailableLeavesNothingBehind(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Single Copy", "Author", 1)
	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")

	if _, err := db.CreateLoan(book.ID, alice.ID); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err := db.CreateLoan(book.ID, bob.ID)
	if err == nil {
		t.Fatalf("expected unavailable error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "Book is not available for checkout") {
		t.Fatalf("message should identify unavailability: %q", err.Error())
	}

	// Neither a loan row nor a copy-count change leaked out.
	loans, _ := db.UserLoans(bob.ID, false)
	if len(loans) != 0 {
		t.Fatalf("failed checkout left a loan row")
	}
	after, _ := db.GetBook(book.ID)
	if after.AvailableCopies != 0 {
		t.Fatalf("failed checkout altered copies: %d", after.AvailableCopies)
	}
}

func TestDuplicateActiveLoanRejected(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Popular", "Author", 5)
	user := addUser(t, db, "alice")

	first, err := db.CreateLoan(book.ID, user.ID)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err = db.CreateLoan(book.ID, user.ID)
	if err == nil || !strings.Contains(err.Error(), "already has this book checked out") {
		t.Fatalf("expected duplicate-loan rejection, got %v", err)
	}

	// After returning, the same user may borrow the book again.
	if _, err := db.ReturnLoan(first.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := db.CreateLoan(book.ID, user.ID); err != nil {
		t.Fatalf("re-checkout after return: %v", err)
	}
}

func TestCreateLoanAggregatesAllFailures(t *testing.T) {
	db := tempDB(t)

	_, err := db.CreateLoan(999, 888)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Messages) != 2 {
		t.Fatalf("want 2 aggregated messages, got %v", verr.Messages)
	}
	if !strings.Contains(err.Error(), "Book not found") || !strings.Contains(err.Error(), "User not found") {
		t.Fatalf("messages incomplete: %q", err.Error())
	}
}

func TestReturnTwiceIsStateError(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Once", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)
	if _, err := db.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	_, err := db.ReturnLoan(loan.ID)
	var serr *StateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StateError, got %v", err)
	}

	// The second attempt must not bump the copy count past total.
	after, _ := db.GetBook(book.ID)
	if after.AvailableCopies != 1 {
		t.Fatalf("copy count drifted: %d", after.AvailableCopies)
	}
}

func TestOverdueAndFineMath(t *testing.T) {
	db := tempDB(t)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Late", "Author", 1)
	user := addUser(t, db, "alice")

	loan, err := db.CreateLoan(book.ID, user.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Due 2024-01-15. On the due date itself the loan is not overdue.
	onDue := mustDate(t, "2024-01-15")
	if loan.IsOverdueAt(onDue) {
		t.Fatalf("loan overdue on its due date")
	}
	if got := loan.DaysRemainingAt(onDue); got != 0 {
		t.Fatalf("days remaining on due date: %d", got)
	}

	// Five days later: 5 days overdue, fine = 5 × rate.
	late := mustDate(t, "2024-01-20")
	if !loan.IsOverdueAt(late) {
		t.Fatalf("loan should be overdue")
	}
	if got := loan.DaysOverdueAt(late); got != 5 {
		t.Fatalf("days overdue: want 5, got %d", got)
	}
	if got := loan.FineAt(late, 1.0); got != 5.0 {
		t.Fatalf("fine at 1.0/day: want 5.0, got %v", got)
	}
	if got := loan.FineAt(late, 0.5); got != 2.5 {
		t.Fatalf("fine at 0.5/day: want 2.5, got %v", got)
	}
	if got := loan.DaysRemainingAt(late); got != -5 {
		t.Fatalf("days remaining when overdue: want -5, got %d", got)
	}
	if got := loan.StatusAt(late); got != LoanOverdue {
		t.Fatalf("status: %s", got)
	}
}

func TestFineSnapshotBeforeReturn(t *testing.T) {
	db := tempDB(t)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Very Late", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)

	// Due 2024-01-15, returned 2024-02-14: the fine owed is 30 × rate,
	// read off the still-open loan before the return lands.
	setToday(t, db, "2024-02-14")
	open, err := db.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	fine := open.FineAt(mustDate(t, "2024-02-14"), 1.0)
	if fine != 30.0 {
		t.Fatalf("fine before return: want 30.0, got %v", fine)
	}

	returned, err := db.ReturnLoan(loan.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	// After the return the loan itself reports zero; the snapshot is the
	// amount the borrower owes.
	if got := returned.FineAt(*returned.ReturnDate, 1.0); got != 0 {
		t.Fatalf("returned loan should not accrue: %v", got)
	}
}

func TestReturnedLoanIsNeverOverdue(t *testing.T) {
	db := tempDB(t)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Redeemed", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)

	// Return long past the due date.
	setToday(t, db, "2024-03-01")
	returned, err := db.ReturnLoan(loan.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}

	// Overdue is false the instant the return lands, regardless of due
	// date.
	if returned.IsOverdueAt(mustDate(t, "2024-03-01")) {
		t.Fatalf("returned loan reported overdue")
	}
	if got := returned.StatusAt(mustDate(t, "2024-12-31")); got != LoanReturned {
		t.Fatalf("status: %s", got)
	}
	if got := returned.DaysRemainingAt(mustDate(t, "2024-03-01")); got != 0 {
		t.Fatalf("days remaining after return: %d", got)
	}
	if got := returned.FineAt(mustDate(t, "2024-12-31"), 1.0); got != 0 {
		t.Fatalf("fine after return: %v", got)
	}
}

func TestExtendLoanPersists(t *testing.T) {
	db := tempDB(t)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Extended", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)

	extended, err := db.ExtendLoan(loan.ID, 0) // default extension
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !extended.DueDate.Equal(mustDate(t, "2024-01-22")) {
		t.Fatalf("extended due date: %v", extended.DueDate)
	}

	// The extension survives a reload — it was persisted, not just
	// mutated in memory.
	stored, _ := db.GetLoan(loan.ID)
	if !stored.DueDate.Equal(mustDate(t, "2024-01-22")) {
		t.Fatalf("extension not persisted: %v", stored.DueDate)
	}

	// Explicit day count stacks on the stored date.
	if _, err := db.ExtendLoan(loan.ID, 3); err != nil {
		t.Fatalf("second extend: %v", err)
	}
	stored, _ = db.GetLoan(loan.ID)
	if !stored.DueDate.Equal(mustDate(t, "2024-01-25")) {
		t.Fatalf("stacked extension: %v", stored.DueDate)
	}
}

func TestExtendReturnedLoanFails(t *testing.T) {
	db := tempDB(t)
	setToday(t, db, "2024-01-01")
	book := addBook(t, db, "Closed", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)
	if _, err := db.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	_, err := db.ExtendLoan(loan.ID, 7)
	var serr *StateError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StateError, got %v", err)
	}

	// Due date unchanged.
	stored, _ := db.GetLoan(loan.ID)
	if !stored.DueDate.Equal(mustDate(t, "2024-01-15")) {
		t.Fatalf("due date changed on failed extend: %v", stored.DueDate)
	}
}

func TestDeleteActiveLoanRestoresCopy(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Erased", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)

	if err := db.DeleteLoan(loan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	after, _ := db.GetBook(book.ID)
	if after.AvailableCopies != 1 {
		t.Fatalf("copy not restored: %d", after.AvailableCopies)
	}
	if _, err := db.GetLoan(loan.ID); err == nil {
		t.Fatalf("loan row should be gone")
	}
}

func TestDeleteReturnedLoanLeavesCopiesAlone(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "History", "Author", 1)
	user := addUser(t, db, "alice")

	loan, _ := db.CreateLoan(book.ID, user.ID)
	if _, err := db.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	if err := db.DeleteLoan(loan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	after, _ := db.GetBook(book.ID)
	if after.AvailableCopies != 1 {
		t.Fatalf("deleting a returned loan changed copies: %d", after.AvailableCopies)
	}
}

func TestBulkLoanQueries(t *testing.T) {
	db := tempDB(t)
	book1 := addBook(t, db, "One", "Author", 1)
	book2 := addBook(t, db, "Two", "Author", 1)
	book3 := addBook(t, db, "Three", "Author", 1)
	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")

	// An old loan, long overdue.
	setToday(t, db, "2024-01-01")
	overdueLoan, _ := db.CreateLoan(book1.ID, alice.ID)

	// A returned loan.
	setToday(t, db, "2024-02-01")
	returnedLoan, _ := db.CreateLoan(book2.ID, alice.ID)
	setToday(t, db, "2024-02-10")
	if _, err := db.ReturnLoan(returnedLoan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	// A fresh loan, due 2024-03-15.
	setToday(t, db, "2024-03-01")
	freshLoan, _ := db.CreateLoan(book3.ID, bob.ID)

	// Evaluate everything as of 2024-03-14.
	setToday(t, db, "2024-03-14")

	overdue, err := db.OverdueLoans()
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != overdueLoan.ID {
		t.Fatalf("overdue query: %v", overdue)
	}

	active, err := db.AllLoans(LoanActive)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != freshLoan.ID {
		t.Fatalf("active query: %v", active)
	}

	returned, err := db.AllLoans(LoanReturned)
	if err != nil {
		t.Fatalf("returned: %v", err)
	}
	if len(returned) != 1 || returned[0].ID != returnedLoan.ID {
		t.Fatalf("returned query: %v", returned)
	}

	all, err := db.AllLoans("")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 loans, got %d", len(all))
	}
	// Ordered by loan date descending.
	if all[0].ID != freshLoan.ID || all[2].ID != overdueLoan.ID {
		t.Fatalf("wrong order: %d, %d, %d", all[0].ID, all[1].ID, all[2].ID)
	}

	// Due within 1 day: the fresh loan (due 03-15); the overdue loan is
	// excluded.
	dueSoon, err := db.LoansDueWithin(1)
	if err != nil {
		t.Fatalf("due soon: %v", err)
	}
	if len(dueSoon) != 1 || dueSoon[0].ID != freshLoan.ID {
		t.Fatalf("due-soon query: %v", dueSoon)
	}
	dueSoon, err = db.LoansDueWithin(0)
	if err != nil {
		t.Fatalf("due soon 0: %v", err)
	}
	if len(dueSoon) != 0 {
		t.Fatalf("nothing is due today: %v", dueSoon)
	}

	// Per-user and per-book views.
	aliceLoans, _ := db.UserLoans(alice.ID, false)
	if len(aliceLoans) != 2 {
		t.Fatalf("alice loans: %d", len(aliceLoans))
	}
	aliceActive, _ := db.UserLoans(alice.ID, true)
	if len(aliceActive) != 1 || aliceActive[0].ID != overdueLoan.ID {
		t.Fatalf("alice active loans: %v", aliceActive)
	}
	book2Loans, _ := db.BookLoans(book2.ID, false)
	if len(book2Loans) != 1 || book2Loans[0].ID != returnedLoan.ID {
		t.Fatalf("book2 loans: %v", book2Loans)
	}
}

func TestCopyCountInvariantUnderMixedOperations(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Invariant", "Author", 2)
	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")
	carol := addUser(t, db, "carol")

	check := func(context string) {
		t.Helper()
		b, err := db.GetBook(book.ID)
		if err != nil {
			t.Fatalf("%s: get book: %v", context, err)
		}
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			t.Fatalf("%s: invariant violated: %d/%d", context, b.AvailableCopies, b.TotalCopies)
		}
	}

	l1, _ := db.CreateLoan(book.ID, alice.ID)
	check("after first checkout")
	l2, _ := db.CreateLoan(book.ID, bob.ID)
	check("after second checkout")
	if _, err := db.CreateLoan(book.ID, carol.ID); err == nil {
		t.Fatalf("third checkout of a 2-copy book should fail")
	}
	check("after rejected checkout")
	if _, err := db.ReturnLoan(l1.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	check("after return")
	if err := db.DeleteLoan(l2.ID); err != nil {
		t.Fatalf("delete active loan: %v", err)
	}
	check("after delete")
}

func TestBookBorrowingHistory(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Chronicle", "Author", 2)
	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")

	setToday(t, db, "2024-01-01")
	l1, _ := db.CreateLoan(book.ID, alice.ID)
	setToday(t, db, "2024-01-05")
	if _, err := db.ReturnLoan(l1.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	setToday(t, db, "2024-02-01")
	if _, err := db.CreateLoan(book.ID, bob.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	entries, err := db.BookBorrowingHistory(book.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Username != "bob" || entries[1].Username != "alice" {
		t.Fatalf("wrong order: %s, %s", entries[0].Username, entries[1].Username)
	}
	if entries[0].ReturnDate != nil {
		t.Fatalf("bob's loan is still open")
	}
	if entries[1].ReturnDate == nil {
		t.Fatalf("alice's loan was returned")
	}
}
