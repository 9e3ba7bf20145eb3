package library

import (
	"errors"
	"strings"
	"testing"
)

func TestRegisterUserValidation(t *testing.T) {
	db := tempDB(t)

	u := &User{Username: "ab", FullName: "X", Email: "not-an-email", UserType: "admin"}
	err := db.RegisterUser(u, "short")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	for _, want := range []string{
		"Username must be at least 3 characters long",
		"Full name must be at least 2 characters long",
		"Valid email address is required",
		"Password must be at least 8 characters long",
		"User type must be 'reader' or 'librarian'",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing message %q in %q", want, err.Error())
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := tempDB(t)
	addUser(t, db, "alice")

	dup := &User{
		Username: "different",
		FullName: "Different Person",
		Email:    "alice@example.com",
		UserType: UserTypeReader,
	}
	err := db.RegisterUser(dup, "password123")
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError for duplicate email, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := tempDB(t)
	addUser(t, db, "bob")

	dup := &User{
		Username: "bob",
		FullName: "Other Bob",
		Email:    "other-bob@example.com",
		UserType: UserTypeReader,
	}
	err := db.RegisterUser(dup, "password123")
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError for duplicate username, got %v", err)
	}
}

func TestPasswordStoredAsBcryptHash(t *testing.T) {
	db := tempDB(t)
	u := addUser(t, db, "hashme")

	stored, err := db.GetUser(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.PasswordHash == "password123" {
		t.Fatalf("password stored in plaintext")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$2a$") {
		t.Fatalf("expected bcrypt hash, got %q", stored.PasswordHash)
	}
}

func TestAuthenticate(t *testing.T) {
	db := tempDB(t)
	u := addUser(t, db, "carol")

	got, err := db.Authenticate("carol", "password123")
	if err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user: %d", got.ID)
	}

	// Email works as the login name too.
	if _, err := db.Authenticate("carol@example.com", "password123"); err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}

	if _, err := db.Authenticate("carol", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := db.Authenticate("nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	db := tempDB(t)
	u := addUser(t, db, "dave")

	if err := db.UpdateUserPassword(u.ID, "short"); err == nil {
		t.Fatalf("expected short-password rejection")
	}
	if err := db.UpdateUserPassword(u.ID, "much-better-password"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := db.Authenticate("dave", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work")
	}
	if _, err := db.Authenticate("dave", "much-better-password"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	db := tempDB(t)
	u := addUser(t, db, "erin")

	u.FullName = "Erin Updated"
	u.UserType = UserTypeLibrarian
	if err := db.UpdateUser(u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	stored, _ := db.GetUser(u.ID)
	if stored.FullName != "Erin Updated" || stored.UserType != UserTypeLibrarian {
		t.Fatalf("update not applied: %+v", stored)
	}

	// Taking another user's email is a conflict.
	addUser(t, db, "frank")
	u.Email = "frank@example.com"
	err := db.UpdateUser(u)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestDeleteUserGuard(t *testing.T) {
	db := tempDB(t)
	book := addBook(t, db, "Borrowed", "Author", 1)
	user := addUser(t, db, "grace")

	loan, err := db.CreateLoan(book.ID, user.ID)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}

	err = db.DeleteUser(user.ID)
	var rerr *ReferentialError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReferentialError, got %v", err)
	}

	if _, err := db.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := db.DeleteUser(user.ID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
	if _, err := db.GetUser(user.ID); err == nil {
		t.Fatalf("user should be gone")
	}
}

func TestUserLoanCounts(t *testing.T) {
	db := tempDB(t)
	book1 := addBook(t, db, "First", "Author", 1)
	book2 := addBook(t, db, "Second", "Author", 1)
	user := addUser(t, db, "counted")

	l1, err := db.CreateLoan(book1.ID, user.ID)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if _, err := db.CreateLoan(book2.ID, user.ID); err != nil {
		t.Fatalf("loan: %v", err)
	}
	if _, err := db.ReturnLoan(l1.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	total, active, err := db.UserLoanCounts(user.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 2 || active != 1 {
		t.Fatalf("loan counts: total=%d active=%d", total, active)
	}
}

func TestAllUsersFilter(t *testing.T) {
	db := tempDB(t)
	addUser(t, db, "zreader")
	lib := &User{
		Username: "thelibrarian",
		FullName: "Ada Librarian",
		Email:    "ada@example.com",
		UserType: UserTypeLibrarian,
	}
	if err := db.RegisterUser(lib, "password123"); err != nil {
		t.Fatalf("register librarian: %v", err)
	}

	readers, err := db.AllUsers(UserTypeReader)
	if err != nil {
		t.Fatalf("all readers: %v", err)
	}
	if len(readers) != 1 || readers[0].Username != "zreader" {
		t.Fatalf("reader filter failed: %v", readers)
	}

	all, err := db.AllUsers("")
	if err != nil {
		t.Fatalf("all users: %v", err)
	}
	// Ordered by full name: Ada before Test zreader.
	if len(all) != 2 || all[0].Username != "thelibrarian" {
		t.Fatalf("expected full-name ordering, got %v", all)
	}
}
