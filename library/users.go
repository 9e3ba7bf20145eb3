package library

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Authenticate for a bad
// username/password pair. The message deliberately does not say which
// half was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

const userColumns = `id, username, full_name, email, password, user_type, created_at`

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email,
		&u.PasswordHash, &u.UserType, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RegisterUser validates and stores a new user. The plaintext password is
// hashed with bcrypt before it touches the database; a username or email
// collision with a different record is a ConflictError.
func (d *Database) RegisterUser(u *User, password string) error {
	if err := validateRegistration(u, password); err != nil {
		return err
	}

	var existing int64
	err := d.db.QueryRow(
		`SELECT id FROM users WHERE (username=? OR email=?) AND id != ?`,
		u.Username, u.Email, u.ID).Scan(&existing)
	switch {
	case err == nil:
		return &ConflictError{Message: "Username or email already exists"}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check identity: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if u.UserType == "" {
		u.UserType = UserTypeReader
	}

	res, err := d.insertUserStmt.Exec(u.Username, u.FullName, u.Email, string(hash), string(u.UserType))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	u.PasswordHash = string(hash)
	return nil
}

// UpdateUser rewrites a user's profile fields. The password is untouched;
// use UpdateUserPassword for that.
func (d *Database) UpdateUser(u *User) error {
	if u.ID == 0 {
		return &NotFoundError{Entity: "user", ID: 0}
	}
	// Reuse the registration rules with a placeholder password so the
	// profile fields get the same checks.
	if err := validateRegistration(u, "unchanged-password"); err != nil {
		return err
	}

	var existing int64
	err := d.db.QueryRow(
		`SELECT id FROM users WHERE (username=? OR email=?) AND id != ?`,
		u.Username, u.Email, u.ID).Scan(&existing)
	switch {
	case err == nil:
		return &ConflictError{Message: "Username or email already exists"}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check identity: %w", err)
	}

	res, err := d.db.Exec(
		`UPDATE users SET username=?, full_name=?, email=?, user_type=? WHERE id=?`,
		u.Username, u.FullName, u.Email, string(u.UserType), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "user", ID: u.ID}
	}
	return nil
}

// GetUser fetches a single user.
func (d *Database) GetUser(id int64) (*User, error) {
	u, err := scanUser(d.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	return u, err
}

// FindUserByUsername fetches a user by username, nil when no match
// exists.
func (d *Database) FindUserByUsername(username string) (*User, error) {
	u, err := scanUser(d.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username=?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// AllUsers returns every user ordered by full name, optionally filtered
// by type.
func (d *Database) AllUsers(userType UserType) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var params []any
	if userType != "" {
		query += ` WHERE user_type=?`
		params = append(params, string(userType))
	}
	query += ` ORDER BY full_name`

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Authenticate verifies a username (or email) and password against the
// stored bcrypt hash.
func (d *Database) Authenticate(usernameOrEmail, password string) (*User, error) {
	u, err := scanUser(d.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username=? OR email=?`,
		usernameOrEmail, usernameOrEmail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateUserPassword replaces a user's password hash.
func (d *Database) UpdateUserPassword(id int64, newPassword string) error {
	if len(newPassword) < 8 {
		return &ValidationError{Messages: []string{"Password must be at least 8 characters long"}}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := d.db.Exec(`UPDATE users SET password=? WHERE id=?`, string(hash), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

// DeleteUser removes a user that has no active loans.
func (d *Database) DeleteUser(id int64) error {
	if _, err := d.GetUser(id); err != nil {
		return err
	}

	var active int
	if err := d.db.QueryRow(
		`SELECT COUNT(*) FROM loans WHERE user_id=? AND return_date IS NULL`, id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return &ReferentialError{Message: fmt.Sprintf("Cannot delete user with %d active loans", active)}
	}

	_, err := d.db.Exec(`DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// UserLoanCounts returns the total and active loan counts for a user.
func (d *Database) UserLoanCounts(userID int64) (total, active int, err error) {
	err = d.db.QueryRow(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE return_date IS NULL) FROM loans WHERE user_id=?`,
		userID).Scan(&total, &active)
	return total, active, err
}
