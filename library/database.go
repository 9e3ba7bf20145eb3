package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database provides high-level helpers around a SQLite connection. It is
// constructed explicitly and passed around; there is no package-level
// singleton, so tests run against throwaway files.
type Database struct {
	db *sql.DB

	// loanPeriodDays is added to the loan date to produce the due date.
	loanPeriodDays int

	// now supplies the current time for loan-date math and the
	// date-dependent queries. Tests pin it to a fixed date.
	now func() time.Time

	insertBookStmt *sql.Stmt
	insertUserStmt *sql.Stmt
	insertLoanStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{
		db:             db,
		loanPeriodDays: DefaultLoanPeriodDays,
		now:            time.Now,
	}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// SetLoanPeriod overrides the default 14-day loan period for loans
// created after the call.
func (d *Database) SetLoanPeriod(days int) {
	if days > 0 {
		d.loanPeriodDays = days
	}
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sql.Stmt{d.insertBookStmt, d.insertUserStmt, d.insertLoanStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// today returns the current date at UTC midnight. Loan dates are
// day-granular.
func (d *Database) today() time.Time { return DateOnly(d.now()) }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT,
            genre TEXT,
            publication_year INTEGER,
            total_copies INTEGER NOT NULL DEFAULT 1,
            available_copies INTEGER NOT NULL DEFAULT 1,
            image_path TEXT,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CHECK (total_copies > 0),
            CHECK (available_copies >= 0 AND available_copies <= total_copies)
        );`,
		// Uniqueness only applies to books that actually carry an ISBN.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_books_isbn
            ON books(isbn) WHERE isbn IS NOT NULL AND isbn != '';`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            user_type TEXT NOT NULL DEFAULT 'reader',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            user_id INTEGER NOT NULL REFERENCES users(id),
            loan_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertBookStmt, err = d.db.Prepare(
		`INSERT INTO books(title,author,isbn,genre,publication_year,total_copies,available_copies,image_path)
         VALUES(?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertUserStmt, err = d.db.Prepare(
		`INSERT INTO users(username,full_name,email,password,user_type) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertLoanStmt, err = d.db.Prepare(
		`INSERT INTO loans(book_id,user_id,loan_date,due_date) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	return nil
}
