package library

// LibraryStats is a read-side snapshot over books, users and loans. It is
// recomputed on every call; nothing here is cached or stored.
type LibraryStats struct {
	TotalBooks      int `json:"total_books"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	TotalUsers      int `json:"total_users"`
	Readers         int `json:"readers"`
	Librarians      int `json:"librarians"`
	TotalLoans      int `json:"total_loans"`
	ActiveLoans     int `json:"active_loans"`
	OverdueLoans    int `json:"overdue_loans"`
	ReturnedLoans   int `json:"returned_loans"`
}

// Stats aggregates the current library state.
func (d *Database) Stats() (*LibraryStats, error) {
	var s LibraryStats

	err := d.db.QueryRow(`
        SELECT COUNT(*), COALESCE(SUM(total_copies),0), COALESCE(SUM(available_copies),0)
        FROM books`).Scan(&s.TotalBooks, &s.TotalCopies, &s.AvailableCopies)
	if err != nil {
		return nil, err
	}

	err = d.db.QueryRow(`
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE user_type='reader'),
               COUNT(*) FILTER (WHERE user_type='librarian')
        FROM users`).Scan(&s.TotalUsers, &s.Readers, &s.Librarians)
	if err != nil {
		return nil, err
	}

	err = d.db.QueryRow(`
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE return_date IS NULL),
               COUNT(*) FILTER (WHERE return_date IS NULL AND due_date < ?),
               COUNT(*) FILTER (WHERE return_date IS NOT NULL)
        FROM loans`, d.today()).Scan(&s.TotalLoans, &s.ActiveLoans, &s.OverdueLoans, &s.ReturnedLoans)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
