package storage

// Summary is the stored snapshot's shape at a glance, backing the list
// command.
type Summary struct {
	Charts          int
	Results         int
	PreviousResults int
	Profiles        int
	LastUpdatedOn   string
	ImportedAt      string
	ImportRunID     string
}

// Summarize reads the snapshot counters without materializing the snapshot.
func (db *DB) Summarize() (*Summary, error) {
	s := &Summary{}
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(1) FROM charts", &s.Charts},
		{"SELECT COUNT(1) FROM results WHERE is_previous = 0", &s.Results},
		{"SELECT COUNT(1) FROM results WHERE is_previous = 1", &s.PreviousResults},
		{"SELECT COUNT(1) FROM profiles", &s.Profiles},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	meta, err := db.readMeta()
	if err != nil {
		return nil, err
	}
	s.LastUpdatedOn = meta[metaLastUpdatedOn]
	s.ImportedAt = meta[metaImportedAt]
	s.ImportRunID = meta[metaImportRunID]
	return s, nil
}
