package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for an imported file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// RecordSource remembers that fp was imported with n features.
func (s *Store) RecordSource(fp FileFingerprint, n int) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sources (path, size, mod_time, features) VALUES (?, ?, ?, ?)`,
		fp.Path, fp.Size, storedTime(fp.ModTime), int64(n))
	if err != nil {
		return fmt.Errorf("record source %s: %w", fp.Path, err)
	}
	return nil
}

// SourceUpToDate reports whether fp matches the last recorded import of
// the same path.
func (s *Store) SourceUpToDate(fp FileFingerprint) (bool, error) {
	var size int64
	var mod time.Time
	err := s.db.QueryRow(`SELECT size, mod_time FROM sources WHERE path = ?`, fp.Path).Scan(&size, &mod)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source %s: %w", fp.Path, err)
	}
	return size == fp.Size && mod.Equal(storedTime(fp.ModTime)), nil
}

// storedTime rounds t to the microsecond precision of a DuckDB TIMESTAMP.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
