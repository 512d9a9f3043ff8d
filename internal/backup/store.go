// Package backup keeps a history of crontab snapshots in SQLite and compares
// them with the live crontab.
package backup

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flemzord/crondeck/internal/crontab"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const (
	defaultBusyTimeout = 5000

	// DefaultFile is the database file name inside the data directory.
	DefaultFile = "backups.db"
)

// ErrNotFound is returned when a backup does not exist.
var ErrNotFound = errors.New("backup: not found")

// Backup is one stored crontab snapshot. Content is empty in List results.
type Backup struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Reason    string    `json:"reason"`
	Checksum  string    `json:"checksum"`
	Size      int       `json:"size"`
	JobCount  int       `json:"job_count"`
	Content   string    `json:"content,omitempty"`
}

// Store is a SQLite-backed snapshot history. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the backup database at path.
//
// The database uses WAL mode, a 5 s busy timeout and a single connection
// (SQLite serialises writes). The schema is migrated automatically.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("backup: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("backup: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backup: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backup: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores content as a new snapshot unless it is identical to the most
// recent one. It returns the stored (or already latest) backup and whether a
// new row was written.
func (s *Store) Save(ctx context.Context, content, reason string) (Backup, bool, error) {
	sum := checksum(content)

	latest, err := s.Latest(ctx)
	switch {
	case err == nil && latest.Checksum == sum:
		return latest, false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Backup{}, false, err
	}

	b := Backup{
		CreatedAt: s.now().UTC(),
		Reason:    reason,
		Checksum:  sum,
		Size:      len(content),
		JobCount:  len(crontab.Parse(content).Jobs),
		Content:   content,
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backups (created_at, reason, checksum, size, job_count, content)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.CreatedAt.Format(time.RFC3339Nano), b.Reason, b.Checksum, b.Size, b.JobCount, b.Content,
	)
	if err != nil {
		return Backup{}, false, fmt.Errorf("backup: save: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return Backup{}, false, fmt.Errorf("backup: save: %w", err)
	}
	return b, true, nil
}

// List returns up to limit backups, newest first, without their content.
// A non-positive limit returns every backup.
func (s *Store) List(ctx context.Context, limit int) ([]Backup, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, reason, checksum, size, job_count, ''
		FROM backups
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("backup: list rows: %w", err)
	}
	return out, nil
}

// Get returns the backup with the given ID, content included.
func (s *Store) Get(ctx context.Context, id int64) (Backup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, reason, checksum, size, job_count, content
		FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return b, err
}

// Latest returns the most recent backup, content included.
func (s *Store) Latest(ctx context.Context) (Backup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, reason, checksum, size, job_count, content
		FROM backups ORDER BY id DESC LIMIT 1`)
	b, err := scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, ErrNotFound
	}
	return b, err
}

// Prune deletes all but the keep most recent backups and returns how many
// were removed. A non-positive keep disables pruning.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM backups
		WHERE id NOT IN (SELECT id FROM backups ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("backup: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("backup: prune: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBackup(sc scanner) (Backup, error) {
	var (
		b       Backup
		created string
	)
	if err := sc.Scan(&b.ID, &created, &b.Reason, &b.Checksum, &b.Size, &b.JobCount, &b.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Backup{}, err
		}
		return Backup{}, fmt.Errorf("backup: scan: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Backup{}, fmt.Errorf("backup: parse created_at %q: %w", created, err)
	}
	b.CreatedAt = t
	return b, nil
}

func checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
