package grant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Sentinel errors for grant store operations.
var (
	ErrDuplicateGrant = errors.New("grant: root URI already granted")
	ErrGrantNotFound  = errors.New("grant: not found")
)

// dbDirPerms is used when creating the directory holding the database.
const dbDirPerms = 0o700

// SQL statements for grant operations.
const (
	sqlListGrants = `SELECT id, root_uri, label, granted_at FROM grants ORDER BY seq`

	sqlGrantExists = `SELECT 1 FROM grants WHERE root_uri = ?`

	sqlInsertGrant = `INSERT INTO grants (id, root_uri, label, granted_at) VALUES (?, ?, ?, ?)`

	sqlDeleteGrant = `DELETE FROM grants WHERE id = ?`
)

// Store persists grants in a SQLite database so they survive process
// restarts. Grants are returned in the order they were added.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// OpenStore opens (creating if needed) the grant database at dbPath and
// applies migrations.
func OpenStore(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), dbDirPerms); err != nil {
		return nil, fmt.Errorf("grant: creating database directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("grant: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("grant store ready", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Grants implements Source.
func (s *Store) Grants(ctx context.Context) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx, sqlListGrants)
	if err != nil {
		return nil, fmt.Errorf("grant: listing grants: %w", err)
	}
	defer rows.Close()

	var out []Grant

	for rows.Next() {
		var (
			g         Grant
			grantedAt int64
		)

		if err := rows.Scan(&g.ID, &g.RootURI, &g.Label, &grantedAt); err != nil {
			return nil, fmt.Errorf("grant: scanning grant row: %w", err)
		}

		g.GrantedAt = time.Unix(0, grantedAt).UTC()
		out = append(out, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grant: iterating grant rows: %w", err)
	}

	return out, nil
}

// Add records a new grant for rootURI and returns it. Granting the same
// root URI twice fails with ErrDuplicateGrant.
func (s *Store) Add(ctx context.Context, rootURI, label string) (Grant, error) {
	if err := ValidateRootURI(rootURI); err != nil {
		return Grant{}, err
	}

	g := Grant{
		ID:        uuid.NewString(),
		RootURI:   rootURI,
		Label:     strings.TrimSpace(label),
		GrantedAt: s.nowFunc().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Grant{}, fmt.Errorf("grant: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int

	err = tx.QueryRowContext(ctx, sqlGrantExists, rootURI).Scan(&exists)
	switch {
	case err == nil:
		return Grant{}, fmt.Errorf("%w: %s", ErrDuplicateGrant, rootURI)
	case !errors.Is(err, sql.ErrNoRows):
		return Grant{}, fmt.Errorf("grant: checking for existing grant: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlInsertGrant, g.ID, g.RootURI, g.Label, g.GrantedAt.UnixNano()); err != nil {
		return Grant{}, fmt.Errorf("grant: inserting grant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Grant{}, fmt.Errorf("grant: committing grant: %w", err)
	}

	s.logger.Info("grant added",
		slog.String("grant_id", g.ID), slog.String("root_uri", g.RootURI))

	return g, nil
}

// Remove revokes the grant with the given ID.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, sqlDeleteGrant, id)
	if err != nil {
		return fmt.Errorf("grant: deleting grant %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grant: deleting grant %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrGrantNotFound, id)
	}

	s.logger.Info("grant removed", slog.String("grant_id", id))

	return nil
}
