package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps conversation rows in a SQLite database
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the index database at dbPath
func Open(dbPath string) (*Store, error) {
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid database path")
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600) // #nosec G304 - Path validated above
	if err != nil {
		return nil, errors.NewIOError("create database", dbPath, err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewIOError("close database", dbPath, err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Wrap(fmt.Errorf("%w (close error: %v)", err, closeErr), errors.ErrCodeIO, "failed to ping database")
		}
		return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to ping database")
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Wrap(fmt.Errorf("%w (close error: %v)", err, closeErr), errors.ErrCodeIO, "failed to initialize schema")
		}
		return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to initialize schema")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveConversations stores the rows of one run. A conversation directory
// already present from an earlier run is replaced.
func (s *Store) SaveConversations(ctx context.Context, runID string, rows []Row) error {
	return retryableDBOperation(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversations (
				run_id, directory, phone_numbers, names,
				first_timestamp, last_timestamp, entries, path
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(directory) DO UPDATE SET
				run_id = excluded.run_id,
				phone_numbers = excluded.phone_numbers,
				names = excluded.names,
				first_timestamp = excluded.first_timestamp,
				last_timestamp = excluded.last_timestamp,
				entries = excluded.entries,
				path = excluded.path
		`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				runID,
				row.Directory,
				strings.Join(row.PhoneNumbers, ","),
				strings.Join(row.Names, ","),
				row.First.UTC(),
				row.Last.UTC(),
				row.Entries,
				row.Path,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	}, "save conversations")
}

// Conversations returns every stored row ordered by directory
func (s *Store) Conversations(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT directory, phone_numbers, names, first_timestamp, last_timestamp, entries, path
		FROM conversations
		ORDER BY directory
	`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to query conversations")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var numbers, names string
		if err := rows.Scan(&row.Directory, &numbers, &names, &row.First, &row.Last, &row.Entries, &row.Path); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to scan conversation")
		}
		row.PhoneNumbers = splitList(numbers)
		row.Names = splitList(names)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to iterate conversations")
	}
	return out, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
