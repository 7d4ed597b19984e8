package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/use-agent/cataloger/models"

	_ "modernc.org/sqlite"
)

// SQLite appends batches to a table in a local database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// The driver serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Name() string { return NameSQLite }

// Write implements Sink. destination is the table name, default "products".
// The batch is inserted in a single transaction; position keeps page order.
func (s *SQLite) Write(ctx context.Context, destination string, batch models.ExtractionBatch) error {
	table, err := tableName(destination)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		harvested_at TEXT    NOT NULL,
		position     INTEGER NOT NULL,
		brand        TEXT    NOT NULL,
		model        TEXT    NOT NULL,
		price        TEXT    NOT NULL
	)`, table))
	if err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (harvested_at, position, brand, model, price) VALUES (?, ?, ?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, r := range batch {
		if _, err := stmt.ExecContext(ctx, now, i, r.Brand, r.Model, r.Price); err != nil {
			return fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
