package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/use-agent/cataloger/models"
)

// Postgres appends batches to a table through a connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates the pool. No connection is made until the first write.
func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Name() string { return NamePostgres }

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Write implements Sink. destination is the table name, default "products".
func (s *Postgres) Write(ctx context.Context, destination string, batch models.ExtractionBatch) error {
	name, err := tableName(destination)
	if err != nil {
		return err
	}
	table := pgx.Identifier{name}.Sanitize()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
		id           BIGSERIAL PRIMARY KEY,
		harvested_at TIMESTAMPTZ NOT NULL,
		position     INTEGER     NOT NULL,
		brand        TEXT        NOT NULL,
		model        TEXT        NOT NULL,
		price        TEXT        NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("postgres: create table %s: %w", name, err)
	}

	now := time.Now().UTC()
	b := &pgx.Batch{}
	for i, r := range batch {
		b.Queue(`INSERT INTO `+table+` (harvested_at, position, brand, model, price) VALUES ($1, $2, $3, $4, $5)`,
			now, i, r.Brand, r.Model, r.Price)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}
