// Package sqlite stores goals in a single SQLite table. Dates come back as
// ISO strings, which the sync session parses on arrival.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS goals (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	deadline    TEXT,
	status      TEXT NOT NULL DEFAULT 'not-started',
	progress    INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS goals_user_id_idx ON goals (user_id);
`

var insertFields = []string{
	models.FieldUserID,
	models.FieldTitle,
	models.FieldDescription,
	models.FieldDeadline,
	models.FieldStatus,
	models.FieldProgress,
	models.FieldCreatedAt,
}

type Backend struct {
	logger zerolog.Logger
	db     *sql.DB
}

var _ store.Backend = (*Backend)(nil)

// Open creates the database file if needed and applies the schema.
func Open(logger zerolog.Logger, path string) (*Backend, error) {
	if path == "" {
		path = "goals.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info().
		Str("path", path).
		Msg("opened sqlite goal store")
	return &Backend{logger: logger, db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) List(ctx context.Context, userID string) ([]store.Document, error) {
	const selectGoalsQuery = `
SELECT id,
       user_id,
       title,
       description,
       deadline,
       status,
       progress,
       created_at
FROM goals
WHERE user_id = ?
ORDER BY rowid
`
	rows, err := b.db.QueryContext(ctx, selectGoalsQuery, userID)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select goals")
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]store.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			b.logger.Error().
				Err(err).
				Msg("failed to scan goal")
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		b.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return docs, nil
}

func (b *Backend) Get(ctx context.Context, userID, id string) (store.Document, error) {
	const selectGoalQuery = `
SELECT id,
       user_id,
       title,
       description,
       deadline,
       status,
       progress,
       created_at
FROM goals
WHERE id = ? AND user_id = ?
`
	doc, err := scanDocument(b.db.QueryRowContext(ctx, selectGoalQuery, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, store.ErrGoalNotFound
		}
		b.logger.Error().
			Err(err).
			Str("goal_id", id).
			Msg("failed to select goal")
		return store.Document{}, err
	}
	return doc, nil
}

func (b *Backend) Insert(ctx context.Context, id string, fields store.Fields) error {
	if _, ok := fields[models.FieldCreatedAt]; !ok {
		fields = fields.Clone()
		fields[models.FieldCreatedAt] = time.Now().UTC()
	}

	cols, err := store.EncodeColumns(fields, insertFields)
	if err != nil {
		return err
	}

	names := []string{"id"}
	args := []any{id}
	for _, col := range cols {
		names = append(names, col.Name)
		if t, ok := col.Value.(time.Time); ok {
			col.Value = t.Format(time.RFC3339Nano)
		}
		args = append(args, col.Value)
	}
	query := fmt.Sprintf(
		"INSERT INTO goals (%s) VALUES (%s)",
		strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "),
	)

	_, err = b.db.ExecContext(ctx, query, args...)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("goal_id", id).
			Msg("failed to insert goal")
		return err
	}
	b.logger.Debug().
		Str("goal_id", id).
		Msg("inserted goal")
	return nil
}

func (b *Backend) Update(ctx context.Context, userID, id string, fields store.Fields) error {
	cols, err := store.EncodeColumns(fields, store.UpdatableFields)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: empty update", store.ErrInvalidField)
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+2)
	for _, col := range cols {
		sets = append(sets, col.Name+" = ?")
		args = append(args, col.Value)
	}
	args = append(args, id, userID)
	query := fmt.Sprintf(
		"UPDATE goals SET %s WHERE id = ? AND user_id = ?",
		strings.Join(sets, ", "),
	)

	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("goal_id", id).
			Msg("failed to update goal")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrGoalNotFound
	}
	b.logger.Debug().
		Str("goal_id", id).
		Msg("updated goal")
	return nil
}

func (b *Backend) Delete(ctx context.Context, userID, id string) error {
	const deleteGoalQuery = `
DELETE FROM goals
WHERE id = ? AND user_id = ?
`
	res, err := b.db.ExecContext(ctx, deleteGoalQuery, id, userID)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("goal_id", id).
			Msg("failed to delete goal")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrGoalNotFound
	}
	b.logger.Debug().
		Str("goal_id", id).
		Msg("deleted goal")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (store.Document, error) {
	var (
		doc         store.Document
		userID      string
		title       string
		description string
		deadline    sql.NullString
		status      string
		progress    int
		createdAt   string
	)
	err := row.Scan(
		&doc.ID,
		&userID,
		&title,
		&description,
		&deadline,
		&status,
		&progress,
		&createdAt,
	)
	if err != nil {
		return store.Document{}, err
	}

	doc.Fields = store.Fields{
		models.FieldUserID:      userID,
		models.FieldTitle:       title,
		models.FieldDescription: description,
		models.FieldStatus:      status,
		models.FieldProgress:    progress,
		models.FieldCreatedAt:   createdAt,
	}
	if deadline.Valid {
		doc.Fields[models.FieldDeadline] = deadline.String
	}
	return doc, nil
}
