// Package postgres stores goals in PostgreSQL and fans changes out to other
// processes through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

// NotifyChannel carries the owner id of every changed goal.
const NotifyChannel = "goal_changes"

const schema = `
CREATE TABLE IF NOT EXISTS goals (
    seq         BIGSERIAL,
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    deadline    TEXT,
    status      TEXT NOT NULL DEFAULT 'not-started',
    progress    INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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
	pgPool *pgxpool.Pool
}

var _ store.Backend = (*Backend)(nil)

func NewBackend(logger zerolog.Logger, pgPool *pgxpool.Pool) *Backend {
	return &Backend{
		logger: logger,
		pgPool: pgPool,
	}
}

func (b *Backend) EnsureSchema(ctx context.Context) error {
	_, err := b.pgPool.Exec(ctx, schema)
	if err != nil {
		b.logger.Error().
			Err(err).
			Msg("failed to apply goals schema")
		return fmt.Errorf("apply goals schema: %w", err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, userID string) ([]store.Document, error) {
	const selectGoalsByUserIDQuery = `
SELECT id,
       title,
       description,
       deadline,
       status,
       progress,
       created_at
FROM goals
WHERE user_id = $1
ORDER BY seq
`
	rows, err := b.pgPool.Query(
		ctx,
		selectGoalsByUserIDQuery,
		userID,
	)
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select goals by user id")
		return nil, err
	}
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows, userID)
		if err != nil {
			b.logger.Error().
				Err(err).
				Msg("failed to scan goal")
			return nil, err
		}
		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		b.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	b.logger.Debug().
		Int("count", len(docs)).
		Str("user_id", userID).
		Msg("selected goals by user id")
	return docs, nil
}

func (b *Backend) Get(ctx context.Context, userID, id string) (store.Document, error) {
	const selectGoalQuery = `
SELECT id,
       title,
       description,
       deadline,
       status,
       progress,
       created_at
FROM goals
WHERE id = $1 AND user_id = $2
`
	doc, err := scanDocument(b.pgPool.QueryRow(ctx, selectGoalQuery, id, userID), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	cols, err := store.EncodeColumns(fields, insertFields)
	if err != nil {
		return err
	}

	names := []string{"id"}
	placeholders := []string{"$1"}
	args := []any{id}
	for i, col := range cols {
		names = append(names, col.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, col.Value)
	}
	query := fmt.Sprintf(
		"INSERT INTO goals (%s) VALUES (%s)",
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)

	userID, _ := fields[models.FieldUserID].(string)
	return b.writeAndNotify(ctx, userID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
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
	})
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
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col.Name, i+1))
		args = append(args, col.Value)
	}
	args = append(args, id, userID)
	query := fmt.Sprintf(
		"UPDATE goals SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "),
		len(cols)+1,
		len(cols)+2,
	)

	return b.writeAndNotify(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			b.logger.Error().
				Err(err).
				Str("goal_id", id).
				Msg("failed to update goal")
			return err
		}
		if tag.RowsAffected() == 0 {
			b.logger.Error().
				Str("goal_id", id).
				Str("user_id", userID).
				Msg("goal not found")
			return store.ErrGoalNotFound
		}
		b.logger.Debug().
			Str("goal_id", id).
			Msg("updated goal")
		return nil
	})
}

func (b *Backend) Delete(ctx context.Context, userID, id string) error {
	const deleteGoalQuery = `
DELETE FROM goals
WHERE id = $1 AND user_id = $2
`
	return b.writeAndNotify(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteGoalQuery, id, userID)
		if err != nil {
			b.logger.Error().
				Err(err).
				Str("goal_id", id).
				Msg("failed to delete goal")
			return err
		}
		if tag.RowsAffected() == 0 {
			b.logger.Error().
				Str("goal_id", id).
				Str("user_id", userID).
				Msg("goal not found")
			return store.ErrGoalNotFound
		}
		b.logger.Debug().
			Str("goal_id", id).
			Msg("deleted goal")
		return nil
	})
}

// writeAndNotify runs write in a transaction and queues a notification for
// the owner, which Postgres delivers only if the transaction commits.
func (b *Backend) writeAndNotify(ctx context.Context, userID string, write func(tx pgx.Tx) error) error {
	tx, err := b.pgPool.Begin(ctx)
	if err != nil {
		b.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = write(tx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, userID)
	if err != nil {
		b.logger.Error().
			Err(err).
			Msg("failed to queue goal notification")
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		b.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return err
	}
	return nil
}

func scanDocument(row pgx.Row, userID string) (store.Document, error) {
	var (
		doc         store.Document
		title       string
		description string
		deadline    *string
		status      string
		progress    int
		createdAt   time.Time
	)
	err := row.Scan(
		&doc.ID,
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
	if deadline != nil {
		doc.Fields[models.FieldDeadline] = *deadline
	}
	return doc, nil
}
