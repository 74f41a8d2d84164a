package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/d1337/sandboxd/internal/apperror"
	"github.com/d1337/sandboxd/internal/model"
	"github.com/d1337/sandboxd/internal/repository"
)

// Compile-time check that *DB satisfies the repository interface.
var _ repository.ExecutionRepository = (*DB)(nil)

// Create inserts an execution record, assigning its ID and timestamp.
func (db *DB) Create(ctx context.Context, rec *model.ExecutionRecord) error {
	rec.ID = xid.New().String()
	rec.CreatedAt = time.Now().UTC()

	timedOut := 0
	if rec.TimedOut {
		timedOut = 1
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO executions (id, command, profile, exit_code, timed_out, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Command, rec.Profile, rec.ExitCode, timedOut, rec.DurationMS, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting execution record: %w", err)
	}
	return nil
}

// GetByID fetches a single execution record.
func (db *DB) GetByID(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, command, profile, exit_code, timed_out, duration_ms, error, created_at
		FROM executions WHERE id = ?`, id)

	rec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("execution", id)
		}
		return nil, fmt.Errorf("querying execution %s: %w", id, err)
	}
	return rec, nil
}

// List returns execution records, newest first.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.ExecutionRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, command, profile, exit_code, timed_out, duration_ms, error, created_at
		FROM executions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()

	var records []model.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return records, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(s scanner) (*model.ExecutionRecord, error) {
	var rec model.ExecutionRecord
	var timedOut int
	if err := s.Scan(
		&rec.ID, &rec.Command, &rec.Profile, &rec.ExitCode,
		&timedOut, &rec.DurationMS, &rec.Error, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.TimedOut = timedOut != 0
	return &rec, nil
}
