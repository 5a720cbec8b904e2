package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Postgres reads the directory_users table maintained by the HR sync.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) ResolveApprovers(ctx context.Context, designationID string) ([]string, error) {
	if designationID == "" {
		return nil, ErrDesignationRequired
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT id FROM directory_users WHERE designation_id = $1 AND active ORDER BY id", designationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query directory users: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	ids := make([]string, 0)

	for rows.Next() {
		var id string

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory user: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating directory users: %w", err)
	}

	return normalize(ids), nil
}

// EmailOf returns the e-mail address of the user, empty when unknown.
func (p *Postgres) EmailOf(ctx context.Context, userID string) (string, error) {
	var email sql.NullString

	err := p.db.QueryRowContext(ctx, "SELECT email FROM directory_users WHERE id = $1", userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("failed to query directory user: %w", err)
	}

	return email.String, nil
}

// Upsert writes a directory entry.
func (p *Postgres) Upsert(ctx context.Context, user User) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO directory_users (id, email, designation_id, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			designation_id = EXCLUDED.designation_id,
			active = EXCLUDED.active
	`, user.ID, user.Email, user.DesignationID, user.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert directory user: %w", err)
	}

	return nil
}
