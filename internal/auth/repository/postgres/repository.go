package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/judovisa/auth-service/internal/auth/domain"
	autherror "github.com/judovisa/auth-service/internal/errors"
)

// PgxIface is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresRepository struct {
	db PgxIface
}

func NewPostgresRepository(db PgxIface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password_hash, role, login_attempts, lock_until,
	       password_reset_token, password_reset_expires, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role,
		&user.LoginAttempts, &user.LockUntil, &user.PasswordResetToken,
		&user.PasswordResetExpires, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 AND is_active = TRUE
		LIMIT 1;
	`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) CreateWithPerson(ctx context.Context, user *domain.User, person *domain.Person) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Username, user.PasswordHash, user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return normalizeUniqueViolation(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO persons (id, user_id, display_name, first_name, last_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, person.ID, person.UserID, person.DisplayName, person.FirstName, person.LastName,
		person.Email, person.CreatedAt, person.UpdatedAt)
	if err != nil {
		return normalizeUniqueViolation(err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetPersonByUserID(ctx context.Context, userID string) (*domain.Person, error) {
	query := `
		SELECT id, user_id, display_name, first_name, last_name, email, created_at, updated_at
		FROM persons
		WHERE user_id = $1
		LIMIT 1;
	`
	return scanPerson(r.db.QueryRow(ctx, query, userID))
}

func (r *PostgresRepository) GetPersonByEmail(ctx context.Context, email string) (*domain.Person, error) {
	query := `
		SELECT id, user_id, display_name, first_name, last_name, email, created_at, updated_at
		FROM persons
		WHERE email = $1
		LIMIT 1;
	`
	return scanPerson(r.db.QueryRow(ctx, query, email))
}

func scanPerson(row pgx.Row) (*domain.Person, error) {
	var p domain.Person
	err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.FirstName, &p.LastName,
		&p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan person: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpdateUsername(ctx context.Context, userID, username string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET username = $2, updated_at = now() WHERE id = $1
	`, userID, username)
	return normalizeUniqueViolation(err)
}

func (r *PostgresRepository) UpdatePerson(ctx context.Context, userID string, update domain.PersonUpdate) error {
	_, err := r.db.Exec(ctx, `
		UPDATE persons
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    email      = COALESCE($4, email),
		    updated_at = now()
		WHERE user_id = $1
	`, userID, update.FirstName, update.LastName, update.Email)
	return normalizeUniqueViolation(err)
}

func (r *PostgresRepository) UpdateLoginAttempts(ctx context.Context, userID string, attempts int, lockUntil *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET login_attempts = $2, lock_until = $3, updated_at = now() WHERE id = $1
	`, userID, attempts, lockUntil)
	return err
}

func (r *PostgresRepository) ResetLoginAttempts(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET login_attempts = 0, lock_until = NULL, updated_at = now() WHERE id = $1
	`, userID)
	return err
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken, max int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, created_at)
		VALUES ($1, $2, $3, $4)
	`, rt.ID, rt.UserID, rt.Token, rt.CreatedAt)
	if err != nil {
		return err
	}

	// FIFO eviction: keep only the newest max tokens.
	_, err = tx.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
		  AND id NOT IN (
			SELECT id FROM refresh_tokens
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		  )
	`, rt.UserID, max)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetRefreshToken(ctx context.Context, userID, token string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND token = $2
		LIMIT 1;
	`
	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, query, userID, token).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &rt, nil
}

func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, userID, oldToken string, newToken *domain.RefreshToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2
	`, userID, oldToken)
	if err != nil {
		return err
	}
	// The old token was already rotated out (replay, or a lost concurrent
	// race): reject the whole rotation.
	if tag.RowsAffected() == 0 {
		return autherror.ErrInvalidSession
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, created_at)
		VALUES ($1, $2, $3, $4)
	`, newToken.ID, newToken.UserID, newToken.Token, newToken.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) DeleteRefreshToken(ctx context.Context, userID, token string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2
	`, userID, token)
	return err
}

func (r *PostgresRepository) DeleteAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1
	`, userID)
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET password_reset_token = $2, password_reset_expires = $3, updated_at = now() WHERE id = $1
	`, userID, tokenHash, expires)
	return err
}

func (r *PostgresRepository) ClearPasswordResetToken(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = now() WHERE id = $1
	`, userID)
	return err
}

func (r *PostgresRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE password_reset_token = $1
		  AND password_reset_expires > now()
		  AND is_active = TRUE
		LIMIT 1;
	`
	return scanUser(r.db.QueryRow(ctx, query, tokenHash))
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $2,
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, userID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Tombstone the username so it can be registered again.
	_, err = tx.Exec(ctx, `
		UPDATE users
		SET is_active = FALSE,
		    username = 'deleted_' || id,
		    login_attempts = 0,
		    lock_until = NULL,
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    updated_at = now()
		WHERE id = $1
	`, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) Purge(ctx context.Context, userID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM scores WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM persons WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, username, event, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.UserID, entry.Username, entry.Event,
		entry.IPAddress, entry.UserAgent, entry.Details, entry.CreatedAt)
	return err
}

// normalizeUniqueViolation maps 23505 on the username/email indexes into the
// error taxonomy so handlers never leak SQLSTATE details.
func normalizeUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return autherror.ErrUsernameTaken
		case "persons_email_key":
			return autherror.ErrEmailTaken
		}
	}
	return err
}
