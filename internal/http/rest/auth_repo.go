package rest

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCode         = errors.New("verification code is invalid or expired")
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid or expired")
)

const userColumns = `id, email, firstname, lastname, phone, role, office_code, auth_provider, is_verified, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Role,
		&user.OfficeCode,
		&user.AuthProvider,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return user, err
}

func (api *API) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	stmt := `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`

	err := api.DB.QueryRow(ctx, stmt, email).Scan(&exists)
	if err != nil {
		logger.Error("error checking email", zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (api *API) CreateNewUserRepo(ctx context.Context, req model.User) error {
	stmt := `
        INSERT INTO users (
            id,
            email,
            firstname,
            lastname,
            auth_provider,
            is_verified
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := api.DB.Exec(ctx, stmt, req.ID, req.Email, req.FirstName, req.LastName, req.AuthProvider, req.IsVerified)
	if err != nil {
		logger.Error("error creating new user", zap.Error(err))
		return err
	}
	return nil
}

func (api *API) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	stmt := `-- name: get-user-by-email
		SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	return scanUser(api.DB.QueryRow(ctx, stmt, email))
}

func (api *API) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	stmt := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(api.DB.QueryRow(ctx, stmt, userID))
}

func (api *API) StoreVerificationCode(ctx context.Context, userID string, email string, code string, tokenType string, expiresAt time.Time) error {
	stmt := `
        INSERT INTO email_verifications (user_id, email, verification_code, type, expires_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := api.DB.Exec(ctx, stmt, userID, email, code, tokenType, expiresAt)
	if err != nil {
		logger.Error("error storing verification code", zap.Error(err))
	}
	return err
}

// maxCodeAttempts is how many wrong guesses a code survives.
const maxCodeAttempts = 5

// VerifyCodeRepo checks code against the newest live code for the email and
// consumes it on a match. Each miss counts against that code, and a code with
// maxCodeAttempts misses is dead even for the right digits.
func (api *API) VerifyCodeRepo(ctx context.Context, code string, tokenType string, email string) (string, error) {
	var userID string
	matched := false
	err := api.Deps.DB.RunInTx(ctx, func(tx pgx.Tx) error {
		var (
			id       int64
			stored   string
			attempts int
		)
		stmt := `
            SELECT id, user_id, verification_code, attempts
            FROM email_verifications
            WHERE type = $1 AND lower(email) = lower($2)
              AND used = FALSE AND expires_at > NOW()
            ORDER BY created_at DESC, id DESC
            LIMIT 1
            FOR UPDATE
        `
		err := tx.QueryRow(ctx, stmt, tokenType, email).Scan(&id, &userID, &stored, &attempts)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidCode
			}
			return err
		}
		if attempts >= maxCodeAttempts {
			return ErrInvalidCode
		}

		if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
			_, err := tx.Exec(ctx, `UPDATE email_verifications SET attempts = attempts + 1 WHERE id = $1`, id)
			return err
		}
		matched = true
		_, err = tx.Exec(ctx, `UPDATE email_verifications SET used = TRUE WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return "", err
	}
	if !matched {
		return "", ErrInvalidCode
	}
	return userID, nil
}

func (api *API) UpdateEmailVerifiedStatus(ctx context.Context, userID string) error {
	stmt := `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`

	_, err := api.DB.Exec(ctx, stmt, userID)
	if err != nil {
		logger.Error("error updating email verification status", zap.Error(err))
		return err
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// storeRefreshToken keeps a digest of the refresh token, never the token itself.
func storeRefreshToken(ctx context.Context, q querier, userID, token string, expiresAt time.Time) error {
	query := `
        INSERT INTO auth_tokens (user_id, token_type, token_value, expires_at, created_at)
        VALUES ($1, 'refresh', $2, $3, NOW())
    `
	_, err := q.Exec(ctx, query, userID, hashToken(token), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// consumeRefreshToken revokes a live refresh token and reports its owner.
func consumeRefreshToken(ctx context.Context, q querier, token string) (string, error) {
	query := `
        UPDATE auth_tokens
        SET is_revoked = TRUE
        WHERE token_value = $1 AND token_type = 'refresh' AND is_revoked = FALSE AND expires_at > NOW()
        RETURNING user_id
    `
	var userID string
	err := q.QueryRow(ctx, query, hashToken(token)).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRefreshTokenInvalid
		}
		return "", err
	}
	return userID, nil
}

func (api *API) RevokeRefreshToken(ctx context.Context, token string) error {
	query := `
        UPDATE auth_tokens
        SET is_revoked = TRUE
        WHERE token_value = $1
    `
	_, err := api.DB.Exec(ctx, query, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}
