package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tappy-heartful/streak-navi-sub000/internal/model"
)

// TokenRepo persists refresh tokens for member sessions.  Only the
// SHA-256 hash of a token is stored; possession of the raw value is what
// authenticates a refresh.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// ErrTokenInvalid covers every rejected refresh: unknown hash, revoked,
// expired, or a deactivated member account.  Callers only need to know
// the session cannot be continued.
var ErrTokenInvalid = errors.New("invalid refresh token")

// StoreRefresh records a new session token hash for the member.
func (r *TokenRepo) StoreRefresh(ctx context.Context, memberID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (member_id, token_hash, expires_at) VALUES (?,?,?)",
		memberID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the owning member's ID when the token exists,
// is neither revoked nor expired, and the member account is still
// active.  Deactivating a member therefore ends their sessions at the
// next refresh without touching the token rows.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		tok    model.RefreshToken
		active bool
	)
	var revoked sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		`SELECT t.member_id, t.expires_at, t.revoked_at, m.is_active
         FROM refresh_tokens t
         JOIN members m ON m.id = t.member_id
         WHERE t.token_hash = ? LIMIT 1`,
		tokenHash).Scan(&tok.MemberID, &tok.ExpiresAt, &revoked, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		return 0, err
	}
	if revoked.Valid {
		tok.RevokedAt = &revoked.Time
	}
	if tok.RevokedAt != nil || !active || time.Now().UTC().After(tok.ExpiresAt) {
		return 0, ErrTokenInvalid
	}
	return tok.MemberID, nil
}

// RevokeByHash ends the single session identified by the token hash.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForMember ends every live session of the member, across devices.
func (r *TokenRepo) RevokeAllForMember(ctx context.Context, memberID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE member_id=? AND revoked_at IS NULL",
		memberID)
	return err
}
