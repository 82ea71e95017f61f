package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Find(ctx context.Context, telegramID int64) (*models.User, error) {
	const query = `
SELECT telegram_id, stars, points, is_premium, premium_expiry, COALESCE(linked_channel, ''), created_at, updated_at
FROM users WHERE telegram_id = ?`
	row := r.db.QueryRowContext(ctx, query, telegramID)
	var u models.User
	var premium int
	var expiry sql.NullTime
	if err := row.Scan(&u.TelegramID, &u.Stars, &u.Points, &premium, &expiry, &u.LinkedChannel, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.IsPremium = premium != 0
	if expiry.Valid {
		t := expiry.Time
		u.PremiumExpiry = &t
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, telegramID int64) (*models.User, error) {
	const query = `INSERT INTO users (telegram_id) VALUES (?)`
	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		// A concurrent first contact may have created the row already.
		if isDuplicate(err) {
			return r.Find(ctx, telegramID)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.Find(ctx, telegramID)
}

// ExpirePremium clears a stale premium flag. The predicate repeats the
// expiry check so a concurrent charge that just renewed premium is not
// clobbered by a reader holding an old snapshot.
func (r *UserRepository) ExpirePremium(ctx context.Context, telegramID int64) error {
	const query = `
UPDATE users SET is_premium = 0, premium_expiry = NULL, updated_at = NOW()
WHERE telegram_id = ? AND is_premium = 1 AND premium_expiry IS NOT NULL AND premium_expiry < NOW()`
	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("expire premium: %w", err)
	}
	return nil
}

func (r *UserRepository) SetLinkedChannel(ctx context.Context, telegramID int64, channel string) error {
	const query = `UPDATE users SET linked_channel = NULLIF(?, ''), updated_at = NOW() WHERE telegram_id = ?`
	if _, err := r.db.ExecContext(ctx, query, channel, telegramID); err != nil {
		return fmt.Errorf("set linked channel: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearLinkedChannel(ctx context.Context, telegramID int64) error {
	const query = `UPDATE users SET linked_channel = NULL, updated_at = NOW() WHERE telegram_id = ?`
	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("clear linked channel: %w", err)
	}
	return nil
}

func (r *UserRepository) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list telegram ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan telegram id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
