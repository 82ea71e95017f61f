package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

type GiveawayRepository struct {
	db *sql.DB
}

func NewGiveawayRepository(db *sql.DB) *GiveawayRepository {
	return &GiveawayRepository{db: db}
}

func (r *GiveawayRepository) Create(ctx context.Context, g *models.Giveaway) (int64, error) {
	const query = `
INSERT INTO giveaways (creator_id, body, target_channel, condition_channel, winner_count, is_active)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, 1)`
	res, err := r.db.ExecContext(ctx, query, g.CreatorID, g.Body, g.TargetChannel, g.ConditionChannel, g.WinnerCount)
	if err != nil {
		return 0, fmt.Errorf("insert giveaway: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("giveaway last insert id: %w", err)
	}
	g.ID = id
	return id, nil
}

// Delete removes the giveaway; participants and winners follow via cascade.
func (r *GiveawayRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM giveaways WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete giveaway: %w", err)
	}
	return nil
}

func (r *GiveawayRepository) SetPosted(ctx context.Context, id, chatID int64, messageID int) error {
	const query = `UPDATE giveaways SET posted_chat_id = ?, posted_message_id = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, chatID, messageID, id); err != nil {
		return fmt.Errorf("set posted ref: %w", err)
	}
	return nil
}

func (r *GiveawayRepository) Find(ctx context.Context, id int64) (*models.Giveaway, error) {
	const query = `
SELECT id, creator_id, body, COALESCE(target_channel, ''), COALESCE(condition_channel, ''),
       winner_count, is_active, posted_chat_id, posted_message_id, drawn_at, created_at
FROM giveaways WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanGiveaway(row)
}

// ToggleActive flips the collecting flag. Drawn giveaways are terminal and
// never flip back. Returns the refreshed row, nil when absent or closed.
func (r *GiveawayRepository) ToggleActive(ctx context.Context, id, creatorID int64) (*models.Giveaway, error) {
	const query = `
UPDATE giveaways SET is_active = 1 - is_active
WHERE id = ? AND creator_id = ? AND drawn_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, creatorID)
	if err != nil {
		return nil, fmt.Errorf("toggle active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("toggle rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.Find(ctx, id)
}

func (r *GiveawayRepository) AddParticipant(ctx context.Context, p *models.Participant) error {
	const query = `
INSERT INTO participants (giveaway_id, user_id, username, full_name)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''))`
	res, err := r.db.ExecContext(ctx, query, p.GiveawayID, p.UserID, p.Username, p.FullName)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

func (r *GiveawayRepository) Participants(ctx context.Context, giveawayID int64) ([]models.Participant, error) {
	const query = `
SELECT id, giveaway_id, user_id, COALESCE(username, ''), COALESCE(full_name, ''), joined_at
FROM participants WHERE giveaway_id = ? ORDER BY joined_at, id`
	rows, err := r.db.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.GiveawayID, &p.UserID, &p.Username, &p.FullName, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *GiveawayRepository) CountParticipants(ctx context.Context, giveawayID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM participants WHERE giveaway_id = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, giveawayID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// CompleteDraw records the winner set and closes the giveaway in one
// transaction. The drawn_at guard makes the second of two concurrent draw
// triggers lose cleanly: it commits nothing and returns false.
func (r *GiveawayRepository) CompleteDraw(ctx context.Context, giveawayID int64, winners []models.Winner) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin draw tx: %w", err)
	}
	defer tx.Rollback()

	const closeStmt = `
UPDATE giveaways SET is_active = 0, drawn_at = NOW()
WHERE id = ? AND drawn_at IS NULL`
	res, err := tx.ExecContext(ctx, closeStmt, giveawayID)
	if err != nil {
		return false, fmt.Errorf("close giveaway: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const insert = `
INSERT INTO giveaway_winners (giveaway_id, user_id, username, full_name, position)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`
	for i := range winners {
		w := &winners[i]
		res, err := tx.ExecContext(ctx, insert, w.GiveawayID, w.UserID, w.Username, w.FullName, w.Position)
		if err != nil {
			return false, fmt.Errorf("insert winner: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			w.ID = id
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit draw tx: %w", err)
	}
	return true, nil
}

func (r *GiveawayRepository) Winners(ctx context.Context, giveawayID int64) ([]models.Winner, error) {
	const query = `
SELECT id, giveaway_id, user_id, COALESCE(username, ''), COALESCE(full_name, ''), position, created_at
FROM giveaway_winners WHERE giveaway_id = ? ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	defer rows.Close()

	var winners []models.Winner
	for rows.Next() {
		var w models.Winner
		if err := rows.Scan(&w.ID, &w.GiveawayID, &w.UserID, &w.Username, &w.FullName, &w.Position, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}

func scanGiveaway(row *sql.Row) (*models.Giveaway, error) {
	var g models.Giveaway
	var active int
	var drawnAt sql.NullTime
	err := row.Scan(&g.ID, &g.CreatorID, &g.Body, &g.TargetChannel, &g.ConditionChannel,
		&g.WinnerCount, &active, &g.PostedChatID, &g.PostedMessageID, &drawnAt, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan giveaway: %w", err)
	}
	g.IsActive = active != 0
	if drawnAt.Valid {
		t := drawnAt.Time
		g.DrawnAt = &t
	}
	return &g, nil
}
