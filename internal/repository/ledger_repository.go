package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

// LedgerRepository holds the multi-statement balance mutations. Each public
// method is one transaction: either every row lands or none do.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ApplyCharge debits the selected balance and records the completed payment.
// Returns false without writing anything when the balance cannot cover the
// amount; the conditional UPDATE makes concurrent charges serialize on the
// row so only affordable ones succeed.
func (r *LedgerRepository) ApplyCharge(ctx context.Context, payment *models.Payment, premiumExpiry *time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin charge tx: %w", err)
	}
	defer tx.Rollback()

	column := "stars"
	if payment.Currency == models.CurrencyPoints {
		column = "points"
	}
	debit := fmt.Sprintf(`
UPDATE users SET %[1]s = %[1]s - ?, updated_at = NOW()
WHERE telegram_id = ? AND %[1]s >= ?`, column)
	res, err := tx.ExecContext(ctx, debit, payment.Amount, payment.UserID, payment.Amount)
	if err != nil {
		return false, fmt.Errorf("debit %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if premiumExpiry != nil {
		const upgrade = `
UPDATE users SET is_premium = 1, premium_expiry = ?, updated_at = NOW()
WHERE telegram_id = ?`
		if _, err := tx.ExecContext(ctx, upgrade, *premiumExpiry, payment.UserID); err != nil {
			return false, fmt.Errorf("set premium: %w", err)
		}
	}

	const insert = `
INSERT INTO payments (user_id, kind, currency, amount, is_completed, completed_at)
VALUES (?, ?, ?, ?, 1, NOW())`
	res, err = tx.ExecContext(ctx, insert, payment.UserID, payment.Kind, payment.Currency, payment.Amount)
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		payment.ID = id
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit charge tx: %w", err)
	}
	return true, nil
}

// ApplyDonation credits the donor's stars and records the donation row.
// Returns false when the charge reference was already recorded, so a
// redelivered payment confirmation cannot double-credit.
func (r *LedgerRepository) ApplyDonation(ctx context.Context, donation *models.Donation) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin donation tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
INSERT INTO donations (donor_id, amount, charge_ref)
VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, insert, donation.DonorID, donation.Amount, donation.ChargeRef)
	if err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert donation: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		donation.ID = id
	}

	const credit = `UPDATE users SET stars = stars + ?, updated_at = NOW() WHERE telegram_id = ?`
	if _, err := tx.ExecContext(ctx, credit, donation.Amount, donation.DonorID); err != nil {
		return false, fmt.Errorf("credit stars: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit donation tx: %w", err)
	}
	return true, nil
}

// ApplyPointAdjustment applies the delta and appends the audit row. Returns
// false when a negative delta would take the balance below zero.
func (r *LedgerRepository) ApplyPointAdjustment(ctx context.Context, txn *models.PointTransaction) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin points tx: %w", err)
	}
	defer tx.Rollback()

	const adjust = `
UPDATE users SET points = points + ?, updated_at = NOW()
WHERE telegram_id = ? AND points + ? >= 0`
	res, err := tx.ExecContext(ctx, adjust, txn.Delta, txn.UserID, txn.Delta)
	if err != nil {
		return false, fmt.Errorf("adjust points: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("points rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const insert = `
INSERT INTO point_transactions (admin_id, user_id, delta, note)
VALUES (?, ?, ?, ?)`
	res, err = tx.ExecContext(ctx, insert, txn.AdminID, txn.UserID, txn.Delta, txn.Note)
	if err != nil {
		return false, fmt.Errorf("insert point transaction: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		txn.ID = id
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit points tx: %w", err)
	}
	return true, nil
}

func (r *LedgerRepository) ListDonations(ctx context.Context, limit int) ([]models.Donation, error) {
	const query = `
SELECT id, donor_id, amount, charge_ref, created_at
FROM donations ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var donations []models.Donation
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.DonorID, &d.Amount, &d.ChargeRef, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

func (r *LedgerRepository) ListPointTransactions(ctx context.Context, limit int) ([]models.PointTransaction, error) {
	const query = `
SELECT id, admin_id, user_id, delta, COALESCE(note, ''), created_at
FROM point_transactions ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list point transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.PointTransaction
	for rows.Next() {
		var t models.PointTransaction
		if err := rows.Scan(&t.ID, &t.AdminID, &t.UserID, &t.Delta, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan point transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *LedgerRepository) ListPaymentsByUser(ctx context.Context, userID int64, limit int) ([]models.Payment, error) {
	const query = `
SELECT id, user_id, kind, currency, amount, is_completed, created_at, completed_at
FROM payments WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		var completed int
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.Kind, &p.Currency, &p.Amount, &completed, &p.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Completed = completed != 0
		if completedAt.Valid {
			t := completedAt.Time
			p.CompletedAt = &t
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
