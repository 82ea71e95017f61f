package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/config"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/metrics"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

const premiumDuration = 30 * 24 * time.Hour

// UserStore is the slice of the persistence store the ledger needs for
// account rows.
type UserStore interface {
	Find(ctx context.Context, telegramID int64) (*models.User, error)
	Create(ctx context.Context, telegramID int64) (*models.User, error)
	ExpirePremium(ctx context.Context, telegramID int64) error
	SetLinkedChannel(ctx context.Context, telegramID int64, channel string) error
	ClearLinkedChannel(ctx context.Context, telegramID int64) error
}

// LedgerStore provides the atomic balance mutations. Each call is a single
// transaction inside the store; a false return means the guard failed and
// nothing was written.
type LedgerStore interface {
	ApplyCharge(ctx context.Context, payment *models.Payment, premiumExpiry *time.Time) (bool, error)
	ApplyDonation(ctx context.Context, donation *models.Donation) (bool, error)
	ApplyPointAdjustment(ctx context.Context, txn *models.PointTransaction) (bool, error)
}

// LedgerService is the only writer of balance fields. Every paid action and
// every credit goes through here, which is what keeps balances non-negative.
type LedgerService struct {
	users   UserStore
	ledger  LedgerStore
	pricing config.Pricing
	admins  map[int64]struct{}
	log     *slog.Logger
	now     func() time.Time
}

func NewLedgerService(users UserStore, ledger LedgerStore, pricing config.Pricing, adminIDs []int64, log *slog.Logger) *LedgerService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &LedgerService{
		users:   users,
		ledger:  ledger,
		pricing: pricing,
		admins:  admins,
		log:     log,
		now:     time.Now,
	}
}

// GetAccount returns the user's account, creating a zero-balance row on
// first contact and durably clearing a stale premium flag before returning.
func (s *LedgerService) GetAccount(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.users.Create(ctx, userID)
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	if user.IsPremium && user.PremiumExpiry != nil && user.PremiumExpiry.Before(s.now()) {
		if err := s.users.ExpirePremium(ctx, userID); err != nil {
			return nil, fmt.Errorf("expire premium: %w", err)
		}
		user.IsPremium = false
		user.PremiumExpiry = nil
	}
	return user, nil
}

// Price returns the cost of a feature in the given currency, or 0 when the
// combination is not sold.
func (s *LedgerService) Price(kind models.FeatureKind, currency models.Currency) int {
	switch kind {
	case models.FeaturePremiumMonth:
		if currency == models.CurrencyStars {
			return s.pricing.PremiumMonth
		}
	case models.FeatureConditionChannel:
		return s.pricing.UnlockConditionChannel
	case models.FeatureDonation:
		if currency == models.CurrencyStars {
			return s.pricing.DonationUnit
		}
	}
	return 0
}

// Charge debits the balance and records the completed payment in one atomic
// step. A premium upgrade also sets the premium flag with a fresh 30-day
// expiry, overwriting any existing one. No partial debit ever happens: the
// store's guard rejects the whole charge when the balance is short.
func (s *LedgerService) Charge(ctx context.Context, userID int64, kind models.FeatureKind, currency models.Currency) error {
	amount := s.Price(kind, currency)
	if amount <= 0 {
		return ErrUnknownFeature
	}

	// Lazy create + lazy expiry, so a first-time payer has a row to debit.
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}

	payment := &models.Payment{
		UserID:   userID,
		Kind:     kind,
		Currency: currency,
		Amount:   amount,
	}
	var premiumExpiry *time.Time
	if kind == models.FeaturePremiumMonth {
		expiry := s.now().Add(premiumDuration)
		premiumExpiry = &expiry
	}

	ok, err := s.ledger.ApplyCharge(ctx, payment, premiumExpiry)
	if err != nil {
		return fmt.Errorf("apply charge: %w", err)
	}
	if !ok {
		return ErrInsufficientFunds
	}

	metrics.ChargesApplied.WithLabelValues(string(kind)).Inc()
	s.log.Info("charge applied", "user", userID, "kind", kind, "currency", currency, "amount", amount)
	return nil
}

// RecordExternalPayment credits stars 1:1 for a confirmed external payment
// and appends the donation row, atomically. The charge reference dedupes
// redelivered confirmations: a repeat is logged and dropped, never credited
// twice.
func (s *LedgerService) RecordExternalPayment(ctx context.Context, userID int64, amount int, chargeRef string) error {
	if amount <= 0 {
		return fmt.Errorf("invalid payment amount %d", amount)
	}
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}

	donation := &models.Donation{
		DonorID:   userID,
		Amount:    amount,
		ChargeRef: chargeRef,
	}
	ok, err := s.ledger.ApplyDonation(ctx, donation)
	if err != nil {
		return fmt.Errorf("apply donation: %w", err)
	}
	if !ok {
		s.log.Warn("duplicate payment confirmation ignored", "user", userID, "charge_ref", chargeRef)
		return nil
	}

	metrics.DonationsRecorded.Inc()
	s.log.Info("external payment recorded", "user", userID, "amount", amount)
	return nil
}

// AdjustPoints applies a privileged delta to the loyalty balance with an
// audit row. Only configured admins may call it, and a negative delta that
// would cross zero is rejected whole.
func (s *LedgerService) AdjustPoints(ctx context.Context, adminID, userID int64, delta int, note string) error {
	if _, ok := s.admins[adminID]; !ok {
		return ErrForbidden
	}
	if delta == 0 {
		return nil
	}
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}

	txn := &models.PointTransaction{
		AdminID: adminID,
		UserID:  userID,
		Delta:   delta,
		Note:    note,
	}
	ok, err := s.ledger.ApplyPointAdjustment(ctx, txn)
	if err != nil {
		return fmt.Errorf("apply point adjustment: %w", err)
	}
	if !ok {
		return ErrInsufficientFunds
	}

	s.log.Info("points adjusted", "admin", adminID, "user", userID, "delta", delta)
	return nil
}

// LinkChannel registers the channel giveaway posts go to.
func (s *LedgerService) LinkChannel(ctx context.Context, userID int64, channel models.ChannelRef) error {
	if channel.IsZero() {
		return fmt.Errorf("empty channel reference")
	}
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}
	return s.users.SetLinkedChannel(ctx, userID, channel.Encode())
}

func (s *LedgerService) UnlinkChannel(ctx context.Context, userID int64) error {
	return s.users.ClearLinkedChannel(ctx, userID)
}

// IsAdmin reports membership in the configured admin set.
func (s *LedgerService) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}
