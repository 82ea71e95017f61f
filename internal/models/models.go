package models

import "time"

// FeatureKind enumerates the paid actions recorded in the payments table.
type FeatureKind string

const (
	FeaturePremiumMonth     FeatureKind = "premium_month"
	FeatureConditionChannel FeatureKind = "condition_channel_once"
	FeatureDonation         FeatureKind = "donation"
)

// Currency selects which balance a charge is taken from.
type Currency string

const (
	CurrencyStars  Currency = "stars"
	CurrencyPoints Currency = "points"
)

// GiveawayState is derived from the persisted flags, never stored directly.
type GiveawayState string

const (
	StateCollecting GiveawayState = "collecting"
	StateFrozen     GiveawayState = "frozen"
	StateClosed     GiveawayState = "closed"
)

type User struct {
	TelegramID    int64
	Stars         int
	Points        int
	IsPremium     bool
	PremiumExpiry *time.Time
	LinkedChannel string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Giveaway struct {
	ID               int64
	CreatorID        int64
	Body             string
	TargetChannel    string
	ConditionChannel string
	WinnerCount      int
	IsActive         bool
	PostedChatID     int64
	PostedMessageID  int
	DrawnAt          *time.Time
	CreatedAt        time.Time
}

// State maps the persisted flags onto the lifecycle state.
func (g *Giveaway) State() GiveawayState {
	switch {
	case g.DrawnAt != nil:
		return StateClosed
	case g.IsActive:
		return StateCollecting
	default:
		return StateFrozen
	}
}

type Participant struct {
	ID         int64
	GiveawayID int64
	UserID     int64
	Username   string
	FullName   string
	JoinedAt   time.Time
}

type Winner struct {
	ID         int64
	GiveawayID int64
	UserID     int64
	Username   string
	FullName   string
	Position   int
	CreatedAt  time.Time
}

type Payment struct {
	ID          int64
	UserID      int64
	Kind        FeatureKind
	Currency    Currency
	Amount      int
	Completed   bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type Donation struct {
	ID        int64
	DonorID   int64
	Amount    int
	ChargeRef string
	CreatedAt time.Time
}

type PointTransaction struct {
	ID        int64
	AdminID   int64
	UserID    int64
	Delta     int
	Note      string
	CreatedAt time.Time
}
