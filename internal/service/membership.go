package service

import (
	"context"
	"log/slog"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

// MembershipStatus is the gate's verdict about a user and a channel.
type MembershipStatus int

const (
	StatusMember MembershipStatus = iota
	StatusNotMember
	StatusUnknown
)

// Eligible reports whether the status passes a gating decision. Unknown
// fails closed: a broken check never lets anyone through.
func (s MembershipStatus) Eligible() bool {
	return s == StatusMember
}

// MembershipChecker is the external membership-verification capability.
type MembershipChecker interface {
	IsMember(ctx context.Context, channel models.ChannelRef, userID int64) (bool, error)
}

// MembershipGate wraps the checker with the fail-closed policy. It holds no
// state of its own.
type MembershipGate struct {
	checker MembershipChecker
	log     *slog.Logger
}

func NewMembershipGate(checker MembershipChecker, log *slog.Logger) *MembershipGate {
	return &MembershipGate{checker: checker, log: log}
}

func (g *MembershipGate) CheckEligibility(ctx context.Context, channel models.ChannelRef, userID int64) MembershipStatus {
	member, err := g.checker.IsMember(ctx, channel, userID)
	if err != nil {
		// Logged apart from a plain refusal so API trouble is diagnosable,
		// but the caller sees the same closed gate.
		g.log.Warn("membership check failed", "channel", channel.Display(), "user", userID, "err", err)
		return StatusUnknown
	}
	if !member {
		return StatusNotMember
	}
	return StatusMember
}
