package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

func TestMembershipGateVerdicts(t *testing.T) {
	channel := models.ChannelRef{Username: "gate"}
	checker := &fakeChecker{members: map[string]map[int64]bool{
		"gate": {1: true},
	}}
	gate := NewMembershipGate(checker, slog.Default())

	assert.Equal(t, StatusMember, gate.CheckEligibility(context.Background(), channel, 1))
	assert.Equal(t, StatusNotMember, gate.CheckEligibility(context.Background(), channel, 2))

	checker.err = errors.New("telegram: 502")
	assert.Equal(t, StatusUnknown, gate.CheckEligibility(context.Background(), channel, 1))
}

func TestEligibleFailsClosed(t *testing.T) {
	assert.True(t, StatusMember.Eligible())
	assert.False(t, StatusNotMember.Eligible())
	// An unverifiable membership never passes the gate.
	assert.False(t, StatusUnknown.Eligible())
}
