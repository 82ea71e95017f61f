package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownTransitions(t *testing.T) {
	cases := []struct {
		name  string
		state State
		event EventKind
		want  Transition
	}{
		{"subscribe recheck", StateStart, EventSubscribed, Transition{ActionRecheckSubscription, StateMainMenu}},
		{"start creating", StateMainMenu, EventCreateGiveaway, Transition{ActionPromptGiveawayText, StateCreatingGiveaway}},
		{"capture body", StateCreatingGiveaway, EventText, Transition{ActionCaptureGiveawayText, StateAwaitingConditionDecision}},
		{"add condition", StateAwaitingConditionDecision, EventAddCondition, Transition{ActionStartConditionUnlock, StateAwaitingPayment}},
		{"skip condition", StateAwaitingConditionDecision, EventSkipCondition, Transition{ActionPromptWinnerCount, StateAwaitingWinnerCount}},
		{"pick winners", StateAwaitingWinnerCount, EventWinnerCount, Transition{ActionFinalizeGiveaway, StateMainMenu}},
		{"channel input", StateAwaitingLinkedChannel, EventText, Transition{ActionCaptureChannelInput, StateMainMenu}},
		{"pay premium", StateAwaitingPayment, EventPayPremium, Transition{ActionChargePremiumStars, StateAwaitingLinkedChannel}},
		{"pay stars", StateAwaitingPayment, EventPayStars, Transition{ActionChargeConditionStars, StateAwaitingLinkedChannel}},
		{"pay points", StateAwaitingPayment, EventPayPoints, Transition{ActionChargeConditionPoints, StateAwaitingLinkedChannel}},
		{"admin points input", StateAdminMenu, EventText, Transition{ActionApplyPointsInput, StateAdminMenu}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Resolve(tc.state, tc.event)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveIgnoresOutOfPlaceEvents(t *testing.T) {
	// A button pressed in a state where it has no meaning is dropped, not
	// misinterpreted.
	_, ok := Resolve(StateStart, EventCreateGiveaway)
	assert.False(t, ok)

	_, ok = Resolve(StateMainMenu, EventText)
	assert.False(t, ok)

	_, ok = Resolve(StateMainMenu, EventWinnerCount)
	assert.False(t, ok)

	_, ok = Resolve(StateAwaitingPayment, EventCreateGiveaway)
	assert.False(t, ok)
}

func TestEveryStateAllowsEscapeToMainMenu(t *testing.T) {
	// Start is reachable only via the entry gate, which /start re-runs.
	for state := range transitions {
		if state == StateStart {
			continue
		}
		_, ok := Resolve(state, EventBackToMain)
		assert.True(t, ok, "state %d has no way back to the main menu", state)
	}
}
