package session

// EventKind classifies an inbound event after the transport has parsed it.
// Free text is one kind; its meaning depends on the current state.
type EventKind int

const (
	EventSubscribed EventKind = iota
	EventCreateGiveaway
	EventLinkChannel
	EventUnlinkChannel
	EventDonateMenu
	EventDonate
	EventBalance
	EventSupport
	EventBackToMain
	EventText
	EventAddCondition
	EventSkipCondition
	EventWinnerCount
	EventPayPremium
	EventPayStars
	EventPayPoints
	EventAdminMenu
	EventAdminAddPoints
)

// Action names the handler the transport should invoke for a transition.
type Action int

const (
	ActionRecheckSubscription Action = iota
	ActionShowMainMenu
	ActionShowAdminMenu
	ActionPromptGiveawayText
	ActionCaptureGiveawayText
	ActionStartConditionUnlock
	ActionPromptWinnerCount
	ActionFinalizeGiveaway
	ActionPromptLinkChannel
	ActionCaptureChannelInput
	ActionUnlinkChannel
	ActionShowDonateMenu
	ActionSendDonationInvoice
	ActionShowBalance
	ActionShowSupport
	ActionChargePremiumStars
	ActionChargeConditionStars
	ActionChargeConditionPoints
	ActionPromptPointsInput
	ActionApplyPointsInput
)

// Transition pairs the handler with the state reached on success. Handlers
// whose guards fail keep or rewind the state themselves (a failed charge
// stays in AwaitingPayment, a non-member stays in Start), which leaves the
// session usable for a retry.
type Transition struct {
	Action Action
	Next   State
}

// transitions is the dialog table. An event absent from the current state's
// row is ignored by the transport with a hint, leaving the session where it
// was. The /start command and payment confirmations bypass the table: the
// first always re-runs the entry gate, the second is correlated by payload,
// not by dialog position.
var transitions = map[State]map[EventKind]Transition{
	StateStart: {
		EventSubscribed: {ActionRecheckSubscription, StateMainMenu},
	},
	StateMainMenu: {
		EventCreateGiveaway: {ActionPromptGiveawayText, StateCreatingGiveaway},
		EventLinkChannel:    {ActionPromptLinkChannel, StateAwaitingLinkedChannel},
		EventUnlinkChannel:  {ActionUnlinkChannel, StateMainMenu},
		EventDonateMenu:     {ActionShowDonateMenu, StateMainMenu},
		EventDonate:         {ActionSendDonationInvoice, StateMainMenu},
		EventBalance:        {ActionShowBalance, StateMainMenu},
		EventSupport:        {ActionShowSupport, StateMainMenu},
		EventBackToMain:     {ActionShowMainMenu, StateMainMenu},
		EventAdminMenu:      {ActionShowAdminMenu, StateAdminMenu},
	},
	StateCreatingGiveaway: {
		EventText:       {ActionCaptureGiveawayText, StateAwaitingConditionDecision},
		EventBackToMain: {ActionShowMainMenu, StateMainMenu},
	},
	StateAwaitingConditionDecision: {
		EventAddCondition:  {ActionStartConditionUnlock, StateAwaitingPayment},
		EventSkipCondition: {ActionPromptWinnerCount, StateAwaitingWinnerCount},
		EventBackToMain:    {ActionShowMainMenu, StateMainMenu},
	},
	StateAwaitingWinnerCount: {
		EventWinnerCount: {ActionFinalizeGiveaway, StateMainMenu},
		EventBackToMain:  {ActionShowMainMenu, StateMainMenu},
	},
	StateAwaitingLinkedChannel: {
		EventText:       {ActionCaptureChannelInput, StateMainMenu},
		EventBackToMain: {ActionShowMainMenu, StateMainMenu},
	},
	StateAwaitingPayment: {
		EventPayPremium: {ActionChargePremiumStars, StateAwaitingLinkedChannel},
		EventPayStars:   {ActionChargeConditionStars, StateAwaitingLinkedChannel},
		EventPayPoints:  {ActionChargeConditionPoints, StateAwaitingLinkedChannel},
		EventDonate:     {ActionSendDonationInvoice, StateAwaitingPayment},
		EventBackToMain: {ActionShowMainMenu, StateMainMenu},
	},
	StateAdminMenu: {
		EventAdminAddPoints: {ActionPromptPointsInput, StateAdminMenu},
		EventText:           {ActionApplyPointsInput, StateAdminMenu},
		EventAdminMenu:      {ActionShowAdminMenu, StateAdminMenu},
		EventBackToMain:     {ActionShowMainMenu, StateMainMenu},
	},
}

// Resolve maps the current state and event kind to a transition. The second
// return is false when the event has no meaning in this state.
func Resolve(state State, event EventKind) (Transition, bool) {
	row, ok := transitions[state]
	if !ok {
		return Transition{}, false
	}
	t, ok := row[event]
	return t, ok
}
