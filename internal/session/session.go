package session

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// State is the per-user position in the dialog.
type State int

const (
	StateStart State = iota
	StateMainMenu
	StateCreatingGiveaway
	StateAwaitingConditionDecision
	StateAwaitingWinnerCount
	StateAwaitingLinkedChannel
	StateAwaitingPayment
	StateAdminMenu
)

// LinkPurpose says what a channel input in AwaitingLinkedChannel is for.
type LinkPurpose int

const (
	LinkPrimary LinkPurpose = iota
	LinkCondition
)

// Draft holds giveaway fields the user has entered but not yet committed.
// It lives only in the session; abandoning the flow lets the TTL discard it.
type Draft struct {
	Body             string
	ConditionChannel string
	WinnerCount      int
	LinkPurpose      LinkPurpose
}

type Session struct {
	State State
	Draft Draft
}

// Manager keeps sessions in a short-TTL in-memory store. Expired sessions
// simply restart from the entry gate; no cleanup job is needed. Get and Put
// exchange snapshots, never the cached value itself: updates are handled
// concurrently, and two events from the same user must not mutate one
// Session. Concurrent Puts settle last-write-wins.
type Manager struct {
	ttl   time.Duration
	cache *gocache.Cache
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:   ttl,
		cache: gocache.New(ttl, ttl/2),
	}
}

// Get returns a snapshot of the user's session, defaulting to the entry
// state.
func (m *Manager) Get(userID int64) *Session {
	if v, ok := m.cache.Get(key(userID)); ok {
		copied := *v.(*Session)
		return &copied
	}
	return &Session{State: StateStart}
}

// Put stores a snapshot of the session and refreshes its TTL.
func (m *Manager) Put(userID int64, s *Session) {
	copied := *s
	m.cache.Set(key(userID), &copied, m.ttl)
}

func (m *Manager) Reset(userID int64) {
	m.cache.Delete(key(userID))
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
