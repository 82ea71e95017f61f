package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerDefaultsToStart(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Get(1)
	assert.Equal(t, StateStart, s.State)
	assert.Empty(t, s.Draft.Body)
}

func TestManagerRoundTripsDraft(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Get(1)
	s.State = StateAwaitingWinnerCount
	s.Draft.Body = "Win a prize!"
	s.Draft.ConditionChannel = "@extra"
	m.Put(1, s)

	got := m.Get(1)
	assert.Equal(t, StateAwaitingWinnerCount, got.State)
	assert.Equal(t, "Win a prize!", got.Draft.Body)
	assert.Equal(t, "@extra", got.Draft.ConditionChannel)
}

func TestManagerIsolatesUsers(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Get(1)
	s.State = StateAdminMenu
	m.Put(1, s)

	assert.Equal(t, StateStart, m.Get(2).State)
}

func TestManagerResetDiscardsDraft(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Get(1)
	s.State = StateCreatingGiveaway
	s.Draft.Body = "half-typed"
	m.Put(1, s)

	m.Reset(1)
	got := m.Get(1)
	assert.Equal(t, StateStart, got.State)
	assert.Empty(t, got.Draft.Body)
}

func TestManagerHandsOutIndependentSnapshots(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Get(1)
	s.State = StateCreatingGiveaway
	s.Draft.Body = "original"
	m.Put(1, s)

	a := m.Get(1)
	b := m.Get(1)
	a.State = StateAdminMenu
	a.Draft.Body = "scribbled"

	// Mutating one snapshot must not bleed into another, nor into the store.
	assert.Equal(t, StateCreatingGiveaway, b.State)
	assert.Equal(t, "original", b.Draft.Body)
	assert.Equal(t, "original", m.Get(1).Draft.Body)

	// The stored value stays what was put, even if the caller keeps writing.
	m.Put(1, b)
	b.Draft.Body = "late write"
	assert.Equal(t, "original", m.Get(1).Draft.Body)
}

func TestManagerConcurrentEventsSettleLastWriteWins(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Get(1)
	s.State = StateCreatingGiveaway
	m.Put(1, s)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess := m.Get(1)
			sess.State = StateAwaitingWinnerCount
			sess.Draft.Body = fmt.Sprintf("draft-%d", n)
			m.Put(1, sess)
		}(i)
	}
	wg.Wait()

	// Whichever write landed last, the result is one coherent snapshot.
	got := m.Get(1)
	assert.Equal(t, StateAwaitingWinnerCount, got.State)
	assert.Regexp(t, `^draft-\d+$`, got.Draft.Body)
}

func TestManagerExpiresAbandonedSessions(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	s := m.Get(1)
	s.State = StateAwaitingPayment
	m.Put(1, s)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateStart, m.Get(1).State)
}
