package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/repository"
)

type fakeGiveawayStore struct {
	nextID       int64
	giveaways    map[int64]*models.Giveaway
	entries      map[int64][]models.Participant
	winners      map[int64][]models.Winner
	setPostedErr error
}

func newFakeGiveawayStore() *fakeGiveawayStore {
	return &fakeGiveawayStore{
		giveaways: make(map[int64]*models.Giveaway),
		entries:   make(map[int64][]models.Participant),
		winners:   make(map[int64][]models.Winner),
	}
}

func (f *fakeGiveawayStore) Create(_ context.Context, g *models.Giveaway) (int64, error) {
	f.nextID++
	g.ID = f.nextID
	copied := *g
	f.giveaways[g.ID] = &copied
	return g.ID, nil
}

func (f *fakeGiveawayStore) Delete(_ context.Context, id int64) error {
	delete(f.giveaways, id)
	delete(f.entries, id)
	return nil
}

func (f *fakeGiveawayStore) SetPosted(_ context.Context, id, chatID int64, messageID int) error {
	if f.setPostedErr != nil {
		return f.setPostedErr
	}
	g := f.giveaways[id]
	g.PostedChatID = chatID
	g.PostedMessageID = messageID
	return nil
}

func (f *fakeGiveawayStore) Find(_ context.Context, id int64) (*models.Giveaway, error) {
	g, ok := f.giveaways[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGiveawayStore) ToggleActive(_ context.Context, id, creatorID int64) (*models.Giveaway, error) {
	g, ok := f.giveaways[id]
	if !ok || g.CreatorID != creatorID || g.DrawnAt != nil {
		return nil, nil
	}
	g.IsActive = !g.IsActive
	copied := *g
	return &copied, nil
}

func (f *fakeGiveawayStore) AddParticipant(_ context.Context, p *models.Participant) error {
	for _, existing := range f.entries[p.GiveawayID] {
		if existing.UserID == p.UserID {
			return fmt.Errorf("insert participant: %w", repository.ErrDuplicate)
		}
	}
	f.entries[p.GiveawayID] = append(f.entries[p.GiveawayID], *p)
	return nil
}

func (f *fakeGiveawayStore) Participants(_ context.Context, giveawayID int64) ([]models.Participant, error) {
	return append([]models.Participant(nil), f.entries[giveawayID]...), nil
}

func (f *fakeGiveawayStore) CountParticipants(_ context.Context, giveawayID int64) (int, error) {
	return len(f.entries[giveawayID]), nil
}

func (f *fakeGiveawayStore) CompleteDraw(_ context.Context, giveawayID int64, winners []models.Winner) (bool, error) {
	g := f.giveaways[giveawayID]
	if g.DrawnAt != nil {
		return false, nil
	}
	now := time.Now()
	g.DrawnAt = &now
	g.IsActive = false
	f.winners[giveawayID] = append([]models.Winner(nil), winners...)
	return true, nil
}

func (f *fakeGiveawayStore) Winners(_ context.Context, giveawayID int64) ([]models.Winner, error) {
	return append([]models.Winner(nil), f.winners[giveawayID]...), nil
}

type fakeAccounts struct {
	users map[int64]*models.User
}

func (f *fakeAccounts) GetAccount(_ context.Context, userID int64) (*models.User, error) {
	if u, ok := f.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return &models.User{TelegramID: userID}, nil
}

// fakePublisher records calls; publishErr injects a failed channel post.
type fakePublisher struct {
	publishErr    error
	published     []int64
	postUpdates   []int
	announced     []int64
	notifiedUsers []int64
}

func (f *fakePublisher) PublishGiveaway(_ context.Context, _ models.ChannelRef, g *models.Giveaway) (int64, int, error) {
	if f.publishErr != nil {
		return 0, 0, f.publishErr
	}
	f.published = append(f.published, g.ID)
	return -100500, 77, nil
}

func (f *fakePublisher) UpdateGiveawayPost(_ context.Context, _ *models.Giveaway, count int) error {
	f.postUpdates = append(f.postUpdates, count)
	return nil
}

func (f *fakePublisher) AnnounceWinners(_ context.Context, g *models.Giveaway, _ []models.Winner) error {
	f.announced = append(f.announced, g.ID)
	return nil
}

func (f *fakePublisher) NotifyWinner(_ context.Context, userID int64, _ *models.Giveaway) error {
	f.notifiedUsers = append(f.notifiedUsers, userID)
	return nil
}

// fakeChecker resolves membership per channel username; err simulates an
// unreachable API.
type fakeChecker struct {
	members map[string]map[int64]bool
	err     error
}

func (f *fakeChecker) IsMember(_ context.Context, channel models.ChannelRef, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[channel.Username][userID], nil
}

type giveawayFixture struct {
	store     *fakeGiveawayStore
	accounts  *fakeAccounts
	publisher *fakePublisher
	checker   *fakeChecker
	svc       *GiveawayService
}

func newGiveawayFixture() *giveawayFixture {
	store := newFakeGiveawayStore()
	accounts := &fakeAccounts{users: map[int64]*models.User{
		1: {TelegramID: 1, LinkedChannel: "@primary"},
	}}
	publisher := &fakePublisher{}
	checker := &fakeChecker{members: map[string]map[int64]bool{
		"primary":   {1: true, 2: true, 3: true, 4: true, 5: true},
		"condition": {2: true, 3: true},
	}}
	gate := NewMembershipGate(checker, slog.Default())
	svc := NewGiveawayService(store, accounts, gate, publisher, slog.Default())
	svc.SetRandSource(rand.NewSource(1))
	return &giveawayFixture{store: store, accounts: accounts, publisher: publisher, checker: checker, svc: svc}
}

func (fx *giveawayFixture) create(t *testing.T, condition string, winnerCount int) *models.Giveaway {
	t.Helper()
	g, err := fx.svc.Create(context.Background(), 1, "Win a prize!", condition, winnerCount)
	require.NoError(t, err)
	return g
}

func (fx *giveawayFixture) join(id, userID int64) error {
	return fx.svc.Join(context.Background(), JoinRequest{GiveawayID: id, UserID: userID})
}

func TestCreatePublishesAndStartsCollecting(t *testing.T) {
	fx := newGiveawayFixture()

	g := fx.create(t, "", 1)
	assert.Equal(t, models.StateCollecting, g.State())
	assert.Equal(t, int64(-100500), g.PostedChatID)
	assert.Equal(t, 77, g.PostedMessageID)
	assert.Equal(t, []int64{g.ID}, fx.publisher.published)
}

func TestCreateRequiresLinkedChannel(t *testing.T) {
	fx := newGiveawayFixture()

	_, err := fx.svc.Create(context.Background(), 99, "body", "", 1)
	require.ErrorIs(t, err, ErrNoLinkedChannel)
}

func TestCreateRequiresWinnerCount(t *testing.T) {
	fx := newGiveawayFixture()

	_, err := fx.svc.Create(context.Background(), 1, "body", "", 0)
	require.Error(t, err)
}

func TestCreateRollsBackOnPublishFailure(t *testing.T) {
	fx := newGiveawayFixture()
	fx.publisher.publishErr = errors.New("forbidden: bot is not a member")

	_, err := fx.svc.Create(context.Background(), 1, "body", "", 1)
	require.ErrorIs(t, err, ErrPublishFailed)

	// The unpublished row must not survive as joinable state.
	assert.Empty(t, fx.store.giveaways)
}

func TestCreateRollsBackWhenPostRefNotStored(t *testing.T) {
	fx := newGiveawayFixture()
	fx.store.setPostedErr = errors.New("connection reset")

	_, err := fx.svc.Create(context.Background(), 1, "body", "", 1)
	require.Error(t, err)

	// The post went out but the ref was lost; the row must not survive as
	// a giveaway nothing can edit or manage.
	assert.Empty(t, fx.store.giveaways)
}

func TestJoinRecordsParticipantAndUpdatesPost(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)

	require.NoError(t, fx.join(g.ID, 2))
	require.NoError(t, fx.join(g.ID, 3))

	count, _ := fx.store.CountParticipants(context.Background(), g.ID)
	assert.Equal(t, 2, count)
	assert.Equal(t, []int{1, 2}, fx.publisher.postUpdates)
}

func TestJoinTwiceReportsAlreadyJoined(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)

	require.NoError(t, fx.join(g.ID, 2))
	require.ErrorIs(t, fx.join(g.ID, 2), ErrAlreadyJoined)

	count, _ := fx.store.CountParticipants(context.Background(), g.ID)
	assert.Equal(t, 1, count)
}

func TestJoinUnknownGiveaway(t *testing.T) {
	fx := newGiveawayFixture()
	require.ErrorIs(t, fx.join(404, 2), ErrNotFound)
}

func TestJoinFrozenGiveawayRejected(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)

	_, err := fx.svc.ToggleActive(context.Background(), g.ID, 1)
	require.NoError(t, err)

	require.ErrorIs(t, fx.join(g.ID, 2), ErrNotFound)
}

func TestJoinRequiresPrimaryChannelMembership(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)

	// User 9 is not subscribed to the creator's channel.
	require.ErrorIs(t, fx.join(g.ID, 9), ErrNotEligible)
}

func TestJoinRequiresConditionChannelMembership(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "@condition", 1)

	// User 4 is in the primary channel but not the condition channel.
	require.ErrorIs(t, fx.join(g.ID, 4), ErrNotEligible)
	require.NoError(t, fx.join(g.ID, 3))
}

func TestJoinFailsClosedWhenCheckErrors(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)
	fx.checker.err = errors.New("bad gateway")

	require.ErrorIs(t, fx.join(g.ID, 2), ErrNotEligible)
}

func TestToggleActiveFlipsState(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)

	frozen, err := fx.svc.ToggleActive(context.Background(), g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateFrozen, frozen.State())

	resumed, err := fx.svc.ToggleActive(context.Background(), g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateCollecting, resumed.State())
}

func TestToggleActiveCreatorOnly(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)

	_, err := fx.svc.ToggleActive(context.Background(), g.ID, 2)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDrawGuards(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 2)
	require.NoError(t, fx.join(g.ID, 2))

	_, err := fx.svc.Draw(context.Background(), 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.Draw(context.Background(), g.ID, 9)
	assert.ErrorIs(t, err, ErrForbidden)

	// Entries still open.
	_, err = fx.svc.Draw(context.Background(), g.ID, 1)
	assert.ErrorIs(t, err, ErrStillCollecting)

	_, err = fx.svc.ToggleActive(context.Background(), g.ID, 1)
	require.NoError(t, err)

	// One participant, two winners wanted.
	_, err = fx.svc.Draw(context.Background(), g.ID, 1)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestDrawClosesAndNotifies(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 2)
	for _, id := range []int64{2, 3, 4, 5} {
		require.NoError(t, fx.join(g.ID, id))
	}
	_, err := fx.svc.ToggleActive(context.Background(), g.ID, 1)
	require.NoError(t, err)

	winners, err := fx.svc.Draw(context.Background(), g.ID, 1)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, 1, winners[0].Position)
	assert.Equal(t, 2, winners[1].Position)
	assert.NotEqual(t, winners[0].UserID, winners[1].UserID)

	stored, _ := fx.store.Find(context.Background(), g.ID)
	assert.Equal(t, models.StateClosed, stored.State())
	assert.Equal(t, []int64{g.ID}, fx.publisher.announced)
	assert.Len(t, fx.publisher.notifiedUsers, 2)

	// Closed means closed: no second draw, no reopening, no more joins.
	_, err = fx.svc.Draw(context.Background(), g.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	_, err = fx.svc.ToggleActive(context.Background(), g.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	assert.ErrorIs(t, fx.join(g.ID, 6), ErrNotFound)
}

func TestDrawSamplingIsRoughlyUniform(t *testing.T) {
	// Each participant should win about k/n of the time. 500 independent
	// single-winner draws over 5 participants should land near 100 each.
	hits := make(map[int64]int)
	for round := 0; round < 500; round++ {
		fx := newGiveawayFixture()
		fx.svc.SetRandSource(rand.NewSource(int64(round)))
		g := fx.create(t, "", 1)
		for _, id := range []int64{2, 3, 4, 5, 1} {
			require.NoError(t, fx.join(g.ID, id))
		}
		_, err := fx.svc.ToggleActive(context.Background(), g.ID, 1)
		require.NoError(t, err)

		winners, err := fx.svc.Draw(context.Background(), g.ID, 1)
		require.NoError(t, err)
		hits[winners[0].UserID]++
	}

	require.Len(t, hits, 5)
	for userID, n := range hits {
		assert.InDelta(t, 100, n, 45, "user %d won %d of 500 draws", userID, n)
	}
}

func TestParticipantsCreatorOnly(t *testing.T) {
	fx := newGiveawayFixture()
	g := fx.create(t, "", 1)
	require.NoError(t, fx.join(g.ID, 2))

	_, err := fx.svc.Participants(context.Background(), g.ID, 2)
	require.ErrorIs(t, err, ErrForbidden)

	list, err := fx.svc.Participants(context.Background(), g.ID, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
