package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/metrics"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

// GiveawayStore is the persistence contract for the giveaway aggregate.
// AddParticipant surfaces the store's uniqueness constraint as
// repository.ErrDuplicate; CompleteDraw is atomic and returns false when the
// giveaway was already drawn.
type GiveawayStore interface {
	Create(ctx context.Context, g *models.Giveaway) (int64, error)
	Delete(ctx context.Context, id int64) error
	SetPosted(ctx context.Context, id, chatID int64, messageID int) error
	Find(ctx context.Context, id int64) (*models.Giveaway, error)
	ToggleActive(ctx context.Context, id, creatorID int64) (*models.Giveaway, error)
	AddParticipant(ctx context.Context, p *models.Participant) error
	Participants(ctx context.Context, giveawayID int64) ([]models.Participant, error)
	CountParticipants(ctx context.Context, giveawayID int64) (int, error)
	CompleteDraw(ctx context.Context, giveawayID int64, winners []models.Winner) (bool, error)
	Winners(ctx context.Context, giveawayID int64) ([]models.Winner, error)
}

// AccountReader reads account records through the ledger, which keeps the
// lazy-create and premium-expiry behavior in one place.
type AccountReader interface {
	GetAccount(ctx context.Context, userID int64) (*models.User, error)
}

// Publisher is the outbound messaging capability. Publish failures abort
// creation; everything else is best effort.
type Publisher interface {
	PublishGiveaway(ctx context.Context, channel models.ChannelRef, g *models.Giveaway) (chatID int64, messageID int, err error)
	UpdateGiveawayPost(ctx context.Context, g *models.Giveaway, participantCount int) error
	AnnounceWinners(ctx context.Context, g *models.Giveaway, winners []models.Winner) error
	NotifyWinner(ctx context.Context, userID int64, g *models.Giveaway) error
}

// JoinRequest carries the joining user's identity and display fields.
type JoinRequest struct {
	GiveawayID int64
	UserID     int64
	Username   string
	FullName   string
}

type GiveawayService struct {
	store     GiveawayStore
	accounts  AccountReader
	gate      *MembershipGate
	publisher Publisher
	log       *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGiveawayService(store GiveawayStore, accounts AccountReader, gate *MembershipGate, publisher Publisher, log *slog.Logger) *GiveawayService {
	return &GiveawayService{
		store:     store,
		accounts:  accounts,
		gate:      gate,
		publisher: publisher,
		log:       log,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandSource replaces the sampling source. Used by tests for
// deterministic draws.
func (s *GiveawayService) SetRandSource(src rand.Source) {
	s.mu.Lock()
	s.rng = rand.New(src)
	s.mu.Unlock()
}

// Create persists the giveaway as collecting and publishes its post to the
// creator's linked channel. Publishing is a precondition for the record
// surviving: on a failed post the row is deleted again so no unpublished
// giveaway remains joinable.
func (s *GiveawayService) Create(ctx context.Context, creatorID int64, body, conditionChannel string, winnerCount int) (*models.Giveaway, error) {
	if winnerCount < 1 {
		return nil, fmt.Errorf("winner count must be at least 1")
	}
	creator, err := s.accounts.GetAccount(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator.LinkedChannel == "" {
		return nil, ErrNoLinkedChannel
	}
	channel := models.ParseChannelRef(creator.LinkedChannel)

	g := &models.Giveaway{
		CreatorID:        creatorID,
		Body:             body,
		TargetChannel:    creator.LinkedChannel,
		ConditionChannel: conditionChannel,
		WinnerCount:      winnerCount,
		IsActive:         true,
	}
	if _, err := s.store.Create(ctx, g); err != nil {
		return nil, err
	}

	chatID, messageID, err := s.publisher.PublishGiveaway(ctx, channel, g)
	if err != nil {
		if delErr := s.store.Delete(ctx, g.ID); delErr != nil {
			s.log.Error("rollback unpublished giveaway", "giveaway", g.ID, "err", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	if err := s.store.SetPosted(ctx, g.ID, chatID, messageID); err != nil {
		// Without the stored ref the post could never be edited again;
		// remove the row so the giveaway does not linger unmanageable.
		if delErr := s.store.Delete(ctx, g.ID); delErr != nil {
			s.log.Error("rollback giveaway without post ref", "giveaway", g.ID, "err", delErr)
		}
		s.log.Error("channel post left without a managing giveaway", "giveaway", g.ID, "chat", chatID, "message", messageID, "err", err)
		return nil, fmt.Errorf("store post ref: %w", err)
	}
	g.PostedChatID = chatID
	g.PostedMessageID = messageID

	metrics.GiveawaysCreated.Inc()
	s.log.Info("giveaway created", "giveaway", g.ID, "creator", creatorID, "winners", winnerCount)
	return g, nil
}

// Join runs the eligibility gates in order and lets the store's uniqueness
// constraint settle duplicate attempts. The first failing gate is the
// reported reason.
func (s *GiveawayService) Join(ctx context.Context, req JoinRequest) error {
	g, err := s.store.Find(ctx, req.GiveawayID)
	if err != nil {
		return err
	}
	if g == nil || !g.IsActive || g.DrawnAt != nil {
		return ErrNotFound
	}

	creator, err := s.accounts.GetAccount(ctx, g.CreatorID)
	if err != nil {
		return err
	}
	if creator.LinkedChannel != "" {
		if !s.gate.CheckEligibility(ctx, models.ParseChannelRef(creator.LinkedChannel), req.UserID).Eligible() {
			return ErrNotEligible
		}
	}
	if g.ConditionChannel != "" {
		if !s.gate.CheckEligibility(ctx, models.ParseChannelRef(g.ConditionChannel), req.UserID).Eligible() {
			return ErrNotEligible
		}
	}

	p := &models.Participant{
		GiveawayID: g.ID,
		UserID:     req.UserID,
		Username:   req.Username,
		FullName:   req.FullName,
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		// A duplicate-join race is expected, not exceptional.
		if isDuplicateErr(err) {
			return ErrAlreadyJoined
		}
		return err
	}

	metrics.GiveawayJoins.Inc()

	count, err := s.store.CountParticipants(ctx, g.ID)
	if err != nil {
		s.log.Error("count participants", "giveaway", g.ID, "err", err)
		return nil
	}
	if err := s.publisher.UpdateGiveawayPost(ctx, g, count); err != nil {
		s.log.Error("update giveaway post", "giveaway", g.ID, "err", err)
	}
	return nil
}

// ToggleActive flips collecting on and off, creator only. Closed giveaways
// stay closed.
func (s *GiveawayService) ToggleActive(ctx context.Context, giveawayID, requesterID int64) (*models.Giveaway, error) {
	g, err := s.store.Find(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	if g.DrawnAt != nil {
		return nil, ErrAlreadyDrawn
	}

	updated, err := s.store.ToggleActive(ctx, giveawayID, requesterID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost a race against the draw committing.
		return nil, ErrAlreadyDrawn
	}

	count, err := s.store.CountParticipants(ctx, g.ID)
	if err == nil {
		if err := s.publisher.UpdateGiveawayPost(ctx, updated, count); err != nil {
			s.log.Error("update giveaway post", "giveaway", g.ID, "err", err)
		}
	}
	return updated, nil
}

// Draw selects the winner set uniformly without replacement and closes the
// giveaway in the same atomic step that records it. Notification is issued
// after the commit and never rolls it back.
func (s *GiveawayService) Draw(ctx context.Context, giveawayID, requesterID int64) ([]models.Winner, error) {
	g, err := s.store.Find(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	if g.DrawnAt != nil {
		return nil, ErrAlreadyDrawn
	}
	if g.IsActive {
		return nil, ErrStillCollecting
	}

	participants, err := s.store.Participants(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if len(participants) < g.WinnerCount {
		return nil, ErrNotEnoughParticipants
	}

	winners := s.sample(participants, g.WinnerCount)

	ok, err := s.store.CompleteDraw(ctx, giveawayID, winners)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyDrawn
	}

	metrics.GiveawayDraws.Inc()
	s.log.Info("giveaway drawn", "giveaway", g.ID, "winners", len(winners))

	if err := s.publisher.AnnounceWinners(ctx, g, winners); err != nil {
		s.log.Error("announce winners", "giveaway", g.ID, "err", err)
	}
	for _, w := range winners {
		if err := s.publisher.NotifyWinner(ctx, w.UserID, g); err != nil {
			s.log.Error("notify winner", "giveaway", g.ID, "winner", w.UserID, "err", err)
		}
	}
	return winners, nil
}

func (s *GiveawayService) Participants(ctx context.Context, giveawayID, requesterID int64) ([]models.Participant, error) {
	g, err := s.store.Find(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.CreatorID != requesterID {
		return nil, ErrForbidden
	}
	return s.store.Participants(ctx, giveawayID)
}

func (s *GiveawayService) Find(ctx context.Context, giveawayID int64) (*models.Giveaway, error) {
	g, err := s.store.Find(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// sample picks k distinct participants, each subset equally likely.
func (s *GiveawayService) sample(participants []models.Participant, k int) []models.Winner {
	s.mu.Lock()
	order := s.rng.Perm(len(participants))
	s.mu.Unlock()

	winners := make([]models.Winner, 0, k)
	for i := 0; i < k; i++ {
		p := participants[order[i]]
		winners = append(winners, models.Winner{
			GiveawayID: p.GiveawayID,
			UserID:     p.UserID,
			Username:   p.Username,
			FullName:   p.FullName,
			Position:   i + 1,
		})
	}
	return winners
}
