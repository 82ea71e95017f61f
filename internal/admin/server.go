package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/repository"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/service"
)

// Server is the operator-facing HTTP panel. Everything except /metrics
// sits behind basic auth.
type Server struct {
	addr      string
	username  string
	password  string
	log       *slog.Logger
	ledger    *service.LedgerService
	users     *repository.UserRepository
	history   *repository.LedgerRepository
	giveaways *repository.GiveawayRepository
	bot       *tgbotapi.BotAPI
	router    *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, ledger *service.LedgerService, users *repository.UserRepository, history *repository.LedgerRepository, giveaways *repository.GiveawayRepository, bot *tgbotapi.BotAPI) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:      addr,
		username:  username,
		password:  password,
		log:       log,
		ledger:    ledger,
		users:     users,
		history:   history,
		giveaways: giveaways,
		bot:       bot,
		router:    r,
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Post("/broadcast", s.handleBroadcast)
		protected.Post("/points", s.handleAdjustPoints)
		protected.Get("/users/{id}", s.handleGetUser)
		protected.Get("/users/{id}/payments", s.handleListUserPayments)
		protected.Get("/donations", s.handleListDonations)
		protected.Get("/point-transactions", s.handleListPointTransactions)
		protected.Route("/giveaways/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetGiveaway)
			r.Get("/participants", s.handleListGiveawayParticipants)
			r.Get("/winners", s.handleListGiveawayWinners)
		})
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ids, err := s.users.ListTelegramIDs(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}

	count := 0
	for _, id := range ids {
		msg := tgbotapi.NewMessage(id, req.Message)
		if _, err := s.bot.Send(msg); err != nil {
			s.log.Error("send broadcast", "user", id, "err", err)
			continue
		}
		count++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":  count,
		"total": len(ids),
	})
}

type adjustPointsRequest struct {
	AdminID int64  `json:"admin_id"`
	UserID  int64  `json:"user_id"`
	Delta   int    `json:"delta"`
	Note    string `json:"note"`
}

func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	err := s.ledger.AdjustPoints(r.Context(), req.AdminID, req.UserID, req.Delta, req.Note)
	switch {
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "admin_id is not an admin", http.StatusForbidden)
		return
	case errors.Is(err, service.ErrInsufficientFunds):
		http.Error(w, "points balance cannot go negative", http.StatusConflict)
		return
	case err != nil:
		s.internalError(w, err)
		return
	}

	user, err := s.ledger.GetAccount(r.Context(), req.UserID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user, err := s.users.Find(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUserPayments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	payments, err := s.history.ListPaymentsByUser(r.Context(), id, parseLimit(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := s.history.ListDonations(r.Context(), parseLimit(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, donations)
}

func (s *Server) handleListPointTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.history.ListPointTransactions(r.Context(), parseLimit(r))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, txns)
}

func (s *Server) handleGetGiveaway(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	g, err := s.giveaways.Find(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if g == nil {
		http.Error(w, "giveaway not found", http.StatusNotFound)
		return
	}
	count, err := s.giveaways.CountParticipants(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"giveaway":     g,
		"state":        g.State(),
		"participants": count,
	})
}

func (s *Server) handleListGiveawayParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	participants, err := s.giveaways.Participants(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, participants)
}

func (s *Server) handleListGiveawayWinners(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	winners, err := s.giveaways.Winners(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, winners)
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="roulette-panda"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
