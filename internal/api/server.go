package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradesim/internal/auth"
	"tradesim/internal/export"
	"tradesim/internal/game"
	"tradesim/internal/ledger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const sessionContextKey contextKey = "session"

type Session struct {
	TeamID   int64
	Username string
	IsAdmin  bool
}

type Server struct {
	log    *slog.Logger
	tokens *auth.Manager
	game   *game.Service
	mux    *chi.Mux
}

func New(logger *slog.Logger, tokens *auth.Manager, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:    logger,
		tokens: tokens,
		game:   gameSvc,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/status", s.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/team", s.handleTeam)
			r.Get("/leaderboard", s.handleLeaderboard)

			r.Get("/production", s.handleProductionHistory)
			r.Get("/production/plan", s.handleProductionPlan)
			r.Post("/production", s.handleProduce)

			r.Get("/marketplace/offers", s.handleOffersList)
			r.Get("/marketplace/offers/mine", s.handleOffersMine)
			r.Post("/marketplace/offers", s.handleOfferCreate)
			r.Post("/marketplace/offers/{id}/accept", s.handleOfferAccept)
			r.Post("/marketplace/offers/{id}/price", s.handleOfferUpdatePrice)
			r.Post("/marketplace/offers/{id}/cancel", s.handleOfferCancel)

			r.Get("/trades/incoming", s.handleTradesIncoming)
			r.Get("/trades/outgoing", s.handleTradesOutgoing)
			r.Post("/trades", s.handleTradeCreate)
			r.Post("/trades/{id}/accept", s.handleTradeAccept)
			r.Post("/trades/{id}/reject", s.handleTradeReject)
			r.Post("/trades/{id}/cancel", s.handleTradeCancel)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.adminMiddleware)
				r.Get("/teams", s.handleAdminTeams)
				r.Post("/teams", s.handleAdminTeamCreate)
				r.Post("/teams/{id}/balance", s.handleAdminAdjustBalance)
				r.Post("/teams/{id}/inventory", s.handleAdminAdjustInventory)
				r.Get("/trades", s.handleAdminTrades)
				r.Get("/gifts", s.handleAdminGifts)
				r.Get("/gifts/eligible", s.handleAdminGiftEligible)
				r.Post("/gifts", s.handleAdminGiftGrant)
				r.Post("/status", s.handleAdminSetStatus)
				r.Post("/raw/reallocate", s.handleAdminReallocate)
				r.Get("/export", s.handleAdminExport)
			})
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, Session{
			TeamID:   claims.TeamID,
			Username: claims.Username,
			IsAdmin:  claims.IsAdmin,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromContext(r.Context())
		if err != nil || !sess.IsAdmin {
			writeError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) (Session, error) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	if !ok {
		return Session{}, errors.New("no session in context")
	}
	return sess, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.game.Authenticate(in.Username, in.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := s.tokens.IssueToken(res.TeamID, res.Username, res.IsAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "team": res})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": s.game.Status()})
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	snap, err := s.game.TeamSnapshot(sess.TeamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rows": s.game.Leaderboard()})
}

func (s *Server) handleProductionHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	entries, err := s.game.ProductionHistory(sess.TeamID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleProductionPlan(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	quantity, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "quantity must be an integer")
		return
	}
	plan, err := s.game.ProductionPlan(sess.TeamID, quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleProduce(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.game.Produce(game.ProduceInput{
		TeamID:         sess.TeamID,
		Quantity:       in.Quantity,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleOffersList(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	industry := ledger.Industry(strings.TrimSpace(r.URL.Query().Get("industry")))
	if industry != "" && !industry.Valid() {
		writeError(w, http.StatusBadRequest, "unknown industry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": s.game.OpenOffers(industry, sess.TeamID)})
}

func (s *Server) handleOffersMine(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": s.game.TeamOffers(sess.TeamID)})
}

func (s *Server) handleOfferCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Quantity  int64 `json:"quantity"`
		UnitPrice int64 `json:"unit_price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offer, err := s.game.CreateOffer(game.CreateOfferInput{
		SellerID:       sess.TeamID,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) handleOfferAccept(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	offerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offer, err := s.game.AcceptOffer(game.AcceptOfferInput{
		BuyerID:        sess.TeamID,
		OfferID:        offerID,
		Quantity:       in.Quantity,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleOfferUpdatePrice(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	offerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		UnitPrice int64 `json:"unit_price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offer, err := s.game.UpdateOffer(sess.TeamID, offerID, in.UnitPrice, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleOfferCancel(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	offerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.CancelOffer(sess.TeamID, offerID, idempotencyKey(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTradesIncoming(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": s.game.IncomingTrades(sess.TeamID)})
}

func (s *Server) handleTradesOutgoing(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": s.game.OutgoingTrades(sess.TeamID)})
}

func (s *Server) handleTradeCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		CounterpartyID int64 `json:"counterparty_id"`
		Quantity       int64 `json:"quantity"`
		UnitPrice      int64 `json:"unit_price"`
		Secret         bool  `json:"secret"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := s.game.CreateTrade(game.CreateTradeInput{
		ProposerID:     sess.TeamID,
		CounterpartyID: in.CounterpartyID,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		Secret:         in.Secret,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleTradeAccept(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := s.game.AcceptTrade(sess.TeamID, tradeID, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleTradeReject(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.RejectTrade(sess.TeamID, tradeID, idempotencyKey(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTradeCancel(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.CancelTrade(sess.TeamID, tradeID, idempotencyKey(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminTeams(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	teams, err := s.game.Teams(sess.TeamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) handleAdminTeamCreate(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	var in struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
		Industry string `json:"industry"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.game.CreateTeam(sess.TeamID, in.Name, in.Username, in.Password, ledger.Industry(in.Industry))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleAdminAdjustBalance(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	teamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		Delta  int64  `json:"delta"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.AdjustBalance(game.AdjustBalanceInput{
		AdminID:        sess.TeamID,
		TeamID:         teamID,
		Delta:          in.Delta,
		Reason:         in.Reason,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminAdjustInventory(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	teamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		Industry string `json:"industry"`
		Raw      bool   `json:"raw"`
		Delta    int64  `json:"delta"`
		Reason   string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.AdjustInventory(game.AdjustInventoryInput{
		AdminID:        sess.TeamID,
		TeamID:         teamID,
		Industry:       ledger.Industry(in.Industry),
		Raw:            in.Raw,
		Delta:          in.Delta,
		Reason:         in.Reason,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminTrades(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	trades, err := s.game.AllTrades(sess.TeamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

func (s *Server) handleAdminGifts(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	gifts, err := s.game.AllGifts(sess.TeamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gifts": gifts})
}

func (s *Server) handleAdminGiftEligible(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	teams, err := s.game.GiftEligibleTeams(sess.TeamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) handleAdminGiftGrant(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	var in struct {
		TeamID   int64 `json:"team_id"`
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gift, err := s.game.GrantGift(game.GrantGiftInput{
		AdminID:        sess.TeamID,
		TeamID:         in.TeamID,
		Quantity:       in.Quantity,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gift)
}

func (s *Server) handleAdminSetStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	next := ledger.GameStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "unknown game status")
		return
	}
	if err := s.game.SetStatus(sess.TeamID, next, idempotencyKey(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": next})
}

func (s *Server) handleAdminReallocate(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	var in struct {
		Min int64 `json:"min"`
		Max int64 `json:"max"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.ReallocateRawUnits(sess.TeamID, in.Min, in.Max); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	// Build the archive fully before committing headers so a failure can
	// still surface as a 500 instead of a truncated 200.
	var buf bytes.Buffer
	board := s.game.Leaderboard()
	err := s.game.ViewState(func(st *ledger.State) error {
		return export.WriteZip(&buf, st, board)
	})
	if err != nil {
		s.log.Error("export failed", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="tradesim-export.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, game.ErrTeamNotFound),
		errors.Is(err, game.ErrOfferNotFound),
		errors.Is(err, game.ErrTradeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotAdmin),
		errors.Is(err, game.ErrNotOwner),
		errors.Is(err, game.ErrNotProposer),
		errors.Is(err, game.ErrNotCounterparty),
		errors.Is(err, game.ErrAdminNotPlayer):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrDuplicateIdempotency),
		errors.Is(err, game.ErrGameNotRunning),
		errors.Is(err, game.ErrGameEnded),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrOfferNotOpen),
		errors.Is(err, game.ErrOfferPartiallyFilled),
		errors.Is(err, game.ErrTradeNotPending),
		errors.Is(err, game.ErrGiftAlreadyGranted),
		errors.Is(err, game.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidQuantity),
		errors.Is(err, game.ErrInvalidPrice),
		errors.Is(err, game.ErrInvalidIndustry),
		errors.Is(err, game.ErrInvalidTeamInput),
		errors.Is(err, game.ErrSelfTrade),
		errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientMaterial),
		errors.Is(err, game.ErrInsufficientRaw):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
