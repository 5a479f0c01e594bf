package game

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradesim/internal/auth"
	"tradesim/internal/ledger"
)

// Service runs every engine operation as one serialized critical section over
// the ledger. Mutations validate fully before touching state, so a returned
// error always means the ledger is unchanged.
type Service struct {
	mu    sync.RWMutex
	state *ledger.State
	log   *slog.Logger
	now   func() time.Time
	rng   *rand.Rand

	// rawCost prices the raw materials a team consumed, for the leaderboard
	// profit column. Swappable; defaults to acquisition spend.
	rawCost ValuationFunc
}

func NewService(state *ledger.State, logger *slog.Logger) *Service {
	if state == nil {
		state = ledger.NewState()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		state:   state,
		log:     logger,
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		rawCost: AcquisitionSpendValuation,
	}
}

// SetValuation replaces the leaderboard cost basis for raw materials.
func (s *Service) SetValuation(fn ValuationFunc) {
	if fn == nil {
		fn = AcquisitionSpendValuation
	}
	s.mu.Lock()
	s.rawCost = fn
	s.mu.Unlock()
}

// ViewState runs fn with read access to the ledger. Used by the export
// collaborator and the persistence autosaver; fn must not mutate.
func (s *Service) ViewState(fn func(*ledger.State) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// EncodeState serializes the ledger for a durable snapshot.
func (s *Service) EncodeState() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Encode()
}

func (s *Service) Status() ledger.GameStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status
}

// Authenticate verifies team credentials against the stored bcrypt hash.
func (s *Service) Authenticate(username, password string) (AuthResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.state.TeamByUsername(strings.TrimSpace(username))
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, team.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return AuthResult{
		TeamID:   team.ID,
		Name:     team.Name,
		Username: team.Username,
		Industry: team.Industry,
		IsAdmin:  team.IsAdmin,
	}, nil
}

type AuthResult struct {
	TeamID   int64           `json:"team_id"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Industry ledger.Industry `json:"industry"`
	IsAdmin  bool            `json:"is_admin"`
}

// ---- production ----

// Produce converts raw units into material units at the fixed 4-raw-per-1
// ratio: N units of output consume N raw units from each other industry.
func (s *Service) Produce(in ProduceInput) (ProductionEntry, error) {
	var out ProductionEntry
	if err := validQuantity(in.Quantity); err != nil {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status != ledger.StatusRunning {
		return out, ErrGameNotRunning
	}
	team, err := s.playerTeam(in.TeamID)
	if err != nil {
		return out, err
	}
	others := ledger.OtherIndustries(team.Industry)
	for _, ind := range others {
		if team.Inv(ind).Raw < in.Quantity {
			return out, fmt.Errorf("%w: %s has %d, need %d",
				ErrInsufficientRaw, ind, team.Inv(ind).Raw, in.Quantity)
		}
	}

	inputs := make(map[ledger.Industry]int64, len(others))
	for _, ind := range others {
		team.Inv(ind).Raw -= in.Quantity
		inputs[ind] = in.Quantity
	}
	team.Inv(team.Industry).Material += in.Quantity

	entry := &ledger.ProductionLog{
		ID:        s.state.NextID(),
		TeamID:    team.ID,
		Produced:  in.Quantity,
		Inputs:    inputs,
		CreatedAt: s.now(),
	}
	s.state.ProductionLogs = append(s.state.ProductionLogs, entry)
	s.commitKey(in.IdempotencyKey)

	s.log.Debug("production complete", "team", team.Name, "units", in.Quantity)
	return ProductionEntry{
		ID:        entry.ID,
		Produced:  entry.Produced,
		Inputs:    inputs,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// ProductionPlan previews whether a team can produce the requested quantity.
func (s *Service) ProductionPlan(teamID, quantity int64) (ProductionPlan, error) {
	var out ProductionPlan
	if err := validQuantity(quantity); err != nil {
		return out, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, err := s.playerTeam(teamID)
	if err != nil {
		return out, err
	}
	out.Industry = team.Industry
	out.CanProduce = true
	for _, ind := range ledger.OtherIndustries(team.Industry) {
		available := team.Inv(ind).Raw
		sufficient := available >= quantity
		if !sufficient {
			out.CanProduce = false
		}
		out.Requirements = append(out.Requirements, ProductionRequirement{
			Industry:   ind,
			Required:   quantity,
			Available:  available,
			Sufficient: sufficient,
		})
	}
	return out, nil
}

func (s *Service) ProductionHistory(teamID int64, limit int) ([]ProductionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.playerTeam(teamID); err != nil {
		return nil, err
	}
	var out []ProductionEntry
	for i := len(s.state.ProductionLogs) - 1; i >= 0; i-- {
		log := s.state.ProductionLogs[i]
		if log.TeamID != teamID {
			continue
		}
		out = append(out, ProductionEntry{
			ID:        log.ID,
			Produced:  log.Produced,
			Inputs:    log.Inputs,
			CreatedAt: log.CreatedAt,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---- marketplace ----

// CreateOffer escrows the units out of the seller's inventory immediately so
// a visible offer can always be honored.
func (s *Service) CreateOffer(in CreateOfferInput) (OfferView, error) {
	var out OfferView
	if err := validQuantity(in.Quantity); err != nil {
		return out, err
	}
	if err := validPrice(in.UnitPrice); err != nil {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status != ledger.StatusRunning {
		return out, ErrGameNotRunning
	}
	seller, err := s.playerTeam(in.SellerID)
	if err != nil {
		return out, err
	}
	own := seller.Inv(seller.Industry)
	if own.Material < in.Quantity {
		return out, fmt.Errorf("%w: have %d, offering %d",
			ErrInsufficientMaterial, own.Material, in.Quantity)
	}

	own.Material -= in.Quantity
	offer := &ledger.Offer{
		ID:        s.state.NextID(),
		SellerID:  seller.ID,
		Industry:  seller.Industry,
		Quantity:  in.Quantity,
		Remaining: in.Quantity,
		UnitPrice: in.UnitPrice,
		Status:    ledger.OfferOpen,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	s.state.Offers = append(s.state.Offers, offer)
	s.commitKey(in.IdempotencyKey)

	return s.offerView(offer), nil
}

// AcceptOffer settles a partial or full fill against an open offer.
func (s *Service) AcceptOffer(in AcceptOfferInput) (OfferView, error) {
	var out OfferView
	if err := validQuantity(in.Quantity); err != nil {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status != ledger.StatusRunning {
		return out, ErrGameNotRunning
	}
	buyer, err := s.playerTeam(in.BuyerID)
	if err != nil {
		return out, err
	}
	offer, ok := s.state.Offer(in.OfferID)
	if !ok {
		return out, ErrOfferNotFound
	}
	if offer.Status != ledger.OfferOpen {
		return out, ErrOfferNotOpen
	}
	if offer.SellerID == buyer.ID {
		return out, ErrSelfTrade
	}
	if in.Quantity > offer.Remaining {
		return out, fmt.Errorf("%w: %d remaining, requested %d",
			ErrInsufficientMaterial, offer.Remaining, in.Quantity)
	}
	seller, ok := s.state.Team(offer.SellerID)
	if !ok {
		return out, ErrTeamNotFound
	}
	cost, err := notional(in.Quantity, offer.UnitPrice)
	if err != nil {
		return out, err
	}
	if buyer.Balance < cost {
		return out, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, cost, buyer.Balance)
	}

	buyer.Balance -= cost
	seller.Balance += cost
	buyer.Inv(offer.Industry).Material += in.Quantity
	offer.Remaining -= in.Quantity
	offer.UpdatedAt = s.now()
	if offer.Remaining == 0 {
		offer.Status = ledger.OfferFilled
	}
	s.journal(ledger.TxPurchase, buyer.ID, seller.ID, offer.Industry, in.Quantity, cost,
		fmt.Sprintf("marketplace: %d %s units at %d/unit", in.Quantity, offer.Industry, offer.UnitPrice))
	s.commitKey(in.IdempotencyKey)

	s.log.Debug("offer filled", "offer", offer.ID, "buyer", buyer.Name, "units", in.Quantity, "cost", cost)
	return s.offerView(offer), nil
}

// CancelOffer retires an untouched open offer and returns the escrow. A
// partially filled offer stays live until it fills.
func (s *Service) CancelOffer(sellerID, offerID int64, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(idempotencyKey); err != nil {
		return err
	}
	if s.state.Status != ledger.StatusRunning {
		return ErrGameNotRunning
	}
	offer, ok := s.state.Offer(offerID)
	if !ok {
		return ErrOfferNotFound
	}
	if offer.SellerID != sellerID {
		return ErrNotOwner
	}
	if offer.Status != ledger.OfferOpen {
		return ErrOfferNotOpen
	}
	if offer.Remaining != offer.Quantity {
		return ErrOfferPartiallyFilled
	}
	seller, ok := s.state.Team(offer.SellerID)
	if !ok {
		return ErrTeamNotFound
	}

	seller.Inv(offer.Industry).Material += offer.Remaining
	offer.Status = ledger.OfferCancelled
	offer.UpdatedAt = s.now()
	s.commitKey(idempotencyKey)
	return nil
}

// UpdateOffer changes the unit price of an open offer. The escrow is
// untouched, so only the price can move.
func (s *Service) UpdateOffer(sellerID, offerID, unitPrice int64, idempotencyKey string) (OfferView, error) {
	var out OfferView
	if err := validPrice(unitPrice); err != nil {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(idempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status != ledger.StatusRunning {
		return out, ErrGameNotRunning
	}
	offer, ok := s.state.Offer(offerID)
	if !ok {
		return out, ErrOfferNotFound
	}
	if offer.SellerID != sellerID {
		return out, ErrNotOwner
	}
	if offer.Status != ledger.OfferOpen {
		return out, ErrOfferNotOpen
	}

	offer.UnitPrice = unitPrice
	offer.UpdatedAt = s.now()
	s.commitKey(idempotencyKey)
	return s.offerView(offer), nil
}

// OpenOffers lists open offers, optionally filtered by industry and with one
// team's own offers excluded. Sorted by ascending unit price.
func (s *Service) OpenOffers(industry ledger.Industry, excludeTeamID int64) []OfferView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []OfferView
	for _, offer := range s.state.Offers {
		if offer.Status != ledger.OfferOpen {
			continue
		}
		if industry != "" && offer.Industry != industry {
			continue
		}
		if excludeTeamID != 0 && offer.SellerID == excludeTeamID {
			continue
		}
		out = append(out, s.offerView(offer))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UnitPrice < out[j].UnitPrice })
	return out
}

func (s *Service) TeamOffers(teamID int64) []OfferView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []OfferView
	for i := len(s.state.Offers) - 1; i >= 0; i-- {
		if s.state.Offers[i].SellerID == teamID {
			out = append(out, s.offerView(s.state.Offers[i]))
		}
	}
	return out
}

// ---- trade requests ----

// CreateTrade opens a bilateral request. The proposer is always the seller of
// its own industry's material units, and the units are escrowed at creation
// exactly like marketplace offers.
func (s *Service) CreateTrade(in CreateTradeInput) (TradeView, error) {
	var out TradeView
	if err := validQuantity(in.Quantity); err != nil {
		return out, err
	}
	if err := validPrice(in.UnitPrice); err != nil {
		return out, err
	}
	if in.ProposerID == in.CounterpartyID {
		return out, ErrSelfTrade
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status != ledger.StatusRunning {
		return out, ErrGameNotRunning
	}
	proposer, err := s.playerTeam(in.ProposerID)
	if err != nil {
		return out, err
	}
	counterparty, err := s.playerTeam(in.CounterpartyID)
	if err != nil {
		return out, err
	}
	own := proposer.Inv(proposer.Industry)
	if own.Material < in.Quantity {
		return out, fmt.Errorf("%w: have %d, proposing %d",
			ErrInsufficientMaterial, own.Material, in.Quantity)
	}

	own.Material -= in.Quantity
	trade := &ledger.TradeRequest{
		ID:             s.state.NextID(),
		ProposerID:     proposer.ID,
		CounterpartyID: counterparty.ID,
		Industry:       proposer.Industry,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		Secret:         in.Secret,
		Status:         ledger.TradePending,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}
	s.state.Trades = append(s.state.Trades, trade)
	s.commitKey(in.IdempotencyKey)

	return s.tradeView(trade), nil
}

// AcceptTrade settles a pending request in full: counterparty pays, escrowed
// units transfer. Secrecy never changes settlement, only visibility.
func (s *Service) AcceptTrade(counterpartyID, tradeID int64, idempotencyKey string) (TradeView, error) {
	var out TradeView

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(idempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status != ledger.StatusRunning {
		return out, ErrGameNotRunning
	}
	trade, ok := s.state.Trade(tradeID)
	if !ok {
		return out, ErrTradeNotFound
	}
	if trade.CounterpartyID != counterpartyID {
		return out, ErrNotCounterparty
	}
	if trade.Status != ledger.TradePending {
		return out, ErrTradeNotPending
	}
	buyer, ok := s.state.Team(trade.CounterpartyID)
	if !ok {
		return out, ErrTeamNotFound
	}
	seller, ok := s.state.Team(trade.ProposerID)
	if !ok {
		return out, ErrTeamNotFound
	}
	cost, err := notional(trade.Quantity, trade.UnitPrice)
	if err != nil {
		return out, err
	}
	if buyer.Balance < cost {
		return out, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, cost, buyer.Balance)
	}

	buyer.Balance -= cost
	seller.Balance += cost
	buyer.Inv(trade.Industry).Material += trade.Quantity
	trade.Status = ledger.TradeAccepted
	trade.UpdatedAt = s.now()
	s.journal(tradeTxType(trade.Secret), buyer.ID, seller.ID, trade.Industry, trade.Quantity, cost,
		fmt.Sprintf("trade: %d %s units at %d/unit", trade.Quantity, trade.Industry, trade.UnitPrice))
	s.commitKey(idempotencyKey)

	s.log.Debug("trade accepted", "trade", trade.ID, "secret", trade.Secret, "cost", cost)
	return s.tradeView(trade), nil
}

func (s *Service) RejectTrade(counterpartyID, tradeID int64, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(idempotencyKey); err != nil {
		return err
	}
	if s.state.Status != ledger.StatusRunning {
		return ErrGameNotRunning
	}
	trade, ok := s.state.Trade(tradeID)
	if !ok {
		return ErrTradeNotFound
	}
	if trade.CounterpartyID != counterpartyID {
		return ErrNotCounterparty
	}
	return s.closeTrade(trade, ledger.TradeRejected, idempotencyKey)
}

func (s *Service) CancelTrade(proposerID, tradeID int64, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(idempotencyKey); err != nil {
		return err
	}
	if s.state.Status != ledger.StatusRunning {
		return ErrGameNotRunning
	}
	trade, ok := s.state.Trade(tradeID)
	if !ok {
		return ErrTradeNotFound
	}
	if trade.ProposerID != proposerID {
		return ErrNotProposer
	}
	return s.closeTrade(trade, ledger.TradeCancelled, idempotencyKey)
}

// closeTrade terminates a pending request and refunds the escrow exactly once.
// Caller holds the write lock and has verified the acting party.
func (s *Service) closeTrade(trade *ledger.TradeRequest, next ledger.TradeStatus, idempotencyKey string) error {
	if trade.Status != ledger.TradePending {
		return ErrTradeNotPending
	}
	proposer, ok := s.state.Team(trade.ProposerID)
	if !ok {
		return ErrTeamNotFound
	}
	proposer.Inv(trade.Industry).Material += trade.Quantity
	trade.Status = next
	trade.UpdatedAt = s.now()
	s.commitKey(idempotencyKey)
	return nil
}

// IncomingTrades lists pending requests addressed to the team.
func (s *Service) IncomingTrades(teamID int64) []TradeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeView
	for i := len(s.state.Trades) - 1; i >= 0; i-- {
		trade := s.state.Trades[i]
		if trade.CounterpartyID == teamID && trade.Status == ledger.TradePending {
			out = append(out, s.tradeView(trade))
		}
	}
	return out
}

func (s *Service) OutgoingTrades(teamID int64) []TradeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeView
	for i := len(s.state.Trades) - 1; i >= 0; i-- {
		trade := s.state.Trades[i]
		if trade.ProposerID == teamID {
			out = append(out, s.tradeView(trade))
		}
	}
	return out
}

// AllTrades is the admin disclosure view: every request, secret or not.
func (s *Service) AllTrades(adminID int64) ([]TradeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.adminTeam(adminID); err != nil {
		return nil, err
	}
	var out []TradeView
	for i := len(s.state.Trades) - 1; i >= 0; i-- {
		out = append(out, s.tradeView(s.state.Trades[i]))
	}
	return out, nil
}

// ---- gifts ----

// GrantGift credits material units to a team's own industry, once per team
// for the whole game. Allowed in any status except Ended.
func (s *Service) GrantGift(in GrantGiftInput) (GiftView, error) {
	var out GiftView
	if err := validQuantity(in.Quantity); err != nil {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return out, err
	}
	if s.state.Status == ledger.StatusEnded {
		return out, ErrGameEnded
	}
	admin, err := s.adminTeam(in.AdminID)
	if err != nil {
		return out, err
	}
	team, err := s.playerTeam(in.TeamID)
	if err != nil {
		return out, err
	}
	if team.GiftReceived {
		return out, ErrGiftAlreadyGranted
	}

	team.Inv(team.Industry).Material += in.Quantity
	team.GiftReceived = true
	gift := &ledger.Gift{
		ID:        s.state.NextID(),
		TeamID:    team.ID,
		AdminID:   admin.ID,
		Industry:  team.Industry,
		Quantity:  in.Quantity,
		CreatedAt: s.now(),
	}
	s.state.Gifts = append(s.state.Gifts, gift)
	s.journal(ledger.TxGift, 0, team.ID, team.Industry, in.Quantity, 0,
		fmt.Sprintf("admin gift: %d %s material units", in.Quantity, team.Industry))
	s.commitKey(in.IdempotencyKey)

	s.log.Info("gift granted", "team", team.Name, "units", in.Quantity)
	return s.giftView(gift), nil
}

func (s *Service) AllGifts(adminID int64) ([]GiftView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.adminTeam(adminID); err != nil {
		return nil, err
	}
	var out []GiftView
	for i := len(s.state.Gifts) - 1; i >= 0; i-- {
		out = append(out, s.giftView(s.state.Gifts[i]))
	}
	return out, nil
}

// GiftEligibleTeams lists teams that have not yet received their gift.
func (s *Service) GiftEligibleTeams(adminID int64) ([]TeamSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.adminTeam(adminID); err != nil {
		return nil, err
	}
	var out []TeamSnapshot
	for _, team := range s.state.Teams {
		if !team.IsAdmin && !team.GiftReceived {
			out = append(out, s.teamSnapshot(team))
		}
	}
	return out, nil
}

// ---- admin control ----

// SetStatus moves the game lifecycle state machine.
func (s *Service) SetStatus(adminID int64, next ledger.GameStatus, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(idempotencyKey); err != nil {
		return err
	}
	if _, err := s.adminTeam(adminID); err != nil {
		return err
	}
	if !s.state.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state.Status, next)
	}
	prev := s.state.Status
	s.state.Status = next
	s.commitKey(idempotencyKey)
	s.log.Info("game status changed", "from", prev, "to", next)
	return nil
}

// AdjustBalance applies a signed currency delta by admin decree. Balances may
// go negative here; this is the only path that allows debt.
func (s *Service) AdjustBalance(in AdjustBalanceInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return err
	}
	if s.state.Status == ledger.StatusEnded {
		return ErrGameEnded
	}
	admin, err := s.adminTeam(in.AdminID)
	if err != nil {
		return err
	}
	team, err := s.playerTeam(in.TeamID)
	if err != nil {
		return err
	}

	team.Balance += in.Delta
	s.journal(ledger.TxAdjustment, admin.ID, team.ID, "", 0, in.Delta,
		adjustmentReason("balance", in.Reason))
	s.commitKey(in.IdempotencyKey)
	return nil
}

// AdjustInventory applies a signed unit delta to one inventory row. Deltas
// that would drive a count negative are rejected, never clamped.
func (s *Service) AdjustInventory(in AdjustInventoryInput) error {
	if !in.Industry.Valid() {
		return ErrInvalidIndustry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(in.IdempotencyKey); err != nil {
		return err
	}
	if s.state.Status == ledger.StatusEnded {
		return ErrGameEnded
	}
	admin, err := s.adminTeam(in.AdminID)
	if err != nil {
		return err
	}
	team, err := s.playerTeam(in.TeamID)
	if err != nil {
		return err
	}
	inv := team.Inv(in.Industry)
	kind := "material"
	cur := inv.Material
	if in.Raw {
		kind = "raw"
		cur = inv.Raw
	}
	if cur+in.Delta < 0 {
		if in.Raw {
			return fmt.Errorf("%w: %s raw would go negative", ErrInsufficientRaw, in.Industry)
		}
		return fmt.Errorf("%w: %s material would go negative", ErrInsufficientMaterial, in.Industry)
	}

	if in.Raw {
		inv.Raw += in.Delta
	} else {
		inv.Material += in.Delta
	}
	s.journal(ledger.TxAdjustment, admin.ID, team.ID, in.Industry, in.Delta, 0,
		adjustmentReason(kind+" inventory", in.Reason))
	s.commitKey(in.IdempotencyKey)
	return nil
}

// ---- queries ----

func (s *Service) TeamSnapshot(teamID int64) (TeamSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.state.Team(teamID)
	if !ok {
		return TeamSnapshot{}, ErrTeamNotFound
	}
	return s.teamSnapshot(team), nil
}

// Teams is the admin roster view.
func (s *Service) Teams(adminID int64) ([]TeamSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.adminTeam(adminID); err != nil {
		return nil, err
	}
	var out []TeamSnapshot
	for _, team := range s.state.Teams {
		if !team.IsAdmin {
			out = append(out, s.teamSnapshot(team))
		}
	}
	return out, nil
}

// ---- internals ----

// checkKey rejects a reused idempotency key. The key is only recorded by
// commitKey after the operation applies, so a failed call may be retried with
// the same key.
func (s *Service) checkKey(key string) error {
	if key == "" {
		return nil
	}
	if s.state.IdempotencyKeys[key] {
		return ErrDuplicateIdempotency
	}
	return nil
}

func (s *Service) commitKey(key string) {
	s.state.ClaimIdempotency(key)
}

func (s *Service) playerTeam(id int64) (*ledger.Team, error) {
	team, ok := s.state.Team(id)
	if !ok {
		return nil, ErrTeamNotFound
	}
	if team.IsAdmin {
		return nil, ErrAdminNotPlayer
	}
	return team, nil
}

func (s *Service) adminTeam(id int64) (*ledger.Team, error) {
	team, ok := s.state.Team(id)
	if !ok || !team.IsAdmin {
		return nil, ErrNotAdmin
	}
	return team, nil
}

func (s *Service) journal(txType ledger.TxType, from, to int64, industry ledger.Industry, units, amount int64, desc string) {
	s.state.Transactions = append(s.state.Transactions, &ledger.Transaction{
		ID:          s.state.NextID(),
		GroupID:     uuid.NewString(),
		Type:        txType,
		FromTeamID:  from,
		ToTeamID:    to,
		Industry:    industry,
		Units:       units,
		Amount:      amount,
		Description: desc,
		CreatedAt:   s.now(),
	})
}

func (s *Service) teamName(id int64) string {
	if team, ok := s.state.Team(id); ok {
		return team.Name
	}
	return "unknown"
}

func (s *Service) offerView(o *ledger.Offer) OfferView {
	return OfferView{
		ID:         o.ID,
		SellerID:   o.SellerID,
		SellerName: s.teamName(o.SellerID),
		Industry:   o.Industry,
		Quantity:   o.Quantity,
		Remaining:  o.Remaining,
		UnitPrice:  o.UnitPrice,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
	}
}

func (s *Service) tradeView(t *ledger.TradeRequest) TradeView {
	// An overflowing total renders as 0; AcceptTrade rejects it at settlement.
	total, err := notional(t.Quantity, t.UnitPrice)
	if err != nil {
		total = 0
	}
	return TradeView{
		ID:               t.ID,
		ProposerID:       t.ProposerID,
		ProposerName:     s.teamName(t.ProposerID),
		CounterpartyID:   t.CounterpartyID,
		CounterpartyName: s.teamName(t.CounterpartyID),
		Industry:         t.Industry,
		Quantity:         t.Quantity,
		UnitPrice:        t.UnitPrice,
		Total:            total,
		Secret:           t.Secret,
		Status:           t.Status,
		CreatedAt:        t.CreatedAt,
	}
}

func (s *Service) giftView(g *ledger.Gift) GiftView {
	return GiftView{
		ID:        g.ID,
		TeamID:    g.TeamID,
		TeamName:  s.teamName(g.TeamID),
		Industry:  g.Industry,
		Quantity:  g.Quantity,
		CreatedAt: g.CreatedAt,
	}
}

func (s *Service) teamSnapshot(team *ledger.Team) TeamSnapshot {
	snap := TeamSnapshot{
		ID:           team.ID,
		Name:         team.Name,
		Industry:     team.Industry,
		Balance:      team.Balance,
		GiftReceived: team.GiftReceived,
	}
	for _, ind := range ledger.Industries {
		inv := team.Inv(ind)
		snap.Inventory = append(snap.Inventory, InventoryRow{
			Industry: ind,
			Raw:      inv.Raw,
			Material: inv.Material,
		})
	}
	return snap
}

func adjustmentReason(kind, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "admin " + kind + " adjustment"
	}
	return "admin " + kind + " adjustment: " + reason
}
