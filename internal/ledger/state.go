// Package ledger holds the authoritative game state: teams, inventories,
// marketplace offers, trade requests and the transaction journal. The state is
// plain data; serialization of access is the responsibility of the engine
// layer, which guards a single *State behind its own lock.
package ledger

import (
	"time"
)

type Industry string

const (
	Cement    Industry = "Cement"
	Energy    Industry = "Energy"
	Iron      Industry = "Iron"
	Aluminium Industry = "Aluminium"
	Wood      Industry = "Wood"
)

// Industries lists the five sectors in canonical order.
var Industries = []Industry{Cement, Energy, Iron, Aluminium, Wood}

func (i Industry) Valid() bool {
	for _, ind := range Industries {
		if ind == i {
			return true
		}
	}
	return false
}

// OtherIndustries returns the four industries a team consumes raw units from.
func OtherIndustries(own Industry) []Industry {
	out := make([]Industry, 0, len(Industries)-1)
	for _, ind := range Industries {
		if ind != own {
			out = append(out, ind)
		}
	}
	return out
}

type GameStatus string

const (
	StatusSetup   GameStatus = "setup"
	StatusRunning GameStatus = "running"
	StatusPaused  GameStatus = "paused"
	StatusEnded   GameStatus = "ended"
)

func (s GameStatus) Valid() bool {
	switch s {
	case StatusSetup, StatusRunning, StatusPaused, StatusEnded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the admin state machine permits the move.
// Setup -> Running <-> Paused -> Ended; Ended is terminal.
func (s GameStatus) CanTransitionTo(next GameStatus) bool {
	switch s {
	case StatusSetup:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusPaused || next == StatusEnded
	case StatusPaused:
		return next == StatusRunning || next == StatusEnded
	default:
		return false
	}
}

type OfferStatus string

const (
	OfferOpen      OfferStatus = "open"
	OfferFilled    OfferStatus = "filled"
	OfferCancelled OfferStatus = "cancelled"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCancelled TradeStatus = "cancelled"
)

type TxType string

const (
	TxPurchase    TxType = "purchase"
	TxTrade       TxType = "trade"
	TxSecretTrade TxType = "secret_trade"
	TxGift        TxType = "gift"
	TxAdjustment  TxType = "adjustment"
)

// Inventory tracks one team's holdings for one industry. Raw units feed
// production; material units are finished output and the only tradable good.
type Inventory struct {
	Raw      int64 `json:"raw"`
	Material int64 `json:"material"`
}

type Team struct {
	ID             int64                   `json:"id"`
	Name           string                  `json:"name"`
	Username       string                  `json:"username"`
	PasswordHash   string                  `json:"password_hash"`
	Industry       Industry                `json:"industry"`
	IsAdmin        bool                    `json:"is_admin"`
	InitialBalance int64                   `json:"initial_balance"`
	Balance        int64                   `json:"balance"`
	Inventory      map[Industry]*Inventory `json:"inventory"`
	GiftReceived   bool                    `json:"gift_received"`
	CreatedAt      time.Time               `json:"created_at"`
}

// Inv returns the team's inventory row for an industry, creating it on first
// touch so callers never observe a nil row.
func (t *Team) Inv(ind Industry) *Inventory {
	if t.Inventory == nil {
		t.Inventory = make(map[Industry]*Inventory, len(Industries))
	}
	inv, ok := t.Inventory[ind]
	if !ok {
		inv = &Inventory{}
		t.Inventory[ind] = inv
	}
	return inv
}

// Materials is the team's own-industry finished inventory.
func (t *Team) Materials() int64 {
	return t.Inv(t.Industry).Material
}

type Offer struct {
	ID        int64       `json:"id"`
	SellerID  int64       `json:"seller_id"`
	Industry  Industry    `json:"industry"`
	Quantity  int64       `json:"quantity"`
	Remaining int64       `json:"remaining"`
	UnitPrice int64       `json:"unit_price"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type TradeRequest struct {
	ID             int64       `json:"id"`
	ProposerID     int64       `json:"proposer_id"`
	CounterpartyID int64       `json:"counterparty_id"`
	Industry       Industry    `json:"industry"`
	Quantity       int64       `json:"quantity"`
	UnitPrice      int64       `json:"unit_price"`
	Secret         bool        `json:"secret"`
	Status         TradeStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Gift struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	AdminID   int64     `json:"admin_id"`
	Industry  Industry  `json:"industry"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is one journal row. For settlements From is the buyer and To is
// the seller; gifts and adjustments use To only (From = 0 means the system).
type Transaction struct {
	ID          int64     `json:"id"`
	GroupID     string    `json:"group_id"`
	Type        TxType    `json:"type"`
	FromTeamID  int64     `json:"from_team_id"`
	ToTeamID    int64     `json:"to_team_id"`
	Industry    Industry  `json:"industry,omitempty"`
	Units       int64     `json:"units"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductionLog struct {
	ID        int64              `json:"id"`
	TeamID    int64              `json:"team_id"`
	Produced  int64              `json:"produced"`
	Inputs    map[Industry]int64 `json:"inputs"`
	CreatedAt time.Time          `json:"created_at"`
}

// State is the whole ledger. Entity slices keep creation order, which the
// leaderboard relies on for deterministic tie-breaking.
type State struct {
	Status          GameStatus      `json:"status"`
	Teams           []*Team         `json:"teams"`
	Offers          []*Offer        `json:"offers"`
	Trades          []*TradeRequest `json:"trades"`
	Gifts           []*Gift         `json:"gifts"`
	Transactions    []*Transaction  `json:"transactions"`
	ProductionLogs  []*ProductionLog `json:"production_logs"`
	IdempotencyKeys map[string]bool `json:"idempotency_keys"`
	LastID          int64           `json:"last_id"`
}

func NewState() *State {
	return &State{
		Status:          StatusSetup,
		IdempotencyKeys: make(map[string]bool),
	}
}

// NextID issues a process-unique sequence id shared by all entity kinds.
func (s *State) NextID() int64 {
	s.LastID++
	return s.LastID
}

func (s *State) Team(id int64) (*Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

func (s *State) TeamByUsername(username string) (*Team, bool) {
	for _, t := range s.Teams {
		if t.Username == username {
			return t, true
		}
	}
	return nil, false
}

func (s *State) Offer(id int64) (*Offer, bool) {
	for _, o := range s.Offers {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (s *State) Trade(id int64) (*TradeRequest, bool) {
	for _, tr := range s.Trades {
		if tr.ID == id {
			return tr, true
		}
	}
	return nil, false
}

// ClaimIdempotency records a key and reports whether it was unused. An empty
// key is a no-op claim: callers without retry semantics may omit the key.
func (s *State) ClaimIdempotency(key string) bool {
	if key == "" {
		return true
	}
	if s.IdempotencyKeys == nil {
		s.IdempotencyKeys = make(map[string]bool)
	}
	if s.IdempotencyKeys[key] {
		return false
	}
	s.IdempotencyKeys[key] = true
	return true
}
