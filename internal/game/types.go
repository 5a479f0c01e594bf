package game

import (
	"time"

	"tradesim/internal/ledger"
)

type TeamSnapshot struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Industry     ledger.Industry `json:"industry"`
	Balance      int64           `json:"balance"`
	Inventory    []InventoryRow  `json:"inventory"`
	GiftReceived bool            `json:"gift_received"`
}

type InventoryRow struct {
	Industry ledger.Industry `json:"industry"`
	Raw      int64           `json:"raw_units"`
	Material int64           `json:"material_units"`
}

type OfferView struct {
	ID         int64              `json:"id"`
	SellerID   int64              `json:"seller_id"`
	SellerName string             `json:"seller_name"`
	Industry   ledger.Industry    `json:"industry"`
	Quantity   int64              `json:"quantity"`
	Remaining  int64              `json:"remaining"`
	UnitPrice  int64              `json:"unit_price"`
	Status     ledger.OfferStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
}

type TradeView struct {
	ID               int64              `json:"id"`
	ProposerID       int64              `json:"proposer_id"`
	ProposerName     string             `json:"proposer_name"`
	CounterpartyID   int64              `json:"counterparty_id"`
	CounterpartyName string             `json:"counterparty_name"`
	Industry         ledger.Industry    `json:"industry"`
	Quantity         int64              `json:"quantity"`
	UnitPrice        int64              `json:"unit_price"`
	Total            int64              `json:"total"`
	Secret           bool               `json:"secret"`
	Status           ledger.TradeStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
}

type GiftView struct {
	ID        int64           `json:"id"`
	TeamID    int64           `json:"team_id"`
	TeamName  string          `json:"team_name"`
	Industry  ledger.Industry `json:"industry"`
	Quantity  int64           `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProductionRequirement struct {
	Industry   ledger.Industry `json:"industry"`
	Required   int64           `json:"required"`
	Available  int64           `json:"available"`
	Sufficient bool            `json:"sufficient"`
}

type ProductionPlan struct {
	Industry     ledger.Industry         `json:"industry"`
	CanProduce   bool                    `json:"can_produce"`
	Requirements []ProductionRequirement `json:"requirements"`
}

type ProductionEntry struct {
	ID        int64                     `json:"id"`
	Produced  int64                     `json:"produced"`
	Inputs    map[ledger.Industry]int64 `json:"inputs"`
	CreatedAt time.Time                 `json:"created_at"`
}

type LeaderboardRow struct {
	Rank            int64           `json:"rank"`
	TeamID          int64           `json:"team_id"`
	TeamName        string          `json:"team_name"`
	Industry        ledger.Industry `json:"industry"`
	Revenue         int64           `json:"revenue"`
	Profit          int64           `json:"profit"`
	TotalProduction int64           `json:"total_production"`
	TotalPurchases  int64           `json:"total_purchases"`
	Balance         int64           `json:"balance"`
}

type ProduceInput struct {
	TeamID         int64
	Quantity       int64
	IdempotencyKey string
}

type CreateOfferInput struct {
	SellerID       int64
	Quantity       int64
	UnitPrice      int64
	IdempotencyKey string
}

type AcceptOfferInput struct {
	BuyerID        int64
	OfferID        int64
	Quantity       int64
	IdempotencyKey string
}

type CreateTradeInput struct {
	ProposerID     int64
	CounterpartyID int64
	Quantity       int64
	UnitPrice      int64
	Secret         bool
	IdempotencyKey string
}

type GrantGiftInput struct {
	AdminID        int64
	TeamID         int64
	Quantity       int64
	IdempotencyKey string
}

type AdjustBalanceInput struct {
	AdminID        int64
	TeamID         int64
	Delta          int64
	Reason         string
	IdempotencyKey string
}

type AdjustInventoryInput struct {
	AdminID        int64
	TeamID         int64
	Industry       ledger.Industry
	Raw            bool
	Delta          int64
	Reason         string
	IdempotencyKey string
}
