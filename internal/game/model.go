package game

import (
	"errors"
	"fmt"

	"tradesim/internal/ledger"
)

const (
	// InitialBalance is the starting currency for every playing team.
	InitialBalance = int64(250_000)

	TeamsPerIndustry = 4
	TotalTeams       = TeamsPerIndustry * 5

	// Initial raw allocation per industry is drawn uniformly from this range.
	MinInitialRawUnits = 10
	MaxInitialRawUnits = 50
)

var (
	ErrTeamNotFound         = errors.New("team not found")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrOfferNotFound        = errors.New("offer not found")
	ErrTradeNotFound        = errors.New("trade request not found")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("price must not be negative")
	ErrInvalidIndustry      = errors.New("unknown industry")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientMaterial = errors.New("insufficient material units")
	ErrInsufficientRaw      = errors.New("insufficient raw materials")
	ErrGameNotRunning       = errors.New("game is not running")
	ErrGameEnded            = errors.New("game has ended")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOfferNotOpen         = errors.New("offer is not open")
	ErrOfferPartiallyFilled = errors.New("offer already partially filled")
	ErrTradeNotPending      = errors.New("trade request is not pending")
	ErrSelfTrade            = errors.New("cannot trade with yourself")
	ErrNotOwner             = errors.New("not the offer owner")
	ErrNotProposer          = errors.New("not the trade proposer")
	ErrNotCounterparty      = errors.New("not the trade counterparty")
	ErrNotAdmin             = errors.New("admin privileges required")
	ErrAdminNotPlayer       = errors.New("admin does not take part in trading")
	ErrGiftAlreadyGranted   = errors.New("team has already received a gift")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidTeamInput     = errors.New("invalid team details")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
)

func validQuantity(n int64) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func validPrice(p int64) error {
	if p < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// notional guards quantity*price against int64 overflow. Quantities and
// prices are small in practice but admin adjustments can inflate them.
func notional(quantity, unitPrice int64) (int64, error) {
	if quantity == 0 || unitPrice == 0 {
		return 0, nil
	}
	total := quantity * unitPrice
	if total/quantity != unitPrice {
		return 0, fmt.Errorf("notional overflow: %d x %d", quantity, unitPrice)
	}
	return total, nil
}

func tradeTxType(secret bool) ledger.TxType {
	if secret {
		return ledger.TxSecretTrade
	}
	return ledger.TxTrade
}
