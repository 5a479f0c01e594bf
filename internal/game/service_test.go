package game

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"tradesim/internal/ledger"
)

// newTestService builds a running game with one team per industry plus a
// second cement team and the admin. Teams are created directly on the ledger
// so tests control every starting number.
func newTestService(t *testing.T) (*Service, map[string]*ledger.Team) {
	t.Helper()
	state := ledger.NewState()
	state.Status = ledger.StatusRunning

	teams := map[string]*ledger.Team{}
	add := func(key string, industry ledger.Industry, admin bool) {
		team := &ledger.Team{
			ID:             state.NextID(),
			Name:           key,
			Username:       key,
			Industry:       industry,
			IsAdmin:        admin,
			InitialBalance: InitialBalance,
			Balance:        InitialBalance,
			CreatedAt:      time.Now(),
		}
		if !admin {
			for _, ind := range ledger.Industries {
				team.Inv(ind).Raw = 10
			}
		}
		state.Teams = append(state.Teams, team)
		teams[key] = team
	}
	add("admin", "", true)
	add("cement", ledger.Cement, false)
	add("cement2", ledger.Cement, false)
	add("energy", ledger.Energy, false)
	add("iron", ledger.Iron, false)
	add("aluminium", ledger.Aluminium, false)
	add("wood", ledger.Wood, false)

	return NewService(state, nil), teams
}

func TestProduceConsumesOtherIndustriesRaw(t *testing.T) {
	svc, teams := newTestService(t)
	cement := teams["cement"]

	entry, err := svc.Produce(ProduceInput{TeamID: cement.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if entry.Produced != 4 {
		t.Fatalf("produced %d, want 4", entry.Produced)
	}
	if got := cement.Inv(ledger.Cement).Material; got != 4 {
		t.Fatalf("material = %d, want 4", got)
	}
	// Own raw untouched, every other industry debited.
	if got := cement.Inv(ledger.Cement).Raw; got != 10 {
		t.Fatalf("own raw = %d, want 10", got)
	}
	for _, ind := range ledger.OtherIndustries(ledger.Cement) {
		if got := cement.Inv(ind).Raw; got != 6 {
			t.Fatalf("%s raw = %d, want 6", ind, got)
		}
	}

	history, err := svc.ProductionHistory(cement.ID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Produced != 4 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestProduceInsufficientRawLeavesStateUntouched(t *testing.T) {
	svc, teams := newTestService(t)
	cement := teams["cement"]
	cement.Inv(ledger.Wood).Raw = 3

	_, err := svc.Produce(ProduceInput{TeamID: cement.ID, Quantity: 4})
	if !errors.Is(err, ErrInsufficientRaw) {
		t.Fatalf("err = %v, want ErrInsufficientRaw", err)
	}
	for _, ind := range []ledger.Industry{ledger.Energy, ledger.Iron, ledger.Aluminium} {
		if got := cement.Inv(ind).Raw; got != 10 {
			t.Fatalf("%s raw = %d, want 10 after failed produce", ind, got)
		}
	}
	if got := cement.Inv(ledger.Cement).Material; got != 0 {
		t.Fatalf("material = %d, want 0 after failed produce", got)
	}
}

func TestProduceRequiresRunningGame(t *testing.T) {
	svc, teams := newTestService(t)
	if err := svc.SetStatus(teams["admin"].ID, ledger.StatusPaused, ""); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err := svc.Produce(ProduceInput{TeamID: teams["cement"].ID, Quantity: 1})
	if !errors.Is(err, ErrGameNotRunning) {
		t.Fatalf("err = %v, want ErrGameNotRunning", err)
	}
}

func TestCreateOfferEscrowsUnits(t *testing.T) {
	svc, teams := newTestService(t)
	wood := teams["wood"]
	wood.Inv(ledger.Wood).Material = 10

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 7, UnitPrice: 5})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if offer.Status != ledger.OfferOpen || offer.Remaining != 7 {
		t.Fatalf("unexpected offer %+v", offer)
	}
	if got := wood.Inv(ledger.Wood).Material; got != 3 {
		t.Fatalf("material after escrow = %d, want 3", got)
	}

	_, err = svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 4, UnitPrice: 5})
	if !errors.Is(err, ErrInsufficientMaterial) {
		t.Fatalf("err = %v, want ErrInsufficientMaterial", err)
	}
}

func TestAcceptOfferPartialThenFullFill(t *testing.T) {
	svc, teams := newTestService(t)
	wood, iron := teams["wood"], teams["iron"]
	wood.Inv(ledger.Wood).Material = 10
	iron.Balance = 60

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 10, UnitPrice: 6})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	view, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("first fill: %v", err)
	}
	if view.Status != ledger.OfferOpen || view.Remaining != 6 {
		t.Fatalf("after partial fill %+v", view)
	}
	if iron.Balance != 36 {
		t.Fatalf("buyer balance = %d, want 36", iron.Balance)
	}
	if got := iron.Inv(ledger.Wood).Material; got != 4 {
		t.Fatalf("buyer wood material = %d, want 4", got)
	}

	view, err = svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 6})
	if err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if view.Status != ledger.OfferFilled || view.Remaining != 0 {
		t.Fatalf("after full fill %+v", view)
	}
	if iron.Balance != 0 {
		t.Fatalf("buyer balance = %d, want 0", iron.Balance)
	}
	if wood.Balance != InitialBalance+60 {
		t.Fatalf("seller balance = %d, want %d", wood.Balance, InitialBalance+60)
	}

	_, err = svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 1})
	if !errors.Is(err, ErrOfferNotOpen) {
		t.Fatalf("err = %v, want ErrOfferNotOpen", err)
	}
}

func TestAcceptOfferValidation(t *testing.T) {
	svc, teams := newTestService(t)
	wood, iron := teams["wood"], teams["iron"]
	wood.Inv(ledger.Wood).Material = 10
	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 10, UnitPrice: 1000})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: wood.ID, OfferID: offer.ID, Quantity: 1}); !errors.Is(err, ErrSelfTrade) {
		t.Fatalf("self trade err = %v", err)
	}
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 11}); !errors.Is(err, ErrInsufficientMaterial) {
		t.Fatalf("over-remaining err = %v", err)
	}
	iron.Balance = 10
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 1}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("insufficient funds err = %v", err)
	}
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: 9999, Quantity: 1}); !errors.Is(err, ErrOfferNotFound) {
		t.Fatalf("missing offer err = %v", err)
	}
}

func TestCancelOfferRefundsOnlyUnconsumed(t *testing.T) {
	svc, teams := newTestService(t)
	wood, iron := teams["wood"], teams["iron"]
	wood.Inv(ledger.Wood).Material = 10

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 10, UnitPrice: 2})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if err := svc.CancelOffer(iron.ID, offer.ID, ""); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("cancel by non-owner err = %v", err)
	}
	if err := svc.CancelOffer(wood.ID, offer.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := wood.Inv(ledger.Wood).Material; got != 10 {
		t.Fatalf("material after cancel = %d, want 10", got)
	}

	offer, err = svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 10, UnitPrice: 2})
	if err != nil {
		t.Fatalf("create second offer: %v", err)
	}
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 3}); err != nil {
		t.Fatalf("partial fill: %v", err)
	}
	if err := svc.CancelOffer(wood.ID, offer.ID, ""); !errors.Is(err, ErrOfferPartiallyFilled) {
		t.Fatalf("cancel partially filled err = %v", err)
	}
}

func TestTradeRequestLifecycle(t *testing.T) {
	svc, teams := newTestService(t)
	energy, wood := teams["energy"], teams["wood"]
	energy.Inv(ledger.Energy).Material = 8

	trade, err := svc.CreateTrade(CreateTradeInput{
		ProposerID:     energy.ID,
		CounterpartyID: wood.ID,
		Quantity:       5,
		UnitPrice:      20,
	})
	if err != nil {
		t.Fatalf("create trade: %v", err)
	}
	if trade.Industry != ledger.Energy {
		t.Fatalf("trade industry = %s, want Energy", trade.Industry)
	}
	if got := energy.Inv(ledger.Energy).Material; got != 3 {
		t.Fatalf("escrowed material = %d, want 3", got)
	}

	if _, err := svc.AcceptTrade(energy.ID, trade.ID, ""); !errors.Is(err, ErrNotCounterparty) {
		t.Fatalf("accept by proposer err = %v", err)
	}
	view, err := svc.AcceptTrade(wood.ID, trade.ID, "")
	if err != nil {
		t.Fatalf("accept trade: %v", err)
	}
	if view.Status != ledger.TradeAccepted {
		t.Fatalf("trade status = %s", view.Status)
	}
	if wood.Balance != InitialBalance-100 || energy.Balance != InitialBalance+100 {
		t.Fatalf("balances after trade: buyer=%d seller=%d", wood.Balance, energy.Balance)
	}
	if got := wood.Inv(ledger.Energy).Material; got != 5 {
		t.Fatalf("buyer energy material = %d, want 5", got)
	}

	if _, err := svc.AcceptTrade(wood.ID, trade.ID, ""); !errors.Is(err, ErrTradeNotPending) {
		t.Fatalf("double accept err = %v", err)
	}
}

func TestCancelAndCloseRequireRunningGame(t *testing.T) {
	svc, teams := newTestService(t)
	admin, cement, energy := teams["admin"], teams["cement"], teams["energy"]
	cement.Inv(ledger.Cement).Material = 10

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: cement.ID, Quantity: 3, UnitPrice: 2})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	trade, err := svc.CreateTrade(CreateTradeInput{ProposerID: cement.ID, CounterpartyID: energy.ID, Quantity: 2, UnitPrice: 1})
	if err != nil {
		t.Fatalf("create trade: %v", err)
	}

	check := func(status ledger.GameStatus) {
		t.Helper()
		if err := svc.CancelOffer(cement.ID, offer.ID, ""); !errors.Is(err, ErrGameNotRunning) {
			t.Fatalf("cancel offer while %s err = %v", status, err)
		}
		if err := svc.RejectTrade(energy.ID, trade.ID, ""); !errors.Is(err, ErrGameNotRunning) {
			t.Fatalf("reject trade while %s err = %v", status, err)
		}
		if err := svc.CancelTrade(cement.ID, trade.ID, ""); !errors.Is(err, ErrGameNotRunning) {
			t.Fatalf("cancel trade while %s err = %v", status, err)
		}
		if got := cement.Inv(ledger.Cement).Material; got != 5 {
			t.Fatalf("escrow released while %s: material = %d, want 5", status, got)
		}
	}

	if err := svc.SetStatus(admin.ID, ledger.StatusPaused, ""); err != nil {
		t.Fatalf("pause: %v", err)
	}
	check(ledger.StatusPaused)

	if err := svc.SetStatus(admin.ID, ledger.StatusEnded, ""); err != nil {
		t.Fatalf("end: %v", err)
	}
	check(ledger.StatusEnded)

	got := svc.OutgoingTrades(cement.ID)
	if len(got) != 1 || got[0].Status != ledger.TradePending {
		t.Fatalf("trade mutated after game over: %+v", got)
	}
}

func TestUpdateOfferPrice(t *testing.T) {
	svc, teams := newTestService(t)
	admin, wood, iron := teams["admin"], teams["wood"], teams["iron"]
	wood.Inv(ledger.Wood).Material = 10

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 5, UnitPrice: 8})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := svc.UpdateOffer(iron.ID, offer.ID, 6, ""); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("reprice by non-owner err = %v", err)
	}
	if _, err := svc.UpdateOffer(wood.ID, offer.ID, -1, ""); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("negative price err = %v", err)
	}

	updated, err := svc.UpdateOffer(wood.ID, offer.ID, 6, "")
	if err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if updated.UnitPrice != 6 || updated.Remaining != 5 {
		t.Fatalf("unexpected offer after reprice: %+v", updated)
	}
	if got := wood.Inv(ledger.Wood).Material; got != 5 {
		t.Fatalf("escrow changed by reprice: material = %d, want 5", got)
	}

	// Fills settle at the new price.
	iron.Balance = 100
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 2}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if iron.Balance != 88 {
		t.Fatalf("buyer balance = %d, want 88", iron.Balance)
	}

	if err := svc.SetStatus(admin.ID, ledger.StatusPaused, ""); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := svc.UpdateOffer(wood.ID, offer.ID, 4, ""); !errors.Is(err, ErrGameNotRunning) {
		t.Fatalf("reprice while paused err = %v", err)
	}
	if err := svc.SetStatus(admin.ID, ledger.StatusRunning, ""); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := svc.CancelOffer(wood.ID, offer.ID, ""); !errors.Is(err, ErrOfferPartiallyFilled) {
		t.Fatalf("cancel partially filled err = %v", err)
	}
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 3}); err != nil {
		t.Fatalf("final fill: %v", err)
	}
	if _, err := svc.UpdateOffer(wood.ID, offer.ID, 4, ""); !errors.Is(err, ErrOfferNotOpen) {
		t.Fatalf("reprice filled offer err = %v", err)
	}
}

func TestTradeRejectAndCancelRefundEscrow(t *testing.T) {
	svc, teams := newTestService(t)
	energy, wood := teams["energy"], teams["wood"]
	energy.Inv(ledger.Energy).Material = 10

	trade, err := svc.CreateTrade(CreateTradeInput{ProposerID: energy.ID, CounterpartyID: wood.ID, Quantity: 4, UnitPrice: 1})
	if err != nil {
		t.Fatalf("create trade: %v", err)
	}
	if err := svc.RejectTrade(wood.ID, trade.ID, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := energy.Inv(ledger.Energy).Material; got != 10 {
		t.Fatalf("material after reject = %d, want 10", got)
	}

	trade, err = svc.CreateTrade(CreateTradeInput{ProposerID: energy.ID, CounterpartyID: wood.ID, Quantity: 4, UnitPrice: 1})
	if err != nil {
		t.Fatalf("create trade: %v", err)
	}
	if err := svc.CancelTrade(wood.ID, trade.ID, ""); !errors.Is(err, ErrNotProposer) {
		t.Fatalf("cancel by counterparty err = %v", err)
	}
	if err := svc.CancelTrade(energy.ID, trade.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := energy.Inv(ledger.Energy).Material; got != 10 {
		t.Fatalf("material after cancel = %d, want 10", got)
	}
}

func TestSecretTradeVisibility(t *testing.T) {
	svc, teams := newTestService(t)
	energy, wood := teams["energy"], teams["wood"]
	energy.Inv(ledger.Energy).Material = 10

	trade, err := svc.CreateTrade(CreateTradeInput{
		ProposerID:     energy.ID,
		CounterpartyID: wood.ID,
		Quantity:       2,
		UnitPrice:      10,
		Secret:         true,
	})
	if err != nil {
		t.Fatalf("create secret trade: %v", err)
	}
	if _, err := svc.AcceptTrade(wood.ID, trade.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	err = svc.ViewState(func(st *ledger.State) error {
		for _, tx := range st.Transactions {
			if tx.Type == ledger.TxSecretTrade {
				return nil
			}
		}
		return fmt.Errorf("no secret_trade journal entry")
	})
	if err != nil {
		t.Fatal(err)
	}

	// Parties see the trade in their own lists, the admin sees it in the
	// global list.
	if got := svc.OutgoingTrades(energy.ID); len(got) != 1 {
		t.Fatalf("proposer sees %d trades, want 1", len(got))
	}
	all, err := svc.AllTrades(teams["admin"].ID)
	if err != nil {
		t.Fatalf("admin trades: %v", err)
	}
	if len(all) != 1 || !all[0].Secret {
		t.Fatalf("admin view %+v", all)
	}
	if _, err := svc.AllTrades(energy.ID); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("non-admin global list err = %v", err)
	}
}

func TestOverflowingTradeTotalShowsZeroAndNeverSettles(t *testing.T) {
	svc, teams := newTestService(t)
	cement, energy := teams["cement"], teams["energy"]

	svc.state.Trades = append(svc.state.Trades, &ledger.TradeRequest{
		ID:             svc.state.NextID(),
		ProposerID:     cement.ID,
		CounterpartyID: energy.ID,
		Industry:       ledger.Cement,
		Quantity:       math.MaxInt64,
		UnitPrice:      3,
		Status:         ledger.TradePending,
		CreatedAt:      time.Now(),
	})

	out := svc.OutgoingTrades(cement.ID)
	if len(out) != 1 || out[0].Total != 0 {
		t.Fatalf("unexpected view for overflowing trade: %+v", out)
	}

	tradeID := out[0].ID
	if _, err := svc.AcceptTrade(energy.ID, tradeID, ""); err == nil {
		t.Fatal("accept of overflowing trade succeeded")
	}
	if energy.Balance != InitialBalance || cement.Balance != InitialBalance {
		t.Fatalf("balances moved: %d / %d", energy.Balance, cement.Balance)
	}
}

func TestCurrencyConservationAcrossSettlements(t *testing.T) {
	svc, teams := newTestService(t)
	totalBefore := int64(0)
	for _, team := range teams {
		totalBefore += team.Balance
	}

	wood, iron, energy := teams["wood"], teams["iron"], teams["energy"]
	wood.Inv(ledger.Wood).Material = 20
	energy.Inv(ledger.Energy).Material = 20

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 20, UnitPrice: 13})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := svc.AcceptOffer(AcceptOfferInput{BuyerID: iron.ID, OfferID: offer.ID, Quantity: 7}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	trade, err := svc.CreateTrade(CreateTradeInput{ProposerID: energy.ID, CounterpartyID: iron.ID, Quantity: 5, UnitPrice: 31})
	if err != nil {
		t.Fatalf("create trade: %v", err)
	}
	if _, err := svc.AcceptTrade(iron.ID, trade.ID, ""); err != nil {
		t.Fatalf("accept trade: %v", err)
	}
	if _, err := svc.GrantGift(GrantGiftInput{AdminID: teams["admin"].ID, TeamID: iron.ID, Quantity: 50}); err != nil {
		t.Fatalf("gift: %v", err)
	}

	totalAfter := int64(0)
	for _, team := range teams {
		totalAfter += team.Balance
	}
	if totalBefore != totalAfter {
		t.Fatalf("currency not conserved: before=%d after=%d", totalBefore, totalAfter)
	}
}

func TestGrantGiftOncePerTeam(t *testing.T) {
	svc, teams := newTestService(t)
	admin, iron := teams["admin"], teams["iron"]

	gift, err := svc.GrantGift(GrantGiftInput{AdminID: admin.ID, TeamID: iron.ID, Quantity: 25})
	if err != nil {
		t.Fatalf("gift: %v", err)
	}
	if gift.Industry != ledger.Iron {
		t.Fatalf("gift industry = %s, want Iron", gift.Industry)
	}
	if got := iron.Inv(ledger.Iron).Material; got != 25 {
		t.Fatalf("material after gift = %d, want 25", got)
	}
	if _, err := svc.GrantGift(GrantGiftInput{AdminID: admin.ID, TeamID: iron.ID, Quantity: 10}); !errors.Is(err, ErrGiftAlreadyGranted) {
		t.Fatalf("second gift err = %v", err)
	}
	if _, err := svc.GrantGift(GrantGiftInput{AdminID: iron.ID, TeamID: iron.ID, Quantity: 10}); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("gift by player err = %v", err)
	}

	eligible, err := svc.GiftEligibleTeams(admin.ID)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	for _, snap := range eligible {
		if snap.ID == iron.ID {
			t.Fatalf("iron still listed as eligible")
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, teams := newTestService(t)
	admin := teams["admin"]
	// Harness starts the game Running.
	steps := []struct {
		next ledger.GameStatus
		ok   bool
	}{
		{ledger.StatusSetup, false},
		{ledger.StatusPaused, true},
		{ledger.StatusRunning, true},
		{ledger.StatusEnded, true},
		{ledger.StatusRunning, false},
	}
	for _, step := range steps {
		err := svc.SetStatus(admin.ID, step.next, "")
		if step.ok && err != nil {
			t.Fatalf("transition to %s failed: %v", step.next, err)
		}
		if !step.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("transition to %s err = %v, want ErrInvalidTransition", step.next, err)
		}
	}
	if err := svc.SetStatus(teams["iron"].ID, ledger.StatusPaused, ""); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("set status by player err = %v", err)
	}
}

func TestAdminAdjustments(t *testing.T) {
	svc, teams := newTestService(t)
	admin, iron := teams["admin"], teams["iron"]

	if err := svc.AdjustBalance(AdjustBalanceInput{AdminID: admin.ID, TeamID: iron.ID, Delta: -InitialBalance - 500}); err != nil {
		t.Fatalf("adjust balance: %v", err)
	}
	if iron.Balance != -500 {
		t.Fatalf("balance = %d, want -500", iron.Balance)
	}

	if err := svc.AdjustInventory(AdjustInventoryInput{AdminID: admin.ID, TeamID: iron.ID, Industry: ledger.Wood, Raw: true, Delta: -4}); err != nil {
		t.Fatalf("adjust inventory: %v", err)
	}
	if got := iron.Inv(ledger.Wood).Raw; got != 6 {
		t.Fatalf("raw = %d, want 6", got)
	}
	err := svc.AdjustInventory(AdjustInventoryInput{AdminID: admin.ID, TeamID: iron.ID, Industry: ledger.Wood, Raw: true, Delta: -7})
	if !errors.Is(err, ErrInsufficientRaw) {
		t.Fatalf("negative raw err = %v", err)
	}
	if got := iron.Inv(ledger.Wood).Raw; got != 6 {
		t.Fatalf("raw changed on rejected adjustment: %d", got)
	}
}

func TestIdempotencyKeyReplay(t *testing.T) {
	svc, teams := newTestService(t)
	cement := teams["cement"]

	if _, err := svc.Produce(ProduceInput{TeamID: cement.ID, Quantity: 2, IdempotencyKey: "op-1"}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if _, err := svc.Produce(ProduceInput{TeamID: cement.ID, Quantity: 2, IdempotencyKey: "op-1"}); !errors.Is(err, ErrDuplicateIdempotency) {
		t.Fatalf("replay err = %v", err)
	}

	// A failed operation must not consume its key.
	if _, err := svc.Produce(ProduceInput{TeamID: cement.ID, Quantity: 1000, IdempotencyKey: "op-2"}); !errors.Is(err, ErrInsufficientRaw) {
		t.Fatalf("expected raw failure, got %v", err)
	}
	if _, err := svc.Produce(ProduceInput{TeamID: cement.ID, Quantity: 1, IdempotencyKey: "op-2"}); err != nil {
		t.Fatalf("retry with same key after failure: %v", err)
	}
}

func TestConcurrentOfferFillsNeverOversell(t *testing.T) {
	svc, teams := newTestService(t)
	wood := teams["wood"]
	wood.Inv(ledger.Wood).Material = 10

	offer, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 10, UnitPrice: 1})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	buyers := []int64{teams["iron"].ID, teams["energy"].ID, teams["aluminium"].ID, teams["cement"].ID}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_, _ = svc.AcceptOffer(AcceptOfferInput{BuyerID: buyer, OfferID: offer.ID, Quantity: 1})
		}(buyers[i%len(buyers)])
	}
	wg.Wait()

	total := int64(0)
	for key, team := range teams {
		if key == "wood" || team.IsAdmin {
			continue
		}
		total += team.Inv(ledger.Wood).Material
	}
	if total != 10 {
		t.Fatalf("filled %d units total, want exactly 10", total)
	}
	view, err := svc.TeamSnapshot(wood.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.Balance != InitialBalance+10 {
		t.Fatalf("seller balance = %d, want %d", view.Balance, InitialBalance+10)
	}
}

func TestOpenOffersFilteringAndSort(t *testing.T) {
	svc, teams := newTestService(t)
	wood, energy := teams["wood"], teams["energy"]
	wood.Inv(ledger.Wood).Material = 10
	energy.Inv(ledger.Energy).Material = 10

	if _, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 2, UnitPrice: 9}); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := svc.CreateOffer(CreateOfferInput{SellerID: wood.ID, Quantity: 2, UnitPrice: 3}); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := svc.CreateOffer(CreateOfferInput{SellerID: energy.ID, Quantity: 2, UnitPrice: 5}); err != nil {
		t.Fatalf("offer: %v", err)
	}

	all := svc.OpenOffers("", 0)
	if len(all) != 3 {
		t.Fatalf("open offers = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].UnitPrice > all[i].UnitPrice {
			t.Fatalf("offers not sorted by price: %+v", all)
		}
	}

	woodOnly := svc.OpenOffers(ledger.Wood, 0)
	if len(woodOnly) != 2 {
		t.Fatalf("wood offers = %d, want 2", len(woodOnly))
	}
	excluding := svc.OpenOffers("", wood.ID)
	if len(excluding) != 1 || excluding[0].SellerID != energy.ID {
		t.Fatalf("excluded list %+v", excluding)
	}
}
