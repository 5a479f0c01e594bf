// Package export renders the full game record as a zip of CSV files for the
// admin to download after (or during) a session.
package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"tradesim/internal/game"
	"tradesim/internal/ledger"
)

// WriteZip streams the archive to w. The leaderboard is computed by the
// engine and passed in so the export sees the same ranking players do.
func WriteZip(w io.Writer, st *ledger.State, board []game.LeaderboardRow) error {
	zw := zip.NewWriter(w)

	files := []struct {
		name  string
		write func(*csv.Writer, *ledger.State) error
	}{
		{"teams.csv", writeTeams},
		{"inventory.csv", writeInventory},
		{"offers.csv", writeOffers},
		{"trades.csv", writeTrades},
		{"gifts.csv", writeGifts},
		{"transactions.csv", writeTransactions},
		{"production.csv", writeProduction},
	}
	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", f.name, err)
		}
		cw := csv.NewWriter(fw)
		if err := f.write(cw, st); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("flush %s: %w", f.name, err)
		}
	}

	fw, err := zw.Create("leaderboard.csv")
	if err != nil {
		return fmt.Errorf("create leaderboard.csv: %w", err)
	}
	cw := csv.NewWriter(fw)
	if err := writeLeaderboard(cw, board); err != nil {
		return fmt.Errorf("write leaderboard.csv: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush leaderboard.csv: %w", err)
	}

	return zw.Close()
}

func writeTeams(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"id", "name", "username", "industry", "is_admin", "initial_balance", "balance", "gift_received", "created_at"}); err != nil {
		return err
	}
	for _, t := range st.Teams {
		if err := cw.Write([]string{
			itoa(t.ID), t.Name, t.Username, string(t.Industry),
			strconv.FormatBool(t.IsAdmin), itoa(t.InitialBalance), itoa(t.Balance),
			strconv.FormatBool(t.GiftReceived), stamp(t.CreatedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeInventory(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"team_id", "team_name", "industry", "raw_units", "material_units"}); err != nil {
		return err
	}
	for _, t := range st.Teams {
		if t.IsAdmin {
			continue
		}
		for _, ind := range ledger.Industries {
			inv := t.Inv(ind)
			if err := cw.Write([]string{
				itoa(t.ID), t.Name, string(ind), itoa(inv.Raw), itoa(inv.Material),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeOffers(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"id", "seller_id", "industry", "quantity", "remaining", "unit_price", "status", "created_at", "updated_at"}); err != nil {
		return err
	}
	for _, o := range st.Offers {
		if err := cw.Write([]string{
			itoa(o.ID), itoa(o.SellerID), string(o.Industry),
			itoa(o.Quantity), itoa(o.Remaining), itoa(o.UnitPrice),
			string(o.Status), stamp(o.CreatedAt), stamp(o.UpdatedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

// writeTrades includes secret trades; the export is an admin-only surface.
func writeTrades(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"id", "proposer_id", "counterparty_id", "industry", "quantity", "unit_price", "secret", "status", "created_at", "updated_at"}); err != nil {
		return err
	}
	for _, t := range st.Trades {
		if err := cw.Write([]string{
			itoa(t.ID), itoa(t.ProposerID), itoa(t.CounterpartyID), string(t.Industry),
			itoa(t.Quantity), itoa(t.UnitPrice), strconv.FormatBool(t.Secret),
			string(t.Status), stamp(t.CreatedAt), stamp(t.UpdatedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeGifts(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"id", "team_id", "admin_id", "industry", "quantity", "created_at"}); err != nil {
		return err
	}
	for _, g := range st.Gifts {
		if err := cw.Write([]string{
			itoa(g.ID), itoa(g.TeamID), itoa(g.AdminID), string(g.Industry),
			itoa(g.Quantity), stamp(g.CreatedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeTransactions(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"id", "group_id", "type", "from_team_id", "to_team_id", "industry", "units", "amount", "description", "created_at"}); err != nil {
		return err
	}
	for _, tx := range st.Transactions {
		if err := cw.Write([]string{
			itoa(tx.ID), tx.GroupID, string(tx.Type),
			itoa(tx.FromTeamID), itoa(tx.ToTeamID), string(tx.Industry),
			itoa(tx.Units), itoa(tx.Amount), tx.Description, stamp(tx.CreatedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeProduction(cw *csv.Writer, st *ledger.State) error {
	if err := cw.Write([]string{"id", "team_id", "produced", "inputs", "created_at"}); err != nil {
		return err
	}
	for _, p := range st.ProductionLogs {
		inputs := ""
		for _, ind := range ledger.Industries {
			if n, ok := p.Inputs[ind]; ok {
				if inputs != "" {
					inputs += "; "
				}
				inputs += fmt.Sprintf("%s=%d", ind, n)
			}
		}
		if err := cw.Write([]string{
			itoa(p.ID), itoa(p.TeamID), itoa(p.Produced), inputs, stamp(p.CreatedAt),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeLeaderboard(cw *csv.Writer, board []game.LeaderboardRow) error {
	if err := cw.Write([]string{"rank", "team_id", "team_name", "industry", "revenue", "profit", "total_production", "total_purchases", "balance"}); err != nil {
		return err
	}
	for _, row := range board {
		if err := cw.Write([]string{
			itoa(row.Rank), itoa(row.TeamID), row.TeamName, string(row.Industry),
			itoa(row.Revenue), itoa(row.Profit), itoa(row.TotalProduction),
			itoa(row.TotalPurchases), itoa(row.Balance),
		}); err != nil {
			return err
		}
	}
	return nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
