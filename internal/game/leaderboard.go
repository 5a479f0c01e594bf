package game

import (
	"sort"

	"tradesim/internal/ledger"
)

// ValuationFunc prices the goods a team consumed, the cost side of the
// leaderboard's profit column.
type ValuationFunc func(st *ledger.State, teamID int64) int64

// AcquisitionSpendValuation costs a team's inputs at what it actually paid
// for them: the sum of every settled purchase and trade where the team was
// the buyer.
func AcquisitionSpendValuation(st *ledger.State, teamID int64) int64 {
	var spent int64
	for _, tx := range st.Transactions {
		if tx.FromTeamID != teamID {
			continue
		}
		switch tx.Type {
		case ledger.TxPurchase, ledger.TxTrade, ledger.TxSecretTrade:
			spent += tx.Amount
		}
	}
	return spent
}

// Leaderboard ranks all playing teams. Sort order is descending on revenue,
// then profit, then total production, then total purchases; teams still tied
// keep their creation order.
func (s *Service) Leaderboard() []LeaderboardRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revenue := make(map[int64]int64)
	purchases := make(map[int64]int64)
	for _, tx := range s.state.Transactions {
		switch tx.Type {
		case ledger.TxPurchase, ledger.TxTrade, ledger.TxSecretTrade:
			revenue[tx.ToTeamID] += tx.Amount
			purchases[tx.FromTeamID] += tx.Amount
		}
	}
	production := make(map[int64]int64)
	for _, log := range s.state.ProductionLogs {
		production[log.TeamID] += log.Produced
	}

	var rows []LeaderboardRow
	for _, team := range s.state.Teams {
		if team.IsAdmin {
			continue
		}
		rows = append(rows, LeaderboardRow{
			TeamID:          team.ID,
			TeamName:        team.Name,
			Industry:        team.Industry,
			Revenue:         revenue[team.ID],
			Profit:          revenue[team.ID] - s.rawCost(s.state, team.ID),
			TotalProduction: production[team.ID],
			TotalPurchases:  purchases[team.ID],
			Balance:         team.Balance,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		if a.Profit != b.Profit {
			return a.Profit > b.Profit
		}
		if a.TotalProduction != b.TotalProduction {
			return a.TotalProduction > b.TotalProduction
		}
		return a.TotalPurchases > b.TotalPurchases
	})
	for i := range rows {
		rows[i].Rank = int64(i + 1)
	}
	return rows
}
