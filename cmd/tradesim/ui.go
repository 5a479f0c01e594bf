package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tradesim/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type offersPayload struct {
	Offers []game.OfferView `json:"offers"`
}

type tradesPayload struct {
	Trades []game.TradeView `json:"trades"`
}

type leaderboardPayload struct {
	Rows []game.LeaderboardRow `json:"rows"`
}

type teamsPayload struct {
	Teams []game.TeamSnapshot `json:"teams"`
}

type giftsPayload struct {
	Gifts []game.GiftView `json:"gifts"`
}

type historyPayload struct {
	Entries []game.ProductionEntry `json:"entries"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptYesNo(label string) (bool, error) {
	for {
		fmt.Printf("%s (y/n) [n]: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "", "n", "no":
			return false, nil
		case "y", "yes":
			return true, nil
		}
		printWarn("Answer y or n.")
	}
}

func renderTeam(raw map[string]any) error {
	snap, err := decodeInto[game.TeamSnapshot](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s (%s) ==\n", snap.Name, snap.Industry)
	fmt.Printf("Balance:       %s\n", comma(snap.Balance))
	fmt.Printf("Gift received: %t\n", snap.GiftReceived)
	fmt.Println()
	accent.Println("Inventory")
	fmt.Printf("%-12s %12s %12s\n", "INDUSTRY", "RAW", "MATERIAL")
	for _, row := range snap.Inventory {
		fmt.Printf("%-12s %12s %12s\n", row.Industry, comma(row.Raw), comma(row.Material))
	}
	fmt.Println()
	return nil
}

func renderOffers(raw map[string]any, title string) error {
	out, err := decodeInto[offersPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(out.Offers) == 0 {
		printInfo("No offers.")
		return nil
	}
	fmt.Printf("%-6s %-22s %-12s %10s %10s %10s %-10s\n", "ID", "SELLER", "INDUSTRY", "QTY", "LEFT", "PRICE", "STATUS")
	for _, o := range out.Offers {
		fmt.Printf("%-6d %-22s %-12s %10s %10s %10s %-10s\n",
			o.ID, truncate(o.SellerName, 22), o.Industry,
			comma(o.Quantity), comma(o.Remaining), comma(o.UnitPrice), o.Status)
	}
	fmt.Println()
	return nil
}

func renderTrades(raw map[string]any, title string) error {
	out, err := decodeInto[tradesPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(out.Trades) == 0 {
		printInfo("No trade requests.")
		return nil
	}
	fmt.Printf("%-6s %-20s %-20s %-12s %8s %8s %10s %-7s %-10s\n",
		"ID", "SELLER", "BUYER", "INDUSTRY", "QTY", "PRICE", "TOTAL", "SECRET", "STATUS")
	for _, t := range out.Trades {
		fmt.Printf("%-6d %-20s %-20s %-12s %8s %8s %10s %-7t %-10s\n",
			t.ID, truncate(t.ProposerName, 20), truncate(t.CounterpartyName, 20),
			t.Industry, comma(t.Quantity), comma(t.UnitPrice), comma(t.Total),
			t.Secret, t.Status)
	}
	fmt.Println()
	return nil
}

func renderLeaderboard(raw map[string]any) error {
	out, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LEADERBOARD ==")
	if len(out.Rows) == 0 {
		printInfo("No rows yet.")
		return nil
	}
	fmt.Printf("%-5s %-22s %-12s %12s %12s %8s %12s %12s\n",
		"RANK", "TEAM", "INDUSTRY", "REVENUE", "PROFIT", "PROD", "PURCHASES", "BALANCE")
	for _, row := range out.Rows {
		fmt.Printf("%-5d %-22s %-12s %12s %12s %8s %12s %12s\n",
			row.Rank, truncate(row.TeamName, 22), row.Industry,
			comma(row.Revenue), comma(row.Profit), comma(row.TotalProduction),
			comma(row.TotalPurchases), comma(row.Balance))
	}
	fmt.Println()
	return nil
}

func renderTeams(raw map[string]any) error {
	out, err := decodeInto[teamsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TEAMS ==")
	fmt.Printf("%-5s %-22s %-12s %12s %6s\n", "ID", "NAME", "INDUSTRY", "BALANCE", "GIFT")
	for _, t := range out.Teams {
		gift := "no"
		if t.GiftReceived {
			gift = "yes"
		}
		fmt.Printf("%-5d %-22s %-12s %12s %6s\n",
			t.ID, truncate(t.Name, 22), t.Industry, comma(t.Balance), gift)
	}
	fmt.Println()
	return nil
}

func renderGifts(raw map[string]any) error {
	out, err := decodeInto[giftsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== GIFTS ==")
	if len(out.Gifts) == 0 {
		printInfo("No gifts granted yet.")
		return nil
	}
	fmt.Printf("%-5s %-22s %-12s %10s %-16s\n", "ID", "TEAM", "INDUSTRY", "QTY", "GRANTED")
	for _, g := range out.Gifts {
		fmt.Printf("%-5d %-22s %-12s %10s %-16s\n",
			g.ID, truncate(g.TeamName, 22), g.Industry, comma(g.Quantity),
			g.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

func renderProductionHistory(raw map[string]any) error {
	out, err := decodeInto[historyPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRODUCTION HISTORY ==")
	if len(out.Entries) == 0 {
		printInfo("No production runs yet.")
		return nil
	}
	fmt.Printf("%-6s %10s %-16s\n", "ID", "PRODUCED", "WHEN")
	for _, e := range out.Entries {
		fmt.Printf("%-6d %10s %-16s\n",
			e.ID, comma(e.Produced), e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

func renderProductionPlan(raw map[string]any) error {
	plan, err := decodeInto[game.ProductionPlan](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== PRODUCTION PLAN (%s) ==\n", plan.Industry)
	fmt.Printf("%-12s %10s %10s %-6s\n", "INPUT", "REQUIRED", "AVAILABLE", "OK")
	for _, req := range plan.Requirements {
		ok := "yes"
		if !req.Sufficient {
			ok = "NO"
		}
		fmt.Printf("%-12s %10s %10s %-6s\n", req.Industry, comma(req.Required), comma(req.Available), ok)
	}
	if plan.CanProduce {
		printSuccess("All inputs available.")
	} else {
		printWarn("Missing inputs, production would fail.")
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return sign + b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
