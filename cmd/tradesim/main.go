package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "tradesim/internal/cli"
	"tradesim/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "tradesim",
		Short:        "Trading simulation game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newStatusCmd(&apiBase),
		newTeamCmd(&apiBase),
		newProduceCmd(&apiBase),
		newMarketCmd(&apiBase),
		newTradeCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newAdminCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func requireSession() (cl.Session, error) {
	return cl.LoadSession()
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login with your team credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			res, err := newClient(apiBase).Login(ctx, username, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:    res.Token,
				TeamID:   res.Team.TeamID,
				Name:     res.Team.Name,
				Username: res.Team.Username,
				Industry: res.Team.Industry,
				IsAdmin:  res.Team.IsAdmin,
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Logged in as %s.", res.Team.Name))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the game status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).GameStatus(ctx)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("Game status: %v", out["status"]))
			return nil
		},
	}
}

func newTeamCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "team",
		Short: "Show your team's balance and inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Team(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderTeam(out)
		},
	}
}

func newProduceCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "produce [quantity]",
		Short: "Convert raw materials into finished units",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var quantity int64
			if len(args) == 1 {
				quantity, err = strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[0])
				}
			} else {
				quantity, err = promptInt64("Quantity", 1)
				if err != nil {
					return err
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).Produce(ctx, sess.Token, quantity, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Produced %d units.", quantity))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "plan [quantity]",
		Short: "Check whether you have the inputs for a production run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			quantity, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[0])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ProductionPlan(ctx, sess.Token, quantity)
			if err != nil {
				return err
			}
			return renderProductionPlan(out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Show recent production runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ProductionHistory(ctx, sess.Token, 20)
			if err != nil {
				return err
			}
			return renderProductionHistory(out)
		},
	})

	return cmd
}

func newMarketCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Marketplace offers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List open offers from other teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			industry, _ := cmd.Flags().GetString("industry")
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ListOffers(ctx, sess.Token, industry)
			if err != nil {
				return err
			}
			return renderOffers(out, "marketplace")
		},
	}
	list.Flags().String("industry", "", "filter by industry")

	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "mine",
		Short: "List your own offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).MyOffers(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderOffers(out, "my offers")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sell",
		Short: "Put your material units up for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			quantity, err := promptInt64("Quantity", 1)
			if err != nil {
				return err
			}
			price, err := promptInt64("Unit price", 0)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).CreateOffer(ctx, sess.Token, quantity, price, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Offer #%v listed.", out["id"]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "buy [offer-id] [quantity]",
		Short: "Buy from an open offer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			offerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid offer id %q", args[0])
			}
			quantity, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AcceptOffer(ctx, sess.Token, offerID, quantity, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %d units from offer #%d.", quantity, offerID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "price [offer-id] [unit-price]",
		Short: "Change the unit price of one of your open offers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			offerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid offer id %q", args[0])
			}
			unitPrice, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid unit price %q", args[1])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).UpdateOfferPrice(ctx, sess.Token, offerID, unitPrice, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Offer #%d repriced to %d/unit.", offerID, unitPrice))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel [offer-id]",
		Short: "Cancel one of your untouched offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			offerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid offer id %q", args[0])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).CancelOffer(ctx, sess.Token, offerID, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Offer #%d cancelled.", offerID))
			return nil
		},
	})

	return cmd
}

func newTradeCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Bilateral trade requests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "incoming",
		Short: "Pending requests waiting on you",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).IncomingTrades(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderTrades(out, "incoming trades")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "outgoing",
		Short: "Requests you proposed",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).OutgoingTrades(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderTrades(out, "outgoing trades")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "propose",
		Short: "Offer your material units to a specific team",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			counterparty, err := promptInt64("Counterparty team id", 1)
			if err != nil {
				return err
			}
			quantity, err := promptInt64("Quantity", 1)
			if err != nil {
				return err
			}
			price, err := promptInt64("Unit price", 0)
			if err != nil {
				return err
			}
			secret, err := promptYesNo("Secret trade")
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).CreateTrade(ctx, sess.Token, counterparty, quantity, price, secret, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Trade request #%v sent.", out["id"]))
			return nil
		},
	})

	cmd.AddCommand(tradeActionCmd(apiBase, "accept", "Accept an incoming trade request",
		func(ctx context.Context, c *cl.Client, token string, id int64) error {
			_, err := c.AcceptTrade(ctx, token, id, uuid.NewString())
			return err
		}))
	cmd.AddCommand(tradeActionCmd(apiBase, "reject", "Reject an incoming trade request",
		func(ctx context.Context, c *cl.Client, token string, id int64) error {
			_, err := c.RejectTrade(ctx, token, id, uuid.NewString())
			return err
		}))
	cmd.AddCommand(tradeActionCmd(apiBase, "cancel", "Cancel a request you proposed",
		func(ctx context.Context, c *cl.Client, token string, id int64) error {
			_, err := c.CancelTrade(ctx, token, id, uuid.NewString())
			return err
		}))

	return cmd
}

func tradeActionCmd(apiBase *string, verb, short string, do func(context.Context, *cl.Client, string, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [trade-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			tradeID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid trade id %q", args[0])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := do(ctx, newClient(apiBase), sess.Token, tradeID); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Trade #%d %sed.", tradeID, strings.TrimSuffix(verb, "e")))
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the current standings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderLeaderboard(out)
		},
	}
}

func newAdminCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Game master controls",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "teams",
		Short: "List all teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).AdminTeams(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderTeams(out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-status [setup|running|paused|ended]",
		Short: "Move the game state machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AdminSetStatus(ctx, sess.Token, args[0], uuid.NewString()); err != nil {
				return err
			}
			printSuccess("Game status set to " + args[0] + ".")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "trades",
		Short: "Show every trade request, secret ones included",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).AdminTrades(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderTrades(out, "all trades")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "gifts",
		Short: "List granted gifts",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).AdminGifts(ctx, sess.Token)
			if err != nil {
				return err
			}
			return renderGifts(out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "gift [team-id] [quantity]",
		Short: "Grant a one-time material gift",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			teamID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid team id %q", args[0])
			}
			quantity, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AdminGrantGift(ctx, sess.Token, teamID, quantity, uuid.NewString()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Gifted %d units to team #%d.", quantity, teamID))
			return nil
		},
	})

	balance := &cobra.Command{
		Use:   "balance [team-id] [delta]",
		Short: "Adjust a team's currency balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			teamID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid team id %q", args[0])
			}
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[1])
			}
			reason, _ := cmd.Flags().GetString("reason")
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AdminAdjustBalance(ctx, sess.Token, teamID, delta, reason, uuid.NewString()); err != nil {
				return err
			}
			printSuccess("Balance adjusted.")
			return nil
		},
	}
	balance.Flags().String("reason", "", "note recorded in the journal")
	cmd.AddCommand(balance)

	inventory := &cobra.Command{
		Use:   "inventory [team-id] [industry] [delta]",
		Short: "Adjust a team's inventory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			teamID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid team id %q", args[0])
			}
			delta, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[2])
			}
			raw, _ := cmd.Flags().GetBool("raw")
			reason, _ := cmd.Flags().GetString("reason")
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AdminAdjustInventory(ctx, sess.Token, teamID, args[1], raw, delta, reason, uuid.NewString()); err != nil {
				return err
			}
			printSuccess("Inventory adjusted.")
			return nil
		},
	}
	inventory.Flags().Bool("raw", false, "adjust raw units instead of material units")
	inventory.Flags().String("reason", "", "note recorded in the journal")
	cmd.AddCommand(inventory)

	cmd.AddCommand(&cobra.Command{
		Use:   "reallocate [min] [max]",
		Short: "Re-roll every team's raw units",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			min, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid min %q", args[0])
			}
			max, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid max %q", args[1])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if _, err := newClient(apiBase).AdminReallocate(ctx, sess.Token, min, max); err != nil {
				return err
			}
			printSuccess("Raw units reallocated.")
			return nil
		},
	})

	export := &cobra.Command{
		Use:   "export",
		Short: "Download the full game record as a zip of CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := newClient(apiBase).AdminExport(ctx, sess.Token, f); err != nil {
				return err
			}
			printSuccess("Export written to " + out + ".")
			return nil
		},
	}
	export.Flags().String("out", "tradesim-export.zip", "output file")
	cmd.AddCommand(export)

	return cmd
}
