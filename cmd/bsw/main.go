package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "boardswap/internal/cli"
	"boardswap/internal/config"
	"boardswap/internal/market"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "bsw",
		Short:        "BoardSwap trading CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRegisterCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newProfileCmd(&apiBase),
		newGamesCmd(&apiBase),
		newOfferCmd(&apiBase),
		newInboxCmd(&apiBase),
		newAcceptCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newRegisterCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a BoardSwap account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := promptRequired("Name")
			if err != nil {
				return err
			}
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			address, err := promptRequired("Address")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			user, err := client.Register(ctx, name, email, password, address)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Account created for %s. Run `bsw login` to start trading.", user.Email))
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to BoardSwap",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken: session.AccessToken,
				Email:       session.User.Email,
				UserID:      session.User.ID,
				Name:        session.User.Name,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newProfileCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Update name, password or address",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			name, err := promptRequired("Name")
			if err != nil {
				return err
			}
			password, err := promptPassword("New password")
			if err != nil {
				return err
			}
			address, err := promptRequired("Address")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.UpdateProfile(ctx, session.AccessToken, name, password, address); err != nil {
				return err
			}
			printSuccess("Profile updated.")
			return nil
		},
	}
}

func newGamesCmd(apiBase *string) *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "games [name]",
		Short: "Browse listed games",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)

			if mine {
				games, err := client.MyGames(ctx, session.AccessToken)
				if err != nil {
					return err
				}
				renderGames("my games", games)
				return nil
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			games, err := client.SearchGames(ctx, session.AccessToken, query)
			if err != nil {
				return err
			}
			renderGames("games for trade", games)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only show games you own")
	cmd.AddCommand(newGamesAddCmd(apiBase), newGamesRemoveCmd(apiBase))
	return cmd
}

func newGamesAddCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "List a game for trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			name, err := promptRequired("Game name")
			if err != nil {
				return err
			}
			publisher, err := promptRequired("Publisher")
			if err != nil {
				return err
			}
			year, err := promptInt("Year published", 1)
			if err != nil {
				return err
			}
			system, err := promptRequired("System")
			if err != nil {
				return err
			}
			condition, err := promptRequired("Condition")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			game, err := client.AddGame(ctx, session.AccessToken, market.GameAttrs{
				Name:          name,
				Publisher:     publisher,
				YearPublished: year,
				System:        system,
				Condition:     condition,
			})
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Listed game #%d %s", game.ID, game.Name))
			return nil
		},
	}
}

func newGamesRemoveCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <game-id>",
		Short: "Remove one of your listed games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			gameID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid game id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.DeleteGame(ctx, session.AccessToken, gameID); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Removed game #%d", gameID))
			return nil
		},
	}
}

func newOfferCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "offer <your-game-id> <their-game-id>",
		Short: "Propose a trade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			offeredID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid game id %q", args[0])
			}
			desiredID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid game id %q", args[1])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			offer, err := client.ProposeOffer(ctx, session.AccessToken, offeredID, desiredID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Trade #%d proposed: your game #%d for game #%d", offer.TradeID, offer.OfferedGameID, offer.DesiredGameID))
			return nil
		},
	}
}

func newInboxCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Show trade offers sent to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			offers, err := client.ReceivedOffers(ctx, session.AccessToken)
			if err != nil {
				return err
			}
			renderOffers("incoming trade offers", offers)
			return nil
		},
	}
}

func newAcceptCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <trade-id>",
		Short: "Accept a trade offer and swap ownership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			tradeID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid trade id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			offer, err := client.AcceptOffer(ctx, session.AccessToken, tradeID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Trade #%d accepted. Game #%d is now yours, game #%d went to user #%d.",
				offer.TradeID, offer.OfferedGameID, offer.DesiredGameID, offer.SenderID))
			return nil
		},
	}
}
