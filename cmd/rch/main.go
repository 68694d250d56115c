package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"riches/internal/admin"
	"riches/internal/auth"
	cl "riches/internal/cli"
	"riches/internal/clock"
	"riches/internal/config"
	"riches/internal/engine"
	"riches/internal/game"
	"riches/internal/syncer"
	"riches/internal/syncq"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	storeURL := cfg.StoreURL

	root := &cobra.Command{
		Use:          "rch",
		Short:        "Riches idle clicker client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&storeURL, "store", storeURL, "player store base URL")

	root.AddCommand(
		newPlayCmd(&cfg, &storeURL),
		newAdminCmd(&cfg, &storeURL),
		newSyncCmd(&cfg, &storeURL),
		newTiersCmd(&cfg),
		newCatalogCmd(&cfg),
		newForgetCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(storeURL *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*storeURL), "/"))
}

// newLogger writes to ~/.riches/rch.log so log lines never land on the TUI.
func newLogger() (*slog.Logger, func()) {
	home, err := os.UserHomeDir()
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	dir := filepath.Join(home, ".riches")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "rch.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return logger, func() { _ = f.Close() }
}

func newPlayCmd(cfg *config.CLIConfig, storeURL *string) *cobra.Command {
	var asAdmin, resume bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start a game session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asAdmin && resume {
				return errors.New("--admin and --resume cannot be combined")
			}
			econ, err := config.LoadEconomy(cfg.EconomyFile)
			if err != nil {
				return err
			}
			reward, err := game.ParseRewardPolicy(cfg.ClaimReward)
			if err != nil {
				return err
			}

			creds := auth.Credentials{Mode: auth.Guest}
			switch {
			case asAdmin:
				login, err := promptRequired("Login")
				if err != nil {
					return err
				}
				password, err := promptSecret("Password")
				if err != nil {
					return err
				}
				creds = auth.Credentials{Mode: auth.Admin, Login: login, Password: password}
			case resume:
				last, err := cl.LoadSession()
				if err != nil {
					return fmt.Errorf("nothing to resume: %w", err)
				}
				creds = auth.Credentials{Mode: auth.Resume, Username: last.Username, IsAdmin: last.IsAdmin}
			}

			logger, closeLog := newLogger()
			defer closeLog()
			eng := engine.New(engine.Config{
				Economy:   econ,
				Clock:     clock.Real{},
				Random:    game.NewTimeSeededSource(),
				Reward:    reward,
				TickEvery: cfg.TickEvery,
				SyncEvery: cfg.SyncEvery,
				Logger:    logger,
			}, auth.New(cfg.AdminLogin, cfg.AdminSecret, clock.Real{}), newClient(storeURL), syncq.Outbox{})

			events := newEventInbox()
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			g, err := eng.Login(ctx, creds, events.Put)
			cancel()
			if err != nil {
				return errors.New(describeError(err))
			}
			if err := cl.SaveSession(cl.Session{Username: g.Session.Username(), IsAdmin: g.Session.IsAdmin()}); err != nil {
				printWarn(fmt.Sprintf("Could not remember session: %v", err))
			}

			_, runErr := tea.NewProgram(newPlayModel(g, events), tea.WithAltScreen()).Run()

			if err := g.Logout(context.Background()); err != nil {
				printWarn(fmt.Sprintf("Progress not saved to the store (%s). Run `rch sync` later.", describeError(err)))
			} else {
				printSuccess("Progress saved.")
			}
			v := g.Session.View()
			printInfo(fmt.Sprintf("%s finished as %s with %s.", v.Username, v.Tier.Name, comma(v.Balance)))
			return runErr
		},
	}
	cmd.Flags().BoolVar(&asAdmin, "admin", false, "log in with the admin credentials")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue the last player on this machine")
	return cmd
}

func newAdminCmd(cfg *config.CLIConfig, storeURL *string) *cobra.Command {
	var login string
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin overrides on stored players",
	}
	adminCmd.PersistentFlags().StringVar(&login, "login", "", "admin login (prompted when empty)")

	// open checks the admin credentials and loads the roster every
	// subcommand targets.
	open := func(cmd *cobra.Command) (*admin.Channel, *game.Economy, context.Context, context.CancelFunc, error) {
		econ, err := config.LoadEconomy(cfg.EconomyFile)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if strings.TrimSpace(login) == "" {
			if login, err = promptRequired("Login"); err != nil {
				return nil, nil, nil, nil, err
			}
		}
		password, err := promptSecret("Password")
		if err != nil {
			return nil, nil, nil, nil, err
		}
		id, err := auth.New(cfg.AdminLogin, cfg.AdminSecret, clock.Real{}).Login(auth.Credentials{Mode: auth.Admin, Login: login, Password: password})
		if err != nil {
			return nil, nil, nil, nil, errors.New(describeError(err))
		}
		ch, err := admin.New(newClient(storeURL), econ.Tiers, id.IsAdmin, nil)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		if _, err := ch.ListRoster(ctx); err != nil {
			cancel()
			return nil, nil, nil, nil, errors.New(describeError(err))
		}
		return ch, econ, ctx, cancel, nil
	}

	adminCmd.AddCommand(&cobra.Command{
		Use:   "roster",
		Short: "List stored players, richest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, econ, _, cancel, err := open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			renderRoster(ch.Cached(), econ.Tiers)
			return nil
		},
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:   "grant USERNAME AMOUNT",
		Short: "Add currency to a player's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(strings.ReplaceAll(args[1], ",", ""), 10, 64)
			if err != nil {
				return fmt.Errorf("amount must be a whole number: %w", err)
			}
			ch, _, ctx, cancel, err := open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			if err := ch.GrantCurrency(ctx, args[0], amount); err != nil {
				return errors.New(describeError(err))
			}
			printSuccess(fmt.Sprintf("Granted %s to %s.", comma(amount), args[0]))
			return nil
		},
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:   "set-tier USERNAME TIER",
		Short: "Overwrite a player's stored tier name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, _, ctx, cancel, err := open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			if err := ch.SetTier(ctx, args[0], args[1]); err != nil {
				return errors.New(describeError(err))
			}
			printSuccess(fmt.Sprintf("%s is now %s.", args[0], args[1]))
			return nil
		},
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:   "promote USERNAME",
		Short: "Give a player admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, _, ctx, cancel, err := open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			if err := ch.PromoteToAdmin(ctx, args[0]); err != nil {
				return errors.New(describeError(err))
			}
			printSuccess(args[0] + " is now an admin.")
			return nil
		},
	})
	return adminCmd
}

func newSyncCmd(cfg *config.CLIConfig, storeURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push snapshots saved while the store was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Outbox is empty.")
				return nil
			}
			econ, err := config.LoadEconomy(cfg.EconomyFile)
			if err != nil {
				return err
			}
			bridge := syncer.New(newClient(storeURL), econ, nil)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			success := 0
			for _, entry := range queue {
				if err := bridge.Push(ctx, entry.Snapshot); err != nil {
					printError(fmt.Sprintf("Sync failed for %s: %s", entry.Snapshot.Username, describeError(err)))
					continue
				}
				if err := syncq.Remove(entry.Key); err != nil {
					return err
				}
				success++
			}
			printSuccess(fmt.Sprintf("Sync complete: pushed=%d remaining=%d", success, len(queue)-success))
			return nil
		},
	}
}

func newTiersCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Show the tier table",
		RunE: func(cmd *cobra.Command, args []string) error {
			econ, err := config.LoadEconomy(cfg.EconomyFile)
			if err != nil {
				return err
			}
			renderTiers(econ.Tiers)
			return nil
		},
	}
}

func newCatalogCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [businesses|cars]",
		Short: "Show what can be bought",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			econ, err := config.LoadEconomy(cfg.EconomyFile)
			if err != nil {
				return err
			}
			kinds := []game.CatalogKind{game.Businesses, game.Cars}
			if len(args) == 1 {
				kinds = []game.CatalogKind{game.CatalogKind(strings.ToLower(args[0]))}
			}
			for _, kind := range kinds {
				c, err := econ.Catalog(kind)
				if err != nil {
					return err
				}
				renderCatalog(c)
			}
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Forget the remembered player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session forgotten.")
			return nil
		},
	}
}
