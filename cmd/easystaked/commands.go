package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/easystake/stakingClient/api"
	"github.com/pushchain/easystake/stakingClient/chain"
	"github.com/pushchain/easystake/stakingClient/config"
	"github.com/pushchain/easystake/stakingClient/cron"
	"github.com/pushchain/easystake/stakingClient/logger"
	"github.com/pushchain/easystake/stakingClient/metastore"
	"github.com/pushchain/easystake/stakingClient/metrics"
	"github.com/pushchain/easystake/stakingClient/proxy"
	"github.com/pushchain/easystake/stakingClient/selection"
	"github.com/pushchain/easystake/stakingClient/staking"
	"github.com/pushchain/easystake/stakingClient/utils"
)

// Set at build time with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = ""
)

func InitRootCmd(rootCmd *cobra.Command, v *viper.Viper) {
	rootCmd.AddCommand(initCmd(v))
	rootCmd.AddCommand(startCmd(v))
	rootCmd.AddCommand(validatorsCmd(v))
	rootCmd.AddCommand(nominationsCmd(v))
	rootCmd.AddCommand(constsCmd(v))
	rootCmd.AddCommand(ledgerCmd(v))
	rootCmd.AddCommand(cacheCmd(v))
	rootCmd.AddCommand(proxyCmd(v))
	rootCmd.AddCommand(versionCmd())
}

func printerFor(cmd *cobra.Command, v *viper.Viper) (Printer, error) {
	return NewPrinter(cmd.OutOrStdout(), v.GetString(flagOutput))
}

func initCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config to <home>/config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := config.Save(&cfg, cfg.NodeHome); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", cfg.NodeHome)
			return nil
		},
	}
}

func startCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the staking session with periodic refresh and the query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log := logger.Init(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			staker, err := a.requireAccount()
			if err != nil {
				return err
			}

			session, err := staking.NewSession(staking.Config{
				Staker:                staker,
				ChainName:             cfg.ChainName,
				MaxAcceptedCommission: cfg.MaxAcceptedCommission,
				RelayTimeout:          a.relayTimeout(),
			}, a.querier, a.meta, newLogConfirmer(a.chain, log), a.metrics, log)
			if err != nil {
				return err
			}
			defer session.Close()

			job := cron.NewRefreshJob(session, time.Duration(cfg.RefreshIntervalSeconds)*time.Second, cfg.InitialFetchRetries, log)
			if err := job.Start(ctx); err != nil {
				return err
			}
			defer job.Stop()

			server := api.NewServer(log, cfg.QueryServerPort, api.Deps{
				Session:  session,
				Metrics:  a.metrics,
				Proxies:  proxy.NewRegistry(&cfg),
				Decimals: a.chain.Decimals,
				Token:    a.chain.Token,
				Refresh:  job.ForceRefresh,
			})
			if err := server.Start(); err != nil {
				return err
			}
			defer server.Stop()

			log.Info().Str("chain", cfg.ChainName).Str("staker", staker).Msg("easystaked started")
			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

// withApp loads the config, connects and runs fn with a bounded context.
func withApp(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, a *app, p Printer) error) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	p, err := printerFor(cmd, v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, logger.Init(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, p)
}

func validatorsCmd(v *viper.Viper) *cobra.Command {
	var selected bool
	var limit int

	cmd := &cobra.Command{
		Use:   "validators",
		Short: "List current and waiting validators, or the automatic selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, a *app, p Printer) error {
				consts, err := fetch(ctx, a, a.querier.StakingConstants)
				if err != nil {
					return err
				}
				vals, err := fetch(ctx, a, a.querier.Validators)
				if err != nil {
					return err
				}
				list := vals.All()
				if selected {
					list = selection.NewPolicy(a.cfg.MaxAcceptedCommission).SelectBest(vals, consts)
				}
				if limit > 0 && len(list) > limit {
					list = list[:limit]
				}
				if p.Structured() {
					return p.Value(list)
				}
				p.Header(fmt.Sprintf("%s validators at era %d", a.cfg.ChainName, vals.CurrentEraIndex))
				p.Table(validatorHeaders, validatorRows(a, list, vals, consts))
				if selected && len(list) == 0 {
					p.Warn("no validator qualifies for automatic selection")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&selected, "selected", false, "Show only the automatic selection")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows (0 for all)")
	return cmd
}

var validatorHeaders = []string{"#", "VALIDATOR", "STATUS", "COMMISSION", "NOMINATORS", "TOTAL STAKE", "OVERSUBSCRIBED"}

func validatorRows(a *app, list []chain.ValidatorRecord, vals *chain.Validators, consts *chain.StakingConstants) [][]string {
	current := make(map[string]bool, len(vals.Current))
	for _, c := range vals.Current {
		current[c.AccountID] = true
	}
	rows := make([][]string, 0, len(list))
	for i, r := range list {
		status := "waiting"
		if current[r.AccountID] {
			status = "active"
		}
		over := ""
		if selection.Oversubscribed(r, consts) {
			over = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shortAddress(r.AccountID),
			status,
			fmt.Sprintf("%.2f%%", selection.CommissionPercent(r)),
			strconv.Itoa(r.Nominators()),
			utils.FormatAmount(r.Exposure.Total, a.chain.Decimals, a.chain.Token),
			over,
		})
		if r.ValidatorPrefs.Blocked {
			rows[len(rows)-1][2] += " (blocked)"
		}
	}
	return rows
}

func nominationsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "nominations",
		Short: "Show the account's nominated validators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, a *app, p Printer) error {
				staker, err := a.requireAccount()
				if err != nil {
					return err
				}
				ids, err := fetch(ctx, a, func(ctx context.Context) ([]string, error) {
					return a.querier.Nominations(ctx, staker)
				})
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					if _, err := a.meta.Update(staker, metastore.KeyNominatedValidators, a.cfg.ChainName, []string{}); err != nil {
						a.logger.Warn().Err(err).Msg("failed to clear cached nominations")
					}
					if p.Structured() {
						return p.Value([]chain.ValidatorRecord{})
					}
					p.Warn("account does not nominate")
					return nil
				}
				consts, err := fetch(ctx, a, a.querier.StakingConstants)
				if err != nil {
					return err
				}
				vals, err := fetch(ctx, a, a.querier.Validators)
				if err != nil {
					return err
				}
				nominated := selection.ResolveNominated(vals, ids)
				if p.Structured() {
					return p.Value(nominated)
				}
				p.Header(fmt.Sprintf("%d nominated validators", len(nominated)))
				rows := validatorRows(a, nominated, vals, consts)
				for i, r := range nominated {
					if rank := selection.NominatorRank(r, staker); rank > 0 {
						rows[i][0] += fmt.Sprintf(" (rank %d)", rank)
					}
				}
				p.Table(validatorHeaders, rows)
				if active, ok := selection.ActiveValidator(nominated, staker); ok {
					p.Success("active on " + active.AccountID)
				} else {
					p.Warn("no active validator this era")
				}
				if n := selection.CountOversubscribed(nominated, consts); n > 0 {
					p.Warn(fmt.Sprintf("%d nominated validators are oversubscribed", n))
				}
				return nil
			})
		},
	}
}

func constsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "consts",
		Short: "Show staking constants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, a *app, p Printer) error {
				c, err := fetch(ctx, a, a.querier.StakingConstants)
				if err != nil {
					return err
				}
				if p.Structured() {
					return p.Value(c)
				}
				format := func(n chain.StakingConstants) [][2]string {
					d, tok := a.chain.Decimals, a.chain.Token
					return [][2]string{
						{"bonding duration", fmt.Sprintf("%d eras", n.BondingDuration)},
						{"existential deposit", utils.FormatAmount(n.ExistentialDeposit, d, tok)},
						{"max nominations", strconv.FormatUint(uint64(n.MaxNominations), 10)},
						{"max rewarded per validator", strconv.FormatUint(uint64(n.MaxNominatorRewardedPerValidator), 10)},
						{"min nominator bond", utils.FormatAmount(n.MinNominatorBond, d, tok)},
						{"pool min create bond", utils.FormatAmount(n.MinCreateBond, d, tok)},
						{"pool min join bond", utils.FormatAmount(n.MinJoinBond, d, tok)},
						{"pool min stakeable", utils.FormatAmount(staking.MinStakeable(&n), d, tok)},
					}
				}
				p.KV(a.cfg.ChainName+" staking constants", format(*c))
				return nil
			})
		},
	}
}

func ledgerCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Show the account's bonded, redeemable and unlocking amounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, a *app, p Printer) error {
				staker, err := a.requireAccount()
				if err != nil {
					return err
				}
				l, err := fetch(ctx, a, func(ctx context.Context) (*chain.Ledger, error) {
					return a.querier.Ledger(ctx, staker)
				})
				if err != nil {
					return err
				}
				era, err := fetch(ctx, a, a.querier.CurrentEra)
				if err != nil {
					return err
				}
				redeemable := l.Redeemable(era)
				unlocking := staking.Unlocking(l, redeemable)
				if p.Structured() {
					return p.Value(map[string]any{
						"ledger":     l,
						"era":        era,
						"redeemable": redeemable,
						"unlocking":  unlocking,
					})
				}
				if l == nil {
					p.Warn("account is not bonded")
					return nil
				}
				d, tok := a.chain.Decimals, a.chain.Token
				p.KV("ledger of "+shortAddress(staker), [][2]string{
					{"current era", strconv.FormatUint(uint64(era), 10)},
					{"total", utils.FormatAmount(l.Total, d, tok)},
					{"active", utils.FormatAmount(l.Active, d, tok)},
					{"redeemable", utils.FormatAmount(redeemable, d, tok)},
					{"unlocking", utils.FormatAmount(unlocking, d, tok)},
				})
				return nil
			})
		},
	}
}

func cacheCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the cached staking metadata",
	}

	withStore := func(cmd *cobra.Command, fn func(cfg config.Config, a *app, p Printer) error) error {
		cfg, err := loadConfig(v)
		if err != nil {
			return err
		}
		p, err := printerFor(cmd, v)
		if err != nil {
			return err
		}
		log := logger.Init(cfg)
		database, meta, err := openStore(cfg, metrics.New(), log)
		if err != nil {
			return err
		}
		a := &app{cfg: cfg, logger: log, db: database, meta: meta}
		defer a.Close()
		if _, err := a.requireAccount(); err != nil {
			return err
		}
		return fn(cfg, a, p)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached entries for the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cfg config.Config, a *app, p Printer) error {
				entries, err := a.meta.Entries(cfg.Account)
				if err != nil {
					return err
				}
				if p.Structured() {
					return p.Value(entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						string(e.Key),
						e.ChainName,
						strconv.FormatUint(e.Version, 10),
						strconv.FormatUint(e.Hash, 16),
						strconv.Itoa(len(e.MetaData)),
					})
				}
				p.Table([]string{"KEY", "CHAIN", "VERSION", "HASH", "BYTES"}, rows)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry for the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cfg config.Config, a *app, p Printer) error {
				if err := a.meta.Clear(cfg.Account); err != nil {
					return err
				}
				p.Success("cache cleared for " + cfg.Account)
				return nil
			})
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func proxyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Proxy types and proxy validation",
	}

	types := &cobra.Command{
		Use:   "types [chain]",
		Short: "List the proxy types a chain supports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			p, err := printerFor(cmd, v)
			if err != nil {
				return err
			}
			chainName := cfg.ChainName
			if len(args) == 1 {
				chainName = args[0]
			}
			list, err := proxy.NewRegistry(&cfg).Types(chainName)
			if err != nil {
				return err
			}
			if p.Structured() {
				return p.Value(list)
			}
			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{t})
			}
			p.Table([]string{"PROXY TYPE"}, rows)
			return nil
		},
	}

	var delay uint32
	check := &cobra.Command{
		Use:   "check <delegate> <type>",
		Short: "Validate a proxy before adding it",
		Long:  "The delegate may be given as \"name: address\" as copied from an address book.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			p, err := printerFor(cmd, v)
			if err != nil {
				return err
			}
			delegate, ok := proxy.ParseDelegate(args[0])
			if !ok {
				return fmt.Errorf("invalid delegate address %q", args[0])
			}
			candidate := proxy.Proxy{Delegate: delegate, ProxyType: args[1], Delay: delay}
			if err := proxy.NewRegistry(&cfg).Validate(cfg.ChainName, candidate, nil); err != nil {
				return err
			}
			if p.Structured() {
				return p.Value(candidate)
			}
			p.Success(fmt.Sprintf("%s can be added as a %s proxy", delegate, candidate.ProxyType))
			return nil
		},
	}
	check.Flags().Uint32Var(&delay, "delay", 0, "Announcement delay in blocks")

	cmd.AddCommand(types, check)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print easystaked version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", "easystaked")
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", Commit)
		},
	}
}
