package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/easystake/stakingClient/chain"
	"github.com/pushchain/easystake/stakingClient/chain/subscan"
	"github.com/pushchain/easystake/stakingClient/chain/substrate"
	"github.com/pushchain/easystake/stakingClient/config"
	"github.com/pushchain/easystake/stakingClient/db"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/metastore"
	"github.com/pushchain/easystake/stakingClient/metrics"
	"github.com/pushchain/easystake/stakingClient/ss58"
)

const dataSubdir = "data"

// app holds the long-lived collaborators shared by the commands.
type app struct {
	cfg     config.Config
	chain   *config.ChainSpecificConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
	db      *db.DB
	meta    *metastore.Store
	node    *substrate.Client
	querier chain.Querier
}

// openStore opens the metadata database under the node home.
func openStore(cfg config.Config, m *metrics.Metrics, logger zerolog.Logger) (*db.DB, *metastore.Store, error) {
	database, err := db.OpenFileDB(filepath.Join(cfg.NodeHome, dataSubdir), db.DefaultFileName, true)
	if err != nil {
		return nil, nil, err
	}
	meta, err := metastore.New(database, cfg.MetaCacheSize, m, logger)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, meta, nil
}

// newApp opens the store and connects to the configured chain, retrying the
// initial dial.
func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	chainCfg, err := cfg.ActiveChain()
	if err != nil {
		return nil, stakingerrors.NewConfigError(cfg.ChainName, err.Error())
	}

	a := &app{cfg: cfg, chain: chainCfg, logger: logger, metrics: metrics.New()}

	a.db, a.meta, err = openStore(cfg, a.metrics, logger)
	if err != nil {
		return nil, err
	}

	retry := stakingerrors.DefaultRetryConfig()
	retry.MaxAttempts = cfg.InitialFetchRetries
	err = stakingerrors.RetryWithConfig(ctx, func() error {
		node, err := substrate.Dial(ctx, chainCfg.WSURLs, chainCfg.SS58Prefix, logger)
		if err != nil {
			return err
		}
		a.node = node
		return nil
	}, retry)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rewards chain.RewardSource
	if chainCfg.SubscanURL != "" {
		var opts []subscan.Option
		if chainCfg.SubscanAPIKey != "" {
			opts = append(opts, subscan.WithAPIKey(chainCfg.SubscanAPIKey))
		}
		rewards = subscan.New(chainCfg.SubscanURL, logger, opts...)
	}
	a.querier = chain.NewFacade(a.node, rewards)
	return a, nil
}

// requireAccount checks that the configured account is a valid address.
func (a *app) requireAccount() (string, error) {
	if a.cfg.Account == "" {
		return "", stakingerrors.NewConfigError(a.cfg.ChainName, "an account is required (--account or EASYSTAKE_ACCOUNT)")
	}
	if !ss58.Valid(a.cfg.Account) {
		return "", stakingerrors.NewValidationError(a.cfg.ChainName, fmt.Sprintf("invalid account address %q", a.cfg.Account))
	}
	return a.cfg.Account, nil
}

func (a *app) relayTimeout() time.Duration {
	return time.Duration(a.cfg.RelayTimeoutSeconds) * time.Second
}

// fetch runs a one-shot chain query with the configured retries.
func fetch[T any](ctx context.Context, a *app, query func(ctx context.Context) (T, error)) (T, error) {
	var out T
	retry := stakingerrors.DefaultRetryConfig()
	retry.MaxAttempts = a.cfg.InitialFetchRetries
	err := stakingerrors.RetryWithConfig(ctx, func() error {
		v, err := query(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, retry)
	return out, err
}

func (a *app) Close() {
	if a.node != nil {
		a.node.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close metadata db")
		}
	}
}
