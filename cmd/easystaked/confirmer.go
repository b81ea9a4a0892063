package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pushchain/easystake/stakingClient/config"
	"github.com/pushchain/easystake/stakingClient/staking"
	"github.com/pushchain/easystake/stakingClient/utils"
)

// logConfirmer records prepared actions instead of submitting them. Signing
// happens in the wallet that holds the keys.
type logConfirmer struct {
	chain  *config.ChainSpecificConfig
	logger zerolog.Logger
}

func newLogConfirmer(chain *config.ChainSpecificConfig, logger zerolog.Logger) *logConfirmer {
	return &logConfirmer{chain: chain, logger: logger.With().Str("component", "confirmer").Logger()}
}

func (c *logConfirmer) Confirm(ctx context.Context, conf staking.Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ids := make([]string, 0, len(conf.Validators))
	for _, v := range conf.Validators {
		ids = append(ids, v.AccountID)
	}
	c.logger.Info().
		Str("action", conf.Action.String()).
		Str("staker", conf.Staker).
		Str("chain", conf.ChainName).
		Str("amount", utils.FormatAmount(conf.Amount, c.chain.Decimals, c.chain.Token)).
		Strs("validators", ids).
		Msg("staking action ready for signing")
	return nil
}
