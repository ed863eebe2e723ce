package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *MarketdConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Market.Admin == c.Market.Custodian {
		return errors.New("market.admin and market.custodian must differ")
	}
	if c.Market.ChunkLimit < 1 {
		return errors.New("market.chunk_limit must be >= 1")
	}
	if c.Market.MaxClaimBatch < 1 {
		return errors.New("market.max_claim_batch must be >= 1")
	}
	if len(c.Market.PlotPrices) != len(c.Market.PlotPriceDistances) {
		return errors.New("market.plot_prices and market.plot_price_distances must be the same length")
	}
	for i, d := range c.Market.PlotPriceDistances {
		if d < 1 {
			return fmt.Errorf("market.plot_price_distances[%d] must be >= 1", i)
		}
		if i > 0 && d <= c.Market.PlotPriceDistances[i-1] {
			return errors.New("market.plot_price_distances must be strictly increasing")
		}
	}
	for i, p := range c.Market.PlotPrices {
		if p < 0 {
			return fmt.Errorf("market.plot_prices[%d] must be >= 0", i)
		}
	}
	if c.Market.MaxAuctionDuration < 1 {
		return errors.New("market.max_auction_duration must be positive")
	}

	if c.Journal.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Sweeper.Enabled && c.Sweeper.Interval < 1 {
		return errors.New("sweeper.interval must be positive")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
