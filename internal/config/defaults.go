package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAdmin              = "admin"
	DefaultCustodian          = "marketplace"
	DefaultChunkLimit         = 16
	DefaultMaxClaimBatch      = 128
	DefaultMaxAuctionDuration = 30 * 24 * time.Hour
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1000
	DefaultPingInterval       = 15 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultSendBuffer         = 256
	DefaultSweepInterval      = 5 * time.Second
	DefaultListenAddr         = ":8080"
)

func (c *MarketdConfig) applyDefaults() {
	// Market defaults
	if c.Market.Admin == "" {
		c.Market.Admin = DefaultAdmin
	}
	if c.Market.Custodian == "" {
		c.Market.Custodian = DefaultCustodian
	}
	if c.Market.ChunkLimit == 0 {
		c.Market.ChunkLimit = DefaultChunkLimit
	}
	if c.Market.MaxClaimBatch == 0 {
		c.Market.MaxClaimBatch = DefaultMaxClaimBatch
	}
	if c.Market.MaxAuctionDuration == 0 {
		c.Market.MaxAuctionDuration = DefaultMaxAuctionDuration
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	// Feed defaults
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.SendBuffer == 0 {
		c.Feed.SendBuffer = DefaultSendBuffer
	}

	// Sweeper defaults
	if c.Sweeper.Interval == 0 {
		c.Sweeper.Interval = DefaultSweepInterval
	}

	// API defaults
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultListenAddr
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
