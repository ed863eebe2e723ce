package config

import "time"

// MarketdConfig is the root configuration for a marketd instance.
type MarketdConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Market   MarketConfig   `yaml:"market"`
	Database DatabaseConfig `yaml:"database"`
	Journal  JournalConfig  `yaml:"journal"`
	Feed     FeedConfig     `yaml:"feed"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	API      APIConfig      `yaml:"api"`
}

// InstanceConfig identifies this marketd instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// MarketConfig holds registry and marketplace settings.
type MarketConfig struct {
	Admin              string        `yaml:"admin"`                // Admin/treasury account
	Custodian          string        `yaml:"custodian"`            // Marketplace custody account
	ChunkLimit         int64         `yaml:"chunk_limit"`          // Max coordinate distance
	MaxClaimBatch      int           `yaml:"max_claim_batch"`      // Max coordinates per claim
	ClaimEnabled       bool          `yaml:"claim_enabled"`        // Public claiming toggle
	PlotPrices         []int64       `yaml:"plot_prices"`          // Tier prices, parallel to distances
	PlotPriceDistances []int64       `yaml:"plot_price_distances"` // Strictly increasing distance bounds
	MaxAuctionDuration time.Duration `yaml:"max_auction_duration"`
}

// DatabaseConfig holds the journal database connection.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// JournalConfig holds batch writer settings. Disabled instances keep all
// state in memory and skip the database entirely.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// FeedConfig holds WebSocket feed settings.
type FeedConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SendBuffer   int           `yaml:"send_buffer"`
}

// SweeperConfig holds auction finalization sweeper settings.
type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// APIConfig holds the HTTP API listener settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}
