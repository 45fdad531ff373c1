package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Indexer    IndexerConfig    `mapstructure:"indexer"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Cron       CronConfig       `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type IndexerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageLimit int           `mapstructure:"page_limit"`
	MaxPages  int           `mapstructure:"max_pages"`

	// Optional live event push; when empty the service is poll-only.
	StreamURL        string        `mapstructure:"stream_url"`
	StreamReconnect  time.Duration `mapstructure:"stream_reconnect"`
	StreamMaxBackoff time.Duration `mapstructure:"stream_max_backoff"`
}

type ScoringConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	SweepInterval string        `mapstructure:"sweep_interval"`
}

type MetadataConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChainConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPCURL  string        `mapstructure:"rpc_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// NFTContract is the tokenized-domain ERC-721 queried via ownerOf;
	// AuctionContract is the expected holder for a live auction.
	NFTContract     string `mapstructure:"nft_contract"`
	AuctionContract string `mapstructure:"auction_contract"`
}

type AggregatorConfig struct {
	EnrichConcurrency  int           `mapstructure:"enrich_concurrency"`
	AuctionMaxDuration time.Duration `mapstructure:"auction_max_duration"`
	ReserveRatio       float64       `mapstructure:"reserve_ratio"`
}

type CronConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", true)
	v.SetDefault("log.disable_stacktrace", true)

	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("indexer.timeout", "10s")
	v.SetDefault("indexer.page_limit", 500)
	v.SetDefault("indexer.max_pages", 40)
	v.SetDefault("indexer.stream_reconnect", "2s")
	v.SetDefault("indexer.stream_max_backoff", "1m")

	v.SetDefault("scoring.timeout", "5s")
	v.SetDefault("scoring.cache_ttl", "1h")
	v.SetDefault("scoring.sweep_interval", "@every 10m")

	v.SetDefault("metadata.timeout", "5s")

	v.SetDefault("chain.enabled", false)
	v.SetDefault("chain.timeout", "5s")

	v.SetDefault("aggregator.enrich_concurrency", 8)
	v.SetDefault("aggregator.auction_max_duration", "720h")
	v.SetDefault("aggregator.reserve_ratio", 0.5)

	v.SetDefault("cron.enabled", true)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
