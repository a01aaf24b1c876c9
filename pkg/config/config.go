// Package config loads configs/config.yml and .env overrides through viper.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"nairaramp_back/models"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Solana     SolanaConfig     `mapstructure:"solana"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Rates      RatesConfig      `mapstructure:"rates"`
	Balances   BalancesConfig   `mapstructure:"balances"`
	Approval   ApprovalConfig   `mapstructure:"approval"`
	Mail       MailConfig       `mapstructure:"mail"`
	Nuban      NubanConfig      `mapstructure:"nuban"`
	Tokens     []models.Token   `mapstructure:"tokens"`
	Log        LogConfig        `mapstructure:"log"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DBConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type SolanaConfig struct {
	RPCEndpoint    string        `mapstructure:"rpc_endpoint"`
	Commitment     string        `mapstructure:"commitment"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

type SettlementConfig struct {
	Address string `mapstructure:"address"`
}

type ConversionConfig struct {
	FeePercentRaw         string        `mapstructure:"fee_percent"`
	DriftTolerancePctRaw  string        `mapstructure:"rate_drift_tolerance_pct"`
	LocalCurrency         string        `mapstructure:"local_currency"`
	RecordFailedTransfers bool          `mapstructure:"record_failed_transfers"`
	RequestTokenTTL       time.Duration `mapstructure:"request_token_ttl"`
	InFlightTTL           time.Duration `mapstructure:"in_flight_ttl"`

	FeePercent        decimal.Decimal `mapstructure:"-"`
	DriftTolerancePct decimal.Decimal `mapstructure:"-"`
}

type RatesConfig struct {
	CoinGeckoURL         string        `mapstructure:"coingecko_url"`
	APIKey               string        `mapstructure:"api_key"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	UsdFiatAdjustmentRaw string        `mapstructure:"usd_fiat_adjustment"`

	UsdFiatAdjustment decimal.Decimal `mapstructure:"-"`
}

type BalancesConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ApprovalConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Notifier     string        `mapstructure:"notifier"`
}

type MailConfig struct {
	From             string   `mapstructure:"from"`
	FromName         string   `mapstructure:"from_name"`
	To               []string `mapstructure:"to"`
	DashboardURL     string   `mapstructure:"dashboard_url"`
	MailjetAPIKey    string   `mapstructure:"mailjet_api_key"`
	MailjetSecretKey string   `mapstructure:"mailjet_secret_key"`
	SMTPHost         string   `mapstructure:"smtp_host"`
	SMTPPort         int      `mapstructure:"smtp_port"`
	SMTPUser         string   `mapstructure:"smtp_user"`
	SMTPPassword     string   `mapstructure:"smtp_password"`
}

type NubanConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// secrets are read from the environment only, usually via .env.
var secrets = map[string]string{
	"db.password":             "DB_PASSWORD",
	"redis.password":          "REDIS_PASSWORD",
	"rates.api_key":           "COINGECKO_API_KEY",
	"nuban.api_key":           "NUBAN_API_KEY",
	"mail.mailjet_api_key":    "MAILJET_API_KEY",
	"mail.mailjet_secret_key": "MAILJET_SECRET_KEY",
	"mail.smtp_password":      "SMTP_PASSWORD",
	"admin.token":             "ADMIN_TOKEN",
	"server.port":             "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("redis.prefix", "nairaramp:")
	v.SetDefault("solana.rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.confirm_timeout", "60s")
	v.SetDefault("solana.poll_interval", "500ms")
	v.SetDefault("conversion.fee_percent", "0.1")
	v.SetDefault("conversion.rate_drift_tolerance_pct", "1")
	v.SetDefault("conversion.local_currency", "NGN")
	v.SetDefault("conversion.record_failed_transfers", false)
	v.SetDefault("conversion.request_token_ttl", "24h")
	v.SetDefault("conversion.in_flight_ttl", "3m")
	v.SetDefault("rates.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("rates.poll_interval", "30s")
	v.SetDefault("rates.usd_fiat_adjustment", "0")
	v.SetDefault("balances.poll_interval", "30s")
	v.SetDefault("approval.poll_interval", "120s")
	v.SetDefault("approval.notifier", "log")
	v.SetDefault("nuban.base_url", "https://app.nuban.com.ng/api")
	v.SetDefault("nuban.timeout", "10s")
	v.SetDefault("nuban.cache_ttl", "24h")
	v.SetDefault("log.level", "info")
}

// Load reads config.yml from the given directories. Any key can be
// overridden from the environment with dots replaced by underscores,
// e.g. CONVERSION_FEE_PERCENT.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for key, env := range secrets {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	var err error
	if c.Conversion.FeePercent, err = decimal.NewFromString(c.Conversion.FeePercentRaw); err != nil {
		return errors.Wrap(err, "conversion.fee_percent")
	}
	if c.Conversion.FeePercent.IsNegative() || c.Conversion.FeePercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.Errorf("conversion.fee_percent must be within [0, 100], got %s", c.Conversion.FeePercent)
	}
	if c.Conversion.DriftTolerancePct, err = decimal.NewFromString(c.Conversion.DriftTolerancePctRaw); err != nil {
		return errors.Wrap(err, "conversion.rate_drift_tolerance_pct")
	}
	if c.Rates.UsdFiatAdjustment, err = decimal.NewFromString(c.Rates.UsdFiatAdjustmentRaw); err != nil {
		return errors.Wrap(err, "rates.usd_fiat_adjustment")
	}
	c.Conversion.LocalCurrency = strings.ToUpper(c.Conversion.LocalCurrency)
	if c.Conversion.LocalCurrency == "" {
		return errors.New("conversion.local_currency is required")
	}
	if len(c.Tokens) == 0 {
		c.Tokens = DefaultTokens()
	}
	for i := range c.Tokens {
		c.Tokens[i].Symbol = strings.ToUpper(c.Tokens[i].Symbol)
	}
	return nil
}

func DefaultTokens() []models.Token {
	return []models.Token{
		{Symbol: "SOL", Decimals: 9, Native: true, PriceID: "solana"},
		{Symbol: "USDT", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6, PriceID: "tether"},
		{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6, PriceID: "usd-coin"},
	}
}
