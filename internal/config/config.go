package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	WorldBank   WorldBankConfig `mapstructure:"worldbank"`
	History     HistoryConfig   `mapstructure:"history"`
	Bridge      BridgeConfig    `mapstructure:"bridge"`
	Model       ModelConfig     `mapstructure:"model"`
	Factors     FactorsConfig   `mapstructure:"factors"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Resolver    ResolverConfig  `mapstructure:"resolver"`
	Chat        ChatConfig      `mapstructure:"chat"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

type WorldBankConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	PerPage   int           `mapstructure:"per_page"`
}

type HistoryConfig struct {
	Indicator string `mapstructure:"indicator"`
	FromYear  int    `mapstructure:"from_year"`
	ToYear    int    `mapstructure:"to_year"`
}

type BridgeConfig struct {
	Policy            string             `mapstructure:"policy"`
	Lookback          int                `mapstructure:"lookback"`
	Damping           float64            `mapstructure:"damping"`
	DefaultMultiplier float64            `mapstructure:"default_multiplier"`
	Anchors           map[string]float64 `mapstructure:"anchors"`
}

type ModelConfig struct {
	ProphetURL            string        `mapstructure:"prophet_url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	ChangepointPriorScale float64       `mapstructure:"changepoint_prior_scale"`
	YearlySeasonality     bool          `mapstructure:"yearly_seasonality"`
	DefaultConfidence     float64       `mapstructure:"default_confidence"`
	DefaultHorizon        int           `mapstructure:"default_horizon"`
	MaxHorizon            int           `mapstructure:"max_horizon"`
	MinPoints             int           `mapstructure:"min_points"`
	CircuitFailLimit      int           `mapstructure:"circuit_fail_limit"`
	CircuitCooldown       time.Duration `mapstructure:"circuit_cooldown"`
}

type FactorsConfig struct {
	CutoffYear int              `mapstructure:"cutoff_year"`
	Jitter     float64          `mapstructure:"jitter"`
	Seed       uint64           `mapstructure:"seed"`
	Indicators FactorIndicators `mapstructure:"indicators"`
	Fallback   FactorFallback   `mapstructure:"fallback"`
}

type FactorIndicators struct {
	Consumption string `mapstructure:"consumption"`
	Investment  string `mapstructure:"investment"`
	Government  string `mapstructure:"government"`
	Exports     string `mapstructure:"exports"`
}

type FactorFallback struct {
	Consumption float64 `mapstructure:"consumption"`
	Investment  float64 `mapstructure:"investment"`
	Government  float64 `mapstructure:"government"`
	Exports     float64 `mapstructure:"exports"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type CacheConfig struct {
	SourceTTL time.Duration `mapstructure:"source_ttl"`
}

type ResolverConfig struct {
	Aliases map[string]string `mapstructure:"aliases"`
}

type ChatConfig struct {
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads ./configs/config.yaml or ./config.yaml when present; environment
// variables override file values (server.port -> SERVER_PORT).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"server.port":  {"PORT", "SERVER_PORT"},
		"redis.url":    {"REDIS_URL"},
		"chat.api_key": {"GEMINI_API_KEY", "CHAT_API_KEY"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// viper lowercases map keys
	anchors := make(map[string]float64, len(cfg.Bridge.Anchors))
	for code, value := range cfg.Bridge.Anchors {
		anchors[strings.ToUpper(code)] = value
	}
	cfg.Bridge.Anchors = anchors
	cfg.Bridge.Policy = strings.ToLower(strings.TrimSpace(cfg.Bridge.Policy))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.rate_limit_per_min", 120)

	v.SetDefault("worldbank.base_url", "https://api.worldbank.org/v2")
	v.SetDefault("worldbank.timeout", 20*time.Second)
	v.SetDefault("worldbank.user_agent", "strategic-forecast/1.0")
	v.SetDefault("worldbank.per_page", 100)

	v.SetDefault("history.indicator", "NY.GDP.MKTP.CD")
	v.SetDefault("history.from_year", 1990)
	v.SetDefault("history.to_year", 2023)

	v.SetDefault("bridge.policy", "momentum")
	v.SetDefault("bridge.lookback", 5)
	v.SetDefault("bridge.damping", 0.0)
	v.SetDefault("bridge.default_multiplier", 1.12)
	v.SetDefault("bridge.anchors", map[string]any{
		"IND": 4.19e12,
		"USA": 3.03e13,
		"CHN": 1.95e13,
	})

	v.SetDefault("model.prophet_url", "http://localhost:8001")
	v.SetDefault("model.timeout", 45*time.Second)
	v.SetDefault("model.changepoint_prior_scale", 0.1)
	v.SetDefault("model.yearly_seasonality", true)
	v.SetDefault("model.default_confidence", 0.8)
	v.SetDefault("model.default_horizon", 25)
	v.SetDefault("model.max_horizon", 50)
	v.SetDefault("model.min_points", 3)
	v.SetDefault("model.circuit_fail_limit", 3)
	v.SetDefault("model.circuit_cooldown", 20*time.Second)

	v.SetDefault("factors.cutoff_year", 2022)
	v.SetDefault("factors.jitter", 2.5)
	v.SetDefault("factors.seed", 0)
	v.SetDefault("factors.indicators.consumption", "NE.CON.PRVT.ZS")
	v.SetDefault("factors.indicators.investment", "NE.GDI.FTOT.ZS")
	v.SetDefault("factors.indicators.government", "NE.CON.GOVT.ZS")
	v.SetDefault("factors.indicators.exports", "NE.RSB.GNFS.ZS")
	v.SetDefault("factors.fallback.consumption", 62.5)
	v.SetDefault("factors.fallback.investment", 24.1)
	v.SetDefault("factors.fallback.government", 11.4)
	v.SetDefault("factors.fallback.exports", 2.0)

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("cache.source_ttl", 6*time.Hour)

	v.SetDefault("resolver.aliases", map[string]any{})

	v.SetDefault("chat.model", "gemini-2.0-flash")
	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.timeout", 20*time.Second)
}

func (c *Config) Validate() error {
	switch c.Bridge.Policy {
	case "momentum", "anchor":
	default:
		return fmt.Errorf("bridge.policy must be momentum or anchor, got %q", c.Bridge.Policy)
	}
	if c.Bridge.Lookback < 1 {
		return fmt.Errorf("bridge.lookback must be at least 1, got %d", c.Bridge.Lookback)
	}
	if c.Bridge.DefaultMultiplier <= 0 {
		return fmt.Errorf("bridge.default_multiplier must be positive, got %v", c.Bridge.DefaultMultiplier)
	}
	if c.Bridge.Damping < 0 {
		return fmt.Errorf("bridge.damping must not be negative, got %v", c.Bridge.Damping)
	}
	if c.History.FromYear >= c.History.ToYear {
		return fmt.Errorf("history.from_year (%d) must be before history.to_year (%d)", c.History.FromYear, c.History.ToYear)
	}
	if c.History.Indicator == "" {
		return errors.New("history.indicator is required")
	}
	if !(c.Model.DefaultConfidence > 0 && c.Model.DefaultConfidence < 1) {
		return fmt.Errorf("model.default_confidence must be in (0,1), got %v", c.Model.DefaultConfidence)
	}
	if c.Model.DefaultHorizon < 1 || c.Model.MaxHorizon < c.Model.DefaultHorizon {
		return fmt.Errorf("model horizons invalid: default %d, max %d", c.Model.DefaultHorizon, c.Model.MaxHorizon)
	}
	if c.Factors.CutoffYear < c.History.FromYear || c.Factors.CutoffYear > c.History.ToYear {
		return fmt.Errorf("factors.cutoff_year %d outside history window %d-%d",
			c.Factors.CutoffYear, c.History.FromYear, c.History.ToYear)
	}
	if c.Factors.Jitter < 0 {
		return fmt.Errorf("factors.jitter must not be negative, got %v", c.Factors.Jitter)
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("server.rate_limit_per_min must not be negative, got %d", c.Server.RateLimitPerMin)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}
