package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	API         APIConfig         `yaml:"api"`
	Probe       ProbeConfig       `yaml:"probe"`
	Logs        LogsConfig        `yaml:"logs"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Predictions PredictionsConfig `yaml:"predictions"`
	Telegram    TelegramConfig    `yaml:"telegram"`
}

type APIConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	OpenBrowser       bool          `yaml:"open_browser"`
	StaticDir         string        `yaml:"static_dir"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// ProbeConfig controls host signal collection for /api/health and /api/status.
type ProbeConfig struct {
	ProcessPattern     string        `yaml:"process_pattern"`
	ConnectivityMode   string        `yaml:"connectivity_mode"` // tcp | ping
	ConnectivityTarget string        `yaml:"connectivity_target"`
	Timeout            time.Duration `yaml:"timeout"`
}

type LogsConfig struct {
	Capacity     int  `yaml:"capacity"`
	DefaultLimit int  `yaml:"default_limit"`
	Seed         bool `yaml:"seed"`
}

// SnapshotConfig holds the figures the dashboard shows before any command runs.
type SnapshotConfig struct {
	PortfolioValue         string   `yaml:"portfolio_value"`
	PortfolioChange        string   `yaml:"portfolio_change"`
	PortfolioChangePercent string   `yaml:"portfolio_change_percent"`
	TradingMode            string   `yaml:"trading_mode"`
	AIConfidence           string   `yaml:"ai_confidence"`
	ClaudeFeaturesEnabled  bool     `yaml:"claude_features_enabled"`
	Positions              []string `yaml:"positions"`
}

// PredictionsConfig drives the placeholder predictor used by /api/predictions/refresh.
type PredictionsConfig struct {
	Confidence     string `yaml:"confidence"`
	SymbolsUpdated int    `yaml:"symbols_updated"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		API: APIConfig{
			Port:              8080,
			OpenBrowser:       true,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Probe: ProbeConfig{
			ProcessPattern:     "cryptoclaude-console",
			ConnectivityMode:   "tcp",
			ConnectivityTarget: "8.8.8.8:53",
			Timeout:            5 * time.Second,
		},
		Logs: LogsConfig{
			Capacity:     200,
			DefaultLimit: 50,
			Seed:         true,
		},
		Snapshot: SnapshotConfig{
			PortfolioValue:         "127543.21",
			PortfolioChange:        "3421.83",
			PortfolioChangePercent: "2.76",
			TradingMode:            "paper",
			AIConfidence:           "84.2",
			ClaudeFeaturesEnabled:  true,
			Positions:              []string{"BTC", "ETH", "ADA", "SOL", "MATIC", "LINK", "DOT", "AVAX"},
		},
		Predictions: PredictionsConfig{
			Confidence:     "87.1",
			SymbolsUpdated: 12,
		},
	}
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_PROCESS_PATTERN")); v != "" {
		c.Probe.ProcessPattern = v
	}
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_TRADING_MODE")); v != "" {
		c.Snapshot.TradingMode = strings.ToLower(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
}

// Addr returns the listen address; an empty host binds all interfaces.
func (c Config) Addr() string {
	return c.API.Host + ":" + strconv.Itoa(c.API.Port)
}
