package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxProbeTimeout caps the connectivity probe so one slow check cannot stall a request.
const MaxProbeTimeout = 5 * time.Second

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be within [1,65535], got %d", c.API.Port)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug|info|warn|error, got %q", c.LogLevel)
	}

	if c.Probe.Timeout <= 0 || c.Probe.Timeout > MaxProbeTimeout {
		return fmt.Errorf("probe.timeout must be within (0,%s], got %s", MaxProbeTimeout, c.Probe.Timeout)
	}
	if mode := strings.ToLower(c.Probe.ConnectivityMode); mode != "tcp" && mode != "ping" {
		return fmt.Errorf("probe.connectivity_mode must be 'tcp' or 'ping', got %q", c.Probe.ConnectivityMode)
	}
	if strings.TrimSpace(c.Probe.ConnectivityTarget) == "" {
		return fmt.Errorf("probe.connectivity_target must not be empty")
	}
	if _, err := regexp.Compile(c.Probe.ProcessPattern); err != nil {
		return fmt.Errorf("probe.process_pattern: %w", err)
	}

	if c.Logs.Capacity <= 0 {
		return fmt.Errorf("logs.capacity must be > 0, got %d", c.Logs.Capacity)
	}
	if c.Logs.DefaultLimit < 0 {
		return fmt.Errorf("logs.default_limit must be >= 0, got %d", c.Logs.DefaultLimit)
	}

	mode := strings.ToLower(strings.TrimSpace(c.Snapshot.TradingMode))
	if mode != "paper" && mode != "live" {
		return fmt.Errorf("snapshot.trading_mode must be 'paper' or 'live', got %q", c.Snapshot.TradingMode)
	}
	for field, raw := range map[string]string{
		"snapshot.portfolio_value":          c.Snapshot.PortfolioValue,
		"snapshot.portfolio_change":         c.Snapshot.PortfolioChange,
		"snapshot.portfolio_change_percent": c.Snapshot.PortfolioChangePercent,
	} {
		if _, err := decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	if err := validateConfidence("snapshot.ai_confidence", c.Snapshot.AIConfidence); err != nil {
		return err
	}
	if err := validateConfidence("predictions.confidence", c.Predictions.Confidence); err != nil {
		return err
	}
	if c.Predictions.SymbolsUpdated < 0 {
		return fmt.Errorf("predictions.symbols_updated must be >= 0, got %d", c.Predictions.SymbolsUpdated)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.enabled requires bot_token and chat_id")
	}
	return nil
}

func validateConfidence(field, raw string) error {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be within [0,100], got %s", field, raw)
	}
	return nil
}
