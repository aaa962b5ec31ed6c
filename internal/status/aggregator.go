package status

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GoPolymarket/trading-dashboard/internal/probe"
	"github.com/GoPolymarket/trading-dashboard/internal/snapshot"
)

// LoadSampler supplies host load averages. It must not fail; *probe.Checker
// satisfies it by degrading to zeros.
type LoadSampler interface {
	SampleLoad(ctx context.Context) probe.LoadAverage
}

// Report is the /api/status payload. Decimal figures are emitted as exact JSON
// numbers.
type Report struct {
	Status                 string            `json:"status"`
	PortfolioValue         json.Number       `json:"portfolio_value"`
	PortfolioChange        json.Number       `json:"portfolio_change"`
	PortfolioChangePercent json.Number       `json:"portfolio_change_percent"`
	ActivePositions        int               `json:"active_positions"`
	TradingMode            string            `json:"trading_mode"`
	EngineState            string            `json:"engine_state"`
	AIConfidence           json.Number       `json:"ai_confidence"`
	ClaudeFeaturesEnabled  bool              `json:"claude_features_enabled"`
	Positions              []string          `json:"positions"`
	LastPredictionUpdate   time.Time         `json:"last_prediction_update"`
	SystemLoad             probe.LoadAverage `json:"system_load"`
	Timestamp              time.Time         `json:"timestamp"`
}

// Aggregator assembles status reports. It only reads.
type Aggregator struct {
	store *snapshot.Store
	load  LoadSampler
	now   func() time.Time
}

func NewAggregator(store *snapshot.Store, load LoadSampler) *Aggregator {
	return &Aggregator{store: store, load: load, now: time.Now}
}

// Status merges the current snapshot with a fresh load sample.
func (a *Aggregator) Status(ctx context.Context) Report {
	snap := a.store.Get()

	var load probe.LoadAverage
	if a.load != nil {
		load = a.load.SampleLoad(ctx)
	}

	positions := snap.Positions
	if positions == nil {
		positions = []string{}
	}

	return Report{
		Status:                 "success",
		PortfolioValue:         json.Number(snap.PortfolioValue.String()),
		PortfolioChange:        json.Number(snap.PortfolioChange.String()),
		PortfolioChangePercent: json.Number(snap.PortfolioChangePercent.String()),
		ActivePositions:        snap.ActivePositions(),
		TradingMode:            snap.TradingMode,
		EngineState:            string(snap.EngineState),
		AIConfidence:           json.Number(snap.AIConfidence.String()),
		ClaudeFeaturesEnabled:  snap.ClaudeFeaturesEnabled,
		Positions:              positions,
		LastPredictionUpdate:   snap.LastPredictionUpdate,
		SystemLoad:             load,
		Timestamp:              a.now(),
	}
}
