package command

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/trading-dashboard/internal/config"
)

// Controller delivers trading intents to the engine process.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
}

// NopController acknowledges every intent without contacting an engine.
type NopController struct{}

func (NopController) Start(context.Context) error { return nil }
func (NopController) Stop(context.Context) error  { return nil }
func (NopController) Pause(context.Context) error { return nil }

// Prediction is the outcome of one refresh.
type Prediction struct {
	Confidence     decimal.Decimal
	SymbolsUpdated int
}

// Predictor recomputes model confidence for the held symbols.
type Predictor interface {
	Refresh(ctx context.Context, symbols []string) (Prediction, error)
}

// StaticPredictor returns a fixed prediction. It stands in for the inference
// pipeline until one is wired.
type StaticPredictor struct {
	Confidence     decimal.Decimal
	SymbolsUpdated int
}

func (p StaticPredictor) Refresh(context.Context, []string) (Prediction, error) {
	return Prediction{Confidence: p.Confidence, SymbolsUpdated: p.SymbolsUpdated}, nil
}

// DefaultPredictor is the placeholder the dashboard ships with.
func DefaultPredictor() StaticPredictor {
	return StaticPredictor{Confidence: decimal.RequireFromString("87.1"), SymbolsUpdated: 12}
}

// PredictorFromConfig builds the placeholder predictor from config.
func PredictorFromConfig(cfg config.PredictionsConfig) (StaticPredictor, error) {
	confidence, err := decimal.NewFromString(cfg.Confidence)
	if err != nil {
		return StaticPredictor{}, err
	}
	return StaticPredictor{Confidence: confidence, SymbolsUpdated: cfg.SymbolsUpdated}, nil
}
