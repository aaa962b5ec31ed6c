package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GoPolymarket/trading-dashboard/internal/logs"
	"github.com/GoPolymarket/trading-dashboard/internal/snapshot"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrConfidenceRange is returned when a predictor reports confidence outside [0,100].
var ErrConfidenceRange = errors.New("confidence out of range [0,100]")

var maxConfidence = decimal.NewFromInt(100)

// Result is the envelope every command returns.
type Result struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`

	EngineState    string      `json:"engine_state,omitempty"`
	ClaudeEnabled  *bool       `json:"claude_enabled,omitempty"`
	NewConfidence  json.Number `json:"new_confidence,omitempty"`
	SymbolsUpdated *int        `json:"symbols_updated,omitempty"`
}

// Notifier announces trading commands to the operator.
type Notifier interface {
	NotifyCommand(ctx context.Context, action, message, commandID string) error
}

// Dispatcher turns control intents into snapshot updates and results. It does
// not validate state transitions: pausing a stopped engine is accepted.
type Dispatcher struct {
	// mu serializes commands so controller calls and the state they record
	// happen in the same order. Snapshot reads never wait on it.
	mu         sync.Mutex
	store      *snapshot.Store
	controller Controller
	predictor  Predictor
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithController sets the engine controller. Defaults to NopController.
func WithController(c Controller) Option { return func(d *Dispatcher) { d.controller = c } }

// WithPredictor sets the prediction source. Defaults to the placeholder StaticPredictor.
func WithPredictor(p Predictor) Option { return func(d *Dispatcher) { d.predictor = p } }

// WithNotifier enables operator announcements for start/stop/pause.
func WithNotifier(n Notifier) Option { return func(d *Dispatcher) { d.notifier = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

func NewDispatcher(store *snapshot.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		controller: NopController{},
		predictor:  DefaultPredictor(),
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) StartTrading(ctx context.Context) Result {
	return d.transition(ctx, "start", snapshot.EngineRunning, "Trading system started", d.controller.Start)
}

func (d *Dispatcher) StopTrading(ctx context.Context) Result {
	return d.transition(ctx, "stop", snapshot.EngineStopped, "Trading system stopped", d.controller.Stop)
}

func (d *Dispatcher) PauseTrading(ctx context.Context) Result {
	return d.transition(ctx, "pause", snapshot.EnginePaused, "Trading system paused", d.controller.Pause)
}

// ToggleClaudeFeatures flips claude_features_enabled and reports the new value.
func (d *Dispatcher) ToggleClaudeFeatures(ctx context.Context) Result {
	id := d.newID()
	var enabled bool
	err := d.run("toggle", func() error {
		snap, err := d.store.Update(func(s *snapshot.Snapshot) error {
			s.ClaudeFeaturesEnabled = !s.ClaudeFeaturesEnabled
			return nil
		})
		enabled = snap.ClaudeFeaturesEnabled
		return err
	})
	if err != nil {
		return d.failure("toggle", id, err)
	}

	res := d.success("toggle", id, "Claude features toggled", zap.Bool("claude_enabled", enabled))
	res.ClaudeEnabled = &enabled
	return res
}

// RefreshPredictions asks the predictor for a new confidence figure and stores
// it together with the refresh time.
func (d *Dispatcher) RefreshPredictions(ctx context.Context) Result {
	id := d.newID()
	var pred Prediction
	err := d.run("refresh", func() error {
		symbols := d.store.Get().Positions
		p, err := d.predictor.Refresh(ctx, symbols)
		if err != nil {
			return fmt.Errorf("refresh predictions: %w", err)
		}
		if p.Confidence.IsNegative() || p.Confidence.GreaterThan(maxConfidence) {
			return fmt.Errorf("%w: %s", ErrConfidenceRange, p.Confidence)
		}
		if p.SymbolsUpdated < 0 {
			p.SymbolsUpdated = 0
		}
		at := d.now()
		_, err = d.store.Update(func(s *snapshot.Snapshot) error {
			s.AIConfidence = p.Confidence
			s.LastPredictionUpdate = at
			return nil
		})
		pred = p
		return err
	})
	if err != nil {
		return d.failure("refresh", id, err)
	}

	res := d.success("refresh", id, "Predictions refreshed",
		zap.String("new_confidence", pred.Confidence.String()),
		zap.Int("symbols_updated", pred.SymbolsUpdated))
	res.NewConfidence = json.Number(pred.Confidence.String())
	updated := pred.SymbolsUpdated
	res.SymbolsUpdated = &updated
	return res
}

func (d *Dispatcher) transition(ctx context.Context, action string, next snapshot.EngineState, message string, call func(context.Context) error) Result {
	id := d.newID()
	err := d.run(action, func() error {
		if err := call(ctx); err != nil {
			return err
		}
		_, err := d.store.Update(func(s *snapshot.Snapshot) error {
			s.EngineState = next
			return nil
		})
		return err
	})
	if err != nil {
		return d.failure(action, id, err)
	}

	res := d.success(action, id, message)
	res.EngineState = string(next)
	if d.notifier != nil {
		if err := d.notifier.NotifyCommand(ctx, action, message, id); err != nil {
			d.logger.Warn("command notification failed", zap.String("action", action), zap.Error(err))
		}
	}
	return res
}

// run executes fn under the command lock, converting a panic into an error.
func (d *Dispatcher) run(action string, fn func() error) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s command panicked: %v", action, r)
		}
	}()
	return fn()
}

func (d *Dispatcher) success(action, id, message string, fields ...zap.Field) Result {
	fields = append([]zap.Field{logs.Level(logs.LevelSuccess), zap.String("action", action), zap.String("command_id", id)}, fields...)
	d.logger.Info(message, fields...)
	return Result{
		Status:    StatusSuccess,
		Message:   message,
		CommandID: id,
		Timestamp: d.now(),
	}
}

func (d *Dispatcher) failure(action, id string, err error) Result {
	d.logger.Error("command failed", zap.String("action", action), zap.String("command_id", id), zap.Error(err))
	return Result{
		Status:    StatusError,
		Message:   err.Error(),
		CommandID: id,
		Timestamp: d.now(),
	}
}
