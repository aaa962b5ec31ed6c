package snapshot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/trading-dashboard/internal/config"
)

// Trading modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// EngineState is the last trading intent the dashboard accepted.
type EngineState string

const (
	EngineStopped EngineState = "stopped"
	EngineRunning EngineState = "running"
	EnginePaused  EngineState = "paused"
)

// Snapshot is the dashboard's in-memory view of the trading process.
type Snapshot struct {
	PortfolioValue         decimal.Decimal
	PortfolioChange        decimal.Decimal
	PortfolioChangePercent decimal.Decimal
	TradingMode            string
	AIConfidence           decimal.Decimal
	ClaudeFeaturesEnabled  bool
	Positions              []string
	LastPredictionUpdate   time.Time
	EngineState            EngineState
}

// ActivePositions is the number of distinct symbols held.
func (s Snapshot) ActivePositions() int { return len(s.Positions) }

func (s Snapshot) clone() Snapshot {
	out := s
	out.Positions = append([]string(nil), s.Positions...)
	return out
}

// Store owns the single Snapshot. Writers serialize on one lock; readers get
// deep copies so a partially applied update is never visible.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStore creates a store seeded with initial.
func NewStore(initial Snapshot) *Store {
	initial.Positions = dedupe(initial.Positions)
	return &Store{snap: initial.clone()}
}

// FromConfig builds the seed snapshot from config.
func FromConfig(cfg config.SnapshotConfig, now time.Time) (Snapshot, error) {
	value, err := decimal.NewFromString(cfg.PortfolioValue)
	if err != nil {
		return Snapshot{}, fmt.Errorf("portfolio_value: %w", err)
	}
	change, err := decimal.NewFromString(cfg.PortfolioChange)
	if err != nil {
		return Snapshot{}, fmt.Errorf("portfolio_change: %w", err)
	}
	changePct, err := decimal.NewFromString(cfg.PortfolioChangePercent)
	if err != nil {
		return Snapshot{}, fmt.Errorf("portfolio_change_percent: %w", err)
	}
	confidence, err := decimal.NewFromString(cfg.AIConfidence)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ai_confidence: %w", err)
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.TradingMode))
	if mode != ModeLive {
		mode = ModePaper
	}

	return Snapshot{
		PortfolioValue:         value,
		PortfolioChange:        change,
		PortfolioChangePercent: changePct,
		TradingMode:            mode,
		AIConfidence:           confidence,
		ClaudeFeaturesEnabled:  cfg.ClaudeFeaturesEnabled,
		Positions:              dedupe(cfg.Positions),
		LastPredictionUpdate:   now,
		EngineState:            EngineStopped,
	}, nil
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Update applies fn to a working copy under the write lock. The copy replaces
// the stored snapshot only when fn returns nil, so a failed update leaves the
// previous state untouched.
func (s *Store) Update(fn func(*Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.snap.clone()
	if err := fn(&work); err != nil {
		return s.snap.clone(), err
	}
	work.Positions = dedupe(work.Positions)
	s.snap = work
	return work.clone(), nil
}

// dedupe keeps the first occurrence of each symbol, preserving order.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
