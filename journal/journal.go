// journal/journal.go
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

var ErrNotFound = errors.New("not found")

// PersistenceError wraps a failed storage operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

type ActionKind string

const (
	ActionBuy   ActionKind = "buy"
	ActionSell  ActionKind = "sell"
	ActionClose ActionKind = "close"
)

// TradeAction is one order issued by a strategy during a recording run.
// Rows are append-only.
type TradeAction struct {
	ID         int64
	BacktestID int64
	Time       market.Timestamp
	Kind       ActionKind
	EntryPrice float64
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
	Size       float64
}

// Key is the natural key of a BacktestStat.
type Key struct {
	Ticker   string
	Strategy string
	Period   string
	Interval string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Ticker, k.Strategy, k.Period, k.Interval)
}

// BacktestStat is the latest recorded result for a Key. Undefined metrics
// are NaN.
type BacktestStat struct {
	ID    int64
	RefID string
	Key

	Start            market.Timestamp
	End              market.Timestamp
	Duration         time.Duration
	ExposurePct      float64
	EquityFinal      float64
	EquityPeak       float64
	ReturnPct        float64
	BuyHoldReturnPct float64
	ReturnAnnPct     float64
	VolatilityAnnPct float64
	Sharpe           float64
	Sortino          float64
	Calmar           float64
	MaxDrawdownPct   float64
	AvgDrawdownPct   float64
	MaxDrawdownDur   time.Duration
	AvgDrawdownDur   time.Duration
	Trades           int
	WinRate          float64
	BestTradePct     float64
	WorstTradePct    float64
	AvgTradePct      float64
	MaxTradeDur      time.Duration
	AvgTradeDur      time.Duration
	ProfitFactor     float64

	TPSLRatio    *float64
	SLCoef       *float64
	TPCoef       *float64
	GridDistance *float64

	NotificationsOn *bool
	UpdatedAt       time.Time
	LastOptimizedAt time.Time
}

// Store persists backtest stats and their trade actions.
type Store interface {
	// UpsertBacktestStat inserts or updates by natural key and sets stat.ID.
	// A stored notification flag is kept.
	UpsertBacktestStat(ctx context.Context, stat *BacktestStat) error
	GetBacktestStat(ctx context.Context, id int64) (BacktestStat, error)
	FindBacktestStat(ctx context.Context, key Key) (BacktestStat, error)
	ListStrategies(ctx context.Context) ([]BacktestStat, error)

	// LatestTradeAction returns nil when the backtest has no actions.
	LatestTradeAction(ctx context.Context, backtestID int64) (*TradeAction, error)
	InsertTradeActions(ctx context.Context, actions []TradeAction) error
	AllTradeActions(ctx context.Context, backtestID int64) ([]TradeAction, error)

	Close() error
}
