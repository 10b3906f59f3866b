package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/signalbot/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, persistErr("open", err)
	}
	// one writer keeps upserts from racing on SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, persistErr("schema", err)
	}

	return &SQLite{db: db}, nil
}

const statColumns = `
	id, ref_id, ticker, strategy, period, interval,
	start_time, end_time, duration, exposure_pct, equity_final, equity_peak,
	return_pct, buy_hold_return_pct, return_ann_pct, volatility_ann_pct,
	sharpe, sortino, calmar, max_drawdown_pct, avg_drawdown_pct,
	max_drawdown_dur, avg_drawdown_dur, trades, win_rate, best_trade_pct,
	worst_trade_pct, avg_trade_pct, max_trade_dur, avg_trade_dur, profit_factor,
	tpsl_ratio, sl_coef, tp_coef, grid_distance, notifications_on,
	updated_at, last_optimized_at`

func (j *SQLite) UpsertBacktestStat(ctx context.Context, s *BacktestStat) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	if s.LastOptimizedAt.IsZero() {
		s.LastOptimizedAt = s.UpdatedAt
	}

	row := j.db.QueryRowContext(ctx, `
		INSERT INTO backtest_stats (
			ref_id, ticker, strategy, period, interval,
			start_time, end_time, duration, exposure_pct, equity_final, equity_peak,
			return_pct, buy_hold_return_pct, return_ann_pct, volatility_ann_pct,
			sharpe, sortino, calmar, max_drawdown_pct, avg_drawdown_pct,
			max_drawdown_dur, avg_drawdown_dur, trades, win_rate, best_trade_pct,
			worst_trade_pct, avg_trade_pct, max_trade_dur, avg_trade_dur, profit_factor,
			tpsl_ratio, sl_coef, tp_coef, grid_distance, notifications_on,
			updated_at, last_optimized_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, strategy, period, interval) DO UPDATE SET
			ref_id = excluded.ref_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration = excluded.duration,
			exposure_pct = excluded.exposure_pct,
			equity_final = excluded.equity_final,
			equity_peak = excluded.equity_peak,
			return_pct = excluded.return_pct,
			buy_hold_return_pct = excluded.buy_hold_return_pct,
			return_ann_pct = excluded.return_ann_pct,
			volatility_ann_pct = excluded.volatility_ann_pct,
			sharpe = excluded.sharpe,
			sortino = excluded.sortino,
			calmar = excluded.calmar,
			max_drawdown_pct = excluded.max_drawdown_pct,
			avg_drawdown_pct = excluded.avg_drawdown_pct,
			max_drawdown_dur = excluded.max_drawdown_dur,
			avg_drawdown_dur = excluded.avg_drawdown_dur,
			trades = excluded.trades,
			win_rate = excluded.win_rate,
			best_trade_pct = excluded.best_trade_pct,
			worst_trade_pct = excluded.worst_trade_pct,
			avg_trade_pct = excluded.avg_trade_pct,
			max_trade_dur = excluded.max_trade_dur,
			avg_trade_dur = excluded.avg_trade_dur,
			profit_factor = excluded.profit_factor,
			tpsl_ratio = excluded.tpsl_ratio,
			sl_coef = excluded.sl_coef,
			tp_coef = excluded.tp_coef,
			grid_distance = excluded.grid_distance,
			notifications_on = COALESCE(backtest_stats.notifications_on, excluded.notifications_on),
			updated_at = excluded.updated_at,
			last_optimized_at = excluded.last_optimized_at
		RETURNING id, notifications_on`,
		s.RefID, s.Ticker, s.Strategy, s.Period, s.Interval,
		s.Start.String(), s.End.String(), int64(s.Duration), nullFloat(s.ExposurePct),
		nullFloat(s.EquityFinal), nullFloat(s.EquityPeak),
		nullFloat(s.ReturnPct), nullFloat(s.BuyHoldReturnPct), nullFloat(s.ReturnAnnPct), nullFloat(s.VolatilityAnnPct),
		nullFloat(s.Sharpe), nullFloat(s.Sortino), nullFloat(s.Calmar), nullFloat(s.MaxDrawdownPct), nullFloat(s.AvgDrawdownPct),
		int64(s.MaxDrawdownDur), int64(s.AvgDrawdownDur), s.Trades, nullFloat(s.WinRate), nullFloat(s.BestTradePct),
		nullFloat(s.WorstTradePct), nullFloat(s.AvgTradePct), int64(s.MaxTradeDur), int64(s.AvgTradeDur), nullFloat(s.ProfitFactor),
		nullPtr(s.TPSLRatio), nullPtr(s.SLCoef), nullPtr(s.TPCoef), nullPtr(s.GridDistance), nullBool(s.NotificationsOn),
		s.UpdatedAt, s.LastOptimizedAt,
	)

	var flag sql.NullBool
	if err := row.Scan(&s.ID, &flag); err != nil {
		return persistErr("upsert backtest stat", err)
	}
	s.NotificationsOn = boolPtr(flag)
	return nil
}

func (j *SQLite) GetBacktestStat(ctx context.Context, id int64) (BacktestStat, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+statColumns+` FROM backtest_stats WHERE id = ?`, id)
	s, err := scanStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestStat{}, persistErr("get backtest stat", fmt.Errorf("backtest %d %w", id, ErrNotFound))
	}
	return s, persistErr("get backtest stat", err)
}

func (j *SQLite) FindBacktestStat(ctx context.Context, k Key) (BacktestStat, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+statColumns+` FROM backtest_stats
		WHERE ticker = ? AND strategy = ? AND period = ? AND interval = ?`,
		k.Ticker, k.Strategy, k.Period, k.Interval)
	s, err := scanStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestStat{}, persistErr("find backtest stat", fmt.Errorf("backtest %q %w", k.String(), ErrNotFound))
	}
	return s, persistErr("find backtest stat", err)
}

// ListStrategies returns every stored stat ordered by id.
func (j *SQLite) ListStrategies(ctx context.Context) ([]BacktestStat, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+statColumns+` FROM backtest_stats ORDER BY id ASC`)
	if err != nil {
		return nil, persistErr("list strategies", err)
	}
	defer rows.Close()

	var out []BacktestStat
	for rows.Next() {
		s, err := scanStat(rows)
		if err != nil {
			return nil, persistErr("list strategies", err)
		}
		out = append(out, s)
	}
	return out, persistErr("list strategies", rows.Err())
}

func (j *SQLite) LatestTradeAction(ctx context.Context, backtestID int64) (*TradeAction, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, backtest_id, time, kind, entry_price, price, sl, tp, size
		FROM trade_actions
		WHERE backtest_id = ?
		ORDER BY time DESC, id DESC
		LIMIT 1`, backtestID)

	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("latest trade action", err)
	}
	return &a, nil
}

// InsertTradeActions appends actions in one transaction.
func (j *SQLite) InsertTradeActions(ctx context.Context, actions []TradeAction) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("insert trade actions", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_actions (backtest_id, time, kind, entry_price, price, sl, tp, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return persistErr("insert trade actions", err)
	}
	defer stmt.Close()

	for _, a := range actions {
		if a.BacktestID == 0 {
			return persistErr("insert trade actions", errors.New("trade action has no backtest id"))
		}
		if _, err := stmt.ExecContext(ctx,
			a.BacktestID, a.Time.String(), string(a.Kind), a.EntryPrice, a.Price,
			nullPtr(a.StopLoss), nullPtr(a.TakeProfit), a.Size,
		); err != nil {
			return persistErr("insert trade actions", err)
		}
	}
	return persistErr("insert trade actions", tx.Commit())
}

// AllTradeActions returns a backtest's actions in time order.
func (j *SQLite) AllTradeActions(ctx context.Context, backtestID int64) ([]TradeAction, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, backtest_id, time, kind, entry_price, price, sl, tp, size
		FROM trade_actions
		WHERE backtest_id = ?
		ORDER BY time ASC, id ASC`, backtestID)
	if err != nil {
		return nil, persistErr("all trade actions", err)
	}
	defer rows.Close()

	var out []TradeAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, persistErr("all trade actions", err)
		}
		out = append(out, a)
	}
	return out, persistErr("all trade actions", rows.Err())
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAction(r scanner) (TradeAction, error) {
	var (
		a      TradeAction
		ts     string
		kind   string
		sl, tp sql.NullFloat64
	)
	if err := r.Scan(&a.ID, &a.BacktestID, &ts, &kind, &a.EntryPrice, &a.Price, &sl, &tp, &a.Size); err != nil {
		return TradeAction{}, err
	}
	t, err := market.ParseTimestamp(ts)
	if err != nil {
		return TradeAction{}, fmt.Errorf("trade action %d: %w", a.ID, err)
	}
	a.Time = t
	a.Kind = ActionKind(kind)
	a.StopLoss = floatPtr(sl)
	a.TakeProfit = floatPtr(tp)
	return a, nil
}

func scanStat(r scanner) (BacktestStat, error) {
	var (
		s          BacktestStat
		start, end sql.NullString
		durs       [5]sql.NullInt64
		vals       [17]sql.NullFloat64
		params     [4]sql.NullFloat64
		flag       sql.NullBool
	)
	err := r.Scan(
		&s.ID, &s.RefID, &s.Ticker, &s.Strategy, &s.Period, &s.Interval,
		&start, &end, &durs[0], &vals[0], &vals[1], &vals[2],
		&vals[3], &vals[4], &vals[5], &vals[6],
		&vals[7], &vals[8], &vals[9], &vals[10], &vals[11],
		&durs[1], &durs[2], &s.Trades, &vals[12], &vals[13],
		&vals[14], &vals[15], &durs[3], &durs[4], &vals[16],
		&params[0], &params[1], &params[2], &params[3], &flag,
		&s.UpdatedAt, &s.LastOptimizedAt,
	)
	if err != nil {
		return BacktestStat{}, err
	}

	if s.Start, err = parseOptionalTimestamp(start); err != nil {
		return BacktestStat{}, err
	}
	if s.End, err = parseOptionalTimestamp(end); err != nil {
		return BacktestStat{}, err
	}
	s.Duration = time.Duration(durs[0].Int64)
	s.MaxDrawdownDur = time.Duration(durs[1].Int64)
	s.AvgDrawdownDur = time.Duration(durs[2].Int64)
	s.MaxTradeDur = time.Duration(durs[3].Int64)
	s.AvgTradeDur = time.Duration(durs[4].Int64)

	s.ExposurePct = orNaN(vals[0])
	s.EquityFinal = orNaN(vals[1])
	s.EquityPeak = orNaN(vals[2])
	s.ReturnPct = orNaN(vals[3])
	s.BuyHoldReturnPct = orNaN(vals[4])
	s.ReturnAnnPct = orNaN(vals[5])
	s.VolatilityAnnPct = orNaN(vals[6])
	s.Sharpe = orNaN(vals[7])
	s.Sortino = orNaN(vals[8])
	s.Calmar = orNaN(vals[9])
	s.MaxDrawdownPct = orNaN(vals[10])
	s.AvgDrawdownPct = orNaN(vals[11])
	s.WinRate = orNaN(vals[12])
	s.BestTradePct = orNaN(vals[13])
	s.WorstTradePct = orNaN(vals[14])
	s.AvgTradePct = orNaN(vals[15])
	s.ProfitFactor = orNaN(vals[16])

	s.TPSLRatio = floatPtr(params[0])
	s.SLCoef = floatPtr(params[1])
	s.TPCoef = floatPtr(params[2])
	s.GridDistance = floatPtr(params[3])
	s.NotificationsOn = boolPtr(flag)
	s.UpdatedAt = s.UpdatedAt.UTC()
	s.LastOptimizedAt = s.LastOptimizedAt.UTC()
	return s, nil
}

func parseOptionalTimestamp(v sql.NullString) (market.Timestamp, error) {
	if !v.Valid || v.String == "" {
		return market.Timestamp{}, nil
	}
	return market.ParseTimestamp(v.String)
}

// NaN and infinities are stored as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullPtr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return nullFloat(*v)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}
