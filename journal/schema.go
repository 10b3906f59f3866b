// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS backtest_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ref_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	strategy TEXT NOT NULL,
	period TEXT NOT NULL,
	interval TEXT NOT NULL,
	start_time TEXT,
	end_time TEXT,
	duration INTEGER,
	exposure_pct REAL,
	equity_final REAL,
	equity_peak REAL,
	return_pct REAL,
	buy_hold_return_pct REAL,
	return_ann_pct REAL,
	volatility_ann_pct REAL,
	sharpe REAL,
	sortino REAL,
	calmar REAL,
	max_drawdown_pct REAL,
	avg_drawdown_pct REAL,
	max_drawdown_dur INTEGER,
	avg_drawdown_dur INTEGER,
	trades INTEGER NOT NULL DEFAULT 0,
	win_rate REAL,
	best_trade_pct REAL,
	worst_trade_pct REAL,
	avg_trade_pct REAL,
	max_trade_dur INTEGER,
	avg_trade_dur INTEGER,
	profit_factor REAL,
	tpsl_ratio REAL,
	sl_coef REAL,
	tp_coef REAL,
	grid_distance REAL,
	notifications_on INTEGER,
	updated_at DATETIME NOT NULL,
	last_optimized_at DATETIME NOT NULL,
	UNIQUE (ticker, strategy, period, interval)
);

CREATE TABLE IF NOT EXISTS trade_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	backtest_id INTEGER NOT NULL REFERENCES backtest_stats(id) ON DELETE CASCADE,
	time TEXT NOT NULL,
	kind TEXT NOT NULL,
	entry_price REAL NOT NULL,
	price REAL NOT NULL,
	sl REAL,
	tp REAL,
	size REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_actions_backtest_time ON trade_actions(backtest_id, time);
`
