package journal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/market"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func ts(t *testing.T, s string) market.Timestamp {
	t.Helper()
	v, err := market.ParseTimestamp(s)
	require.NoError(t, err)
	return v
}

func ptr(v float64) *float64 { return &v }

func sampleStat() *BacktestStat {
	return &BacktestStat{
		RefID:       "01HX",
		Key:         Key{Ticker: "BTC-USD", Strategy: "ema_bollinger", Period: "1mo", Interval: "1h"},
		Duration:    30 * 24 * time.Hour,
		EquityFinal: 101234.5,
		ReturnPct:   1.2345,
		Sharpe:      0.8,
		WinRate:     math.NaN(),
		Trades:      0,
		SLCoef:      ptr(2.2),
		TPSLRatio:   ptr(2.0),
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('backtest_stats','trade_actions')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["backtest_stats"])
	assert.True(t, found["trade_actions"])
}

func TestUpsertKeepsOneRowPerKey(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	first := sampleStat()
	require.NoError(t, j.UpsertBacktestStat(ctx, first))
	require.NotZero(t, first.ID)

	second := sampleStat()
	second.RefID = "01HY"
	second.ReturnPct = 9.5
	second.Start = ts(t, "2024-01-01 00:00:00")
	require.NoError(t, j.UpsertBacktestStat(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	other := sampleStat()
	other.Interval = "15m"
	require.NoError(t, j.UpsertBacktestStat(ctx, other))
	assert.NotEqual(t, first.ID, other.ID)

	all, err := j.ListStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, err := j.GetBacktestStat(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "01HY", got.RefID)
	assert.Equal(t, 9.5, got.ReturnPct)
	assert.True(t, math.IsNaN(got.WinRate))
	assert.Equal(t, 30*24*time.Hour, got.Duration)
	assert.Equal(t, ts(t, "2024-01-01 00:00:00"), got.Start)
	assert.True(t, got.End.IsZero())
	require.NotNil(t, got.SLCoef)
	assert.Equal(t, 2.2, *got.SLCoef)
	assert.Nil(t, got.TPCoef)
	assert.Nil(t, got.NotificationsOn)

	byKey, err := j.FindBacktestStat(ctx, first.Key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byKey.ID)
}

func TestConcurrentUpsertsSameKey(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, j.UpsertBacktestStat(ctx, sampleStat()))
		}()
	}
	wg.Wait()

	all, err := j.ListStrategies(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUniqueConstraintRejectsDuplicateInsert(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	require.NoError(t, j.UpsertBacktestStat(context.Background(), sampleStat()))

	_, err := j.db.Exec(`INSERT INTO backtest_stats (ref_id, ticker, strategy, period, interval, updated_at, last_optimized_at)
		VALUES ('x', 'BTC-USD', 'ema_bollinger', '1mo', '1h', ?, ?)`, time.Now(), time.Now())
	assert.ErrorContains(t, err, "UNIQUE")
}

func TestNotificationFlagIsNeverOverwritten(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	on := true
	s := sampleStat()
	s.NotificationsOn = &on
	require.NoError(t, j.UpsertBacktestStat(ctx, s))

	off := false
	again := sampleStat()
	again.NotificationsOn = &off
	require.NoError(t, j.UpsertBacktestStat(ctx, again))
	require.NotNil(t, again.NotificationsOn)
	assert.True(t, *again.NotificationsOn)

	got, err := j.GetBacktestStat(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NotificationsOn)
	assert.True(t, *got.NotificationsOn)
}

func TestGetBacktestStatNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	_, err := j.GetBacktestStat(context.Background(), 42)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "get backtest stat", pe.Op)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTradeActions(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	s := sampleStat()
	require.NoError(t, j.UpsertBacktestStat(ctx, s))

	latest, err := j.LatestTradeAction(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	actions := []TradeAction{
		{BacktestID: s.ID, Time: ts(t, "2024-01-02 10:00:00"), Kind: ActionBuy, EntryPrice: 100, Price: 100, StopLoss: ptr(95), TakeProfit: ptr(110), Size: 0.03},
		{BacktestID: s.ID, Time: ts(t, "2024-01-03 09:00:00"), Kind: ActionClose, EntryPrice: 100, Price: 104, Size: 0.03},
		{BacktestID: s.ID, Time: ts(t, "2024-01-02 12:30:00.250000"), Kind: ActionSell, EntryPrice: 101, Price: 101, Size: 0.03},
	}
	require.NoError(t, j.InsertTradeActions(ctx, actions))

	all, err := j.AllTradeActions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []ActionKind{ActionBuy, ActionSell, ActionClose}, []ActionKind{all[0].Kind, all[1].Kind, all[2].Kind})
	assert.Equal(t, ts(t, "2024-01-02 12:30:00.250000"), all[1].Time)
	require.NotNil(t, all[0].StopLoss)
	assert.Equal(t, 95.0, *all[0].StopLoss)
	assert.Nil(t, all[2].TakeProfit)

	latest, err = j.LatestTradeAction(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ActionClose, latest.Kind)
	assert.Equal(t, 104.0, latest.Price)

	err = j.InsertTradeActions(ctx, []TradeAction{{Kind: ActionBuy}})
	assert.Error(t, err)
}

func TestWriteActionsCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteActionsCSV(&buf, []TradeAction{
		{Time: ts(t, "2024-01-02 10:00:00"), Kind: ActionBuy, EntryPrice: 1.5, Price: 1.5, StopLoss: ptr(1.4), Size: 0.01},
	}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, actionHeader, rows[0])
	assert.Equal(t, []string{"2024-01-02 10:00:00.000000", "buy", "1.500000", "1.500000", "1.400000", "", "0.010000"}, rows[1])
}

func TestWriteOrg(t *testing.T) {
	t.Parallel()

	s := sampleStat()
	s.ID = 7
	var buf bytes.Buffer
	require.NoError(t, WriteOrg(&buf, *s, []TradeAction{
		{Time: ts(t, "2024-01-02 10:00:00"), Kind: ActionSell, Price: 2, Size: 1},
	}))

	out := buf.String()
	assert.Contains(t, out, "* BACKTEST: ema_bollinger BTC-USD 1h")
	assert.Contains(t, out, ":ID:          7")
	assert.Contains(t, out, ":WIN_RATE:    n/a")
	assert.Contains(t, out, "| SL coef       | 2.20 |")
	assert.Contains(t, out, "| TP coef       | - |")
	assert.Contains(t, out, "| 2024-01-02 10:00:00.000000 | sell | 2.00 | - | - | 1.00 |")
}
