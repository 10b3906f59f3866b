package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/config"
	"github.com/rustyeddy/signalbot/market/data"
	"github.com/rustyeddy/signalbot/notify"
	"github.com/rustyeddy/signalbot/replay"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/strategies"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, exitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, exitNotFound, ExitCode(fmt.Errorf("%w: backtest 9 not found", replay.ErrReplayScheduleInvalid)))
	assert.Equal(t, exitNotFound, ExitCode(fmt.Errorf("backtest: %w", signals.ErrUnknownStrategy)))
	assert.Equal(t, exitUnavailable, ExitCode(fmt.Errorf("%w: BTC-USD", data.ErrDataUnavailable)))
}

func TestBestParamsOnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var sl, ratio, tp, grid float64
	cmd.Flags().Float64Var(&sl, "sl-coef", 0, "")
	cmd.Flags().Float64Var(&ratio, "tpsl-ratio", 0, "")
	cmd.Flags().Float64Var(&tp, "tp-coef", 0, "")
	cmd.Flags().Float64Var(&grid, "grid-distance", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--sl-coef", "1.8", "--grid-distance", "20"}))

	assert.Equal(t, map[string]float64{
		strategies.SLCoef:       1.8,
		strategies.GridDistance: 20,
	}, bestParams(cmd))
}

func TestNewProvider(t *testing.T) {
	p, err := newProvider(config.DataConfig{Provider: "csv", CSVDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &data.CSV{}, p)

	p, err = newProvider(config.DataConfig{Provider: "binance", RateLimit: 5}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &data.Binance{}, p)

	_, err = newProvider(config.DataConfig{Provider: "oanda"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewNotifierWithoutDiscordIsNoOp(t *testing.T) {
	n, err := newNotifier(config.NotifyConfig{DiscordChannel: "123"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, notify.NoOp{}, n)
}

func TestParseTime(t *testing.T) {
	tm, err := parseTime("")
	require.NoError(t, err)
	assert.True(t, tm.IsZero())

	tm, err = parseTime("2024-03-01 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, 10, tm.Hour())

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Empty(t, mask(""))
	assert.Equal(t, "****", mask("secret"))
}
