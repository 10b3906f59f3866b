package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
)

type MockDiscordSession struct {
	mock.Mock
}

func (m *MockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func (m *MockDiscordSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestDiscord(t *testing.T) (*Discord, *MockDiscordSession) {
	t.Helper()
	d, err := NewDiscord("fake-token", "chan-1", zap.NewNop())
	require.NoError(t, err)
	m := new(MockDiscordSession)
	d.session = m
	return d, m
}

func TestNewDiscordRequiresConfig(t *testing.T) {
	d, err := NewDiscord("", "chan-1", nil)
	assert.Error(t, err)
	assert.Nil(t, d)
}

func TestDiscordSend(t *testing.T) {
	d, m := newTestDiscord(t)
	m.On("ChannelMessageSend", "chan-1", "hello").Return(&discordgo.Message{}, nil).Once()

	require.NoError(t, d.Send(context.Background(), "hello"))
	m.AssertExpectations(t)
}

func TestDiscordSendSplitsLongMessages(t *testing.T) {
	d, m := newTestDiscord(t)
	line := strings.Repeat("x", 99) + "\n"
	msg := strings.Repeat(line, 30)

	m.On("ChannelMessageSend", "chan-1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			assert.LessOrEqual(t, len(args.String(1)), maxMessageLen)
			assert.True(t, strings.HasSuffix(args.String(1), "\n"))
		}).
		Return(&discordgo.Message{}, nil).
		Twice()

	require.NoError(t, d.Send(context.Background(), msg))
	m.AssertExpectations(t)
}

func TestDiscordSendError(t *testing.T) {
	d, m := newTestDiscord(t)
	m.On("ChannelMessageSend", "chan-1", "hello").Return(nil, errors.New("rate limited")).Once()

	err := d.Send(context.Background(), "hello")
	assert.ErrorContains(t, err, "rate limited")
}

func TestDiscordClose(t *testing.T) {
	d, m := newTestDiscord(t)
	m.On("Close").Return(nil).Once()
	assert.NoError(t, d.Close())
	m.AssertExpectations(t)
}

func TestNoOp(t *testing.T) {
	var n Notifier = NoOp{}
	assert.NoError(t, n.Send(context.Background(), "ignored"))
	assert.NoError(t, n.Close())
}

func TestFormatAction(t *testing.T) {
	ts, err := market.ParseTimestamp("2025-04-01 14:00:00")
	require.NoError(t, err)
	key := journal.Key{Ticker: "EURUSD", Strategy: "ema_bollinger", Period: "1mo", Interval: "1h"}
	sl, tp := 1.0812345678, 1.0956
	links := Links{BaseURL: "https://signals.example.com/"}

	buy := FormatAction(key, journal.TradeAction{
		BacktestID: 7, Time: ts, Kind: journal.ActionBuy,
		EntryPrice: 1.0876543, Price: 1.0876543, StopLoss: &sl, TakeProfit: &tp, Size: 0.03,
	}, links)
	assert.True(t, strings.HasPrefix(buy, "🟢 BUY signal"))
	assert.Contains(t, buy, "Symbol: EURUSD")
	assert.Contains(t, buy, "Entry: 1.08765\n")
	assert.Contains(t, buy, "Stop loss: 1.08123\n")
	assert.Contains(t, buy, "Take Profit: 1.0956\n")
	assert.Contains(t, buy, "Size: 0.03\n")
	assert.Contains(t, buy, "Risk/Reward: 1:1.24\n")
	assert.Contains(t, buy, "Time: 2025-04-01 14:00:00.000000 (GMT)")
	assert.Contains(t, buy, "https://signals.example.com/strategy/7\n")
	assert.True(t, strings.HasSuffix(buy, "https://signals.example.com/strategy/7/backtest"))

	closeMsg := FormatAction(key, journal.TradeAction{Kind: journal.ActionClose, EntryPrice: 1.08, Price: 1.09, Size: 0.03}, Links{})
	assert.True(t, strings.HasPrefix(closeMsg, "🟡 CLOSE signal"))
	assert.Contains(t, closeMsg, "Close Price: 1.09")
	assert.NotContains(t, closeMsg, "Stop loss")
	assert.NotContains(t, closeMsg, "Backtest:")

	sell := FormatActions(key, []journal.TradeAction{{Kind: journal.ActionSell, Size: 0.01}}, links)
	require.Len(t, sell, 1)
	assert.Contains(t, sell[0], "Stop loss: -")
	assert.NotContains(t, sell[0], "Risk/Reward")
}
