package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/risk"
)

// Links builds the strategy and backtest page URLs under a base URL.
type Links struct {
	BaseURL string
}

func (l Links) Strategy(backtestID int64) string {
	return fmt.Sprintf("%s/strategy/%d", strings.TrimRight(l.BaseURL, "/"), backtestID)
}

func (l Links) Backtest(backtestID int64) string {
	return l.Strategy(backtestID) + "/backtest"
}

// FormatAction renders one trade action for a chat message.
func FormatAction(key journal.Key, a journal.TradeAction, links Links) string {
	var b strings.Builder
	switch a.Kind {
	case journal.ActionBuy:
		b.WriteString("🟢 BUY signal\n\n")
	case journal.ActionSell:
		b.WriteString("🔴 SELL signal\n\n")
	default:
		b.WriteString("🟡 CLOSE signal\n\n")
	}
	fmt.Fprintf(&b, "🧠 Strategy: %s\n", key.Strategy)
	fmt.Fprintf(&b, "📈 Symbol: %s\n", key.Ticker)
	fmt.Fprintf(&b, "⏳ Interval: %s\n", key.Interval)
	fmt.Fprintf(&b, "⏱️ Time: %s (GMT)\n\n---\n", a.Time)

	fmt.Fprintf(&b, "Entry: %s\n", price(a.EntryPrice))
	fmt.Fprintf(&b, "Size: %s\n", decimal.NewFromFloat(a.Size).String())
	if a.Kind == journal.ActionClose {
		fmt.Fprintf(&b, "Close Price: %s\n", price(a.Price))
	} else {
		fmt.Fprintf(&b, "Stop loss: %s\n", level(a.StopLoss))
		fmt.Fprintf(&b, "Take Profit: %s\n", level(a.TakeProfit))
		if a.StopLoss != nil && a.TakeProfit != nil {
			rr := risk.RR(a.EntryPrice, *a.StopLoss, *a.TakeProfit)
			fmt.Fprintf(&b, "Risk/Reward: 1:%s\n", decimal.NewFromFloat(rr).StringFixed(2))
		}
	}

	if links.BaseURL != "" {
		fmt.Fprintf(&b, "\nStrategy: %s\n\nBacktest: %s", links.Strategy(a.BacktestID), links.Backtest(a.BacktestID))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatActions renders every action, one message each.
func FormatActions(key journal.Key, actions []journal.TradeAction, links Links) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = FormatAction(key, a, links)
	}
	return out
}

func price(v float64) string {
	return decimal.NewFromFloat(v).Truncate(5).String()
}

func level(v *float64) string {
	if v == nil {
		return "-"
	}
	return price(*v)
}
