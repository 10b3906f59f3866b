// Package reconcile reduces a recording run's trade actions to the part
// not yet persisted and decides whether a backtest is worth notifying on.
package reconcile

import "github.com/rustyeddy/signalbot/journal"

// NewActions returns the fresh actions to persist. With a latest stored
// action, that is every fresh action strictly after its time. On a first
// run only the chronologically last fresh action is kept; among actions
// sharing that time, the one appended last wins.
func NewActions(fresh []journal.TradeAction, latest *journal.TradeAction) []journal.TradeAction {
	if len(fresh) == 0 {
		return nil
	}
	if latest == nil {
		last := fresh[0]
		for _, a := range fresh[1:] {
			if !a.Time.Before(last.Time) {
				last = a
			}
		}
		return []journal.TradeAction{last}
	}

	var out []journal.TradeAction
	for _, a := range fresh {
		if a.Time.After(latest.Time) {
			out = append(out, a)
		}
	}
	return out
}

// Eligible reports whether a backtest performs well enough to notify on.
// NaN metrics compare false.
func Eligible(s journal.BacktestStat) bool {
	return (s.Sharpe > 0 && s.ReturnPct > 0) || s.WinRate > 60
}

// ResolveFlag fills a missing notification flag with computed. A stored
// flag is returned unchanged.
func ResolveFlag(stored *bool, computed bool) *bool {
	if stored != nil {
		return stored
	}
	return &computed
}
