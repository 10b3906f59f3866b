package journal

import (
	"encoding/csv"
	"io"
	"strconv"
)

var actionHeader = []string{"time", "kind", "entry_price", "price", "sl", "tp", "size"}

// WriteActionsCSV writes actions with a header row. Missing SL/TP levels
// are empty cells.
func WriteActionsCSV(w io.Writer, actions []TradeAction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(actionHeader); err != nil {
		return err
	}
	for _, a := range actions {
		if err := cw.Write([]string{
			a.Time.String(),
			string(a.Kind),
			f(a.EntryPrice),
			f(a.Price),
			optional(a.StopLoss),
			optional(a.TakeProfit),
			f(a.Size),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return f(*v)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
