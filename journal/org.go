package journal

import (
	"io"
	"math"
	"strconv"
	"text/template"
	"time"
)

var orgFuncs = template.FuncMap{
	"num": func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "n/a"
		}
		return f2(v)
	},
	"opt": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return f2(*v)
	},
	"flag": func(v *bool) string {
		switch {
		case v == nil:
			return "unset"
		case *v:
			return "on"
		default:
			return "off"
		}
	},
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 Mon 15:04") },
}

var orgTemplate = template.Must(template.New("backtest").Funcs(orgFuncs).Parse(BacktestOrgTemplate))

// WriteOrg renders a stat and its trade actions as an Org-mode entry.
func WriteOrg(w io.Writer, s BacktestStat, actions []TradeAction) error {
	return orgTemplate.Execute(w, struct {
		BacktestStat
		Actions []TradeAction
	}{s, actions})
}

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

const BacktestOrgTemplate = `
* BACKTEST: {{.Strategy}} {{.Ticker}} {{.Interval}}
:PROPERTIES:
:ID:          {{.ID}}
:REF_ID:      {{.RefID}}
:STRATEGY:    {{.Strategy}}
:TICKER:      {{.Ticker}}
:PERIOD:      {{.Period}}
:INTERVAL:    {{.Interval}}
:START_DATE:  {{.Start}}
:END_DATE:    {{.End}}
:RETURN_PCT:  {{num .ReturnPct}}
:MAX_DD_PCT:  {{num .MaxDrawdownPct}}
:TRADES:      {{.Trades}}
:WIN_RATE:    {{num .WinRate}}
:NOTIFY:      {{flag .NotificationsOn}}
:OPTIMIZED:   [{{stamp .LastOptimizedAt}}]
:END:

** Strategy Parameters
| Parameter     | Value |
|---------------+-------|
| SL coef       | {{opt .SLCoef}} |
| TP/SL ratio   | {{opt .TPSLRatio}} |
| TP coef       | {{opt .TPCoef}} |
| Grid distance | {{opt .GridDistance}} |

** Performance Summary
- Equity final:   *{{num .EquityFinal}}*
- Return:         *{{num .ReturnPct}}%*
- Buy & hold:     *{{num .BuyHoldReturnPct}}%*
- Sharpe:         *{{num .Sharpe}}*
- Sortino:        *{{num .Sortino}}*
- Max drawdown:   *{{num .MaxDrawdownPct}}%*
- Win rate:       *{{num .WinRate}}%*
- Profit factor:  *{{num .ProfitFactor}}*

{{- if .Actions }}

** Trade Actions
| Time | Kind | Price | SL | TP | Size |
|------+------+-------+----+----+------|
{{- range .Actions }}
| {{.Time}} | {{.Kind}} | {{num .Price}} | {{opt .StopLoss}} | {{opt .TakeProfit}} | {{num .Size}} |
{{- end }}
{{- end }}
`
