package strategies

// Noop never trades. It is useful for buy & hold baselines and tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Decide(*Context) (Decision, error) { return Decision{}, nil }
