package sim

// UnrealizedPL is t's profit if closed at price.
func UnrealizedPL(t Trade, price float64) float64 {
	return t.Units * (price - t.EntryPrice)
}
