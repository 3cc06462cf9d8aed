// Package indicator provides technical indicator calculations over daily bars.
//
// All indicators implement the Indicator interface, receiving closes and
// producing float64 values. Compute builds a full Snapshot from a bar
// history by feeding fresh indicator instances, so every call is a pure
// recomputation with no state carried between calls.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "RSI").
	Name() string

	// Update feeds a new closing price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
