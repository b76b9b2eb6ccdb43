// Package numerator provides domain contracts for document auto-numbering.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPDATE ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	// Slower, suitable for orders and invoices.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if application restarts.
	// Suitable for internal documents (production batches).
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of IDs to allocate at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SO", "INV", or a SKU batch prefix)
	Prefix string

	// IncludePeriod adds the period segment to the number
	IncludePeriod bool

	// PeriodFormat is the time layout of the period segment
	// ("2006" for yearly numbers, "0601" for batch-style YYMM)
	PeriodFormat string

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults for order/invoice numbers.
// Pattern: PREFIX-YYYY-NNNNN (e.g., SO-2026-00001).
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:        prefix,
		IncludePeriod: true,
		PeriodFormat:  "2006",
		PadWidth:      5,
		ResetPeriod:   "year",
	}
}

// BatchConfig returns the configuration for production batch numbers.
// Pattern: PREFIX-YYMM-NNN (e.g., GTB-2511-001), resetting monthly.
func BatchConfig(skuPrefix string) Config {
	return Config{
		Prefix:        skuPrefix,
		IncludePeriod: true,
		PeriodFormat:  "0601",
		PadWidth:      3,
		ResetPeriod:   "month",
	}
}
