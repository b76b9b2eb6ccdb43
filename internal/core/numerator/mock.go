// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
	SetNextNumberFunc func(ctx context.Context, cfg Config, period time.Time, value int64) error

	mu   sync.Mutex
	seqs map[string]int64
}

// GetNextNumber implements Generator.
// Default behavior produces deterministic per-prefix sequences
// (PREFIX-PERIOD-001, PREFIX-PERIOD-002, ...).
func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, opts, period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[cfg.Prefix]++
	num := m.seqs[cfg.Prefix]

	pad := cfg.PadWidth
	if pad == 0 {
		pad = 5
	}
	if cfg.IncludePeriod {
		format := cfg.PeriodFormat
		if format == "" {
			format = "2006"
		}
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format(format), pad, num), nil
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, pad, num), nil
}

// SetNextNumber implements Generator.
func (m *MockGenerator) SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error {
	if m.SetNextNumberFunc != nil {
		return m.SetNextNumberFunc(ctx, cfg, period, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[cfg.Prefix] = value - 1
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
