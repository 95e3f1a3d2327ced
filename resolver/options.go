package resolver

import "log/slog"

// DefaultMaxDepth bounds the recursion of a traversal.
const DefaultMaxDepth = 64

// CyclePolicy selects what happens when a traversal recurses into an
// entity whose relationships are still being resolved.
type CyclePolicy uint8

const (
	// ShortCircuit returns the instance being resolved without
	// resolving it again.
	ShortCircuit CyclePolicy = iota
	// FailOnCycle aborts the traversal with a cycle error.
	FailOnCycle
)

// String returns the policy name as used in configuration files.
func (p CyclePolicy) String() string {
	if p == FailOnCycle {
		return "fail"
	}
	return "short_circuit"
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMaxDepth bounds the recursion depth. Zero disables the bound.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) { r.maxDepth = n }
}

// WithCyclePolicy sets the cycle policy.
func WithCyclePolicy(p CyclePolicy) Option {
	return func(r *Resolver) { r.cycles = p }
}

// WithMetrics records traversal metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}
