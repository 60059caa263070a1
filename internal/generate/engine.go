// Package generate turns structured browser-phase output into canonical
// findings. Every function is pure given its input: no I/O, fixed severity
// rules, deterministic output ordering.
package generate

import (
	"fmt"

	"github.com/webaudit/webaudit/internal/findings"
)

// Generator derives findings from phase data through one findings.Factory.
// A Generator is scoped to a single audit run; its factory owns the ID
// counter, so callers construct a fresh one per run.
type Generator struct {
	factory *findings.Factory
}

// New returns a Generator minting findings through factory.
func New(factory *findings.Factory) *Generator {
	return &Generator{factory: factory}
}

// Factory exposes the underlying factory for stages that normalize
// analyzer output directly.
func (g *Generator) Factory() *findings.Factory {
	return g.factory
}

// truncate shortens page text to an evidence excerpt.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// reproduction synthesizes a human-readable reproduction recipe.
func reproduction(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
