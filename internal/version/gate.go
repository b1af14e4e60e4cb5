package version

import (
	"fmt"
	"strings"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// Range is a half-open interval of supported server versions. A nil bound is
// unbounded on that side.
type Range struct {
	MinInclusive *ServerVersion
	MaxExclusive *ServerVersion
}

// AtLeast is the range [min, ∞).
func AtLeast(min ServerVersion) Range {
	return Range{MinInclusive: &min}
}

// Below is the range (-∞, max).
func Below(max ServerVersion) Range {
	return Range{MaxExclusive: &max}
}

// Contains reports whether v falls inside r.
func (r Range) Contains(v ServerVersion) bool {
	if r.MinInclusive != nil && v.Less(*r.MinInclusive) {
		return false
	}
	if r.MaxExclusive != nil && !v.Less(*r.MaxExclusive) {
		return false
	}
	return true
}

func (r Range) String() string {
	var parts []string
	if r.MinInclusive != nil {
		parts = append(parts, ">= "+r.MinInclusive.String())
	}
	if r.MaxExclusive != nil {
		parts = append(parts, "< "+r.MaxExclusive.String())
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ", ")
}

// Gate holds one compatibility declaration per method id. Method ids name the
// client operation, not the namespace path, so alpha/beta/stable aliases of
// the same operation share a single declaration. A gate is read-only after
// NewGate.
type Gate struct {
	ranges map[string]Range
}

// NewGate creates a gate from the given declarations.
func NewGate(decls map[string]Range) *Gate {
	g := &Gate{ranges: make(map[string]Range, len(decls))}
	for method, r := range decls {
		g.ranges[method] = r
	}
	return g
}

// Range returns the declared range for method.
func (g *Gate) Range(method string) (Range, bool) {
	r, ok := g.ranges[method]
	return r, ok
}

// Check fails with an IncompatibleServerVersion error when v is outside the
// range declared for method. Undeclared methods are always allowed.
func (g *Gate) Check(method string, v ServerVersion) error {
	r, ok := g.Range(method)
	if !ok || r.Contains(v) {
		return nil
	}
	return gdserrors.NewIncompatibleServerVersion(method,
		fmt.Sprintf("server version %s is not supported, requires %s", v, r)).
		WithContext("server_version", v.String()).
		WithContext("supported", r.String())
}
