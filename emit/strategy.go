// Package emit aggregates the declarations of one output file.
//
// A File receives root nodes from the driver and renders each through the
// Strategy that handles it. Strategies write text that refers to other
// nodes through placeholders obtained from a Context. Named nodes that are
// referenced but declared nowhere are hoisted into the referencing file.
// Unnamed nodes that need their own declaration are hoisted as file-local
// declarations. Bind resolves names once every declaration is known and
// Render assembles the banner, imports and sorted declarations.
package emit

import (
	"github.com/skyleague/therefore-sub001/graph"
)

// Strategy renders one kind of artifact, such as a type declaration or a
// runtime validator, for the nodes it is enabled for.
type Strategy interface {
	// Subtype distinguishes strategies that render the same node, e.g.
	// "type" and "validator".
	Subtype() string

	// Enabled reports whether the strategy emits anything for n.
	Enabled(n graph.Node) bool

	// IsGenerated reports whether the output for n is machine generated,
	// which adds the generated banner to the file.
	IsGenerated(n graph.Node) bool

	// IsTypeOnly reports whether declarations exist only at compile time.
	// Type-only declarations never constrain declaration order.
	IsTypeOnly() bool

	// Definition renders n. It returns false when the strategy declines to
	// produce a declaration for n.
	Definition(n graph.Node, ctx *Context) (string, bool)

	// OnExport returns hooks run before the node's name is frozen.
	OnExport() []ExportHook
}

// ExportHook returns the provisional name for n given its current one.
type ExportHook func(n graph.Node, name string) string

// Declaration is one rendered unit of a file.
type Declaration struct {
	Node     graph.Node
	Text     string
	Strategy Strategy
}
