package emit

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/skyleague/therefore-sub001/graph"
	"github.com/skyleague/therefore-sub001/symbol"
)

// RefOption configures a reference made through a Context.
type RefOption func(*refConfig)

type refConfig struct {
	via   []string
	value bool
}

// Via restricts which strategies may declare the referenced node if it has
// to be hoisted into this file. It defaults to the referencing strategy.
func Via(subtypes ...string) RefOption {
	return func(c *refConfig) { c.via = append(c.via, subtypes...) }
}

// Context is handed to a Strategy while it renders one node. It records
// references in the file's symbol table and hoists nodes that need their
// own declaration.
type Context struct {
	file     *File
	strategy Strategy
	node     graph.Node
	errs     []error
}

// Node returns the node being rendered.
func (c *Context) Node() graph.Node { return c.node }

// Path returns the path of the output file.
func (c *Context) Path() string { return c.file.path }

// Logger returns the file's logger.
func (c *Context) Logger() *slog.Logger { return c.file.opts.Logger }

// Reference returns a placeholder for n at a type position.
func (c *Context) Reference(n graph.Node, opts ...RefOption) symbol.Ref {
	return c.reference(n, false, opts)
}

// Value returns a placeholder for a runtime binding of n.
func (c *Context) Value(n graph.Node, opts ...RefOption) symbol.Ref {
	return c.reference(n, true, opts)
}

func (c *Context) reference(n graph.Node, value bool, opts []RefOption) symbol.Ref {
	cfg := refConfig{value: value}
	for _, opt := range opts {
		opt(&cfg)
	}
	f := c.file
	if f.table.Name(n) == "" {
		c.fail(errors.AssertionFailedf("emit: %s references unnamed %s node %s; inline it or hoist it with Local",
			c.describe(), n.Kind(), n.Base().ID))
	}
	f.track(n, c.filter(cfg))

	var ropts []symbol.RefOption
	if cfg.value {
		ropts = append(ropts, symbol.AsValue())
	}
	return f.table.Reference(n, symbol.TagReferenceName, ropts...)
}

// Local hoists an unnamed node into this file as its own declaration named
// hint and returns a reference to it. Named nodes are referenced as usual.
func (c *Context) Local(n graph.Node, hint string, opts ...RefOption) symbol.Ref {
	if c.file.table.Name(n) == "" {
		if hint == "" {
			c.fail(errors.AssertionFailedf("emit: %s hoists %s node %s without a name", c.describe(), n.Kind(), n.Base().ID))
		}
		c.file.table.SetName(n.Base().ID, hint)
	}
	return c.Reference(n, opts...)
}

// Declare returns the declaration head for n, e.g. "export interface Pet".
// The name is a placeholder resolved at render time.
func (c *Context) Declare(kind string, n graph.Node) string {
	if c.file.table.Name(n) == "" {
		c.fail(errors.AssertionFailedf("emit: %s declares unnamed %s node %s", c.describe(), n.Kind(), n.Base().ID))
	}
	name := c.file.table.Reference(n, symbol.TagSymbolName)
	if c.file.exports[n.Base().ID] {
		return "export " + kind + " " + name.String()
	}
	return kind + " " + name.String()
}

// External records an import of name from module and returns the local
// binding. value is false for type-only imports.
func (c *Context) External(module, name string, value bool) string {
	c.file.addExternal(module, name, false, value)
	return name
}

// ExternalDefault records a default import from module bound to name.
func (c *Context) ExternalDefault(module, name string) string {
	c.file.addExternal(module, name, true, true)
	return name
}

// TypeName returns the current name of n without deferring it. It is meant
// for building names of hoisted locals.
func (c *Context) TypeName(n graph.Node) string {
	name, err := c.file.table.TypeName(n)
	if err != nil {
		c.fail(err)
		return ""
	}
	return name
}

// Errorf records a rendering error. AddSymbol returns it once the strategy
// is done.
func (c *Context) Errorf(format string, args ...any) {
	c.fail(errors.Newf(format, args...))
}

func (c *Context) fail(err error) {
	c.errs = append(c.errs, err)
}

func (c *Context) err() error {
	var err error
	for _, e := range c.errs {
		err = errors.CombineErrors(err, e)
	}
	return err
}

func (c *Context) filter(cfg refConfig) []string {
	if len(cfg.via) > 0 {
		return slices.Clone(cfg.via)
	}
	return []string{c.strategy.Subtype()}
}

func (c *Context) describe() string {
	return fmt.Sprintf("%s strategy rendering %s", c.strategy.Subtype(), describe(c.node))
}

func describe(n graph.Node) string {
	if name := n.Base().Name; name != "" {
		return fmt.Sprintf("%s %q", n.Kind(), name)
	}
	return fmt.Sprintf("%s %s", n.Kind(), n.Base().ID)
}
