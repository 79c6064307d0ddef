// Package symbol assigns collision-free names to schema nodes within one
// output file and resolves the deferred placeholders emitters write before
// names are final.
//
// A placeholder has the form {{<id>:<tag>}}. Node ids never contain '{',
// '}' or ':', so placeholders survive arbitrary string concatenation and
// cannot be confused with identifiers in the generated languages.
package symbol

import (
	"regexp"

	"github.com/skyleague/therefore-sub001/graph"
)

// Tag selects which resolved name a placeholder stands for.
type Tag string

const (
	// TagReferenceName is the name used at a reference site. For nodes
	// imported from another file it is the local import binding.
	TagReferenceName Tag = "referenceName"

	// TagSymbolName is the name used at the declaration site.
	TagSymbolName Tag = "symbolName"

	// TagAliasName is the caller-set alias, or the resolved name when the
	// node has none.
	TagAliasName Tag = "aliasName"

	// TagValue is a runtime binding of the node.
	TagValue Tag = "value"
)

// Known reports whether t is one of the defined tags.
func (t Tag) Known() bool {
	switch t {
	case TagReferenceName, TagSymbolName, TagAliasName, TagValue:
		return true
	}
	return false
}

// placeholderRE matches one placeholder. The id part excludes the
// delimiters so adjacent placeholders are matched separately.
var placeholderRE = regexp.MustCompile(`\{\{([^{}:]+):([A-Za-z]+)\}\}`)

// Placeholder returns the textual placeholder for (id, tag).
func Placeholder(id graph.ID, tag Tag) string {
	return "{{" + string(id) + ":" + string(tag) + "}}"
}

// HasPlaceholder reports whether s still contains a placeholder.
func HasPlaceholder(s string) bool {
	return placeholderRE.MatchString(s)
}

// Ref is either resolved text or a pending (id, tag) reference. Emitters
// pass Refs around and flatten them with String only when building text.
type Ref struct {
	text    string
	id      graph.ID
	tag     Tag
	pending bool
}

// Resolved returns a Ref holding final text.
func Resolved(text string) Ref { return Ref{text: text} }

// Pending returns a Ref to be resolved once names are final.
func Pending(id graph.ID, tag Tag) Ref { return Ref{id: id, tag: tag, pending: true} }

// IsPending reports whether r still waits for name resolution.
func (r Ref) IsPending() bool { return r.pending }

// ID returns the referenced node id of a pending Ref.
func (r Ref) ID() graph.ID { return r.id }

// Tag returns the tag of a pending Ref.
func (r Ref) Tag() Tag { return r.tag }

// String flattens r to text. Pending refs become placeholders.
func (r Ref) String() string {
	if r.pending {
		return Placeholder(r.id, r.tag)
	}
	return r.text
}
