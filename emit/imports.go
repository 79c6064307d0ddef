package emit

import (
	"cmp"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/skyleague/therefore-sub001/graph"
)

// DefaultBanner heads every file containing generated declarations.
var DefaultBanner = []string{
	"/**",
	" * Code generated by therefore. DO NOT EDIT.",
	" * Changes to this file are lost when it is regenerated.",
	" */",
}

// BannerMarker identifies files written by the generator.
const BannerMarker = "Code generated by therefore. DO NOT EDIT."

// ImportGroup orders import lines. Groups are separated by a blank line.
type ImportGroup int

const (
	GroupBuiltin ImportGroup = iota
	GroupExternal
	GroupInternal
	GroupParent
	GroupSibling
	GroupIndex
	GroupObject // reserved, never produced
	GroupType   // type-only imports
)

func (g ImportGroup) String() string {
	switch g {
	case GroupBuiltin:
		return "builtin"
	case GroupExternal:
		return "external"
	case GroupInternal:
		return "internal"
	case GroupParent:
		return "parent"
	case GroupSibling:
		return "sibling"
	case GroupIndex:
		return "index"
	case GroupObject:
		return "object"
	case GroupType:
		return "type"
	}
	return "unknown"
}

var builtinModules = map[string]bool{
	"assert": true, "buffer": true, "child_process": true, "crypto": true,
	"events": true, "fs": true, "http": true, "https": true, "net": true,
	"os": true, "path": true, "process": true, "stream": true, "url": true,
	"util": true, "zlib": true,
}

// ClassifyImport returns the group of a module specifier.
func ClassifyImport(spec string) ImportGroup {
	root, _, _ := strings.Cut(spec, "/")
	switch {
	case strings.HasPrefix(spec, "node:") || builtinModules[root]:
		return GroupBuiltin
	case spec == "." || spec == "./" || spec == "./index" || strings.HasPrefix(spec, "./index."):
		return GroupIndex
	case spec == ".." || strings.HasPrefix(spec, "../"):
		return GroupParent
	case strings.HasPrefix(spec, "./"):
		return GroupSibling
	case strings.HasPrefix(spec, "#") || strings.HasPrefix(spec, "~/") ||
		strings.HasPrefix(spec, "@/") || strings.HasPrefix(spec, "/"):
		return GroupInternal
	}
	return GroupExternal
}

// RelativeImport returns the ESM specifier of the file at to as seen from
// the file at from. TypeScript sources are imported through their emitted
// ".js" name.
func RelativeImport(from, to string) (string, error) {
	if to == "" {
		return "", errors.New("empty import target")
	}
	if path.IsAbs(from) != path.IsAbs(to) {
		return "", errors.Newf("cannot relate %q to %q", to, from)
	}
	fromDir := path.Dir(path.Clean(from))
	to = path.Clean(to)

	fromParts := split(fromDir)
	toParts := split(to)
	i := 0
	for i < len(fromParts) && i < len(toParts)-1 && fromParts[i] == toParts[i] {
		i++
	}
	var rel []string
	for range fromParts[i:] {
		rel = append(rel, "..")
	}
	rel = append(rel, toParts[i:]...)
	spec := strings.Join(rel, "/")
	if !strings.HasPrefix(spec, "../") {
		spec = "./" + spec
	}
	if strings.HasSuffix(spec, ".ts") && !strings.HasSuffix(spec, ".d.ts") {
		spec = strings.TrimSuffix(spec, ".ts") + ".js"
	}
	return spec, nil
}

func split(p string) []string {
	if p == "." || p == "" || p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

type importName struct {
	exported string
	local    string
	value    bool
}

type importLine struct {
	spec  string
	text  string
	group ImportGroup
}

// renderImports resolves the local names of imported nodes and returns the
// grouped import block.
func (f *File) renderImports() string {
	byModule := make(map[string][]importName)
	defaults := make(map[string]string)
	var moduleOrder []string
	add := func(spec string, n importName) {
		if _, ok := byModule[spec]; !ok {
			moduleOrder = append(moduleOrder, spec)
		}
		byModule[spec] = append(byModule[spec], n)
	}

	for _, e := range f.externals {
		if e.isDefault {
			if _, ok := byModule[e.module]; !ok {
				moduleOrder = append(moduleOrder, e.module)
				byModule[e.module] = nil
			}
			defaults[e.module] = e.name
			continue
		}
		add(e.module, importName{exported: e.name, local: e.name, value: e.value})
	}

	ids := make([]graph.ID, 0, len(f.imports))
	for id := range f.imports {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	raw := make(map[graph.ID]string, len(ids))
	specs := make(map[graph.ID]string, len(ids))
	for _, id := range ids {
		rec, ok := f.table.Lookup(id)
		if !ok {
			continue
		}
		home := f.imports[id]
		exported, published := f.opts.Registry.Exported(id)
		if !published {
			f.opts.Logger.Warn("referenced symbol is not exported by its file, skipping import",
				slog.String("file", f.path),
				slog.String("symbol", f.table.Name(rec.Node)),
				slog.String("home", home))
			raw[id] = f.table.Name(rec.Node)
			continue
		}
		spec, err := f.opts.ImportPath(f.path, home)
		if err != nil {
			f.opts.Logger.Warn("cannot resolve import path, skipping import",
				slog.String("file", f.path),
				slog.String("symbol", exported),
				slog.String("home", home),
				slog.Any("error", err))
			raw[id] = exported
			continue
		}
		raw[id] = exported
		specs[id] = spec
	}
	locals := f.table.ResolveData(raw)
	for _, id := range ids {
		spec, ok := specs[id]
		if !ok {
			continue
		}
		rec, _ := f.table.Lookup(id)
		add(spec, importName{exported: raw[id], local: locals[id], value: rec.Value})
	}

	var lines []importLine
	for _, spec := range moduleOrder {
		lines = append(lines, importStatement(spec, defaults[spec], byModule[spec]))
	}
	if len(lines) == 0 {
		return ""
	}

	slices.SortFunc(lines, func(a, b importLine) int {
		if c := cmp.Compare(a.group, b.group); c != 0 {
			return c
		}
		if c := cmp.Compare(a.spec, b.spec); c != 0 {
			return c
		}
		return cmp.Compare(a.text, b.text)
	})

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
			if lines[i-1].group != l.group {
				b.WriteByte('\n')
			}
		}
		b.WriteString(l.text)
	}
	return b.String()
}

func importStatement(spec, def string, names []importName) importLine {
	slices.SortFunc(names, func(a, b importName) int {
		return cmp.Or(cmp.Compare(a.exported, b.exported), cmp.Compare(a.local, b.local))
	})
	names = slices.CompactFunc(names, func(a, b importName) bool {
		return a.exported == b.exported && a.local == b.local
	})

	typeOnly := def == ""
	for _, n := range names {
		if n.value {
			typeOnly = false
		}
	}

	parts := make([]string, len(names))
	for i, n := range names {
		p := n.exported
		if n.local != n.exported {
			p += " as " + n.local
		}
		if !typeOnly && !n.value {
			p = "type " + p
		}
		parts[i] = p
	}

	var clause string
	switch {
	case def != "" && len(parts) > 0:
		clause = def + ", { " + strings.Join(parts, ", ") + " }"
	case def != "":
		clause = def
	default:
		clause = "{ " + strings.Join(parts, ", ") + " }"
	}

	line := importLine{spec: spec, group: ClassifyImport(spec)}
	if typeOnly {
		line.text = "import type " + clause + " from '" + spec + "'"
		line.group = GroupType
	} else {
		line.text = "import " + clause + " from '" + spec + "'"
	}
	return line
}
