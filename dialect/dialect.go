// Package dialect defines output dialects: named bundles of rendering
// strategies and the files they write per schema document.
//
// Dialects register themselves by name. A dialect spec selects one and may
// carry options as a query string, e.g. "zod?infer=false".
package dialect

import (
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/skyleague/therefore-sub001/emit"
)

// Dialect produces the output files for schema documents.
type Dialect interface {
	// Name returns the dialect identifier, e.g. "typescript".
	Name() string

	// Outputs returns the files written for the document at source, in
	// the order roots are offered to them.
	Outputs(source string) []Output

	// LintDirectives are written below the generated banner.
	LintDirectives() []string
}

// Output is one file of a dialect and the strategies that write into it.
type Output struct {
	Path       string
	Strategies []emit.Strategy
}

// Factory builds a dialect from decoded spec options.
type Factory func(opts url.Values) (Dialect, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)

	decoder  = schema.NewDecoder()
	validate = validator.New(validator.WithRequiredStructEnabled())
)

func init() {
	decoder.IgnoreUnknownKeys(false)
}

// Register makes a dialect available under name. It panics when name is
// registered twice.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("dialect: %q registered twice", name))
	}
	factories[name] = f
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseSpec splits a dialect spec such as "zod?infer=false" into the name
// and its options.
func ParseSpec(spec string) (string, url.Values, error) {
	name, query, _ := strings.Cut(strings.TrimSpace(spec), "?")
	if name == "" {
		return "", nil, errors.Newf("dialect spec %q: missing name", spec)
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", nil, errors.Wrapf(err, "dialect spec %q", spec)
	}
	return name, values, nil
}

// Get builds the dialect described by spec.
func Get(spec string) (Dialect, error) {
	name, values, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.Newf("unknown dialect %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	d, err := f(values)
	if err != nil {
		return nil, errors.Wrapf(err, "dialect %s", name)
	}
	return d, nil
}

// DecodeOptions decodes spec options into dst, a pointer to a struct with
// `schema` tags, and checks its `validate` tags. Fields keep their current
// value when absent.
func DecodeOptions(dst any, values url.Values) error {
	if len(values) > 0 {
		if err := decoder.Decode(dst, values); err != nil {
			return errors.Wrap(err, "decode options")
		}
	}
	if err := validate.Struct(dst); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	return nil
}

// OutputPath derives an output path from a schema document path by
// replacing its extension with suffix, e.g. "pets.yaml" and ".zod.ts"
// give "pets.zod.ts".
func OutputPath(source, suffix string) string {
	source = path.Clean(strings.ReplaceAll(source, "\\", "/"))
	return strings.TrimSuffix(source, path.Ext(source)) + suffix
}
