package therefore

import (
	"net/url"

	"github.com/skyleague/therefore-sub001/dialect"
	"github.com/skyleague/therefore-sub001/dialect/ajv"
	"github.com/skyleague/therefore-sub001/dialect/client"
	"github.com/skyleague/therefore-sub001/dialect/typescript"
	"github.com/skyleague/therefore-sub001/dialect/zod"
	"github.com/skyleague/therefore-sub001/emit"
)

var lintDirectives = []string{"/* eslint-disable */"}

func init() {
	dialect.Register("typescript", newTypescript)
	dialect.Register("zod", newZod)
}

// typescriptOptions are the options of the typescript dialect, e.g.
// "typescript?clients=false&formats=true".
type typescriptOptions struct {
	Interfaces bool   `schema:"interfaces"`
	Readonly   bool   `schema:"readonly"`
	Unknown    string `schema:"unknown" validate:"oneof=unknown any"`

	// Validators writes Ajv validators next to the types.
	Validators bool `schema:"validators"`
	Formats    bool `schema:"formats"`
	Coerce     bool `schema:"coerce"`
	AllErrors  bool `schema:"allErrors"`

	// Clients writes <doc>.client.ts for documents with services.
	Clients bool `schema:"clients"`
}

type typescriptDialect struct {
	opts       typescriptOptions
	types      *typescript.TypeStrategy
	validators *ajv.ValidatorStrategy
	clients    *client.ClientStrategy
}

func newTypescript(values url.Values) (dialect.Dialect, error) {
	defaults := typescript.DefaultOptions()
	opts := typescriptOptions{
		Interfaces: defaults.Interfaces,
		Readonly:   defaults.ReadonlyArrays,
		Unknown:    defaults.UnknownType,
		Validators: true,
		Clients:    true,
	}
	if err := dialect.DecodeOptions(&opts, values); err != nil {
		return nil, err
	}
	types := typescript.NewTypeStrategy(typescript.Options{
		Interfaces:     opts.Interfaces,
		ReadonlyArrays: opts.Readonly,
		UnknownType:    opts.Unknown,
	})
	return &typescriptDialect{
		opts:  opts,
		types: types,
		validators: ajv.NewValidatorStrategy(ajv.Options{
			Formats:   opts.Formats,
			Coerce:    opts.Coerce,
			AllErrors: opts.AllErrors,
		}, types),
		clients: client.NewClientStrategy(types, opts.Validators),
	}, nil
}

func (d *typescriptDialect) Name() string             { return "typescript" }
func (d *typescriptDialect) LintDirectives() []string { return lintDirectives }

func (d *typescriptDialect) Outputs(source string) []dialect.Output {
	typeFile := dialect.Output{
		Path:       dialect.OutputPath(source, ".type.ts"),
		Strategies: []emit.Strategy{d.types},
	}
	if d.opts.Validators {
		typeFile.Strategies = append(typeFile.Strategies, d.validators)
	}
	outputs := []dialect.Output{typeFile}
	if d.opts.Clients {
		outputs = append(outputs, dialect.Output{
			Path:       dialect.OutputPath(source, ".client.ts"),
			Strategies: []emit.Strategy{d.clients, d.types.LocalOnly()},
		})
	}
	return outputs
}

type zodDialect struct {
	strategy *zod.ZodStrategy
}

func newZod(values url.Values) (dialect.Dialect, error) {
	opts := zod.DefaultOptions()
	if err := dialect.DecodeOptions(&opts, values); err != nil {
		return nil, err
	}
	return &zodDialect{strategy: zod.NewZodStrategy(opts)}, nil
}

func (d *zodDialect) Name() string             { return "zod" }
func (d *zodDialect) LintDirectives() []string { return lintDirectives }

func (d *zodDialect) Outputs(source string) []dialect.Output {
	return []dialect.Output{{
		Path:       dialect.OutputPath(source, ".zod.ts"),
		Strategies: []emit.Strategy{d.strategy},
	}}
}
