package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// rawDocument is the on-disk shape of a schema document.
type rawDocument struct {
	Nodes    ordered[*rawSchema]  `yaml:"nodes"`
	Services ordered[*rawService] `yaml:"services"`
}

type rawSchema struct {
	ID                   string                `yaml:"id"`
	Type                 string                `yaml:"type"`
	Description          string                `yaml:"description"`
	Properties           ordered[*rawSchema]   `yaml:"properties"`
	Items                *rawSchema            `yaml:"items"`
	PrefixItems          []*rawSchema          `yaml:"prefixItems"`
	AdditionalProperties *rawSchema            `yaml:"additionalProperties"`
	OneOf                []*rawSchema          `yaml:"oneOf"`
	AllOf                []*rawSchema          `yaml:"allOf"`
	Enum                 []any                 `yaml:"enum"`
	Const                yaml.Node             `yaml:"const"`
	Ref                  string                `yaml:"$ref"`
	Optional             bool                  `yaml:"optional"`
	Nullable             bool                  `yaml:"nullable"`
	Validate             string                `yaml:"validate"`
	Format               string                `yaml:"format"`
	Alias                string                `yaml:"alias"`
	Lazy                 bool                  `yaml:"lazy"`
	Validator            bool                  `yaml:"validator"`
	MinItems             *int                  `yaml:"minItems"`
	MaxItems             *int                  `yaml:"maxItems"`
}

type rawService struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description"`
	Endpoints   []rawEndpoint `yaml:"endpoints"`
}

type rawEndpoint struct {
	Name     string     `yaml:"name"`
	Method   string     `yaml:"method"`
	Path     string     `yaml:"path"`
	Summary  string     `yaml:"summary"`
	Request  *rawSchema `yaml:"request"`
	Response *rawSchema `yaml:"response"`
}

type entry[T any] struct {
	Key   string
	Value T
}

// ordered decodes a mapping while keeping its key order, which plain Go
// maps lose.
type ordered[T any] []entry[T]

func (o *ordered[T]) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}
	out := make(ordered[T], 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var e entry[T]
		if err := value.Content[i].Decode(&e.Key); err != nil {
			return err
		}
		if err := value.Content[i+1].Decode(&e.Value); err != nil {
			return err
		}
		out = append(out, e)
	}
	*o = out
	return nil
}
