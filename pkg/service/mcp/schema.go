package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/samber/lo"
)

// inputSchema infers the schema of T and lets the caller tighten it
func inputSchema[T any](customize func(s *jsonschema.Schema)) (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to infer input schema")
	}

	if customize != nil {
		customize(schema)
	}

	return schema, nil
}

func property(schema *jsonschema.Schema, name string) *jsonschema.Schema {
	if p, ok := schema.Properties[name]; ok && p != nil {
		return p
	}
	p := &jsonschema.Schema{}
	if schema.Properties == nil {
		schema.Properties = map[string]*jsonschema.Schema{}
	}
	schema.Properties[name] = p
	return p
}

func requireNonEmpty(schema *jsonschema.Schema, name string) {
	property(schema, name).MinLength = lo.ToPtr(1)
	if !lo.Contains(schema.Required, name) {
		schema.Required = append(schema.Required, name)
	}
}

func kindEnum(schema *jsonschema.Schema, name string) {
	property(schema, name).Enum = lo.Map(model.Kinds, func(k model.Kind, _ int) any {
		return string(k)
	})
}

func nonNegative(schema *jsonschema.Schema, name string) {
	property(schema, name).Minimum = lo.ToPtr(0.0)
}
