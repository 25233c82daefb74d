// Package schemas embeds the JSON schemas for tolstack input files.
package schemas

import _ "embed"

// VariantSchemaJSON is the JSON Schema for product variant YAML files.
//
//go:embed variant.schema.json
var VariantSchemaJSON string
