package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/microsoft/tolstack/schemas"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// variantSchema is the compiled JSON Schema for product variant files.
var variantSchema *jsonschema.Schema

func init() {
	variantSchema = mustCompileSchema(schemas.VariantSchemaJSON, "variant.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateVariantFile validates a variant YAML file against the JSON schema.
func ValidateVariantFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variant file: %w", err)
	}
	return ValidateVariantBytes(data), nil
}

// ValidateVariantBytes validates raw YAML bytes against the variant schema.
func ValidateVariantBytes(data []byte) []string {
	return validateYAMLBytes(variantSchema, data)
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	return validateAgainstSchema(schema, normalize(yamlDoc))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// normalize converts YAML-decoded values into JSON-compatible types.
// Numeric map keys (e.g. characteristic "10") are stringified.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = normalize(v2)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[fmt.Sprint(k)] = normalize(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = normalize(v2)
		}
		return result
	default:
		return val
	}
}
