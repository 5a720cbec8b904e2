package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// conditionsSchema constrains the opaque predicate payload of a CONDITIONAL workflow.
// The engine never interprets conditions, it only refuses payloads that cannot be stored
// and evaluated by the document service that owns them.
var conditionsSchema = map[string]any{
	"type":          "object",
	"minProperties": 1,
	"properties": map[string]any{
		"rules": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"field", "operator"},
				"properties": map[string]any{
					"field":    map[string]any{"type": "string", "minLength": 1},
					"operator": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

// ValidateConditions checks a conditions payload against the conditions JSON schema.
func ValidateConditions(conditions map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(conditionsSchema)
	dataLoader := gojsonschema.NewGoLoader(conditions)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("conditions schema validation failed: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("conditions do not match schema: %s", strings.Join(details, "; "))
	}

	return nil
}
