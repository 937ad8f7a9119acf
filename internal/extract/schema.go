package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCardJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// extracted card record. Every field is required and must be a non-empty
// string; NotFound satisfies the schema since it is an ordinary value.
func BuildCardJSONSchema() map[string]any {
	fieldProp := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":      fieldProp,
			"job_title": fieldProp,
			"company":   fieldProp,
			"email":     fieldProp,
			"phone":     fieldProp,
			"address":   fieldProp,
			"website":   fieldProp,
		},
		"required": []string{
			"name", "job_title", "company", "email", "phone", "address", "website",
		},
	}
}

// ValidateRecordJSON validates "data" against "schemaMap".
func ValidateRecordJSON(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
