package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// toolSchemas compiles the input schema of every tool once.
func toolSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		tools := GetToolDefinitions()
		for _, tool := range tools {
			raw, err := json.Marshal(tool.InputSchema)
			if err != nil {
				schemasErr = fmt.Errorf("failed to serialize schema of %s: %w", tool.Name, err)
				return
			}
			if err := compiler.AddResource(schemaURL(tool.Name), bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("failed to load schema of %s: %w", tool.Name, err)
				return
			}
		}

		compiled := make(map[string]*jsonschema.Schema, len(tools))
		for _, tool := range tools {
			schema, err := compiler.Compile(schemaURL(tool.Name))
			if err != nil {
				schemasErr = fmt.Errorf("failed to compile schema of %s: %w", tool.Name, err)
				return
			}
			compiled[tool.Name] = schema
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

func schemaURL(tool string) string {
	return tool + ".json"
}

// validateArguments checks args against the input schema of tool. Unknown
// tools pass; executeTool reports them.
func validateArguments(tool string, args json.RawMessage) error {
	compiled, err := toolSchemas()
	if err != nil {
		return err
	}
	schema, ok := compiled[tool]
	if !ok {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var doc interface{}
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("arguments do not match the %s schema: %w", tool, err)
	}
	return nil
}
