package executor

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache compiles each tool's parameter_schema once; schemas are
// static for the lifetime of the process (one per registered tool).
var schemaCache sync.Map

// validateAgainstSchema checks args against a tool's JSON schema (spec
// §4.3 step 3), returning a joined list of validation errors on failure.
func validateAgainstSchema(args map[string]any, schema map[string]any, toolName string) error {
	compiled, err := compileSchema(toolName, schema)
	if err != nil {
		return fmt.Errorf("failed to compile schema for tool %q: %w", toolName, err)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode arguments for tool %q: %w", toolName, err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("failed to decode arguments for tool %q: %w", toolName, err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("arguments do not match schema for tool %q: %w", toolName, err)
	}
	return nil
}

func compileSchema(toolName string, schema map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(toolName); ok {
		return cached.(*jsonschema.Schema), nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", string(raw))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(toolName, compiled)
	return compiled, nil
}
