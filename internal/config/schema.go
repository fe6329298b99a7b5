package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaLoader handles JSON schema validation
type SchemaLoader struct {
	mu     sync.Mutex
	schema *jsonschema.Schema
}

// NewSchemaLoader creates a new schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{}
}

func (sl *SchemaLoader) compiled() (*jsonschema.Schema, error) {
	if sl.schema != nil {
		return sl.schema, nil
	}
	schema, err := jsonschema.CompileString("config.schema.json", generateSchema())
	if err != nil {
		return nil, err
	}
	sl.schema = schema
	return schema, nil
}

// Validate validates a configuration against the JSON schema
func (sl *SchemaLoader) Validate(cfg *Config) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	schema, err := sl.compiled()
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config for validation: %w", err)
	}

	var cfgData interface{}
	if err := json.Unmarshal(cfgJSON, &cfgData); err != nil {
		return fmt.Errorf("failed to unmarshal config for validation: %w", err)
	}

	if err := schema.Validate(cfgData); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// generateSchema generates the JSON schema for configuration validation.
// Durations are serialized as integer nanoseconds.
func generateSchema() string {
	schema := map[string]interface{}{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"title":   "seekchat configuration",
		"type":    "object",
		"properties": map[string]interface{}{
			"llm": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"api_key": map[string]interface{}{
						"type":        "string",
						"description": "DeepSeek API key",
					},
					"model": map[string]interface{}{
						"type": "string",
						"enum": []string{"deepseek-chat", "deepseek-reasoner"},
					},
					"endpoint": map[string]interface{}{
						"type":    "string",
						"pattern": "^https?://",
					},
					"response_timeout": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"description": "Time to wait for response headers, 0 disables the limit",
					},
					"queue_size": map[string]interface{}{
						"type":    "integer",
						"minimum": 1,
						"maximum": 65536,
					},
				},
				"required": []string{"model", "endpoint"},
			},
			"ui": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type": "string",
						"enum": []string{"tui", "cli"},
					},
					"tick_interval": map[string]interface{}{
						"type":        "integer",
						"minimum":     1000000,
						"description": "UI frame tick, at least 1ms",
					},
					"markdown": map[string]interface{}{
						"type": "boolean",
					},
				},
			},
			"storage": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"enabled":        map[string]interface{}{"type": "boolean"},
					"data_dir":       map[string]interface{}{"type": "string"},
					"dialog_file":    map[string]interface{}{"type": "string", "minLength": 1},
					"encryption_key": map[string]interface{}{"type": "string"},
				},
			},
			"log": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"level": map[string]interface{}{
						"type": "string",
						"enum": []string{"debug", "info", "warn", "warning", "error"},
					},
					"file": map[string]interface{}{"type": "string"},
				},
			},
		},
		"required": []string{"llm"},
	}

	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")
	return string(schemaJSON)
}
