package streams

import (
	"fmt"
	"time"
)

const (
	// EventAutomationQueued is published by the dispatcher for every claimed automation.
	EventAutomationQueued = "automation.queued"
	VersionV1             = "v1"
)

// AutomationQueued is the payload of an automation.queued event.
type AutomationQueued struct {
	AutomationID string    `json:"automation_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Definition describes a schema entry managed by the registry.
type Definition struct {
	EventType string
	Version   string
	Schema    []byte
}

var definitions = []Definition{
	{
		EventType: EventAutomationQueued,
		Version:   VersionV1,
		Schema: []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["automation_id"],
  "properties": {
    "automation_id": {"type": "string", "minLength": 1},
    "enqueued_at": {"type": "string", "format": "date-time"}
  },
  "additionalProperties": true
}`),
	},
}

// Definitions returns the schemas known to this service.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// RegisterSchemas adds every known definition to reg.
func RegisterSchemas(reg *SchemaRegistry) error {
	for _, def := range definitions {
		if err := reg.Register(def.EventType, def.Version, def.Schema); err != nil {
			return fmt.Errorf("register %s/%s: %w", def.EventType, def.Version, err)
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry preloaded with every known definition.
func NewDefaultRegistry() (*SchemaRegistry, error) {
	reg := NewSchemaRegistry()
	if err := RegisterSchemas(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
