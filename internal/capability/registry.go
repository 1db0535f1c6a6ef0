// Package capability defines the executable tool contract and the registry
// the planner and controller resolve tools from.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
)

const defaultOutputText = "Tool execution successful"

var (
	// ErrNilResult indicates a capability returned neither a result nor an error.
	ErrNilResult = errors.New("tool returned no result")
	// ErrInvalidArguments indicates arguments failed input schema validation.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Func is the capability behind a tool.
type Func func(ctx context.Context, args map[string]any) (models.Result, error)

// Tool pairs a spec with its capability and compiled input schema.
type Tool struct {
	Spec  models.ToolSpec
	fn    Func
	input *jsonschema.Schema
	now   func() time.Time
}

// New compiles the ToolSpec input schema and returns a ready tool.
func New(spec models.ToolSpec, fn Func) (*Tool, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("tool name must be provided")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s: capability must be provided", spec.Name)
	}
	if spec.TimeoutSeconds <= 0 {
		spec.TimeoutSeconds = models.DefaultToolTimeoutSeconds
	}
	if spec.MaxRetries <= 0 {
		spec.MaxRetries = models.DefaultToolMaxRetries
	}
	t := &Tool{Spec: spec, fn: fn, now: func() time.Time { return time.Now().UTC() }}
	if len(spec.InputSchema) > 0 {
		compiled, err := compileSchema(spec.Name, spec.InputSchema)
		if err != nil {
			return nil, err
		}
		t.input = compiled
	}
	return t, nil
}

// MustNew is New for static tool tables.
func MustNew(spec models.ToolSpec, fn Func) *Tool {
	t, err := New(spec, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: marshal input schema: %w", name, err)
	}
	resource := name + ".input.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tool %s: add schema resource: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile input schema: %w", name, err)
	}
	return compiled, nil
}

// Validate checks arguments against the input schema.
func (t *Tool) Validate(args map[string]any) error {
	if t.input == nil {
		return nil
	}
	// Normalise Go values ([]string, int) into their JSON forms first.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := t.input.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// Execute runs the capability and always returns an observation. Errors,
// panics, invalid arguments and nil results become Errored observations.
// The caller stamps the call id.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (obs models.Observation) {
	defer func() {
		if r := recover(); r != nil {
			obs = t.errored(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := t.Validate(args); err != nil {
		return t.errored(err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.Spec.Timeout())
	defer cancel()

	result, err := t.fn(ctx, args)
	if err != nil {
		return t.errored(err)
	}
	if result == nil {
		return t.errored(ErrNilResult)
	}
	text := result.Text()
	if text == "" {
		text = defaultOutputText
	}
	return models.Observation{
		OutputText: text,
		Payload:    result,
		Status:     models.ToolSucceeded,
		CreatedAt:  t.now(),
	}
}

func (t *Tool) errored(err error) models.Observation {
	return models.Observation{
		OutputText: "Error: " + err.Error(),
		Status:     models.ToolErrored,
		Error:      err.Error(),
		CreatedAt:  t.now(),
	}
}

// Registry maps tool names to tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry returns a registry holding the given tools.
func NewRegistry(tools ...*Tool) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register inserts or replaces a tool by name. The last registration wins.
func (r *Registry) Register(t *Tool) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Spec.Name] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Tool, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
