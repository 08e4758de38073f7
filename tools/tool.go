// Package tools implements the local tools the supplier-performance agent
// exposes to the model, alongside the remote ones served by the MCP gateway.
package tools

import "context"

// Tool is one model-invocable capability. Invoke never returns an error:
// failures come back as text so the model can react to them in conversation.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Invoke(ctx context.Context, args map[string]any) string
}

// Registry holds tools in registration order for the model's tool config.
type Registry struct {
	byName map[string]Tool
	order  []Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Add(t)
	}
	return r
}

func (r *Registry) Add(t Tool) {
	if _, ok := r.byName[t.Name()]; ok {
		return
	}
	r.byName[t.Name()] = t
	r.order = append(r.order, t)
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) Tool {
	return r.byName[name]
}

// All returns the tools in registration order.
func (r *Registry) All() []Tool {
	return r.order
}

// stringArg pulls a string argument out of a tool_use input block.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// objectSchema builds the JSON schema for a tool taking string properties.
func objectSchema(props map[string]string, required ...string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{
			"type":        "string",
			"description": desc,
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
