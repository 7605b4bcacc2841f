// Package tools provides the Tool contract the Runtime dispatches through,
// plus two construction paths: declarative schema building and reflective
// derivation from a tagged struct argument.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Tool is anything the Runtime can invoke by name during a turn.
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Schema is the wire shape handed to a provider adapter when advertising
// tools: {name, description, parameters}, where parameters is a JSON Schema
// object.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// funcTool adapts a plain Go function to Tool.
type funcTool struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, args json.RawMessage) (string, error)
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }
func (t *funcTool) Schema() Schema {
	return Schema{Name: t.name, Description: t.description, Parameters: t.schema}
}
func (t *funcTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return t.fn(ctx, args)
}

// New builds a Tool from an explicit JSON-Schema parameters map, mirroring
// the teacher's CreateToolSchema/StringProperty-style fluent builders below.
func New(name, description string, parameters map[string]any, fn func(ctx context.Context, args json.RawMessage) (string, error)) Tool {
	if parameters == nil {
		parameters = ObjectSchema(nil, nil)
	}
	return &funcTool{name: name, description: description, schema: parameters, fn: fn}
}

// ObjectSchema builds a {"type":"object", properties, required} map.
func ObjectSchema(properties map[string]any, required []string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func StringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func IntegerProperty(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func NumberProperty(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func BooleanProperty(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func ArrayProperty(description, itemType string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": itemType},
	}
}

// FromFunc derives a Tool by reflecting over fn's single struct argument.
// fn must have the shape func(context.Context, S) (string, error) (or any
// other first return type, coerced via fmt.Sprint) where S is a struct whose
// exported fields carry `json` tags naming the parameter, optional `desc`,
// `enum` (comma-separated), and `default` tags.
func FromFunc(name, description string, fn any) Tool {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func || fnType.NumIn() != 2 || fnType.NumOut() != 2 {
		panic(fmt.Sprintf("tools.FromFunc(%s): fn must be func(context.Context, Struct) (T, error)", name))
	}
	argType := fnType.In(1)
	if argType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("tools.FromFunc(%s): second parameter must be a struct", name))
	}

	properties := map[string]any{}
	var required []string
	for i := 0; i < argType.NumField(); i++ {
		field := argType.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		paramName := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				paramName = parts[0]
			}
			for _, p := range parts[1:] {
				if p == "omitempty" {
					omitempty = true
				}
			}
		}
		prop := jsonSchemaForType(field.Type)
		if desc := field.Tag.Get("desc"); desc != "" {
			prop["description"] = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			values := strings.Split(enum, ",")
			enumVals := make([]any, len(values))
			for i, v := range values {
				enumVals[i] = strings.TrimSpace(v)
			}
			prop["enum"] = enumVals
		}
		if def := field.Tag.Get("default"); def != "" {
			prop["default"] = def
		}
		properties[paramName] = prop
		if !omitempty {
			required = append(required, paramName)
		}
	}

	execute := func(ctx context.Context, args json.RawMessage) (string, error) {
		argPtr := reflect.New(argType)
		if len(args) > 0 {
			if err := json.Unmarshal(args, argPtr.Interface()); err != nil {
				return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
		}
		results := fnVal.Call([]reflect.Value{reflect.ValueOf(ctx), argPtr.Elem()})
		if errVal := results[1].Interface(); errVal != nil {
			return "", errVal.(error)
		}
		out := results[0].Interface()
		if s, ok := out.(string); ok {
			return s, nil
		}
		return fmt.Sprint(out), nil
	}

	return &funcTool{
		name:        name,
		description: description,
		schema:      ObjectSchema(properties, required),
		fn:          execute,
	}
}

func jsonSchemaForType(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": jsonSchemaForType(t.Elem())}
	case reflect.Map, reflect.Struct:
		return map[string]any{"type": "object"}
	default:
		return map[string]any{"type": "string"}
	}
}
