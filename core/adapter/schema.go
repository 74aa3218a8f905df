package adapter

import (
	"fmt"

	"google.golang.org/genai"
)

// mapToGenaiSchema 把 JSON Schema (map[string]any) 转换为 genai.Schema
// 支持 type / properties / items / required / enum / description，递归处理
func mapToGenaiSchema(m map[string]any) (*genai.Schema, error) {
	if m == nil {
		return nil, nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok && t != "" {
		s.Type = jsonSchemaTypeToGenai(t)
		if s.Type == genai.TypeUnspecified {
			return nil, fmt.Errorf("unsupported type %q", t)
		}
	}
	if p, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(p))
		for k, v := range p {
			sub, ok := v.(map[string]any)
			if !ok {
				continue
			}
			conv, err := mapToGenaiSchema(sub)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			s.Properties[k] = conv
		}
	}
	switch r := m["required"].(type) {
	case []string:
		s.Required = append([]string(nil), r...)
	case []any:
		for _, x := range r {
			if str, ok := x.(string); ok {
				s.Required = append(s.Required, str)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		conv, err := mapToGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = conv
	}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			if str, ok := e.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}
	return s, nil
}

func jsonSchemaTypeToGenai(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
