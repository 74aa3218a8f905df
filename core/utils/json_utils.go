package utils

import (
	"strings"
)

// SanitizeJSONSchema 递归清洗 JSON Schema，移除 Google Gemini 不支持的字段
func SanitizeJSONSchema(schema map[string]any) {
	if schema == nil {
		return
	}

	for _, k := range []string{"default", "minLength", "maxLength", "additionalProperties", "title", "examples", "$schema"} {
		delete(schema, k)
	}

	// Gemini 不支持数组形式的 type，如 ["string", "null"]，取第一个非 null 类型
	if typeArr, ok := schema["type"].([]any); ok {
		for _, t := range typeArr {
			if s, ok := t.(string); ok && s != "null" {
				schema["type"] = s
				break
			}
		}
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		for _, v := range props {
			if child, ok := v.(map[string]any); ok {
				SanitizeJSONSchema(child)
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		SanitizeJSONSchema(items)
	}
}

// UpperCaseSchemaTypes 把 type 转为 Gemini REST 使用的 OpenAPI 枚举写法 (string -> STRING)
func UpperCaseSchemaTypes(schema map[string]any) {
	if schema == nil {
		return
	}
	if t, ok := schema["type"].(string); ok {
		schema["type"] = strings.ToUpper(t)
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, v := range props {
			if child, ok := v.(map[string]any); ok {
				UpperCaseSchemaTypes(child)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		UpperCaseSchemaTypes(items)
	}
}

// CloneSchema 深拷贝 schema，避免清洗时修改调用方的数据
func CloneSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneSchema(x)
	case []any:
		arr := make([]any, len(x))
		for i := range x {
			arr[i] = cloneValue(x[i])
		}
		return arr
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}

// RequiredFields 读取 schema 的 required 列表，兼容 []string 与 []any
func RequiredFields(schema map[string]any) []string {
	switch r := schema["required"].(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, x := range r {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ExtractJSON 去掉模型偶尔包裹的 markdown 代码块 (```json ... ```)
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		// 去掉语言标记，例如 json
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
