package core

import (
	"bytes"
	"strings"
	"text/template"

	"universe-gateway/models"
)

// RequestKind 请求意图
type RequestKind string

const (
	RequestFeed     RequestKind = "feed"
	RequestCoCreate RequestKind = "cocreate"
)

// RequestSpec 一次生成请求：自然语言指令 + 严格的输出 schema
type RequestSpec struct {
	Kind        RequestKind
	Instruction string
	Schema      map[string]any
	Model       string
}

const feedPromptTemplate = `Generate {{ .Count }} futuristic social media content items for a user interested in {{ if .Interests }}{{ join .Interests ", " }}{{ else }}anything futuristic{{ end }}.
These should be "immersive nodes" in a 3D social universe.
Types can be: {{ join .Types ", " }}.
Return a JSON array.`

const coCreatePromptTemplate = `Co-create a short, futuristic social media experience based on: "{{ .Prompt }}".
Format: JSON with title, story content, and a description of visual effects.
Context: This is for ENTRA 2.0, a platform for shared immersive stories.`

var promptFuncs = template.FuncMap{"join": strings.Join}

// ContentRequestBuilder 构造 Feed / 共创请求，纯函数，无副作用
type ContentRequestBuilder struct {
	model    string
	feedSize int
	feedTpl  *template.Template
	coTpl    *template.Template
}

func NewContentRequestBuilder(model string, feedSize int) *ContentRequestBuilder {
	if model == "" {
		model = DefaultModel
	}
	if feedSize <= 0 {
		feedSize = DefaultFeedSize
	}
	return &ContentRequestBuilder{
		model:    model,
		feedSize: feedSize,
		feedTpl:  template.Must(template.New("feed").Funcs(promptFuncs).Parse(feedPromptTemplate)),
		coTpl:    template.Must(template.New("cocreate").Funcs(promptFuncs).Parse(coCreatePromptTemplate)),
	}
}

// BuildFeedRequest 根据兴趣标签构造 Feed 请求
func (b *ContentRequestBuilder) BuildFeedRequest(interests []string) RequestSpec {
	types := make([]string, 0, 4)
	for _, t := range models.AllContentTypes() {
		types = append(types, string(t))
	}
	data := map[string]any{
		"Count":     b.feedSize,
		"Interests": models.NormalizeInterests(interests),
		"Types":     types,
	}
	return RequestSpec{
		Kind:        RequestFeed,
		Instruction: render(b.feedTpl, data),
		Schema:      FeedSchema(),
		Model:       b.model,
	}
}

// BuildCoCreationRequest 根据用户输入构造共创请求。空输入由调用方拒绝
func (b *ContentRequestBuilder) BuildCoCreationRequest(prompt string) RequestSpec {
	return RequestSpec{
		Kind:        RequestCoCreate,
		Instruction: render(b.coTpl, map[string]any{"Prompt": strings.TrimSpace(prompt)}),
		Schema:      CoCreationSchema(),
		Model:       b.model,
	}
}

// render 模板在构造时已解析，数据只包含字符串与整数，执行不会出错
func render(tpl *template.Template, data map[string]any) string {
	var buf bytes.Buffer
	_ = tpl.Execute(&buf, data)
	return buf.String()
}

// FeedSchema Feed 输出 schema：对象数组，所有字段必填
func FeedSchema() map[string]any {
	enum := make([]any, 0, 4)
	for _, t := range models.AllContentTypes() {
		enum = append(enum, string(t))
	}
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":       map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
				"type":        map[string]any{"type": "string", "enum": enum},
				"creator":     map[string]any{"type": "string"},
				"color":       map[string]any{"type": "string", "description": "Hex color code matching the mood"},
			},
			"required": []any{"title", "description", "type", "creator", "color"},
		},
	}
}

// CoCreationSchema 共创输出 schema：单个对象，所有字段必填
func CoCreationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":            map[string]any{"type": "string"},
			"content":          map[string]any{"type": "string"},
			"suggestedVisuals": map[string]any{"type": "string"},
		},
		"required": []any{"title", "content", "suggestedVisuals"},
	}
}
