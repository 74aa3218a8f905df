package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingField = errors.New("required field missing")
	ErrInvalidType  = errors.New("unknown content type")
)

// ContentType 宇宙节点内容类型 (封闭枚举)
type ContentType string

const (
	ContentImmersiveStory ContentType = "IMMERSIVE_STORY"
	ContentMiniGame       ContentType = "MINI_GAME"
	ContentSocialEvent    ContentType = "SOCIAL_EVENT"
	ContentMemoryCapsule  ContentType = "MEMORY_CAPSULE"
)

// AllContentTypes 返回全部内容类型，顺序固定
func AllContentTypes() []ContentType {
	return []ContentType{
		ContentImmersiveStory,
		ContentMiniGame,
		ContentSocialEvent,
		ContentMemoryCapsule,
	}
}

// ParseContentType 解析模型返回的类型字符串，不在枚举内则返回 false
func ParseContentType(s string) (ContentType, bool) {
	t := ContentType(strings.TrimSpace(s))
	return t, t.IsValid()
}

func (t ContentType) IsValid() bool {
	switch t {
	case ContentImmersiveStory, ContentMiniGame, ContentSocialEvent, ContentMemoryCapsule:
		return true
	}
	return false
}

// Icon 返回前端使用的图标名
func (t ContentType) Icon() string {
	switch t {
	case ContentImmersiveStory:
		return "book"
	case ContentMiniGame:
		return "gamepad"
	case ContentSocialEvent:
		return "users"
	case ContentMemoryCapsule:
		return "archive"
	default:
		return "sparkles"
	}
}

// Coordinates 仅用于视觉布局的 3D 坐标
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// UniverseNode 交给渲染层的 Feed 节点，创建后不再修改
type UniverseNode struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        ContentType `json:"type"`
	Creator     string      `json:"creator"`
	Color       string      `json:"color"`
	Coordinates Coordinates `json:"coordinates"`
	ImageURL    string      `json:"imageUrl"`
}

// Complete 检查节点所有字段是否已填充
func (n UniverseNode) Complete() bool {
	return n.ID != "" &&
		n.Title != "" &&
		n.Description != "" &&
		n.Type.IsValid() &&
		n.Creator != "" &&
		n.Color != "" &&
		n.ImageURL != ""
}

// RawNode 模型返回的原始记录，指针字段用于区分“缺失”与“空值”
type RawNode struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Creator     *string `json:"creator"`
	Color       *string `json:"color"`
}

// Validate 返回第一个不满足要求的字段
func (r RawNode) Validate() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"title", r.Title},
		{"description", r.Description},
		{"type", r.Type},
		{"creator", r.Creator},
		{"color", r.Color},
	}
	for _, f := range fields {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if _, ok := ParseContentType(*r.Type); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidType, *r.Type)
	}
	return nil
}

// GeneratedContent 共创结果
type GeneratedContent struct {
	Title            string `json:"title"`
	Content          string `json:"content"`
	SuggestedVisuals string `json:"suggestedVisuals"`
}
