package domain

import (
	"regexp"
	"strings"
)

// Slug 是 LitRes 作者页的路径键（/author/<slug>/），也是批量处理的去重主键。
type Slug string

var slugRE = regexp.MustCompile(`^[\p{L}\p{N}._~-]+$`)

// ParseSlug 校验已经提取出的 slug 段。
func ParseSlug(s string) (Slug, bool) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" || !slugRE.MatchString(s) {
		return "", false
	}
	return Slug(s), true
}

// Target 是一次链接任务的输入。
//
// - Slug：LitRes 作者页键（litres provider 使用）
// - Name：已知作者名（wikipedia provider 用它搜索）
// - Input：用户给出的原始输入，用于 report 追溯
type Target struct {
	Slug  Slug
	Name  string
	Input string
}

// Key 返回 target 在 cache/report 中的稳定键。
func (t Target) Key() string {
	if t.Slug != "" {
		return string(t.Slug)
	}
	return strings.TrimSpace(t.Name)
}
