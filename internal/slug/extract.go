// Package slug 处理 LitRes 作者页的路径键：从 URL 提取、从人名生成、反推候选人名。
package slug

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/John-Robertt/absauthor/internal/domain"
)

type UnmatchedError struct {
	// Kind: "no_match" 或 "foreign_host"
	Kind  string
	Input string
}

func (e *UnmatchedError) Error() string {
	switch e.Kind {
	case "no_match":
		return "无法从输入解析出 LitRes 作者 slug：" + e.Input
	case "foreign_host":
		return "不是 LitRes 地址：" + e.Input
	default:
		return "unmatched"
	}
}

// Extract 从 LitRes 作者页 URL、/author/<slug>/ 路径或裸 slug 中提取唯一 slug。
// 若提取失败，返回 *UnmatchedError（no_match / foreign_host）。
func Extract(raw string) (domain.Slug, error) {
	in := strings.TrimSpace(raw)
	if in == "" {
		return "", &UnmatchedError{Kind: "no_match", Input: raw}
	}

	path := in
	if strings.Contains(in, "://") || strings.HasPrefix(in, "//") {
		u, err := url.Parse(in)
		if err != nil {
			return "", &UnmatchedError{Kind: "no_match", Input: raw}
		}
		if !isLitresHost(u.Hostname()) {
			return "", &UnmatchedError{Kind: "foreign_host", Input: raw}
		}
		path = u.EscapedPath()
	}

	if !strings.Contains(strings.Trim(path, "/"), "/") && !strings.HasPrefix(path, "/") {
		// 裸 slug
		return parseSegment(path, raw)
	}

	parts := splitPath(path)
	for i, p := range parts {
		if p == "author" && i+1 < len(parts) {
			return parseSegment(parts[i+1], raw)
		}
	}
	return "", &UnmatchedError{Kind: "no_match", Input: raw}
}

func parseSegment(seg, raw string) (domain.Slug, error) {
	if dec, err := url.PathUnescape(seg); err == nil {
		seg = dec
	}
	s, ok := domain.ParseSlug(seg)
	if !ok {
		return "", &UnmatchedError{Kind: "no_match", Input: raw}
	}
	return s, nil
}

func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isLitresHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	return host == "litres.ru" || strings.HasSuffix(host, ".litres.ru")
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// CandidateName 把 slug 反推为一个低置信度的人名候选：短横线变空格，每个词首字母大写。
func CandidateName(s domain.Slug) string {
	name := string(s)
	if dec, err := url.PathUnescape(name); err == nil {
		name = dec
	}
	name = strings.Join(strings.Fields(strings.ReplaceAll(name, "-", " ")), " ")
	if name == "" {
		return ""
	}
	return titleCaser.String(name)
}

// AboutURL 返回作者“关于”详情页地址（base 为站点根，例如 https://www.litres.ru）。
func AboutURL(base string, s domain.Slug) string {
	if s == "" {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/author/" + url.PathEscape(string(s)) + "/about/"
}

// PageURL 返回作者主页地址。
func PageURL(base string, s domain.Slug) string {
	if s == "" {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/author/" + url.PathEscape(string(s)) + "/"
}
