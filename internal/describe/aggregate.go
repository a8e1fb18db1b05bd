package describe

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/absauthor/internal/domain"
)

// MinFullLength 是详情页正文被接受的最小长度（按字符计，清洗后）。
// 低于该长度通常意味着占位页或空页面。
const MinFullLength = 40

// FullFetcher 按地址取回详情页并返回其正文（未清洗）。
type FullFetcher func(ctx context.Context, pageURL string) (string, error)

// ShortExtractor 返回当前页面上的简短简介（未清洗，可能带“阅读全文”尾巴）。
type ShortExtractor func() string

// Attempt 记录一次详情页尝试（用于解释为何回退到短简介）。
type Attempt struct {
	URL    string
	Length int
	Err    error
}

// Result 是简介聚合的结果。Text 为空表示没有可用简介（这是正常结果，不是错误）。
type Result struct {
	Text     string
	Source   string // domain.DescriptionFull / DescriptionShort / DescriptionNone
	URL      string // Source==full 时为命中的详情页地址
	Attempts []Attempt
}

// Aggregate 按顺序尝试 locations 中的详情页，第一份清洗后长度达标的正文胜出；
// 都不可用时回退到 short()。任一详情页失败都只记录，不向上返回。
func Aggregate(ctx context.Context, fetch FullFetcher, locations []string, short ShortExtractor) Result {
	var attempts []Attempt

	if fetch != nil {
		for _, u := range dedupeLocations(locations) {
			if ctx.Err() != nil {
				break
			}
			raw, err := fetch(ctx, u)
			if err != nil {
				attempts = append(attempts, Attempt{URL: u, Err: err})
				continue
			}
			text := Clean(raw)
			n := utf8.RuneCountInString(text)
			attempts = append(attempts, Attempt{URL: u, Length: n})
			if n >= MinFullLength {
				return Result{Text: text, Source: domain.DescriptionFull, URL: u, Attempts: attempts}
			}
		}
	}

	if short != nil {
		if text := Clean(StripReadMore(short())); text != "" {
			return Result{Text: text, Source: domain.DescriptionShort, Attempts: attempts}
		}
	}
	return Result{Source: domain.DescriptionNone, Attempts: attempts}
}

func dedupeLocations(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
