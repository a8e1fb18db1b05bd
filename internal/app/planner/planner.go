// Package planner 把解析出的作者页转换为确定性的执行计划（不做任何网络请求）。
package planner

import (
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/match"
)

// Options 控制本次运行需要处理的字段。
type Options struct {
	NoPhoto       bool
	NoDescription bool
}

// PlanItem 基于 Target + AuthorPage 生成计划。
//
// aboutFallback 是按 slug 拼出的详情页地址；页面直链优先于它，两者相同则只保留一个。
// 页面既没有照片地址也没有任何简介来源时，对应的 Need 为 false。
func PlanItem(t domain.Target, page domain.AuthorPage, aboutFallback string, opts Options) domain.ItemPlan {
	p := domain.ItemPlan{
		Target:           t,
		PageURL:          page.PageURL,
		Candidates:       Candidates(page.Names, t.Name),
		DescriptionURLs:  dedupe([]string{page.AboutURL, aboutFallback}),
		ShortDescription: page.ShortDescription,
		PhotoURL:         strings.TrimSpace(page.PhotoURL),
	}

	hasDescription := len(p.DescriptionURLs) > 0 || strings.TrimSpace(p.ShortDescription) != ""
	p.Need = domain.Need{
		Description: !opts.NoDescription && hasDescription,
		// 照片地址为空时仍可能走 wikipedia 兜底，由执行层决定。
		Photo: !opts.NoPhoto,
	}
	return p
}

// Candidates 合并候选人名：保持原顺序，按规范化形态去重，丢弃空白。
func Candidates(names []string, extra ...string) []string {
	out := make([]string, 0, len(names)+len(extra))
	seen := make(map[string]struct{}, len(names)+len(extra))
	for _, s := range append(append([]string(nil), names...), extra...) {
		s = strings.TrimSpace(s)
		k := match.Normalize(s)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}
