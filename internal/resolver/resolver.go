// Package resolver 在 ABS 作者目录中为一组候选名挑出唯一的作者记录。
package resolver

import (
	"context"
	"strings"

	"github.com/John-Robertt/absauthor/internal/directory"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/match"
)

// Match 是一次命中：命中的记录、判定层级，以及触发命中的候选名。
type Match struct {
	Record    domain.AuthorRecord
	Tier      match.Tier
	Candidate string
}

var tiers = []match.Tier{match.TierExact, match.TierLoose}

// Find 在 authors 中查找与 candidates 匹配的第一条记录。
//
// 规则：
// - 先用精确判定跑完全部候选，精确层没有命中才进入宽松层
// - 每层内按候选顺序（外层）× 目录顺序（内层）遍历，第一个命中即返回
// - 空白候选忽略
func Find(authors []domain.AuthorRecord, candidates []string) (Match, bool) {
	cands := cleanCandidates(candidates)
	if len(authors) == 0 || len(cands) == 0 {
		return Match{}, false
	}
	for _, tier := range tiers {
		same := tier.Predicate()
		for _, cand := range cands {
			for _, rec := range authors {
				if same(rec.Name, cand) {
					return Match{Record: rec, Tier: tier, Candidate: cand}, true
				}
			}
		}
	}
	return Match{}, false
}

func cleanCandidates(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Resolver 把目录缓存与 Find 组合起来。Cache 为 nil 时每次都重新构建目录。
type Resolver struct {
	BaseURL string
	Catalog directory.Catalog
	Cache   *directory.Cache
}

// Resolve 返回命中的作者记录。
//
// 错误：
// - BaseURL 为空：directory.ErrNotConfigured
// - 媒体库无法枚举：*directory.UnavailableError
//
// 目录为空或没有命中时返回 (Match{}, false, nil)。
func (r Resolver) Resolve(ctx context.Context, candidates []string) (Match, bool, error) {
	if strings.TrimSpace(r.BaseURL) == "" || r.Catalog == nil {
		return Match{}, false, directory.ErrNotConfigured
	}
	snap, err := r.snapshot(ctx)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := Find(snap.Authors, candidates)
	return m, ok, nil
}

// Snapshot 返回当前会话使用的目录快照。
func (r Resolver) Snapshot(ctx context.Context) (directory.Snapshot, error) {
	if strings.TrimSpace(r.BaseURL) == "" || r.Catalog == nil {
		return directory.Snapshot{}, directory.ErrNotConfigured
	}
	return r.snapshot(ctx)
}

// Refresh 丢弃当前快照并立即重新构建（长驻进程中 ABS 新增作者后使用）。
// 重建失败时缓存保持为空，下一次 Resolve 会再次尝试。
func (r Resolver) Refresh(ctx context.Context) (directory.Snapshot, error) {
	if strings.TrimSpace(r.BaseURL) == "" || r.Catalog == nil {
		return directory.Snapshot{}, directory.ErrNotConfigured
	}
	if r.Cache != nil {
		r.Cache.Invalidate(r.BaseURL)
	}
	return r.snapshot(ctx)
}

func (r Resolver) snapshot(ctx context.Context) (directory.Snapshot, error) {
	if r.Cache != nil {
		return r.Cache.Get(ctx, r.BaseURL, r.Catalog)
	}
	return directory.Build(ctx, r.Catalog)
}
