package app

import (
	"errors"
	"sort"

	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/slug"
)

// GroupTargets 把输入行解析为按 slug 去重的 Target。
//
// - 同一 slug 多次出现时保留第一次的原始输入
// - targets 稳定排序：按 slug 字典序
// - unmatched 保持输入顺序
func GroupTargets(inputs []string) (targets []domain.Target, unmatched []domain.UnmatchedInput, err error) {
	index := make(map[domain.Slug]struct{}, len(inputs))
	targets = make([]domain.Target, 0, len(inputs))
	unmatched = make([]domain.UnmatchedInput, 0, 8)

	for _, in := range inputs {
		s, e := slug.Extract(in)
		if e != nil {
			var ue *slug.UnmatchedError
			if errors.As(e, &ue) {
				unmatched = append(unmatched, domain.UnmatchedInput{Input: in, Kind: ue.Kind})
				continue
			}
			return nil, nil, e
		}

		if _, ok := index[s]; ok {
			continue
		}
		index[s] = struct{}{}
		targets = append(targets, domain.Target{
			Slug:  s,
			Name:  slug.CandidateName(s),
			Input: in,
		})
	}

	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Slug < targets[j].Slug })
	return targets, unmatched, nil
}
