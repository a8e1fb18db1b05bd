package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/absauthor/internal/app"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/logging"
)

// Execute 执行一次批量链接（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）。
func (p *Pipeline) Execute(ctx context.Context, inputs []string, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(p.Eff, len(inputs))
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Server:    p.Eff.ABSBaseURL,
		DryRun:    !p.Eff.Apply,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, len(inputs)),
	}
	log := p.logger().With(slog.String("run_id", rr.RunID))

	groupStarted := time.Now()
	targets, unmatched, err := app.GroupTargets(inputs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeInvalidTarget, fmt.Sprintf("解析输入失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	if obs != nil {
		obs.OnPhaseDone("input", map[string]any{
			"inputs":    len(inputs),
			"targets":   len(targets),
			"unmatched": len(unmatched),
		}, time.Since(groupStarted))
	}

	// unmatched：每个输入单独形成一条 item（更可解释，便于用户逐个修复）。
	for _, u := range unmatched {
		rr.Items = append(rr.Items, unmatchedItem(u))
	}

	if len(targets) == 0 {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	// 目录预热：失败时整批失败，不再逐个抓取作者页。
	dirStarted := time.Now()
	snap, err := p.Resolver.Snapshot(ctx)
	if err != nil {
		log.Error("无法读取 ABS 作者目录", logging.Error(err))
		for _, t := range targets {
			item := newItem(t)
			fillDirectoryError(&item, err)
			rr.Items = append(rr.Items, item)
		}
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	for _, f := range snap.Failures {
		log.Warn("媒体库作者读取失败，目录不完整",
			slog.String("library_id", f.LibraryID),
			logging.Error(f.Err),
		)
	}
	if obs != nil {
		obs.OnPhaseDone("directory", map[string]any{
			"authors":          snap.Len(),
			"failed_libraries": len(snap.Failures),
		}, time.Since(dirStarted))
	}

	// 执行阶段：按作者并发（worker pool），item 内串行。
	workers := p.Eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(targets),
		}, 0)
	}

	type execResult struct {
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan domain.Target)
	results := make(chan execResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				oneStarted := time.Now()
				r := p.LinkOne(ctx, t)
				p.Record(ctx, rr.RunID, r)
				results <- execResult{res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for _, t := range targets {
			jobs <- t
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(targets), it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func unmatchedItem(u domain.UnmatchedInput) domain.ItemResult {
	item := domain.ItemResult{
		Input:      u.Input,
		Status:     domain.StatusUnmatched,
		ErrorCode:  domain.ErrCodeInvalidTarget,
		Candidates: []string{},
		Description: domain.DescriptionResult{
			Source: domain.DescriptionNone,
		},
		Updates: domain.ItemUpdates{
			Description: domain.NoUpdate(),
			Photo:       domain.NoUpdate(),
		},
	}
	switch u.Kind {
	case "foreign_host":
		item.ErrorMsg = "不是 LitRes 地址：" + u.Input
	default:
		item.ErrorMsg = "无法解析出作者 slug；请使用 https://www.litres.ru/author/<slug>/ 形式的地址：" + u.Input
	}
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	item := newItem(domain.Target{})
	item.Status = domain.StatusFailed
	item.ErrorCode = code
	item.ErrorMsg = msg
	return item
}
