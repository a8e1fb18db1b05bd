package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/absauthor/internal/app/planner"
	"github.com/John-Robertt/absauthor/internal/describe"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/infra/cache"
	"github.com/John-Robertt/absauthor/internal/logging"
	"github.com/John-Robertt/absauthor/internal/provider"
	"github.com/John-Robertt/absauthor/internal/provider/litres"
)

// aboutCacheProvider 是详情页在缓存中的目录名（与作者页分开，键为地址摘要）。
const aboutCacheProvider = "litres-about"

// LinkOne 处理单个 LitRes 作者：页面 -> 计划 -> 匹配 -> 简介/照片 -> （apply）写入 ABS。
// 任何失败都落在返回的 ItemResult 上，不向上返回 error。
func (p *Pipeline) LinkOne(ctx context.Context, t domain.Target) domain.ItemResult {
	log := p.logger().With(slog.String("target", t.Key()))

	item := newItem(t)

	res, attempts, err := p.fetchPage(ctx, t)
	item.Attempts = providerAttempts(attempts)
	if err != nil {
		fillProviderError(&item, err)
		return item
	}
	item.ProviderUsed = res.Provider
	item.PageURL = res.Page.PageURL

	plan := planner.PlanItem(t, res.Page, p.Litres.AboutURL(t.Slug), p.Options)
	item.Candidates = append(item.Candidates, plan.Candidates...)

	m, ok, err := p.Resolver.Resolve(ctx, plan.Candidates)
	if err != nil {
		fillDirectoryError(&item, err)
		return item
	}
	if !ok {
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeUnmatchedAuthor
		item.ErrorMsg = fmt.Sprintf("ABS 中没有匹配的作者（候选：%s）", strings.Join(plan.Candidates, " / "))
		return item
	}
	item.Author = &domain.AuthorMatch{
		ID:        m.Record.ID,
		Name:      m.Record.Name,
		Tier:      string(m.Tier),
		Candidate: m.Candidate,
	}
	log.Debug("作者已匹配",
		slog.String("author_id", m.Record.ID),
		slog.String("tier", string(m.Tier)),
		slog.String("candidate", m.Candidate),
	)

	var desc describe.Result
	if plan.Need.Description {
		desc = describe.Aggregate(ctx, p.fullText, plan.DescriptionURLs, func() string { return plan.ShortDescription })
		for _, a := range desc.Attempts {
			if a.Err != nil {
				log.Debug("详情页不可用", slog.String("url", a.URL), logging.Error(a.Err))
			}
		}
	} else {
		desc.Source = domain.DescriptionNone
	}
	item.Description = domain.DescriptionResult{
		Source: desc.Source,
		URL:    desc.URL,
		Length: utf8.RuneCountInString(desc.Text),
	}

	if plan.Need.Photo {
		item.PhotoURL, item.PhotoProvider = plan.PhotoURL, res.Provider
		if item.PhotoURL == "" {
			// 作者页没有照片：按作者在 ABS 中的名字去 Wikipedia 找。
			photo, used, pattempts := p.lookupPhoto(ctx, domain.Target{Name: m.Record.Name, Input: t.Input})
			item.Attempts = append(item.Attempts, pattempts...)
			item.PhotoURL, item.PhotoProvider = photo, used
		}
	}

	wantDesc := desc.Text != ""
	wantPhoto := item.PhotoURL != ""
	if !wantDesc && !wantPhoto {
		item.Status = domain.StatusSkipped
		item.Message = "没有可写入的简介或照片"
		return item
	}

	if !p.Eff.Apply {
		item.Message = "dry-run"
		return item
	}

	// 先写简介再写照片；两者互不影响。
	if wantDesc {
		item.Updates.Description = p.Updater.SetDescription(ctx, m.Record.ID, desc.Text)
	}
	if wantPhoto {
		item.Updates.Photo = p.Updater.SetImage(ctx, m.Record.ID, item.PhotoURL)
	}
	applyUpdateStatus(&item, wantDesc, wantPhoto)
	return item
}

// PhotoForAuthor 只为一个已知 ABS 作者补照片：按其名字依次查找 Wikipedia 各语言版本。
func (p *Pipeline) PhotoForAuthor(ctx context.Context, authorID string) domain.ItemResult {
	authorID = strings.TrimSpace(authorID)
	item := newItem(domain.Target{Input: authorID})
	item.Target = authorID

	if p.Authors == nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeConfigMissingBaseURL
		item.ErrorMsg = "没有配置 ABS 服务地址"
		return item
	}
	rec, err := p.Authors.GetAuthor(ctx, authorID)
	if err != nil {
		var hs *provider.HTTPStatusError
		if errors.As(err, &hs) && hs.NotFound() {
			item.Status = domain.StatusUnmatched
			item.ErrorCode = domain.ErrCodeUnmatchedAuthor
			item.ErrorMsg = "ABS 中不存在该作者：" + authorID
			return item
		}
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeDirectoryUnavailable
		item.ErrorMsg = fmt.Sprintf("读取 ABS 作者失败：%v", err)
		return item
	}
	item.Author = &domain.AuthorMatch{ID: rec.ID, Name: rec.Name}
	if strings.TrimSpace(rec.Name) == "" {
		item.Status = domain.StatusSkipped
		item.Message = "作者没有名字，无法搜索照片"
		return item
	}
	item.Candidates = append(item.Candidates, rec.Name)

	photo, used, attempts := p.lookupPhoto(ctx, domain.Target{Name: rec.Name, Input: authorID})
	item.Attempts = attempts
	item.PhotoURL, item.PhotoProvider = photo, used
	item.ProviderUsed = used
	if photo == "" {
		item.Status = domain.StatusSkipped
		item.Message = "Wikipedia 中没有找到作者照片"
		return item
	}

	if !p.Eff.Apply {
		item.Message = "dry-run"
		return item
	}
	item.Updates.Photo = p.Updater.SetImage(ctx, rec.ID, photo)
	applyUpdateStatus(&item, false, true)
	return item
}

func newItem(t domain.Target) domain.ItemResult {
	return domain.ItemResult{
		Target:      t.Key(),
		Input:       t.Input,
		Status:      domain.StatusProcessed, // 失败时覆盖
		Candidates:  []string{},
		Description: domain.DescriptionResult{Source: domain.DescriptionNone},
		Updates: domain.ItemUpdates{
			Description: domain.NoUpdate(),
			Photo:       domain.NoUpdate(),
		},
	}
}

// applyUpdateStatus 把两个字段的写入结果折叠为条目状态。
//
// - 需要的字段全部成功：processed
// - 两个字段一成一败：partial
// - 需要的字段全部失败：failed（update_failed）
func applyUpdateStatus(item *domain.ItemResult, wantDesc, wantPhoto bool) {
	var failed []string
	okCount := 0
	if wantDesc {
		if item.Updates.Description.Succeeded {
			okCount++
		} else {
			failed = append(failed, "简介")
		}
	}
	if wantPhoto {
		if item.Updates.Photo.Succeeded {
			okCount++
		} else {
			failed = append(failed, "照片")
		}
	}

	switch {
	case len(failed) == 0:
		item.Status = domain.StatusProcessed
	case okCount > 0:
		item.Status = domain.StatusPartial
		item.ErrorCode = domain.ErrCodeUpdateFailed
		item.ErrorMsg = strings.Join(failed, "、") + "写入失败：" + lastWriteError(item.Updates)
	default:
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeUpdateFailed
		item.ErrorMsg = strings.Join(failed, "、") + "写入失败：" + lastWriteError(item.Updates)
	}
}

func lastWriteError(u domain.ItemUpdates) string {
	for _, out := range []domain.UpdateOutcome{u.Photo, u.Description} {
		if out.Succeeded || len(out.Attempts) == 0 {
			continue
		}
		a := out.Attempts[len(out.Attempts)-1]
		if a.Error != "" {
			return a.Error
		}
		return fmt.Sprintf("HTTP %d", a.Status)
	}
	return "ABS 拒绝了所有写入形态"
}

// fetchPage 先读缓存，未命中再走 provider 链；apply 且启用缓存时写回原始页面。
func (p *Pipeline) fetchPage(ctx context.Context, t domain.Target) (provider.Result, []provider.Attempt, error) {
	name := p.Litres.Name()
	if p.UseCache && t.Slug != "" {
		if b, ok, err := p.Store.Read(name, string(t.Slug), cache.KindHTML); err == nil && ok {
			page, perr := p.Litres.Parse(t, b, p.Litres.PageURL(t.Slug))
			if perr == nil {
				return provider.Result{Page: page, Provider: name, Body: b}, nil, nil
			}
			// 坏缓存：忽略，走网络（apply 会写回新缓存）。
			p.logger().Debug("缓存页面无法解析，重新抓取", slog.String("target", t.Key()), logging.Error(perr))
		}
	}

	res, attempts, err := provider.FetchParseTrace(ctx, p.Registry, p.PageOrder, t, p.PageClient)
	if err != nil {
		return res, attempts, err
	}
	if p.UseCache && !p.Store.ReadOnly && t.Slug != "" && len(res.Body) > 0 {
		if werr := p.Store.Write(res.Provider, string(t.Slug), cache.KindHTML, res.Body); werr != nil {
			p.logger().Warn("写入页面缓存失败", slog.String("target", t.Key()), logging.Error(werr))
		}
	}
	return res, attempts, nil
}

// fullText 是 describe.FullFetcher：读取详情页正文，同样走只读/可写缓存。
func (p *Pipeline) fullText(ctx context.Context, aboutURL string) (string, error) {
	key := cache.URLKey(aboutURL)
	if p.UseCache {
		if b, ok, err := p.Store.Read(aboutCacheProvider, key, cache.KindHTML); err == nil && ok {
			if text, perr := litres.ParseAbout(b); perr == nil {
				return text, nil
			}
		}
	}

	text, b, err := litres.FullText(ctx, p.PageClient, aboutURL)
	if err != nil {
		return "", err
	}
	if p.UseCache && !p.Store.ReadOnly {
		if werr := p.Store.Write(aboutCacheProvider, key, cache.KindHTML, b); werr != nil {
			p.logger().Warn("写入详情页缓存失败", slog.String("url", aboutURL), logging.Error(werr))
		}
	}
	return text, nil
}

// lookupPhoto 依次尝试 PhotoOrder；全部失败时返回空地址与尝试链路（不是错误）。
func (p *Pipeline) lookupPhoto(ctx context.Context, t domain.Target) (string, string, []domain.ProviderAttempt) {
	if len(p.PhotoOrder) == 0 || strings.TrimSpace(t.Name) == "" {
		return "", "", nil
	}
	res, attempts, err := provider.FetchParseTrace(ctx, p.Registry, p.PhotoOrder, t, p.PageClient)
	if err != nil {
		p.logger().Debug("Wikipedia 没有可用照片", slog.String("name", t.Name), logging.Error(err))
		return "", "", providerAttempts(attempts)
	}
	return res.Page.PhotoURL, res.Provider, providerAttempts(attempts)
}
