package run

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/John-Robertt/absauthor/internal/abs"
	"github.com/John-Robertt/absauthor/internal/app/planner"
	"github.com/John-Robertt/absauthor/internal/config"
	"github.com/John-Robertt/absauthor/internal/directory"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/infra/cache"
	"github.com/John-Robertt/absauthor/internal/infra/httpx"
	"github.com/John-Robertt/absauthor/internal/logging"
	"github.com/John-Robertt/absauthor/internal/provider"
	"github.com/John-Robertt/absauthor/internal/provider/litres"
	"github.com/John-Robertt/absauthor/internal/provider/wikipedia"
	"github.com/John-Robertt/absauthor/internal/resolver"
	"github.com/John-Robertt/absauthor/internal/update"
)

// AuthorGetter 按 id 读取单个 ABS 作者（photo 模式使用）。
type AuthorGetter interface {
	GetAuthor(ctx context.Context, id string) (domain.AuthorRecord, error)
}

// Journal 记录 apply 模式下每个作者的处理结果。
type Journal interface {
	Record(ctx context.Context, runID string, item domain.ItemResult) error
}

// Pipeline 把一次运行需要的全部协作者组装在一起。
//
// 约束：
// - 同一 Pipeline 可被多个 goroutine 同时使用（目录缓存是共享的）
// - 单个作者内部严格串行：页面 -> 计划 -> 匹配 -> 简介 -> 写入
// - dry-run（Eff.Apply=false）不写 ABS、不写缓存、不写 Journal
type Pipeline struct {
	Eff     config.EffectiveConfig
	Options planner.Options

	Registry   provider.Registry
	PageOrder  []string
	PhotoOrder []string
	Litres     litres.Provider

	Resolver resolver.Resolver
	Updater  update.Updater
	Authors  AuthorGetter

	PageClient *http.Client
	Store      cache.Store
	// UseCache=false 时既不读也不写缓存（--no-cache）。
	UseCache bool

	Journal Journal
	Log     *slog.Logger
}

// New 按生效配置构造 Pipeline。ABS 地址/token 的校验由调用方（RequireABS）负责。
func New(eff config.EffectiveConfig, opts planner.Options, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = logging.NewNop()
	}

	pageClient, err := httpx.NewPageClient(eff.ProxyURL)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Err: fmt.Errorf("net.proxy_url 无效：%w", err)}
	}
	apiClient, err := httpx.NewAPIClient("")
	if err != nil {
		return nil, err
	}
	client := abs.New(eff.ABSBaseURL, eff.ABSToken, apiClient)

	lp := litres.Provider{BaseURL: eff.LitresBaseURL}
	providers := []provider.Provider{lp}
	photoOrder := make([]string, 0, len(eff.Languages))
	for _, lang := range eff.Languages {
		wp := wikipedia.Provider{Lang: lang}
		providers = append(providers, wp)
		photoOrder = append(photoOrder, wp.Name())
	}
	reg, err := provider.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}

	updLog := logging.NewComponentLogger(log, "update")
	p := &Pipeline{
		Eff:        eff,
		Options:    opts,
		Registry:   reg,
		PageOrder:  []string{lp.Name()},
		PhotoOrder: photoOrder,
		Litres:     lp,
		Resolver: resolver.Resolver{
			BaseURL: eff.ABSBaseURL,
			Catalog: client,
			Cache:   directory.NewCache(),
		},
		Updater: update.Updater{
			W: client,
			OnAttempt: func(id string, a domain.WriteAttempt) {
				updLog.Debug("写入形态失败，尝试下一种",
					slog.String("author_id", id),
					slog.String("method", string(a.Method)),
					slog.Int("status", a.Status),
					slog.String("error", a.Error),
				)
			},
		},
		Authors:    client,
		PageClient: pageClient,
		Store:      cache.New(eff.StateDir, !eff.Apply),
		UseCache:   eff.Cache,
		Log:        log,
	}
	return p, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Log == nil {
		return logging.NewNop()
	}
	return p.Log
}

// Record 把 apply 结果写入 Journal；dry-run 或未配置 Journal 时什么都不做。
func (p *Pipeline) Record(ctx context.Context, runID string, item domain.ItemResult) {
	if p.Journal == nil || !p.Eff.Apply {
		return
	}
	if err := p.Journal.Record(ctx, runID, item); err != nil {
		p.logger().Warn("写入历史记录失败",
			slog.String("target", item.Target),
			logging.Error(err),
		)
	}
}

// DryRun 返回一个只读副本：共享目录缓存与 HTTP client，但不写 ABS/缓存/Journal。
func (p *Pipeline) DryRun() *Pipeline {
	cp := *p
	cp.Eff.Apply = false
	cp.Store.ReadOnly = true
	return &cp
}
