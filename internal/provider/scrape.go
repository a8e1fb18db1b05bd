package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
)

// Attempt 记录一次 provider 尝试（用于解释 fallback/降级原因）。
// 注意：这是内部执行轨迹，不直接写入 report（由上层决定如何呈现）。
type Attempt struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" / "parse" / "ok"
	Err      error  // nil when Stage=="ok"
}

// Result 是一次成功的抓取解析。
type Result struct {
	Page     domain.AuthorPage
	Provider string
	Body     []byte // 原始响应（用于 cache）
}

// FetchParse 按 order 依次抓取并解析，第一个成功的 provider 胜出。
func FetchParse(ctx context.Context, reg Registry, order []string, t domain.Target, c *http.Client) (Result, error) {
	res, _, err := FetchParseTrace(ctx, reg, order, t, c)
	return res, err
}

// FetchParseTrace 与 FetchParse 相同，但额外返回 provider 的尝试链路（用于解释回退原因）。
func FetchParseTrace(ctx context.Context, reg Registry, order []string, t domain.Target, c *http.Client) (Result, []Attempt, error) {
	if len(order) == 0 {
		return Result{}, nil, fmt.Errorf("provider 顺序不能为空")
	}
	if t.Key() == "" {
		return Result{}, nil, fmt.Errorf("target 不能为空")
	}

	var (
		attempts []Attempt
		lastErr  error
	)
	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		p, ok := reg.Get(name)
		if !ok {
			lastErr = fmt.Errorf("provider 未注册：%q", name)
			attempts = append(attempts, Attempt{Provider: name, Stage: "fetch", Err: lastErr})
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, attempts, err
		}

		body, pageURL, ferr := p.Fetch(ctx, t, c)
		if ferr != nil {
			lastErr = &Error{Provider: name, Stage: "fetch", Err: ferr}
			attempts = append(attempts, Attempt{Provider: name, Stage: "fetch", Err: ferr})
			continue
		}

		page, perr := p.Parse(t, body, pageURL)
		if perr != nil {
			lastErr = &Error{Provider: name, Stage: "parse", Err: perr}
			attempts = append(attempts, Attempt{Provider: name, Stage: "parse", Err: perr})
			continue
		}

		if page.PageURL == "" {
			page.PageURL = pageURL
		}
		attempts = append(attempts, Attempt{Provider: name, Stage: "ok"})
		return Result{Page: page, Provider: name, Body: body}, attempts, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("无可用 provider")
	}
	return Result{}, attempts, lastErr
}

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
