// Package update 把照片和简介写回 ABS 作者记录。
//
// ABS 不同版本的写接口形态不一致，所以每种写入都是一组按优先级排列的策略：
// 每个策略只尝试一次，第一个成功的胜出；全部失败时结果为 {false, none}。
// 传输错误和非 2xx 状态只记录在 Attempts 中，不向上返回。
package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
)

// Writer 是 ABS 的作者写接口（abs.Client 实现它）。
// 返回值中的 status 是 HTTP 状态码；err 只表示传输层失败。
type Writer interface {
	PostAuthorImage(ctx context.Context, id, imageURL string) (int, error)
	PatchAuthor(ctx context.Context, id string, fields map[string]any) (int, error)
}

// Strategy 是一种写入形态。
type Strategy struct {
	Method domain.UpdateMethod
	Do     func(ctx context.Context) (int, error)
	// Accept 判断状态码是否算成功；nil 时按 2xx。
	Accept func(status int) bool
}

// Accept2xx 是默认的成功判定。
func Accept2xx(status int) bool { return status >= 200 && status < 300 }

// TryInOrder 依次尝试 strategies，第一个成功即停止。
func TryInOrder(ctx context.Context, strategies []Strategy) domain.UpdateOutcome {
	out := domain.NoUpdate()
	for _, s := range strategies {
		if s.Do == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			out.Attempts = append(out.Attempts, domain.WriteAttempt{Method: s.Method, Error: err.Error()})
			break
		}
		status, err := s.Do(ctx)
		if err != nil {
			out.Attempts = append(out.Attempts, domain.WriteAttempt{Method: s.Method, Status: status, Error: err.Error()})
			continue
		}
		accept := s.Accept
		if accept == nil {
			accept = Accept2xx
		}
		if !accept(status) {
			out.Attempts = append(out.Attempts, domain.WriteAttempt{Method: s.Method, Status: status, Error: fmt.Sprintf("HTTP %d", status)})
			continue
		}
		out.Attempts = append(out.Attempts, domain.WriteAttempt{Method: s.Method, Status: status})
		out.Succeeded = true
		out.Method = s.Method
		return out
	}
	return out
}

// Updater 把写入策略绑定到一个 Writer 上。
type Updater struct {
	W Writer
	// OnAttempt 在每次策略失败后回调（用于 debug 日志），可为 nil。
	OnAttempt func(id string, a domain.WriteAttempt)
}

// SetImage 用图片地址更新作者照片：先走专用 image 接口，失败再走通用 PATCH。
// imageURL 为空时不发请求。
func (u Updater) SetImage(ctx context.Context, id, imageURL string) domain.UpdateOutcome {
	imageURL = strings.TrimSpace(imageURL)
	if u.W == nil || strings.TrimSpace(id) == "" || imageURL == "" {
		return domain.NoUpdate()
	}
	out := TryInOrder(ctx, []Strategy{
		{
			Method: domain.MethodImageURL,
			Do: func(ctx context.Context) (int, error) {
				return u.W.PostAuthorImage(ctx, id, imageURL)
			},
		},
		{
			Method: domain.MethodPatch,
			Do: func(ctx context.Context) (int, error) {
				return u.W.PatchAuthor(ctx, id, map[string]any{"imagePath": imageURL})
			},
		},
	})
	u.report(id, out)
	return out
}

// SetDescription 用 PATCH 更新作者简介。text 为空时不发请求。
func (u Updater) SetDescription(ctx context.Context, id, text string) domain.UpdateOutcome {
	if u.W == nil || strings.TrimSpace(id) == "" || strings.TrimSpace(text) == "" {
		return domain.NoUpdate()
	}
	out := TryInOrder(ctx, []Strategy{{
		Method: domain.MethodPatch,
		Do: func(ctx context.Context) (int, error) {
			return u.W.PatchAuthor(ctx, id, map[string]any{"description": text})
		},
	}})
	u.report(id, out)
	return out
}

func (u Updater) report(id string, out domain.UpdateOutcome) {
	if u.OnAttempt == nil {
		return
	}
	for _, a := range out.Attempts {
		if a.Error != "" {
			u.OnAttempt(id, a)
		}
	}
}
