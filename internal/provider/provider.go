package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/absauthor/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 AuthorPage。
//
// 约束：
// - Fetch 不做缓存、不做重试、不做限速（这些由核心 http/cache 层统一实现）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - pageURL 必须是作者页本身（用于 report 追溯与相对链接解析）
type Provider interface {
	Name() string
	Fetch(ctx context.Context, t domain.Target, c *http.Client) (body []byte, pageURL string, err error)
	Parse(t domain.Target, body []byte, pageURL string) (domain.AuthorPage, error)
}
