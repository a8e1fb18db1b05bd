package run

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/absauthor/internal/directory"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/provider"
)

func providerAttempts(in []provider.Attempt) []domain.ProviderAttempt {
	out := make([]domain.ProviderAttempt, 0, len(in))
	for _, a := range in {
		if a.Err == nil {
			continue
		}
		pa := domain.ProviderAttempt{Provider: a.Provider, Stage: a.Stage}
		switch a.Stage {
		case "parse":
			pa.ErrorCode = domain.ErrCodeParseFailed
			pa.ErrorMsg = humanizeParseError(a.Provider, a.Err)
		default:
			pa.ErrorCode = domain.ErrCodeFetchFailed
			pa.ErrorMsg = humanizeFetchError(a.Provider, a.Err)
		}
		out = append(out, pa)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fillProviderError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	var pe *provider.Error
	if errors.As(err, &pe) {
		switch pe.Stage {
		case "parse":
			item.ErrorCode = domain.ErrCodeParseFailed
			item.ErrorMsg = humanizeParseError(pe.Provider, pe.Err)
		default:
			item.ErrorCode = domain.ErrCodeFetchFailed
			item.ErrorMsg = humanizeFetchError(pe.Provider, pe.Err)
		}
		return
	}

	item.ErrorCode = domain.ErrCodeFetchFailed
	item.ErrorMsg = err.Error()
}

func fillDirectoryError(item *domain.ItemResult, err error) {
	item.Status = domain.StatusFailed

	if errors.Is(err, directory.ErrNotConfigured) {
		item.ErrorCode = domain.ErrCodeConfigMissingBaseURL
		item.ErrorMsg = "没有配置 ABS 服务地址，无法读取作者目录"
		return
	}
	item.ErrorCode = domain.ErrCodeDirectoryUnavailable

	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 401, 403:
			item.ErrorMsg = fmt.Sprintf("ABS 返回 HTTP %d（token 无效或权限不足）。", hs.StatusCode)
			return
		}
	}
	item.ErrorMsg = fmt.Sprintf("无法读取 ABS 作者目录：%v", err)
}

func humanizeFetchError(providerName string, err error) string {
	if err == nil {
		return providerName + " 抓取失败"
	}

	var be *provider.BlockedError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s 被站点拦截（%s）。建议配置 net.proxy_url 或稍后重试。", providerName, be.Reason)
	}

	// HTTP 非 2xx：尽量给出可操作提示（反爬/限流是最常见问题）。
	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		loc := strings.TrimSpace(hs.Location)
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("%s 返回 HTTP %d（可能触发反爬/限流）。建议降低并发或配置 net.proxy_url。", providerName, hs.StatusCode)
		case 404:
			return fmt.Sprintf("%s 返回 HTTP 404（作者页不存在或 slug 有误）。", providerName)
		default:
			if loc != "" {
				return fmt.Sprintf("%s 返回 HTTP %d（重定向）：%s", providerName, hs.StatusCode, loc)
			}
			return fmt.Sprintf("%s 返回 HTTP %d。", providerName, hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络/代理，或降低并发后重试。", providerName)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") {
		return fmt.Sprintf("%s 连接失败（TLS/SSL）。建议配置 net.proxy_url 或稍后重试。", providerName)
	}

	return fmt.Sprintf("%s 抓取失败：%v", providerName, err)
}

func humanizeParseError(providerName string, err error) string {
	if err == nil {
		return providerName + " 解析失败"
	}
	// 解析失败通常意味着站点结构漂移或被返回了非作者页内容。
	return fmt.Sprintf("%s 解析失败（站点结构可能变化或返回了非作者页内容）：%v", providerName, err)
}
