// Package httpx 构造本项目使用的两类 HTTP client：抓取来源站点的 page client，
// 以及访问 ABS 的 api client。
package httpx

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultRetryMax = 2
	defaultBackoff  = 500 * time.Millisecond
)

// Transport 把“UA + 代理 + keep-alive 策略 + 有界重试”固化为统一策略。
//
// provider 只负责“定位页面 + 解析 HTML”，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	ua *uaPool
	// UserAgent 非空时固定使用该 UA（api client），否则从 UA 池随机挑选。
	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	// 只有 GET/HEAD 且无 body 的请求会重试。
	RetryMax int
	// Backoff 是第 n 次重试前等待 n*Backoff。
	Backoff time.Duration

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var (
		lastResp *http.Response
		lastErr  error
	)
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 {
			if lastResp != nil {
				drain(lastResp)
				lastResp = nil
			}
			if err := sleepCtx(req, time.Duration(attempt)*t.Backoff); err != nil {
				return nil, err
			}
		}

		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.userAgent())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, lastErr
			}
			continue
		}
		if !retryableStatus(resp.StatusCode) || attempt == max {
			return resp, nil
		}
		lastResp, lastErr = resp, nil
	}
	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

func (t *Transport) userAgent() string {
	if ua := strings.TrimSpace(t.UserAgent); ua != "" {
		return ua
	}
	if t.ua == nil {
		return globalUA.random()
	}
	return t.ua.random()
}

// retryableStatus 是站点限流/临时不可用的状态码。
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}

func sleepCtx(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

// NewPageClient 构造用于来源站点（LitRes、Wikipedia）抓取的 HTTP client。
//
// 规则：
// - proxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - 内置 UA 池：每个请求随机 UA
// - 有界重试 + 总超时
func NewPageClient(proxyURL string) (*http.Client, error) {
	return newClient(strings.TrimSpace(proxyURL), defaultRetryMax, "")
}

// NewAPIClient 构造访问 ABS 的 HTTP client：不走代理、不重试、固定 UA。
// ABS 的每一种写入形态只允许尝试一次。
func NewAPIClient(userAgent string) (*http.Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "absauthor"
	}
	return newClient("", 0, userAgent)
}

func newClient(proxyURL string, retryMax int, userAgent string) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 必须包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	tr := &Transport{
		Base:              base,
		ua:                globalUA,
		UserAgent:         userAgent,
		RetryMax:          retryMax,
		Backoff:           defaultBackoff,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   defaultTimeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
