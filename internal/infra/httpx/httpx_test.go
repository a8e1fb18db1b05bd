package httpx

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNewPageClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewPageClient("http://127.0.0.1:8080")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应禁用 keep-alive")
	}
	if tr.RetryMax != defaultRetryMax {
		t.Fatalf("page client 应启用有界重试，实际 RetryMax=%d", tr.RetryMax)
	}
}

func TestNewPageClient_InvalidProxy(t *testing.T) {
	if _, err := NewPageClient("127.0.0.1"); err == nil {
		t.Fatalf("缺少 scheme 的代理地址应报错")
	}
}

func TestNewAPIClient_NoRetryFixedUA(t *testing.T) {
	c, err := NewAPIClient("")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.RetryMax != 0 || tr.Base.Proxy != nil || tr.UserAgent != "absauthor" {
		t.Fatalf("api client 配置不符合预期：retry=%d ua=%q", tr.RetryMax, tr.UserAgent)
	}
}

func TestTransport_RetriesGetOnUnavailable(t *testing.T) {
	var hits atomic.Int32
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := NewPageClient("")
	c.Transport.(*Transport).Backoff = 0

	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || hits.Load() != 3 {
		t.Fatalf("期望第 3 次成功，实际 status=%d hits=%d", resp.StatusCode, hits.Load())
	}
	if s, _ := ua.Load().(string); s == "" {
		t.Fatalf("期望自动设置 User-Agent")
	}
}

func TestTransport_NoRetryForWrites(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewPageClient("")
	c.Transport.(*Transport).Backoff = 0

	resp, err := c.Post(srv.URL, "application/json", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable || hits.Load() != 1 {
		t.Fatalf("POST 不应重试，实际 hits=%d", hits.Load())
	}

	api, _ := NewAPIClient("test")
	resp, err = api.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if hits.Load() != 2 {
		t.Fatalf("api client 不应重试，实际 hits=%d", hits.Load())
	}
}
