// Package abs 是 Audiobookshelf 的最小 HTTP 客户端：只覆盖作者目录的读取与作者记录的写入。
package abs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/provider"
)

// HTTPDoer 描述客户端使用的 HTTP 调用方（*http.Client 满足该接口）。
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 同时实现 directory.Catalog 与 update.Writer。
//
// 约束：
// - 不做重试：每个写入形态只尝试一次，重试与否由上层策略决定
// - 写接口只返回状态码，是否算成功由调用方判定
type Client struct {
	BaseURL string
	Token   string
	HTTP    HTTPDoer
}

// New 规范化 baseURL（去首尾空白与末尾 /）。
func New(baseURL, token string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   strings.TrimSpace(token),
		HTTP:    doer,
	}
}

func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.BaseURL)
	b.WriteString("/api")
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) newRequest(ctx context.Context, method, u string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("build abs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, u string) ([]byte, error) {
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return nil, errors.New("abs client not configured")
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// send 发出写请求并返回状态码；只有传输层失败才返回 err。
func (c *Client) send(ctx context.Context, method, u string, body any) (int, error) {
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return 0, errors.New("abs client not configured")
	}
	req, err := c.newRequest(ctx, method, u, body)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}

// ListLibraries 返回全部媒体库。响应可能是裸数组或 {"libraries":[...]}。
func (c *Client) ListLibraries(ctx context.Context) ([]domain.Library, error) {
	b, err := c.getJSON(ctx, c.endpoint("libraries"))
	if err != nil {
		return nil, err
	}
	var libs []domain.Library
	if err := decodeList(b, "libraries", &libs); err != nil {
		return nil, fmt.Errorf("decode libraries: %w", err)
	}
	return libs, nil
}

// ListLibraryAuthors 返回某个媒体库的作者。响应可能是裸数组或 {"authors":[...]}。
func (c *Client) ListLibraryAuthors(ctx context.Context, libraryID string) ([]domain.AuthorRecord, error) {
	b, err := c.getJSON(ctx, c.endpoint("libraries", libraryID, "authors"))
	if err != nil {
		return nil, err
	}
	var authors []domain.AuthorRecord
	if err := decodeList(b, "authors", &authors); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	return authors, nil
}

// GetAuthor 返回单个作者记录。
func (c *Client) GetAuthor(ctx context.Context, id string) (domain.AuthorRecord, error) {
	b, err := c.getJSON(ctx, c.endpoint("authors", id))
	if err != nil {
		return domain.AuthorRecord{}, err
	}
	var a domain.AuthorRecord
	if err := json.Unmarshal(b, &a); err != nil {
		return domain.AuthorRecord{}, fmt.Errorf("decode author: %w", err)
	}
	return a, nil
}

// PostAuthorImage 调用专用图片接口：POST /api/authors/{id}/image {"url": ...}。
func (c *Client) PostAuthorImage(ctx context.Context, id, imageURL string) (int, error) {
	return c.send(ctx, http.MethodPost, c.endpoint("authors", id, "image"), map[string]string{"url": imageURL})
}

// PatchAuthor 局部更新作者记录：PATCH /api/authors/{id}。
func (c *Client) PatchAuthor(ctx context.Context, id string, fields map[string]any) (int, error) {
	return c.send(ctx, http.MethodPatch, c.endpoint("authors", id), fields)
}

// decodeList 兼容两种列表形态：裸数组，或以 key 包裹的对象。
func decodeList(b []byte, key string, out any) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	raw, ok := wrapped[key]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
