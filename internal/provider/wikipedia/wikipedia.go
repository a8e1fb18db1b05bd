// Package wikipedia 通过 Wikipedia 搜索作者并取条目摘要中的照片与简介。
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
	providerx "github.com/John-Robertt/absauthor/internal/provider"
)

// Provider 实现某一语言版本 Wikipedia 的作者查找。
//
// 约束：
// - 先搜索（只取第一条结果）再取 REST 摘要；摘要 JSON 即 Parse 的输入
// - 摘要中没有图片视为解析失败，让上层换下一个语言版本
type Provider struct {
	Lang string
	// BaseURL 为空时使用 https://<lang>.wikipedia.org。
	BaseURL string
}

func (p Provider) lang() string {
	l := strings.ToLower(strings.TrimSpace(p.Lang))
	if l == "" {
		return "ru"
	}
	return l
}

func (p Provider) Name() string { return "wikipedia-" + p.lang() }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://" + p.lang() + ".wikipedia.org"
	}
	return strings.TrimRight(u, "/")
}

var jsonHeader = http.Header{"Accept": []string{"application/json"}}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type summary struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`

	OriginalImage *struct {
		Source string `json:"source"`
	} `json:"originalimage"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Fetch 用 target.Name 搜索，返回第一条结果的摘要 JSON。
func (p Provider) Fetch(ctx context.Context, t domain.Target, c *http.Client) ([]byte, string, error) {
	query := strings.TrimSpace(t.Name)
	if query == "" {
		return nil, "", errors.New("作者名不能为空")
	}

	title, err := p.searchFirstTitle(ctx, c, query)
	if err != nil {
		return nil, "", err
	}

	base := p.baseURL()
	summaryURL := base + "/api/rest_v1/page/summary/" + url.PathEscape(title)
	b, err := providerx.Get(ctx, c, summaryURL, jsonHeader)
	if err != nil {
		return nil, "", err
	}
	return b, base + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_")), nil
}

func (p Provider) searchFirstTitle(ctx context.Context, c *http.Client, query string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("srlimit", "1")
	q.Set("format", "json")

	b, err := providerx.Get(ctx, c, p.baseURL()+"/w/api.php?"+q.Encode(), jsonHeader)
	if err != nil {
		return "", err
	}
	var resp searchResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return "", fmt.Errorf("搜索结果不是合法 JSON：%w", err)
	}
	if len(resp.Query.Search) == 0 || strings.TrimSpace(resp.Query.Search[0].Title) == "" {
		return "", fmt.Errorf("搜索无结果：%q", query)
	}
	return resp.Query.Search[0].Title, nil
}

// Parse 把摘要 JSON 解析为 AuthorPage：原图优先，其次缩略图。
func (Provider) Parse(t domain.Target, body []byte, pageURL string) (domain.AuthorPage, error) {
	if len(body) == 0 {
		return domain.AuthorPage{}, errors.New("响应为空")
	}
	var s summary
	if err := json.Unmarshal(body, &s); err != nil {
		return domain.AuthorPage{}, fmt.Errorf("摘要不是合法 JSON：%w", err)
	}

	photo := ""
	if s.OriginalImage != nil {
		photo = strings.TrimSpace(s.OriginalImage.Source)
	}
	if photo == "" && s.Thumbnail != nil {
		photo = strings.TrimSpace(s.Thumbnail.Source)
	}
	if photo == "" {
		return domain.AuthorPage{}, fmt.Errorf("条目没有图片：%q", s.Title)
	}

	page := strings.TrimSpace(s.ContentURLs.Desktop.Page)
	if page == "" {
		page = strings.TrimSpace(pageURL)
	}
	return domain.AuthorPage{
		PageURL:          page,
		Names:            providerx.NormList([]string{s.Title, t.Name}),
		PhotoURL:         photo,
		ShortDescription: s.Extract,
	}, nil
}
