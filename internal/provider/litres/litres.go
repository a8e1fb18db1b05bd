package litres

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/absauthor/internal/describe"
	"github.com/John-Robertt/absauthor/internal/domain"
	providerx "github.com/John-Robertt/absauthor/internal/provider"
	"github.com/John-Robertt/absauthor/internal/slug"
)

// DefaultBaseURL 是 LitRes 的默认站点根。
const DefaultBaseURL = "https://www.litres.ru"

const (
	selName        = `h1[itemprop="name"]`
	selAvatar      = `div[data-testid="author__avatarPerson"] img`
	selAvatarCDN   = `img[src*="cdn.litres.ru/pub/authors"]`
	selDescription = `[data-testid="author__personDescription"]`
	selAboutLink   = `a[href*="/about/"]`
	selAboutBlock  = `[data-analytics-scroll-block="about_author"]`
)

// Provider 实现 LitRes 作者页的抓取与解析。
//
// 约束：
// - 作者页地址由 slug 直接拼出（/author/<slug>/），不需要搜索
// - Fetch/Parse 不做缓存/重试/限速（由上层统一控制）
// - Parse 必须是纯函数（依赖输入 html + pageURL + target）
type Provider struct {
	// BaseURL 为空时使用 https://www.litres.ru。
	BaseURL string
}

func (Provider) Name() string { return "litres" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// PageURL 返回 slug 对应的作者页地址。
func (p Provider) PageURL(s domain.Slug) string { return slug.PageURL(p.baseURL(), s) }

// AboutURL 返回 slug 对应的“关于作者”详情页地址（页面上没有直接链接时的兜底）。
func (p Provider) AboutURL(s domain.Slug) string { return slug.AboutURL(p.baseURL(), s) }

func (p Provider) Fetch(ctx context.Context, t domain.Target, c *http.Client) ([]byte, string, error) {
	if t.Slug == "" {
		return nil, "", errors.New("slug 不能为空")
	}
	pageURL := p.PageURL(t.Slug)
	b, err := providerx.Get(ctx, c, pageURL, nil)
	return b, pageURL, err
}

// Parse 把作者页 HTML 解析为 AuthorPage。
func (Provider) Parse(t domain.Target, html []byte, pageURL string) (domain.AuthorPage, error) {
	if len(html) == 0 {
		return domain.AuthorPage{}, errors.New("html 为空")
	}
	if strings.TrimSpace(pageURL) == "" {
		return domain.AuthorPage{}, errors.New("pageURL 不能为空")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.AuthorPage{}, err
	}

	heading := headingName(doc)
	og := ogTitleName(doc)
	if heading == "" && og == "" {
		return domain.AuthorPage{}, errors.New("未找到作者名（页面可能不是作者页）")
	}

	page := domain.AuthorPage{
		PageURL:  strings.TrimSpace(pageURL),
		Names:    providerx.NormList([]string{heading, og, slug.CandidateName(t.Slug)}),
		PhotoURL: avatarURL(doc, pageURL),
	}

	if block := doc.Find(selDescription).First(); block.Length() > 0 {
		if href, ok := block.Find(selAboutLink).First().Attr("href"); ok {
			page.AboutURL = providerx.ResolveURL(pageURL, href)
		}
		// 短简介取原始 markup 渲染，去掉块内的“阅读全文”链接。
		if markup, err := goquery.OuterHtml(block); err == nil {
			page.ShortDescription = describe.MarkupText(markup, selAboutLink)
		}
	}
	return page, nil
}

func headingName(doc *goquery.Document) string {
	h := doc.Find(selName).First()
	if h.Length() == 0 {
		h = doc.Find("h1").First()
	}
	return providerx.NormSpace(h.Text())
}

// ogTitleName 取 og:title 中“—”之前的部分（LitRes 的格式为“<作者> — ...”）。
func ogTitleName(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	name, _, _ := strings.Cut(content, "—")
	return providerx.NormSpace(name)
}

func avatarURL(doc *goquery.Document, pageURL string) string {
	src, _ := doc.Find(selAvatar).First().Attr("src")
	if strings.TrimSpace(src) == "" {
		src, _ = doc.Find(selAvatarCDN).First().Attr("src")
	}
	return providerx.ResolveURL(pageURL, src)
}

// FullText 抓取“关于作者”详情页并返回正文（未清洗）与原始页面（供缓存）。
// 页面上没有正文容器时返回错误，调用方据此尝试下一个地址。
func FullText(ctx context.Context, c *http.Client, aboutURL string) (string, []byte, error) {
	b, err := providerx.Get(ctx, c, aboutURL, nil)
	if err != nil {
		return "", nil, err
	}
	text, err := ParseAbout(b)
	if err != nil {
		return "", nil, err
	}
	return text, b, nil
}

// ParseAbout 从详情页 HTML 中取出作者正文。
func ParseAbout(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	block := doc.Find(selAboutBlock).First()
	if block.Length() == 0 {
		return "", errors.New("详情页中没有作者正文")
	}
	return describe.InnerText(block), nil
}
