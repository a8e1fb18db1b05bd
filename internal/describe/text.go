package describe

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags 是渲染时自成一行的元素。
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "footer": true, "table": true, "tr": true, "pre": true,
}

// InnerText 近似浏览器 innerText：块级元素与 <br> 产生换行，段落之间留空行，
// 文本节点内的空白折叠为单个空格（NBSP 保留，交给 Clean 处理）。
//
// 注意：goquery 的 Text() 会把所有文本直接拼接，段落边界会丢失，因此这里自己遍历节点。
func InnerText(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	var b strings.Builder
	for _, n := range sel.Nodes {
		walk(&b, n)
	}
	return leadingBlankRE.ReplaceAllString(b.String(), "\n")
}

var leadingBlankRE = regexp.MustCompile(`\n[ \t]+`)

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			b.WriteString("\n")
			return
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		lineBreak(b)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}
	if block {
		lineBreak(b)
		if n.Data == "p" {
			b.WriteString("\n")
		}
	}
}

// lineBreak 保证当前输出以换行结尾；相邻块级元素不会叠出空行。
func lineBreak(b *strings.Builder) {
	s := b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	b.WriteString("\n")
}

// collapseSpace 把 ASCII 空白（含换行）折叠为单个空格；NBSP 不动。
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return b.String()
}

// MarkupText 把一段 HTML 片段渲染为纯文本（不清洗）。
// removeSelector 非空时，先移除匹配的节点（例如“阅读全文”链接）。
func MarkupText(markup, removeSelector string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	body := doc.Find("body")
	if strings.TrimSpace(removeSelector) != "" {
		body.Find(removeSelector).Remove()
	}
	return InnerText(body)
}
