// Package describe 从多个候选来源中挑选作者简介，并做统一的文本清洗。
package describe

import (
	"regexp"
	"strings"
)

var (
	trailingBlankRE = regexp.MustCompile(`[ \t]+\n`)
	manyNewlinesRE  = regexp.MustCompile(`\n{3,}`)
	manyBlanksRE    = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean 规范化简介文本：
// - NBSP 变普通空格
// - 删除换行前的行尾空白
// - 3 个及以上连续换行折叠为 2 个
// - 2 个及以上连续水平空白折叠为 1 个空格
// - 去首尾空白
//
// Clean 是幂等的。
func Clean(text string) string {
	s := strings.ReplaceAll(text, "\u00a0", " ")
	s = trailingBlankRE.ReplaceAllString(s, "\n")
	s = manyNewlinesRE.ReplaceAllString(s, "\n\n")
	s = manyBlanksRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// readMoreRE 匹配结尾处的“阅读全文”类链接文字（可带省略号/箭头）。
// RE2 的 \s 不含 NBSP，页面文字里常见，需要单独列出。
var readMoreRE = regexp.MustCompile(`(?i)(^|[\s\x{00a0}]+)(читать[\s\x{00a0}]+(полностью|далее|дальше)|подробнее|read[\s\x{00a0}]+more)[\s\x{00a0}.…→>»]*$`)

// StripReadMore 去掉文本末尾的“阅读全文”链接文字。
func StripReadMore(text string) string {
	return readMoreRE.ReplaceAllString(text, "")
}
