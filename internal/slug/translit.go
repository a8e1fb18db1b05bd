package slug

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
)

// ruToLat 是 LitRes 风格的俄文转写表（ь/ъ 直接丢弃）。
var ruToLat = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh", 'з': "z",
	'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ы': "y", 'э': "e", 'ю': "yu", 'я': "ya",
	'ь': "", 'ъ': "",
}

var (
	nonSlugRE = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaceRE   = regexp.MustCompile(`\s+`)
	dashRE    = regexp.MustCompile(`-+`)
)

// Translit 把俄文字母转写为拉丁字母（先整体小写，其它字符原样保留）。
func Translit(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if lat, ok := ruToLat[r]; ok {
			b.WriteString(lat)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FromName 按 LitRes 的规则从人名生成 slug；无法生成时返回空串。
func FromName(name string) domain.Slug {
	s := nonSlugRE.ReplaceAllString(Translit(name), " ")
	s = spaceRE.ReplaceAllString(strings.TrimSpace(s), "-")
	s = dashRE.ReplaceAllString(s, "-")
	return domain.Slug(s)
}

// LitresURL 返回人名对应的 LitRes 作者页地址；无法生成 slug 时返回空串。
func LitresURL(base, name string) string {
	return PageURL(base, FromName(name))
}
