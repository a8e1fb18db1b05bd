// Package match 比较来自不同目录的人名。
//
// 刻意保持狭窄：只有“规范化后完全相等”、“两词互换”和“子串包含”三种判定，
// 不做分词打分，也不做编辑距离。
package match

import "strings"

// Tier 标记命中的判定层级。
type Tier string

const (
	TierExact Tier = "exact"
	TierLoose Tier = "loose"
)

// 固定替换表：ё 归一为 е，标点统一替换为空格。
var nameReplacer = strings.NewReplacer(
	"ё", "е",
	".", " ", ",", " ", "/", " ", "#", " ", "!", " ", "$", " ", "%", " ",
	"^", " ", "&", " ", "*", " ", ";", " ", ":", " ", "{", " ", "}", " ",
	"=", " ", "-", " ", "_", " ", "`", " ", "~", " ", "(", " ", ")", " ",
	"'", " ", "\"", " ", "“", " ", "”", " ", "«", " ", "»", " ",
)

// Normalize 把人名变为可比较的形态：小写、ё→е、标点→空格、空白折叠、去首尾空白。
func Normalize(name string) string {
	s := nameReplacer.Replace(strings.ToLower(name))
	return strings.Join(strings.Fields(s), " ")
}

// SameName 判断两个名字是否指同一人：规范化后相等，或恰好两个词且顺序互换（"Имя Фамилия" 与 "Фамилия Имя"）。
func SameName(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	pa := strings.Split(na, " ")
	pb := strings.Split(nb, " ")
	if len(pa) == 2 && len(pb) == 2 {
		return pa[0] == pb[1] && pa[1] == pb[0]
	}
	return false
}

// LooseMatch 是低置信度兜底：任一规范化名字是另一者的子串。
func LooseMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Predicate 返回该层级对应的判定函数。
func (t Tier) Predicate() func(a, b string) bool {
	switch t {
	case TierExact:
		return SameName
	case TierLoose:
		return LooseMatch
	default:
		return nil
	}
}
