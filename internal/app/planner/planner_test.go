package planner

import (
	"reflect"
	"testing"

	"github.com/John-Robertt/absauthor/internal/domain"
)

func TestPlanItem_LocationsAndCandidates(t *testing.T) {
	target := domain.Target{Slug: "stiven-king", Name: "Stiven King", Input: "stiven-king"}
	page := domain.AuthorPage{
		PageURL:          "https://www.litres.ru/author/stiven-king/",
		Names:            []string{"Стивен Кинг", "  стивен  кинг ", ""},
		PhotoURL:         " https://cdn.litres.ru/pub/authors/1.jpg ",
		AboutURL:         "https://www.litres.ru/author/stiven-king/about/",
		ShortDescription: "Американский писатель.",
	}

	p := PlanItem(target, page, "https://www.litres.ru/author/stiven-king/about/", Options{})

	if !reflect.DeepEqual(p.Candidates, []string{"Стивен Кинг", "Stiven King"}) {
		t.Fatalf("候选人名不符合预期：%v", p.Candidates)
	}
	// 页面直链与 slug 拼出的地址相同，只保留一个。
	if len(p.DescriptionURLs) != 1 {
		t.Fatalf("期望 1 个简介地址，实际 %v", p.DescriptionURLs)
	}
	if p.PhotoURL != "https://cdn.litres.ru/pub/authors/1.jpg" {
		t.Fatalf("照片地址应去掉首尾空白，实际 %q", p.PhotoURL)
	}
	if !p.Need.Description || !p.Need.Photo || !p.Need.Any() {
		t.Fatalf("默认应同时需要简介与照片：%+v", p.Need)
	}
}

func TestPlanItem_FallbackOrder(t *testing.T) {
	target := domain.Target{Slug: "boris-akunin"}
	page := domain.AuthorPage{AboutURL: "https://www.litres.ru/author/boris-akunin/about/?from=page"}

	p := PlanItem(target, page, "https://www.litres.ru/author/boris-akunin/about/", Options{})
	want := []string{
		"https://www.litres.ru/author/boris-akunin/about/?from=page",
		"https://www.litres.ru/author/boris-akunin/about/",
	}
	if !reflect.DeepEqual(p.DescriptionURLs, want) {
		t.Fatalf("期望页面直链在前：%v", p.DescriptionURLs)
	}
}

func TestPlanItem_Options(t *testing.T) {
	target := domain.Target{Slug: "boris-akunin"}
	page := domain.AuthorPage{ShortDescription: "Писатель."}

	p := PlanItem(target, page, "", Options{NoPhoto: true, NoDescription: true})
	if p.Need.Any() {
		t.Fatalf("两个字段都被关闭时不应有任何需求：%+v", p.Need)
	}

	// 没有任何简介来源。
	p = PlanItem(target, domain.AuthorPage{}, "", Options{})
	if p.Need.Description {
		t.Fatalf("没有简介来源时不应需要简介")
	}
	if !p.Need.Photo {
		t.Fatalf("照片需求交给执行层的兜底链判断")
	}
}
