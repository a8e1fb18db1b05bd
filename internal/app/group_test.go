package app

import (
	"testing"
)

func TestGroupTargets_DedupeBySlug(t *testing.T) {
	inputs := []string{
		"https://www.litres.ru/author/stiven-king/",
		"boris-akunin",
		"https://www.litres.ru/author/stiven-king/about/",
	}

	targets, unmatched, err := GroupTargets(inputs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(unmatched) != 0 {
		t.Fatalf("不期望 unmatched：%v", unmatched)
	}
	if len(targets) != 2 {
		t.Fatalf("期望 2 个 target，实际 %d", len(targets))
	}
	// 按 slug 排序：boris-akunin 在 stiven-king 之前。
	if targets[0].Slug != "boris-akunin" || targets[1].Slug != "stiven-king" {
		t.Fatalf("排序不符合预期：%v", targets)
	}
	// 重复 slug 保留第一次出现的原始输入。
	if targets[1].Input != inputs[0] {
		t.Fatalf("期望保留首个输入，实际 %q", targets[1].Input)
	}
	if targets[0].Name != "Boris Akunin" {
		t.Fatalf("期望由 slug 推断名字，实际 %q", targets[0].Name)
	}
}

func TestGroupTargets_Unmatched(t *testing.T) {
	inputs := []string{
		"https://example.com/author/x/",
		"https://www.litres.ru/genre/fantasy/",
		"nik-perumov",
	}

	targets, unmatched, err := GroupTargets(inputs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("期望 1 个 target，实际 %d", len(targets))
	}
	if len(unmatched) != 2 {
		t.Fatalf("期望 2 个 unmatched，实际 %d", len(unmatched))
	}
	if unmatched[0].Kind != "foreign_host" || unmatched[1].Kind != "no_match" {
		t.Fatalf("unmatched 分类不符合预期：%+v", unmatched)
	}
}
