package describe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/absauthor/internal/domain"
)

func TestClean_Rules(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a\n\n\n\nb", "a\n\nb"},
		{"a  \t \nb", "a\nb"},
		{"a  b", "a b"},
		{"  x   y  ", "x y"},
		{"первый абзац \n\n\n\n второй", "первый абзац\n\n второй"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Clean(c.in); got != c.want {
			t.Fatalf("Clean(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"a\n\n\n\nb",
		"   Борис\t\tАкунин \n\n\n\t\n родился в 1956 году.  ",
		"x \n \n \n y",
		"\t\t",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Fatalf("Clean 不幂等：%q -> %q -> %q", in, once, twice)
		}
	}
}

func TestStripReadMore(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Писатель и переводчик. Читать полностью", "Писатель и переводчик."},
		{"Писатель. читать далее…", "Писатель."},
		{"An author. Read more →", "An author."},
		{"Подробнее", ""},
		{"Читать полностью книгу нельзя", "Читать полностью книгу нельзя"},
		{"Писатель.\u00a0Читать\u00a0полностью", "Писатель."},
		{"An author. Read more\u00a0→\u00a0", "An author."},
	}
	for _, c := range cases {
		if got := StripReadMore(c.in); got != c.want {
			t.Fatalf("StripReadMore(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestInnerText_BlocksAndBreaks(t *testing.T) {
	const page = `<div id="x">
  <p>Первый   абзац.</p>
  <p>Второй<br>  строка</p>
  <script>var a = 1;</script>
  <ul><li>один</li><li>два</li></ul>
</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("解析 HTML 失败：%v", err)
	}
	got := Clean(InnerText(doc.Find("#x")))
	want := "Первый абзац.\n\nВторой\nстрока\n\nодин\nдва"
	if got != want {
		t.Fatalf("InnerText 不符合预期：\n got=%q\nwant=%q", got, want)
	}
}

func TestMarkupText_RemovesSelector(t *testing.T) {
	got := Clean(MarkupText(`<div>Короткое описание. <a href="/author/x/about/">Читать полностью</a></div>`, `a[href*="/about/"]`))
	if got != "Короткое описание." {
		t.Fatalf("期望移除链接，实际 %q", got)
	}
	if MarkupText("   ", "") != "" {
		t.Fatalf("空 markup 应返回空串")
	}
}

func fetcherFrom(pages map[string]string) (FullFetcher, *[]string) {
	var calls []string
	return func(ctx context.Context, u string) (string, error) {
		calls = append(calls, u)
		text, ok := pages[u]
		if !ok {
			return "", errors.New("HTTP 404")
		}
		return text, nil
	}, &calls
}

func TestAggregate_ThresholdBoundary(t *testing.T) {
	full39 := strings.Repeat("я", 39)
	full40 := strings.Repeat("я", 40)

	fetch, _ := fetcherFrom(map[string]string{"https://a/39": full39, "https://a/40": full40})
	short := func() string { return "короткое" }

	r := Aggregate(context.Background(), fetch, []string{"https://a/39"}, short)
	if r.Source != domain.DescriptionShort || r.Text != "короткое" {
		t.Fatalf("39 个字符应被拒绝并回退 short，实际 %+v", r)
	}

	r = Aggregate(context.Background(), fetch, []string{"https://a/40"}, short)
	if r.Source != domain.DescriptionFull || r.Text != full40 || r.URL != "https://a/40" {
		t.Fatalf("40 个字符应被接受，实际 %+v", r)
	}
}

func TestAggregate_TriesLocationsInOrder(t *testing.T) {
	long := "Борис Акунин — псевдоним Григория Чхартишвили, писателя и переводчика."
	fetch, calls := fetcherFrom(map[string]string{"https://a/fallback": long})

	r := Aggregate(context.Background(), fetch, []string{"https://a/direct", "", "https://a/direct", "https://a/fallback"}, nil)
	if r.Source != domain.DescriptionFull || r.URL != "https://a/fallback" {
		t.Fatalf("期望命中 fallback 详情页，实际 %+v", r)
	}
	if len(*calls) != 2 {
		t.Fatalf("期望去重后请求 2 次，实际 %v", *calls)
	}
	if len(r.Attempts) != 2 || r.Attempts[0].Err == nil {
		t.Fatalf("attempts 不符合预期：%+v", r.Attempts)
	}
}

func TestAggregate_StopsAtFirstAccepted(t *testing.T) {
	long := strings.Repeat("текст ", 10)
	fetch, calls := fetcherFrom(map[string]string{"https://a/1": long, "https://a/2": long + "другой"})

	r := Aggregate(context.Background(), fetch, []string{"https://a/1", "https://a/2"}, nil)
	if r.URL != "https://a/1" || len(*calls) != 1 {
		t.Fatalf("第一份达标正文后应停止，实际 url=%q calls=%v", r.URL, *calls)
	}
}

func TestAggregate_ShortStripsReadMoreAndCleans(t *testing.T) {
	r := Aggregate(context.Background(), nil, nil, func() string {
		return "  Писатель и   переводчик.\n\n\n\nЧитать полностью "
	})
	if r.Source != domain.DescriptionShort || r.Text != "Писатель и переводчик." {
		t.Fatalf("short 清洗不符合预期：%+v", r)
	}
}

func TestAggregate_NothingUsable(t *testing.T) {
	fetch, _ := fetcherFrom(nil)
	r := Aggregate(context.Background(), fetch, []string{"https://a/x"}, func() string { return " \n " })
	if r.Text != "" || r.Source != domain.DescriptionNone {
		t.Fatalf("期望无可用简介，实际 %+v", r)
	}
}
