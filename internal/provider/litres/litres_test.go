package litres

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/John-Robertt/absauthor/internal/describe"
	"github.com/John-Robertt/absauthor/internal/domain"
	providerx "github.com/John-Robertt/absauthor/internal/provider"
)

const authorPage = `<!doctype html>
<html><head>
<meta property="og:title" content="Борис Акунин — все книги автора, читать онлайн">
</head><body>
<div data-testid="author__avatarPerson"><img src="https://cdn.litres.ru/pub/authors/123.jpg"></div>
<h1 itemprop="name">  Борис
  Акунин </h1>
<div data-testid="author__personDescription">
  <p>Российский писатель, учёный-японист.</p>
  <a href="/author/boris-akunin/about/">Читать полностью</a>
</div>
</body></html>`

const aboutPage = `<html><body>
<div data-analytics-scroll-block="about_author">
  <p>Борис Акунин (Григорий Чхартишвили) родился в 1956 году в Грузии.</p>
  <p>Автор серии романов об Эрасте Фандорине.</p>
</div>
</body></html>`

func TestParse_AuthorPage(t *testing.T) {
	target := domain.Target{Slug: "boris-akunin"}
	page, err := Provider{}.Parse(target, []byte(authorPage), "https://www.litres.ru/author/boris-akunin/")
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}

	// h1 与 og:title 相同，去重后剩 h1 + slug 推断。
	want := []string{"Борис Акунин", "Boris Akunin"}
	if strings.Join(page.Names, "|") != strings.Join(want, "|") {
		t.Fatalf("Names=%v，期望 %v", page.Names, want)
	}
	if page.PhotoURL != "https://cdn.litres.ru/pub/authors/123.jpg" {
		t.Fatalf("PhotoURL=%q", page.PhotoURL)
	}
	if page.AboutURL != "https://www.litres.ru/author/boris-akunin/about/" {
		t.Fatalf("AboutURL=%q", page.AboutURL)
	}
	if got := describe.Clean(page.ShortDescription); got != "Российский писатель, учёный-японист." {
		t.Fatalf("ShortDescription=%q", got)
	}
}

func TestParse_Fallbacks(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Дина Рубина — книги"></head><body>
<h1>Рубина Дина</h1>
<img class="x" src="//cdn.litres.ru/pub/authors/9.jpg">
</body></html>`
	page, err := Provider{}.Parse(domain.Target{Slug: "dina-rubina"}, []byte(html), "https://www.litres.ru/author/dina-rubina/")
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	want := []string{"Рубина Дина", "Дина Рубина", "Dina Rubina"}
	if strings.Join(page.Names, "|") != strings.Join(want, "|") {
		t.Fatalf("Names=%v，期望 %v", page.Names, want)
	}
	if page.PhotoURL != "https://cdn.litres.ru/pub/authors/9.jpg" {
		t.Fatalf("PhotoURL=%q", page.PhotoURL)
	}
	if page.AboutURL != "" || page.ShortDescription != "" {
		t.Fatalf("没有简介块时应为空，实际 %+v", page)
	}
}

func TestParse_NotAuthorPage(t *testing.T) {
	_, err := Provider{}.Parse(domain.Target{Slug: "x"}, []byte(`<html><body><p>404</p></body></html>`), "https://www.litres.ru/author/x/")
	if err == nil {
		t.Fatalf("期望解析错误")
	}
}

func TestFetch_AndFullText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/author/boris-akunin/":
			_, _ = w.Write([]byte(authorPage))
		case "/author/boris-akunin/about/":
			_, _ = w.Write([]byte(aboutPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := Provider{BaseURL: srv.URL + "/"}
	body, pageURL, err := p.Fetch(context.Background(), domain.Target{Slug: "boris-akunin"}, srv.Client())
	if err != nil {
		t.Fatalf("Fetch() err=%v", err)
	}
	if pageURL != srv.URL+"/author/boris-akunin/" || len(body) == 0 {
		t.Fatalf("Fetch 返回不符合预期：url=%q len=%d", pageURL, len(body))
	}

	text, raw, err := FullText(context.Background(), srv.Client(), p.AboutURL("boris-akunin"))
	if err != nil {
		t.Fatalf("FullText() err=%v", err)
	}
	if string(raw) != aboutPage {
		t.Fatalf("FullText 应返回原始页面以便缓存")
	}
	want := "Борис Акунин (Григорий Чхартишвили) родился в 1956 году в Грузии.\n\nАвтор серии романов об Эрасте Фандорине."
	if got := describe.Clean(text); got != want {
		t.Fatalf("FullText=%q，期望 %q", got, want)
	}

	_, _, err = p.Fetch(context.Background(), domain.Target{Slug: "nobody"}, srv.Client())
	var hs *providerx.HTTPStatusError
	if !errors.As(err, &hs) || !hs.NotFound() {
		t.Fatalf("期望 404，实际 %v", err)
	}
}

func TestParseAbout_MissingBlock(t *testing.T) {
	if _, err := ParseAbout([]byte(`<html><body>пусто</body></html>`)); err == nil {
		t.Fatalf("期望错误")
	}
}
