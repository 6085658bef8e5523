package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/lbwatch/internal/config"
	"github.com/John-Robertt/lbwatch/internal/domain"
)

func testEff() config.EffectiveConfig {
	return config.EffectiveConfig{
		Username: "mrbeeef",
		Services: []string{"Netflix", "Hulu", "Max"},
		Name:     "friend",
	}
}

func renderDoc(t *testing.T, result domain.ClassificationResult) *goquery.Document {
	t.Helper()
	b, err := Encode(result, testEff())
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("产物不是合法 HTML：%v", err)
	}
	return doc
}

func TestEncode_SectionsFollowConfigOrder(t *testing.T) {
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{
			{Name: "A (2001)", Slug: "a", Service: "Hulu", StreamURL: "https://h/a"},
			{Name: "B (2002)", Slug: "b", Service: "Netflix", StreamURL: "https://n/b"},
			{Name: "C (2003)", Slug: "c", Service: "Netflix", StreamURL: "https://n/c"},
		},
		Unavailable: []domain.UnavailableFilm{},
	}
	doc := renderDoc(t, result)

	var titles []string
	doc.Find("section.section").Not(".unavailable").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, strings.TrimSpace(s.Find(".section-title").Text()))
	})
	// Netflix 配置在前，先出；Max 无条目，跳过。
	if len(titles) != 2 || titles[0] != "Netflix" || titles[1] != "Hulu" {
		t.Fatalf("section 顺序不符合配置：%v", titles)
	}

	counts := doc.Find("section.section").Not(".unavailable").First().Find(".poster-card").Length()
	if counts != 2 {
		t.Fatalf("Netflix section 期望 2 张卡片，实际 %d", counts)
	}
}

func TestEncode_TitleStripsYearAndHeroStats(t *testing.T) {
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{
			{Name: "Dune (2021)", Slug: "dune-2021", Service: "Netflix", StreamURL: "https://n/dune"},
		},
		Unavailable: []domain.UnavailableFilm{
			{Name: "Heat (1995)", Slug: "heat-1995", OtherServices: []string{}},
		},
	}
	doc := renderDoc(t, result)

	if got := doc.Find(".poster-title").First().Text(); got != "Dune" {
		t.Fatalf("展示片名应去掉年份：%q", got)
	}
	stats := doc.Find(".stat-num").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	if len(stats) != 2 || stats[0] != "1" || stats[1] != "2" {
		t.Fatalf("hero 统计不符合预期：%v", stats)
	}
}

func TestEncode_StreamURLFallbackToFilmPage(t *testing.T) {
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{
			{Name: "Dune", Slug: "dune-2021", Service: "Netflix", StreamURL: ""},
		},
		Unavailable: []domain.UnavailableFilm{},
	}
	doc := renderDoc(t, result)

	href, _ := doc.Find(".poster-card").First().Attr("href")
	if href != "https://letterboxd.com/film/dune-2021/" {
		t.Fatalf("空 stream_url 应回退影片详情页：%q", href)
	}
}

func TestEncode_PosterPlaceholderWhenMissing(t *testing.T) {
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{
			{Name: "With Poster", Slug: "wp", Service: "Netflix", StreamURL: "https://n/wp", PosterURL: "https://img/wp.jpg"},
			{Name: "No Poster", Slug: "np", Service: "Netflix", StreamURL: "https://n/np"},
		},
		Unavailable: []domain.UnavailableFilm{},
	}
	doc := renderDoc(t, result)

	if doc.Find("img.poster-img").Length() != 1 {
		t.Fatalf("有海报的卡片才用 <img>")
	}
	if got := doc.Find(".poster-placeholder").Text(); !strings.Contains(got, "No Poster") {
		t.Fatalf("无海报卡片应显示占位：%q", got)
	}
}

func TestEncode_UnavailableNotes(t *testing.T) {
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{},
		Unavailable: []domain.UnavailableFilm{
			{Name: "A", Slug: "a", OtherServices: []string{"Peacock", "Tubi"}},
			{Name: "B", Slug: "b", OtherServices: []string{}},
		},
	}
	doc := renderDoc(t, result)

	notes := doc.Find("section.unavailable .poster-service").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	if len(notes) != 2 || notes[0] != "Peacock, Tubi" || notes[1] != "Not streaming" {
		t.Fatalf("unavailable 备注不符合预期：%v", notes)
	}
}

func TestEncode_PrimeVideoDisplayName(t *testing.T) {
	eff := testEff()
	eff.Services = []string{"Amazon Prime Video"}
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{
			{Name: "A", Slug: "a", Service: "Amazon Prime Video", StreamURL: "https://p/a"},
		},
		Unavailable: []domain.UnavailableFilm{},
	}
	b, err := Encode(result, eff)
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("产物不是合法 HTML：%v", err)
	}

	if got := strings.TrimSpace(doc.Find(".section-title").First().Text()); got != "Prime Video" {
		t.Fatalf("展示名应为 Prime Video：%q", got)
	}
	// 图标 class 仍按原始配置名生成。
	if doc.Find(".service-icon.amazonprimevideo").Length() != 1 {
		t.Fatalf("service-icon class 不符合预期")
	}
}

func TestServiceLetter_MultibyteFirstRune(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Netflix", "N"},
		{"hulu", "H"},
		{" Érase TV", "É"},
		{"爱奇艺", "爱"},
		{"  ", "?"},
	}
	for _, c := range cases {
		if got := serviceLetter(c.in); got != c.want {
			t.Fatalf("serviceLetter(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	result := domain.ClassificationResult{
		Available: []domain.AvailableFilm{
			{Name: "A", Slug: "a", Service: "Netflix", StreamURL: "https://n/a"},
		},
		Unavailable: []domain.UnavailableFilm{
			{Name: "B", Slug: "b", OtherServices: []string{"Peacock"}},
		},
	}
	first, err := Encode(result, testEff())
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Encode(result, testEff())
		if err != nil {
			t.Fatalf("Encode 失败：%v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("相同输入必须渲染出字节级相同的页面")
		}
	}
}
