package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/lbwatch/internal/config"
	"github.com/John-Robertt/lbwatch/internal/domain"
)

// FileName 是 HTML 产物在工作目录下的文件名。
const FileName = "watchlist.html"

// Encode 把聚合结果渲染为完整的 HTML 页面字节。
//
// 约束：
// - 纯函数：相同 (result, eff) => 相同输出
// - 输入形状就是 ClassificationResult；渲染层不回查任何外部服务
// - section 按 eff.Services 的配置顺序排列，空 section 跳过
// - 展示用片名一律去掉 " (YYYY)" 年份后缀
func Encode(result domain.ClassificationResult, eff config.EffectiveConfig) ([]byte, error) {
	data := buildPage(result, eff)

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type page struct {
	OwnerName string
	Username  string
	Available int
	Total     int

	Sections    []section
	Unavailable []card
}

type section struct {
	Service  string // 展示名
	CSSClass string
	Letter   string
	Cards    []card
}

type card struct {
	Title     string
	URL       string
	PosterURL string
	Note      string
}

func buildPage(result domain.ClassificationResult, eff config.EffectiveConfig) page {
	p := page{
		OwnerName: eff.Name,
		Username:  eff.Username,
		Available: len(result.Available),
		Total:     len(result.Available) + len(result.Unavailable),
	}

	// 按配置顺序分桶；匹配时记录的就是用户配置里的名字，这里直接等值分组。
	byService := make(map[string][]card, len(eff.Services))
	for _, f := range result.Available {
		u := f.StreamURL
		if strings.TrimSpace(u) == "" {
			u = filmPageURL(f.Slug)
		}
		byService[f.Service] = append(byService[f.Service], card{
			Title:     domain.CleanName(f.Name),
			URL:       u,
			PosterURL: f.PosterURL,
			Note:      "Watch on " + displayName(f.Service),
		})
	}

	for _, svc := range eff.Services {
		cards := byService[svc]
		if len(cards) == 0 {
			continue
		}
		p.Sections = append(p.Sections, section{
			Service:  displayName(svc),
			CSSClass: cssClass(svc),
			Letter:   serviceLetter(svc),
			Cards:    cards,
		})
	}

	for _, f := range result.Unavailable {
		note := "Not streaming"
		if len(f.OtherServices) > 0 {
			note = strings.Join(f.OtherServices, ", ")
		}
		p.Unavailable = append(p.Unavailable, card{
			Title:     domain.CleanName(f.Name),
			URL:       filmPageURL(f.Slug),
			PosterURL: f.PosterURL,
			Note:      note,
		})
	}
	return p
}

// filmPageURL 由 slug 拼出影片详情页的规范 URL（slug 即身份键）。
func filmPageURL(slug string) string {
	return fmt.Sprintf("https://letterboxd.com/film/%s/", slug)
}

// displayName 做展示层的小修饰；不影响匹配语义。
func displayName(service string) string {
	if service == "Amazon Prime Video" {
		return "Prime Video"
	}
	return service
}

func cssClass(service string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(service) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "svc"
	}
	return b.String()
}

func serviceLetter(service string) string {
	s := strings.TrimSpace(service)
	if s == "" {
		return "?"
	}
	// 首字符按 rune 取，service 名不保证是 ASCII。
	r, _ := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r))
}

var pageTmpl = template.Must(template.New("watchlist").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.OwnerName}}'s watchlist</title>
    <style>
        :root {
            --bg-dark: #14181c;
            --bg-darker: #0d1114;
            --bg-card: #242c34;
            --bg-hover: #2c3440;
            --border: #303840;
            --text: #9ab;
            --text-bright: #fff;
            --green: #00e054;
            --orange: #ff8000;
            --blue: #40bcf4;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, sans-serif;
            background: var(--bg-darker);
            color: var(--text);
            min-height: 100vh;
            font-size: 14px;
            line-height: 1.5;
        }
        a { color: inherit; text-decoration: none; }
        .header {
            background: var(--bg-dark);
            border-bottom: 1px solid var(--border);
            padding: 0 40px;
            position: sticky;
            top: 0;
            z-index: 100;
        }
        .header-inner {
            max-width: 1200px;
            margin: 0 auto;
            height: 56px;
            display: flex;
            align-items: center;
            justify-content: space-between;
        }
        .logo {
            display: flex;
            align-items: center;
            gap: 8px;
            color: var(--text-bright);
            font-weight: 600;
            font-size: 15px;
        }
        .logo-dots { display: flex; gap: 2px; }
        .logo-dot { width: 8px; height: 8px; border-radius: 50%; }
        .logo-dot:nth-child(1) { background: var(--orange); }
        .logo-dot:nth-child(2) { background: var(--green); }
        .logo-dot:nth-child(3) { background: var(--blue); }
        .nav { display: flex; gap: 24px; font-size: 13px; text-transform: uppercase; letter-spacing: 0.1em; }
        .nav a { color: var(--text); transition: color 0.15s; }
        .nav a:hover { color: var(--text-bright); }
        .hero {
            background: linear-gradient(to bottom, var(--bg-dark), var(--bg-darker));
            padding: 50px 40px 60px;
            text-align: center;
            border-bottom: 1px solid var(--border);
        }
        .hero h1 { color: var(--text-bright); font-size: 28px; font-weight: 600; margin-bottom: 8px; }
        .hero h1 span { color: var(--green); }
        .hero-sub { color: var(--text); font-size: 15px; }
        .hero-stats { display: flex; justify-content: center; gap: 40px; margin-top: 30px; }
        .stat { text-align: center; }
        .stat-num { font-size: 32px; font-weight: 600; color: var(--text-bright); line-height: 1; }
        .stat-label { font-size: 11px; text-transform: uppercase; letter-spacing: 0.15em; margin-top: 6px; }
        .main { max-width: 1200px; margin: 0 auto; padding: 40px; }
        .section { margin-bottom: 50px; }
        .section-header {
            display: flex;
            align-items: center;
            gap: 12px;
            margin-bottom: 20px;
            padding-bottom: 12px;
            border-bottom: 1px solid var(--border);
        }
        .service-icon {
            width: 28px;
            height: 28px;
            border-radius: 4px;
            display: flex;
            align-items: center;
            justify-content: center;
            font-weight: 600;
            font-size: 12px;
            color: #fff;
        }
        .service-icon.netflix { background: #e50914; }
        .service-icon.max { background: #002be7; }
        .service-icon.amazonprimevideo { background: #00a8e1; }
        .service-icon.hulu { background: #1ce783; color: #000; }
        .service-icon.none { background: var(--bg-card); color: var(--text); }
        .section-title { font-size: 16px; font-weight: 500; color: var(--text-bright); flex: 1; }
        .section-count { font-size: 12px; background: var(--bg-card); padding: 3px 10px; border-radius: 10px; }
        .posters { display: grid; grid-template-columns: repeat(auto-fill, minmax(150px, 1fr)); gap: 8px; }
        .poster-card {
            position: relative;
            border-radius: 4px;
            overflow: hidden;
            background: var(--bg-card);
            transition: transform 0.15s ease, box-shadow 0.15s ease;
            cursor: pointer;
        }
        .poster-card:hover { transform: translateY(-4px); box-shadow: 0 8px 24px rgba(0,0,0,0.4); }
        .poster-img { width: 100%; aspect-ratio: 2/3; object-fit: cover; display: block; }
        .poster-placeholder {
            width: 100%;
            aspect-ratio: 2/3;
            background: linear-gradient(135deg, var(--bg-card), var(--bg-hover));
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 16px;
            text-align: center;
            font-size: 12px;
        }
        .poster-overlay {
            position: absolute;
            inset: 0;
            background: linear-gradient(to top, rgba(0,0,0,0.8) 0%, transparent 60%);
            opacity: 0;
            transition: opacity 0.2s;
            display: flex;
            flex-direction: column;
            justify-content: flex-end;
            padding: 12px;
        }
        .poster-card:hover .poster-overlay { opacity: 1; }
        .poster-title { font-size: 13px; font-weight: 500; color: #fff; line-height: 1.3; }
        .poster-service { font-size: 10px; text-transform: uppercase; letter-spacing: 0.1em; margin-top: 4px; color: var(--green); }
        .unavailable .poster-card { opacity: 0.5; }
        .unavailable .poster-card:hover { opacity: 0.8; }
        .unavailable .poster-service { color: var(--text); }
        .footer {
            text-align: center;
            padding: 40px;
            font-size: 12px;
            border-top: 1px solid var(--border);
            margin-top: 40px;
        }
        .footer a { color: var(--green); }
    </style>
</head>
<body>
    <header class="header">
        <div class="header-inner">
            <div class="logo">
                <div class="logo-dots">
                    <div class="logo-dot"></div>
                    <div class="logo-dot"></div>
                    <div class="logo-dot"></div>
                </div>
                {{.OwnerName}}'s watchlist
            </div>
            <nav class="nav">
                <a href="https://letterboxd.com/{{.Username}}/watchlist/" target="_blank">Full List</a>
                <a href="https://letterboxd.com/{{.Username}}/" target="_blank">Profile</a>
            </nav>
        </div>
    </header>

    <div class="hero">
        <h1>What's streaming <span>tonight</span>?</h1>
        <p class="hero-sub">Your Letterboxd watchlist, filtered by your services</p>
        <div class="hero-stats">
            <div class="stat">
                <div class="stat-num">{{.Available}}</div>
                <div class="stat-label">Ready to watch</div>
            </div>
            <div class="stat">
                <div class="stat-num">{{.Total}}</div>
                <div class="stat-label">In watchlist</div>
            </div>
        </div>
    </div>

    <main class="main">
{{- range .Sections}}
        <section class="section">
            <div class="section-header">
                <div class="service-icon {{.CSSClass}}">{{.Letter}}</div>
                <span class="section-title">{{.Service}}</span>
                <span class="section-count">{{len .Cards}} film{{if ne (len .Cards) 1}}s{{end}}</span>
            </div>
            <div class="posters">
{{- range .Cards}}
                <a href="{{.URL}}" target="_blank" class="poster-card">
                    {{if .PosterURL}}<img class="poster-img" src="{{.PosterURL}}" alt="{{.Title}}" loading="lazy">{{else}}<div class="poster-placeholder">{{.Title}}</div>{{end}}
                    <div class="poster-overlay">
                        <div class="poster-title">{{.Title}}</div>
                        <div class="poster-service">{{.Note}}</div>
                    </div>
                </a>
{{- end}}
            </div>
        </section>
{{- end}}
{{- if .Unavailable}}
        <section class="section unavailable">
            <div class="section-header">
                <div class="service-icon none">&mdash;</div>
                <span class="section-title">Not on your services</span>
                <span class="section-count">{{len .Unavailable}} films</span>
            </div>
            <div class="posters">
{{- range .Unavailable}}
                <a href="{{.URL}}" target="_blank" class="poster-card">
                    {{if .PosterURL}}<img class="poster-img" src="{{.PosterURL}}" alt="{{.Title}}" loading="lazy">{{else}}<div class="poster-placeholder">{{.Title}}</div>{{end}}
                    <div class="poster-overlay">
                        <div class="poster-title">{{.Title}}</div>
                        <div class="poster-service">{{.Note}}</div>
                    </div>
                </a>
{{- end}}
            </div>
        </section>
{{- end}}
    </main>

    <footer class="footer">
        Data from <a href="https://www.justwatch.com/" target="_blank">JustWatch</a>
    </footer>
</body>
</html>
`))
