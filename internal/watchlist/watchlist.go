package watchlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/lbwatch/internal/domain"
	"github.com/John-Robertt/lbwatch/internal/infra/httpx"
)

// Client 抓取 Letterboxd watchlist 的分页列表。
//
// 约束：
// - 逐页请求（1, 2, 3, …），遇到非 2xx、传输错误或空页即停止
// - 失败不向上抛：返回已累积的条目（部分列表好过无限等待）
// - ParsePage 必须是纯函数：相同输入 => 相同输出
type Client struct {
	// BaseURL 允许测试指向 httptest server；为空时使用默认的 https://letterboxd.com。
	BaseURL string

	HTTP *http.Client
}

func (c Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return "https://letterboxd.com"
	}
	return strings.TrimRight(u, "/")
}

// PageURL 返回第 page 页的抓取地址。
func (c Client) PageURL(username string, page int) string {
	return fmt.Sprintf("%s/%s/watchlist/page/%d/", c.baseURL(), url.PathEscape(username), page)
}

// Fetch 抓取 username 的完整 watchlist（按页序、页内按出现序）。
//
// 终止条件（任一满足即停，返回已累积结果，不返回错误）：
// - 某页响应非 2xx（翻过尾页通常是 404）
// - 传输错误或超时（fail-soft：部分列表可用）
// - 某页解析不出任何条目
func (c Client) Fetch(ctx context.Context, username string) []domain.Film {
	films := make([]domain.Film, 0, 64)

	for page := 1; ; page++ {
		body, err := c.fetchPage(ctx, username, page)
		if err != nil {
			break
		}
		entries := ParsePage(body)
		if len(entries) == 0 {
			break
		}
		films = append(films, entries...)
	}
	return films
}

func (c Client) fetchPage(ctx context.Context, username string, page int) ([]byte, error) {
	if c.HTTP == nil {
		return nil, errors.New("http client 不能为空")
	}
	u := c.PageURL(username, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpx.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(resp.Body)
}

// ParsePage 从一页 HTML 中提取条目。
//
// 结构标记：div[data-component-class='LazyPoster']，逐个读取
// data-item-name 与 data-item-slug；缺任一属性的条目静默跳过。
// HTML 整体畸形时按“零条目”处理（终止翻页，而不是报错）。
func ParsePage(html []byte) []domain.Film {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var films []domain.Film
	doc.Find("div[data-component-class='LazyPoster']").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.AttrOr("data-item-name", ""))
		slug := strings.TrimSpace(s.AttrOr("data-item-slug", ""))
		if name == "" || slug == "" {
			return
		}
		films = append(films, domain.Film{Name: name, Slug: slug})
	})
	return films
}
