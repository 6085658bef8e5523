package justwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/lbwatch/internal/domain"
	"github.com/John-Robertt/lbwatch/internal/infra/httpx"
)

const (
	// imageHost 是海报相对路径的固定前缀。
	imageHost = "https://images.justwatch.com"
	// posterProfile 是海报 URL 中 {profile} 占位符的固定分辨率。
	posterProfile = "s592"

	// maxCandidates 是每次搜索请求的候选数上限。
	maxCandidates = 3
)

// searchQuery 是 GraphQL 搜索的查询体（popularTitles：按热度排序的标题搜索）。
const searchQuery = `
query GetSearchTitles($searchTitlesFilter: TitleFilter!, $country: Country!, $language: Language!) {
    popularTitles(filter: $searchTitlesFilter, country: $country, first: 3) {
        edges {
            node {
                content(country: $country, language: $language) {
                    title
                    originalReleaseYear
                    posterUrl
                }
                offers(country: $country, platform: WEB) {
                    monetizationType
                    standardWebURL
                    package { clearName }
                }
            }
        }
    }
}
`

// Client 查询 JustWatch 的结构化搜索端点，并从候选中选出最佳匹配。
//
// 约束（硬约束）：Resolve 绝不向上抛错——超时/非 2xx/畸形响应/无匹配候选，
// 一律收敛为 domain.Degraded(film)（空 offers、无海报）。
type Client struct {
	// BaseURL 允许测试指向 httptest server；为空时使用默认端点。
	BaseURL string

	HTTP *http.Client
}

func (c Client) endpoint() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return "https://apis.justwatch.com/graphql"
	}
	return u
}

// Resolve 把一个 Film 补全为 EnrichedFilm。
//
// 步骤：
// 1. 归一化片名（去掉末尾 " (YYYY)"）作为查询词
// 2. 发一次搜索请求（至多 3 个候选，含 offer 列表）
// 3. 按返回顺序取第一个标题可接受的候选（双向子串匹配，见 acceptTitle）
// 4. 只收 FLATRATE offer，按 service 名 first-seen-wins 去重
// 5. 海报相对路径拼固定 image host 并替换分辨率占位符
func (c Client) Resolve(ctx context.Context, film domain.Film) domain.EnrichedFilm {
	query := domain.CleanName(film.Name)

	resp, err := c.search(ctx, query)
	if err != nil {
		return domain.Degraded(film)
	}

	node, ok := pickCandidate(resp, query)
	if !ok {
		return domain.Degraded(film)
	}

	out := domain.EnrichedFilm{Film: film, Offers: collectOffers(node.Offers)}
	if p := strings.TrimSpace(node.Content.PosterURL); p != "" {
		out.PosterURL = strings.ReplaceAll(imageHost+p, "{profile}", posterProfile)
	}
	return out
}

type searchResponse struct {
	Data struct {
		PopularTitles struct {
			Edges []struct {
				Node node `json:"node"`
			} `json:"edges"`
		} `json:"popularTitles"`
	} `json:"data"`
}

type node struct {
	Content struct {
		Title               string `json:"title"`
		OriginalReleaseYear int    `json:"originalReleaseYear"`
		PosterURL           string `json:"posterUrl"`
	} `json:"content"`
	Offers []offer `json:"offers"`
}

type offer struct {
	MonetizationType string `json:"monetizationType"`
	StandardWebURL   string `json:"standardWebURL"`
	Package          struct {
		ClearName string `json:"clearName"`
	} `json:"package"`
}

func (c Client) search(ctx context.Context, query string) (*searchResponse, error) {
	body, err := json.Marshal(map[string]any{
		"query": searchQuery,
		"variables": map[string]any{
			"searchTitlesFilter": map[string]any{
				"searchQuery": query,
				"objectTypes": []string{"MOVIE"},
			},
			"country":  "US",
			"language": "en",
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpx.HTTPStatusError{URL: c.endpoint(), StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var sr searchResponse
	if err := json.Unmarshal(b, &sr); err != nil {
		return nil, err
	}
	return &sr, nil
}

// pickCandidate 按返回顺序取第一个标题可接受的候选；没有则 ok=false。
func pickCandidate(resp *searchResponse, query string) (node, bool) {
	edges := resp.Data.PopularTitles.Edges
	if len(edges) > maxCandidates {
		edges = edges[:maxCandidates]
	}
	for _, e := range edges {
		if acceptTitle(e.Node.Content.Title, query) {
			return e.Node, true
		}
	}
	return node{}, false
}

// acceptTitle 判断候选标题与查询词是否匹配：小写后相等、包含或被包含。
// 双向子串是刻意宽松的（源标题常带副标题或不同标点）；
// 已知代价是短名字可能误配（例如 "Max" 与 "IMAX"），按现状保留。
func acceptTitle(title, query string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	q := strings.ToLower(query)
	if t == "" {
		return false
	}
	return t == q || strings.Contains(t, q) || strings.Contains(q, t)
}

// collectOffers 只收订阅内含（FLATRATE）的 offer；
// 同名 service 以第一次出现的 URL 为准，后续重复忽略。
func collectOffers(offers []offer) domain.OfferMap {
	out := domain.OfferMap{}
	for _, o := range offers {
		if o.MonetizationType != "FLATRATE" {
			continue
		}
		svc := strings.TrimSpace(o.Package.ClearName)
		if svc == "" {
			continue
		}
		if _, ok := out[svc]; ok {
			continue
		}
		out[svc] = o.StandardWebURL
	}
	return out
}
