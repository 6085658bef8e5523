package domain

import (
	"regexp"
	"strings"
)

// Film 是 watchlist 的一个条目（最小可用集）。
//
// 约束：
// - Slug 是身份键（稳定、URL 安全），Name 仅用于展示与搜索
// - Name 末尾可能带 " (YYYY)" 年份后缀；比较/渲染前必须用 CleanName 归一化
type Film struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// OfferMap 是 service 显示名 -> 播放 URL 的映射。
// key 区分大小写（保持外部服务返回的原样）；同名 service 以第一次出现为准。
type OfferMap map[string]string

// EnrichedFilm 是一次 resolve 的结果：原始 Film + FLATRATE offer 映射 + 可选海报。
// 产出后不再修改。
type EnrichedFilm struct {
	Film
	Offers    OfferMap
	PosterURL string
}

// Degraded 是 resolver 的降级结果构造器：offers 为空、无海报。
// resolver 的任何内部失败（超时/非 2xx/畸形响应/无匹配候选）都必须收敛到这里，
// 让“绝不向上抛错”的契约在类型上可见。
func Degraded(f Film) EnrichedFilm {
	return EnrichedFilm{Film: f, Offers: OfferMap{}}
}

// AvailableFilm 表示命中用户已订阅 service 的影片。
// Service 是用户配置里的名字（不是外部服务返回的显示名）。
type AvailableFilm struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Service   string `json:"service"`
	StreamURL string `json:"stream_url"`
	PosterURL string `json:"poster_url,omitempty"`
}

// UnavailableFilm 表示未命中任何用户 service 的影片。
// OtherServices 至多 2 个，作为“它在别处有”的提示；
// 内容确定（相同输入恒同），但调用方不得赋予其排序语义。
type UnavailableFilm struct {
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	OtherServices []string `json:"other_services"`
	PosterURL     string   `json:"poster_url,omitempty"`
}

// ClassificationResult 是持久化与渲染共用的聚合结果。
// 不变式：每个输入 Film 恰好出现在 Available/Unavailable 之一。
type ClassificationResult struct {
	Available   []AvailableFilm   `json:"available"`
	Unavailable []UnavailableFilm `json:"unavailable"`
}

var yearSuffixRE = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

// CleanName 去掉末尾的 " (YYYY)" 年份后缀并裁剪空白。
func CleanName(name string) string {
	return strings.TrimSpace(yearSuffixRE.ReplaceAllString(name, ""))
}
