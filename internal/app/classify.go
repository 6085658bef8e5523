package app

import (
	"sort"
	"strings"

	"github.com/John-Robertt/lbwatch/internal/domain"
)

// maxOtherServices 是 unavailable 条目上“它在别处有”提示的上限。
const maxOtherServices = 2

// Classify 把补全后的影片按用户 service 分成 available / unavailable。
//
// 匹配规则（硬约束）：
//   - 外层按 userServices 的配置顺序遍历——顺序即 tie-break：
//     先配置的 service 命中即胜出，哪怕后配置的也能匹配
//   - 内层扫描该影片的 offer 名，名字与用户 service 小写后互为子串即算命中
//   - 首个命中同时终止两层循环；命中记录用户配置里的名字 + offer 的 URL
//
// 未命中：unavailable，并取前至多 2 个 offer 名作提示。
// 零 offer 的影片恒为 unavailable，提示为空列表。
//
// 不变式：每个输入影片恰好落入两个列表之一；相同输入 => 字节级相同输出。
// offer map 本身无序，这里统一按 key 字典序扫描，保证幂等
// （调用方不得依赖提示列表的具体排序语义，只能依赖其确定性）。
func Classify(enriched []domain.EnrichedFilm, userServices []string) domain.ClassificationResult {
	out := domain.ClassificationResult{
		Available:   make([]domain.AvailableFilm, 0, len(enriched)),
		Unavailable: make([]domain.UnavailableFilm, 0, len(enriched)),
	}

	for _, ef := range enriched {
		offerNames := sortedOfferNames(ef.Offers)

		if svc, streamURL, ok := matchService(ef.Offers, offerNames, userServices); ok {
			out.Available = append(out.Available, domain.AvailableFilm{
				Name:      ef.Name,
				Slug:      ef.Slug,
				Service:   svc,
				StreamURL: streamURL,
				PosterURL: ef.PosterURL,
			})
			continue
		}

		other := offerNames
		if len(other) > maxOtherServices {
			other = other[:maxOtherServices]
		}
		out.Unavailable = append(out.Unavailable, domain.UnavailableFilm{
			Name:          ef.Name,
			Slug:          ef.Slug,
			OtherServices: other,
			PosterURL:     ef.PosterURL,
		})
	}
	return out
}

func sortedOfferNames(offers domain.OfferMap) []string {
	names := make([]string, 0, len(offers))
	for name := range offers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchService(offers domain.OfferMap, offerNames, userServices []string) (service, streamURL string, ok bool) {
	for _, userSvc := range userServices {
		for _, offerSvc := range offerNames {
			if serviceNameMatch(userSvc, offerSvc) {
				return userSvc, offers[offerSvc], true
			}
		}
	}
	return "", "", false
}

// serviceNameMatch 判断用户 service 名与 offer 名是否匹配：小写后互为子串。
// 与 resolver 的标题匹配同样刻意宽松（"Prime" 能配 "Amazon Prime Video"，反之亦然）。
func serviceNameMatch(userSvc, offerSvc string) bool {
	a := strings.ToLower(strings.TrimSpace(userSvc))
	b := strings.ToLower(strings.TrimSpace(offerSvc))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
