package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConfigFileName 是目标目录下的配置文件名。
	ConfigFileName = "lbwatch.json"

	// DefaultConcurrency 是 resolve 阶段 worker 池宽度的内置默认值。
	DefaultConcurrency = 10
)

// Default 返回内置默认配置（配置文件缺失/损坏时整体回退到这里）。
func Default() FileConfig {
	return FileConfig{
		Username: "mrbeeef",
		Services: []string{"Netflix", "Amazon Prime Video", "Hulu", "Max"},
		Name:     "friend",
	}
}

// FileConfig 对应 lbwatch.json 的解析结构。
type FileConfig struct {
	Username    string       `json:"username"`
	Services    []string     `json:"services"`
	Name        string       `json:"name"`
	Concurrency int          `json:"concurrency"`
	Proxy       *ProxyConfig `json:"proxy"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Path 是工作目录：配置、缓存与 HTML 产物都在它下面。
	Path string

	Username string
	Services []string
	Name     string

	Concurrency int
	ProxyURL    string
}

// LoadEffective 读取 <path>/lbwatch.json 并与内置默认值合并。
//
// 约定（fail-soft，硬约束）：配置文件缺失、无法读取、JSON 损坏，
// 都整体回退到内置默认值，绝不报错——坏配置不允许阻断一次检查。
// 字段级缺失同样逐项回退（空 username/services/name 用默认值补齐）。
func LoadEffective(path string) EffectiveConfig {
	abs, err := filepath.Abs(filepath.Clean(strings.TrimSpace(path)))
	if err != nil {
		abs = filepath.Clean(path)
	}

	fc := readFileConfig(filepath.Join(abs, ConfigFileName))
	def := Default()

	username := strings.TrimSpace(fc.Username)
	if username == "" {
		username = def.Username
	}

	services := normServices(fc.Services)
	if len(services) == 0 {
		services = append([]string(nil), def.Services...)
	}

	name := strings.TrimSpace(fc.Name)
	if name == "" {
		name = def.Name
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围约定 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		// 无效 proxy 与缺失同样处理：忽略，直连。
		if u, err := url.Parse(proxyURL); err != nil || u.Scheme == "" || u.Host == "" {
			proxyURL = ""
		}
	}

	return EffectiveConfig{
		Path:        abs,
		Username:    username,
		Services:    services,
		Name:        name,
		Concurrency: concurrency,
		ProxyURL:    proxyURL,
	}
}

// normServices 去掉空项并裁剪空白，保持配置里的顺序（顺序即匹配优先级）。
func normServices(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// readFileConfig 读取并解析 JSON 配置文件；任何失败都返回零值（由上层回退默认）。
func readFileConfig(path string) FileConfig {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}
	}
	var fc FileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}
	}
	return fc
}
