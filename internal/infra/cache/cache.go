package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/lbwatch/internal/domain"
	"github.com/John-Robertt/lbwatch/internal/infra/fsx"
)

// TTL 是缓存结果的有效期：超过即视为 miss。
const TTL = 6 * time.Hour

const fileName = "results.json"

// Store 提供 <path>/cache/results.json 的 TTL 结果缓存。
//
// 约束（fail-soft，硬约束）：
// - Load：文件缺失/不可读/JSON 损坏/时间戳无法解析/超过 TTL，一律按 miss 处理，绝不报错
// - Save：整体覆盖写入（原子）；调用方可以忽略写失败（缓存只影响性能，不影响正确性）
type Store struct {
	Root string // <path>（工作目录）

	// Now 允许测试注入时钟；为 nil 时使用 time.Now。
	Now func() time.Time
}

// Entry 是磁盘上的缓存形状：时间戳 + 聚合结果，别无其它。
// 每次 Save 整体覆盖，从不增量合并。
type Entry struct {
	Timestamp string                      `json:"timestamp"` // RFC3339（ISO-8601 的严格子集）
	Data      domain.ClassificationResult `json:"data"`
}

func New(root string) Store {
	return Store{Root: filepath.Clean(strings.TrimSpace(root))}
}

func (s Store) path() string {
	return filepath.Join(s.Root, "cache", fileName)
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load 读取缓存；命中返回 (result, true)，任何失败模式都返回 (zero, false)。
func (s Store) Load() (domain.ClassificationResult, bool) {
	b, err := os.ReadFile(s.path())
	if err != nil {
		return domain.ClassificationResult{}, false
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return domain.ClassificationResult{}, false
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Timestamp))
	if err != nil {
		// 坏时间戳与坏文件同样处理：miss。
		return domain.ClassificationResult{}, false
	}
	if s.now().Sub(ts) >= TTL {
		return domain.ClassificationResult{}, false
	}
	return e.Data, true
}

// Save 用当前时刻整体覆盖缓存。
func (s Store) Save(data domain.ClassificationResult) error {
	e := Entry{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Data:      data,
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Join(s.Root, "cache"), fileName, b)
}
