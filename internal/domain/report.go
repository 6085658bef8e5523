package domain

import (
	"encoding/json"
	"time"
)

const (
	// OutcomeFresh 表示本次结果来自完整流水线（并已尝试写缓存）。
	OutcomeFresh = "fresh"
	// OutcomeCached 表示命中 TTL 内的缓存，流水线被短路。
	OutcomeCached = "cached"
	// OutcomeEmpty 表示 watchlist 为空：无事可做，不是错误。
	OutcomeEmpty = "empty"
	// OutcomeTimeout 表示整体截止时间已过：结果不完整，且绝不写入缓存。
	OutcomeTimeout = "timeout"
)

// CheckReport 是对外稳定输出（stdout JSON）的结构。
type CheckReport struct {
	Path     string `json:"path"`
	Username string `json:"username"`
	Outcome  string `json:"outcome"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary        `json:"summary"`
	Data    ClassificationResult `json:"data"`
}

type ReportSummary struct {
	Films       int `json:"films"`
	Available   int `json:"available"`
	Unavailable int `json:"unavailable"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 data 计算得出
func (r *CheckReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	r.Summary = ReportSummary{
		Available:   len(r.Data.Available),
		Unavailable: len(r.Data.Unavailable),
		Films:       len(r.Data.Available) + len(r.Data.Unavailable),
	}
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r CheckReport) MarshalJSON() ([]byte, error) {
	type Alias CheckReport
	return json.Marshal(Alias(r))
}
