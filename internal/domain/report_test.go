package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFinalize_SummaryFromData(t *testing.T) {
	rr := CheckReport{
		Outcome: OutcomeFresh,
		Data: ClassificationResult{
			Available: []AvailableFilm{
				{Name: "A", Slug: "a", Service: "Netflix", StreamURL: "https://n/a"},
			},
			Unavailable: []UnavailableFilm{
				{Name: "B", Slug: "b", OtherServices: []string{}},
				{Name: "C", Slug: "c", OtherServices: []string{"Peacock"}},
			},
		},
	}
	rr.Finalize()

	if rr.Summary.Available != 1 || rr.Summary.Unavailable != 2 || rr.Summary.Films != 3 {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
}

func TestFinalize_TimesUTC(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	rr := CheckReport{
		StartedAt:  time.Date(2026, 8, 27, 12, 0, 0, 0, loc),
		FinishedAt: time.Date(2026, 8, 27, 12, 0, 5, 0, loc),
	}
	rr.Finalize()

	b, err := json.Marshal(rr)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !strings.Contains(string(b), `"started_at":"2026-08-27T11:00:00Z"`) {
		t.Fatalf("期望 UTC/Z 后缀时间戳，实际：%s", b)
	}
}
