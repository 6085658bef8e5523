package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/lbwatch/internal/domain"
)

func TestCLI_NoTTY_StdoutOnlyCheckReportJSON(t *testing.T) {
	// 这个测试锁定对外契约：stdout 非 TTY 时只能输出一个 CheckReport JSON
	// （进度/配置必须走 stderr 或直接禁用）。
	// 通过预置一份 TTL 内的缓存让运行走 cached 短路，保证离线确定性。
	root := t.TempDir()

	seedCache(t, root)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/lbwatch", "check", root)
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	// stdout 必须是单个 JSON。
	var rr domain.CheckReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 CheckReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if rr.Outcome != domain.OutcomeCached {
		t.Fatalf("期望 cached 短路，实际 outcome=%q", rr.Outcome)
	}
	if rr.Summary.Films != 2 || rr.Summary.Available != 1 {
		t.Fatalf("summary 不符合预置缓存：%+v", rr.Summary)
	}
	// 进度/配置不应出现在 stdout。
	if strings.Contains(stdout.String(), "配置（生效）") || strings.Contains(stdout.String(), "进度:") {
		t.Fatalf("stdout 不应包含进度/配置输出：%q", stdout.String())
	}

	// stderr 至少应包含最终摘要行。
	if !strings.Contains(stderr.String(), "完成：outcome=cached") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}

	// cached 命中同样应产出 HTML。
	html, err := os.ReadFile(filepath.Join(root, "watchlist.html"))
	if err != nil {
		t.Fatalf("缺少 HTML 产物：%v", err)
	}
	if !strings.Contains(string(html), "Dune") {
		t.Fatalf("HTML 产物不含缓存中的影片：%q", truncateForLog(string(html)))
	}
}

func TestCLI_UnknownCommand_ExitCode2(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	// go run 不透传程序退出码（始终以 1 退出），因此先构建再直接执行。
	bin := filepath.Join(t.TempDir(), "lbwatch")
	build := exec.Command("go", "build", "-o", bin, "./cmd/lbwatch")
	build.Dir = repoRoot
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("构建失败：%v\n%s", err, out)
	}

	cmd := exec.Command(bin, "bogus")
	cmd.Dir = repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err == nil {
		t.Fatalf("未知命令应非零退出")
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) || ee.ExitCode() != 2 {
		t.Fatalf("期望退出码 2，实际：%v\nstderr=%s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "未知命令") {
		t.Fatalf("stderr 缺少未知命令提示：%q", stderr.String())
	}
}

func seedCache(t *testing.T, root string) {
	t.Helper()

	dir := filepath.Join(root, "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("创建 cache 目录失败：%v", err)
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data": map[string]any{
			"available": []map[string]any{
				{"name": "Dune (2021)", "slug": "dune-2021", "service": "Netflix", "stream_url": "https://netflix.example/dune"},
			},
			"unavailable": []map[string]any{
				{"name": "Heat (1995)", "slug": "heat-1995", "other_services": []string{"Peacock"}},
			},
		},
	}
	b, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("序列化缓存失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "results.json"), b, 0o644); err != nil {
		t.Fatalf("写入缓存失败：%v", err)
	}
}

func truncateForLog(s string) string {
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
