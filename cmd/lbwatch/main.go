package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/lbwatch/internal/app/check"
	"github.com/John-Robertt/lbwatch/internal/config"
	"github.com/John-Robertt/lbwatch/internal/domain"
	"github.com/John-Robertt/lbwatch/internal/infra/cache"
	"github.com/John-Robertt/lbwatch/internal/infra/fsx"
	"github.com/John-Robertt/lbwatch/internal/infra/httpx"
	"github.com/John-Robertt/lbwatch/internal/justwatch"
	"github.com/John-Robertt/lbwatch/internal/render"
	"github.com/John-Robertt/lbwatch/internal/watchlist"
)

// pipelineTimeout 是整条流水线的墙钟上限：超时即失败（非零退出），不重试。
// 这是唯一会对外暴露的失败模式；流水线内部的一切失败都有降级值。
const pipelineTimeout = 120 * time.Second

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "check":
		if code := checkCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func checkCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printCheckUsage()
			return 0
		}
	}

	ca, err := parseCheckArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printCheckUsage()
		return 2
	}

	path := ca.Path
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
			return 1
		}
		path = cwd
	}

	// 配置是 fail-soft 的：缺失/损坏一律回退内置默认，这里不会失败。
	eff := config.LoadEffective(path)

	pageClient, err := httpx.NewPageClient(eff.ProxyURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 page client 失败：%v\n", err)
		return 1
	}
	searchClient, err := httpx.NewSearchClient(eff.ProxyURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 search client 失败：%v\n", err)
		return 1
	}

	deps := check.Deps{
		Source:   watchlist.Client{HTTP: pageClient},
		Resolver: justwatch.Client{HTTP: searchClient},
		Cache:    cache.New(eff.Path),
	}

	progressW, interactive := pickProgressWriter()
	var obs check.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()

	rr := check.ExecuteWithObserver(ctx, eff, deps, check.Options{Refresh: ca.Refresh}, obs)

	// 超时是唯一对外的失败：报告照常输出（可解释），但退出码非零，
	// 且不渲染 HTML——不完整的结果不落任何产物。
	if rr.Outcome == domain.OutcomeTimeout {
		emitReport(rr)
		fmt.Fprintf(os.Stderr, "检查超时（%s），结果不完整\n", pipelineTimeout)
		return 1
	}

	// 有数据就渲染 HTML 产物（cached 命中同样渲染；empty 没有可渲染内容）。
	if rr.Outcome != domain.OutcomeEmpty {
		if err := writeHTML(eff, rr.Data); err != nil {
			fmt.Fprintf(os.Stderr, "写入 %s 失败：%v\n", render.FileName, err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff, rr.Outcome)
	}
	return 0
}

type checkArgs struct {
	Path    string
	Refresh bool
}

func parseCheckArgs(args []string) (checkArgs, error) {
	ca := checkArgs{}

	for _, a := range args {
		switch {
		case a == "--refresh":
			ca.Refresh = true
		case strings.HasPrefix(a, "-"):
			return checkArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ca.Path != "" {
				return checkArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ca.Path, a)
			}
			ca.Path = a
		}
	}
	return ca, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  lbwatch check [path] [--refresh]

命令：
  check    抓取 watchlist 并生成流媒体可看性页面（6 小时内走缓存）

使用 "lbwatch check --help" 查看详细说明。
`)
}

func printCheckUsage() {
	fmt.Fprint(os.Stdout, `用法：
  lbwatch check [path] [--refresh]

参数：
  path        工作目录（默认当前目录）：lbwatch.json、cache/ 与 watchlist.html 都在这里
  --refresh   跳过缓存读取，强制重新计算（仍会写入新缓存）
  -h, --help  显示帮助
`)
}

func writeHTML(eff config.EffectiveConfig, data domain.ClassificationResult) error {
	b, err := render.Encode(data, eff)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(eff.Path, render.FileName, b)
}

func emitReport(rr domain.CheckReport) {
	if isTTY(os.Stdout) {
		switch rr.Outcome {
		case domain.OutcomeEmpty:
			fmt.Fprintln(os.Stdout, "watchlist 为空：无事可做")
		case domain.OutcomeTimeout:
			fmt.Fprintf(os.Stdout, "超时（结果不完整，未写缓存）：available=%d unavailable=%d films=%d\n",
				rr.Summary.Available, rr.Summary.Unavailable, rr.Summary.Films,
			)
		case domain.OutcomeCached:
			fmt.Fprintf(os.Stdout, "完成（缓存，<6h）：available=%d unavailable=%d films=%d\n",
				rr.Summary.Available, rr.Summary.Unavailable, rr.Summary.Films,
			)
		default:
			fmt.Fprintf(os.Stdout, "完成：available=%d unavailable=%d films=%d\n",
				rr.Summary.Available, rr.Summary.Unavailable, rr.Summary.Films,
			)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 CheckReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：outcome=%s available=%d unavailable=%d films=%d\n",
		rr.Outcome, rr.Summary.Available, rr.Summary.Unavailable, rr.Summary.Films,
	)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig, outcome string) {
	// 这两行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil || outcome == domain.OutcomeEmpty {
		return
	}
	fmt.Fprintf(w, "html: %s\n", filepath.Join(eff.Path, render.FileName))
	fmt.Fprintf(w, "cache: %s\n", filepath.Join(eff.Path, "cache", "results.json"))
}
