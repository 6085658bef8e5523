package check

import (
	"context"
	"sync"
	"time"

	"github.com/John-Robertt/lbwatch/internal/app"
	"github.com/John-Robertt/lbwatch/internal/config"
	"github.com/John-Robertt/lbwatch/internal/domain"
	"github.com/John-Robertt/lbwatch/internal/infra/cache"
)

// ListSource 提供 watchlist 条目（fail-soft：失败返回已累积的部分列表）。
type ListSource interface {
	Fetch(ctx context.Context, username string) []domain.Film
}

// Resolver 把一个 Film 补全为 EnrichedFilm（绝不失败：内部错误降级为空 offers）。
type Resolver interface {
	Resolve(ctx context.Context, film domain.Film) domain.EnrichedFilm
}

// Deps 是流水线的外部依赖（显式传入，不走全局状态）。
type Deps struct {
	Source   ListSource
	Resolver Resolver
	Cache    cache.Store
}

// Options 是单次执行的开关。
type Options struct {
	// Refresh 跳过缓存读取（仍会写入新结果）。
	Refresh bool
}

// Execute 执行一次检查，并返回对外稳定的 CheckReport。
// 流水线内部没有致命错误：每种失败模式都有定义好的降级值。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps, opts Options) domain.CheckReport {
	return ExecuteWithObserver(ctx, eff, deps, opts, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息
// （由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, deps Deps, opts Options, obs Observer) domain.CheckReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.CheckReport{
		Path:      eff.Path,
		Username:  eff.Username,
		StartedAt: started,
	}

	// 缓存短路：TTL 内直接返回持久化结果，上游全部跳过。
	if !opts.Refresh {
		cacheStarted := time.Now()
		if data, ok := deps.Cache.Load(); ok {
			if obs != nil {
				obs.OnPhaseDone("cache", map[string]any{"hit": 1}, time.Since(cacheStarted))
			}
			rr.Outcome = domain.OutcomeCached
			rr.Data = data
			rr.FinishedAt = time.Now().UTC()
			rr.Finalize()
			return rr
		}
		if obs != nil {
			obs.OnPhaseDone("cache", map[string]any{"hit": 0}, time.Since(cacheStarted))
		}
	}

	fetchStarted := time.Now()
	films := deps.Source.Fetch(ctx, eff.Username)
	if obs != nil {
		obs.OnPhaseDone("fetch", map[string]any{"films": len(films)}, time.Since(fetchStarted))
	}

	// 空 watchlist：明确的“无事可做”，不是错误。
	// 例外：截止时间已过时，空列表更可能是抓取被掐断，按超时报告。
	if len(films) == 0 {
		rr.Outcome = domain.OutcomeEmpty
		if ctx.Err() != nil {
			rr.Outcome = domain.OutcomeTimeout
		}
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	enriched := enrichAll(ctx, films, deps.Resolver, eff.Concurrency, obs)

	classifyStarted := time.Now()
	result := app.Classify(enriched, eff.Services)
	if obs != nil {
		obs.OnPhaseDone("classify", map[string]any{
			"available":   len(result.Available),
			"unavailable": len(result.Unavailable),
		}, time.Since(classifyStarted))
	}

	// 截止时间已过的运行绝不持久化：此时的“全部不可看”来自降级，
	// 是 deadline 的副作用而非事实，写入会把坏结果当缓存命中供应 6 小时。
	if ctx.Err() != nil {
		rr.Outcome = domain.OutcomeTimeout
		rr.Data = result
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	// best-effort 持久化：写失败只损失下次的缓存命中，不影响本次结果。
	_ = deps.Cache.Save(result)

	rr.Outcome = domain.OutcomeFresh
	rr.Data = result
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// enrichAll 用有界 worker 池并发 resolve 所有影片。
//
// 约束：
// - 并发上限 workers；超出的任务排队等空闲 worker
// - 输出是“完成序”，不是输入序——调用方必须用结果内嵌的 Film 重新关联
// - 没有单条取消：慢的 resolve 不阻塞别人，但整体要等全部完成
// - 唯一被并发触碰的结构是 results channel（fan-in）
func enrichAll(ctx context.Context, films []domain.Film, r Resolver, workers int, obs Observer) []domain.EnrichedFilm {
	if workers < 1 {
		workers = 1
	}

	if obs != nil {
		obs.OnPhaseDone("resolve", map[string]any{
			"workers":     workers,
			"total_films": len(films),
		}, 0)
	}

	type resolveResult struct {
		ef  domain.EnrichedFilm
		dur time.Duration
	}

	jobs := make(chan domain.Film)
	results := make(chan resolveResult, len(films))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				oneStarted := time.Now()
				ef := r.Resolve(ctx, f)
				results <- resolveResult{ef: ef, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for _, f := range films {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	out := make([]domain.EnrichedFilm, 0, len(films))
	done := 0
	for res := range results {
		done++
		out = append(out, res.ef)
		if obs != nil {
			obs.OnFilmDone(done, len(films), res.ef.Film, len(res.ef.Offers), res.dur)
		}
	}
	return out
}
