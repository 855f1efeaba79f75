package autocurator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// rankStats aggregates per-run evaluation counters and failures.
type rankStats struct {
	evaluated int
	failed    int
	skipped   int
	failures  []FileFailure
}

// rank evaluates the photos, selects each group's best member, and produces
// the final ordered list.
//
// By default every group member is evaluated so the best shot of a burst wins
// even when it was not discovered first; with Config.RepresentativeOnly only
// the first-by-discovery member of each group is sent to the backend and the
// rest are skipped unscored. Either way, a group whose every evaluated member
// failed contributes nothing to the ranking.
//
// Results are identical whether evaluation runs sequentially or concurrently:
// outcomes land in an index-addressed slice and all ordering derives from
// explicit sort keys (score descending, then file name ascending).
func (cfg *Config) rank(ctx context.Context, records []*PhotoRecord, groups []DuplicateGroup) ([]RankedResult, rankStats, error) {
	toEvaluate := cfg.selectForEvaluation(groups)

	outcomes := make([]error, len(records))
	evaluations := make([]*EvaluationResult, len(records))

	// Channel-semaphore worker bound; each evaluation is independent and its
	// retry backoff blocks only its own goroutine.
	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	for _, idx := range toEvaluate {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := cfg.evaluatePhoto(ctx, records[i])
			evaluations[i] = res
			outcomes[i] = err
		}(idx)
	}
	wg.Wait()

	var stats rankStats
	for _, i := range toEvaluate {
		if outcomes[i] != nil {
			stats.failed++
			stats.failures = append(stats.failures, FileFailure{
				File:   records[i].Name,
				Stage:  "evaluate",
				Reason: failureReason(outcomes[i]),
			})
			slog.Warn("autocurator: evaluation failed", "file", records[i].Name, "error", outcomes[i])
			continue
		}
		records[i].Evaluation = evaluations[i]
		stats.evaluated++
	}

	if stats.evaluated == 0 {
		return nil, stats, ErrAllEvaluationsFailed
	}

	ranked := cfg.selectBest(records, groups, &stats)

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Evaluation.Score != ranked[b].Evaluation.Score {
			return ranked[a].Evaluation.Score > ranked[b].Evaluation.Score
		}
		return ranked[a].Photo.Name < ranked[b].Photo.Name
	})

	if len(ranked) > cfg.TopN {
		ranked = ranked[:cfg.TopN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, stats, nil
}

// selectForEvaluation returns the record indices that will be sent to the
// backend, in discovery order.
func (cfg *Config) selectForEvaluation(groups []DuplicateGroup) []int {
	var idxs []int
	for _, g := range groups {
		if cfg.RepresentativeOnly && len(g.Members) > 0 {
			idxs = append(idxs, g.Members[0])
			continue
		}
		idxs = append(idxs, g.Members...)
	}
	sort.Ints(idxs)
	return idxs
}

// selectBest designates each group's best member (maximum score among
// successfully evaluated members, earlier discovery order winning ties) and
// builds one RankedResult per surviving group. Unevaluated or failed members
// become the alternatives list; they are excluded from the top list but never
// lost.
func (cfg *Config) selectBest(records []*PhotoRecord, groups []DuplicateGroup, stats *rankStats) []RankedResult {
	var ranked []RankedResult
	for gi := range groups {
		g := &groups[gi]
		best := -1
		for _, i := range g.Members {
			if records[i].Evaluation == nil {
				continue
			}
			if best == -1 || records[i].Evaluation.Score > records[best].Evaluation.Score {
				best = i
			}
		}
		if best == -1 {
			continue // every member failed or went unevaluated
		}
		g.Best = best

		eval := records[best].Evaluation
		if cfg.RequireTechnicalPass && !eval.TechnicalPass {
			slog.Debug("autocurator: excluded by technical gate", "file", records[best].Name)
			continue
		}

		var alts []string
		for _, i := range g.Members {
			if i != best {
				alts = append(alts, records[i].Name)
			}
		}
		stats.skipped += len(alts)

		ranked = append(ranked, RankedResult{
			Photo:        records[best],
			Evaluation:   eval,
			Alternatives: alts,
		})
	}
	return ranked
}
