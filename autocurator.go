package autocurator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Default configuration values, applied by Config.defaults.
const (
	DefaultTopN         = 10
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Config holds all dependencies and knobs injected by the consumer.
// Backend is the only required field.
type Config struct {
	Backend Backend // required: the evaluation backend for this run

	TopN                 int  // ranked results to keep (default: 10)
	DisableDeduplication bool // skip grouping; every photo is a singleton group
	SimilarityThreshold  int  // max Hamming distance within a group (default: 10)
	RequireTechnicalPass bool // drop gate-failing photos instead of annotating them

	// RepresentativeOnly evaluates just the first-by-discovery member of each
	// duplicate group instead of all members. Cheaper, but the group's best
	// shot may go unscored.
	RepresentativeOnly bool

	MaxRetries   int           // extra attempts per evaluation (default: 2)
	RetryBackoff time.Duration // wait between attempts (default: 500ms)
	Concurrency  int           // parallel evaluations (default: 1 = sequential)

	Extensions []string // supported file extensions (default: jpg/jpeg/png/bmp/tiff/tif/webp/gif)
	Prompt     string   // evaluation instruction (default: EvalPrompt)

	// GenericHashtags are appended to every generated caption
	// (default: DefaultHashtags).
	GenericHashtags []string
}

// defaults fills zero-value fields with sensible defaults.
func (cfg *Config) defaults() {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = EvalPrompt
	}
	if cfg.GenericHashtags == nil {
		cfg.GenericHashtags = DefaultHashtags
	}
}

// Curate runs the full pipeline over a folder of photos: load, fingerprint,
// group duplicates, evaluate, rank, caption the top N.
//
// Folder-level failures (ErrFolderNotFound, ErrNoImagesFound) abort the run
// before any backend call. Per-photo failures are recorded in the summary and
// the run continues. When every photo fails evaluation, Curate returns
// ErrAllEvaluationsFailed together with a partial CurationResult whose
// summary lists each failure, so diagnostics survive the error path.
func (cfg *Config) Curate(ctx context.Context, folder string) (*CurationResult, error) {
	cfg.defaults()
	if cfg.Backend == nil {
		return nil, errors.New("autocurator: Config.Backend is required")
	}
	if c, ok := cfg.Backend.(io.Closer); ok {
		defer c.Close()
	}

	start := time.Now()
	runID := uuid.NewString()
	slog.Info("autocurator: run started", "run_id", runID, "folder", folder, "backend", cfg.Backend.Name())

	records, failures, err := cfg.loadFolder(folder)
	if err != nil {
		return nil, err
	}

	fingerprintRecords(records)
	groups := groupRecords(records, cfg.SimilarityThreshold, cfg.DisableDeduplication)
	slog.Debug("autocurator: grouping done", "photos", len(records), "groups", len(groups))

	ranked, stats, rankErr := cfg.rank(ctx, records, groups)
	failures = append(failures, stats.failures...)

	for i := range ranked {
		caption := GenerateCaption(ranked[i], cfg.GenericHashtags)
		ranked[i].Caption = &caption
	}

	result := &CurationResult{
		Ranked:  ranked,
		Groups:  groups,
		Records: records,
		Summary: RunSummary{
			RunID:             runID,
			Evaluated:         stats.evaluated,
			Failed:            stats.failed,
			SkippedDuplicates: stats.skipped,
			Groups:            len(groups),
			Duration:          time.Since(start),
			Failures:          failures,
		},
	}

	slog.Info("autocurator: run finished",
		"run_id", runID,
		"ranked", len(ranked),
		"evaluated", stats.evaluated,
		"failed", stats.failed,
		"skipped_duplicates", stats.skipped,
		"duration", result.Summary.Duration)

	if rankErr != nil {
		return result, rankErr
	}
	return result, nil
}
