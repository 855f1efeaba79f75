package autocurator

import (
	"image"
	"time"

	"github.com/corona10/goimagehash"
)

// PhotoRecord is one photo flowing through the pipeline. It is created by the
// loader, enriched by the grouper (Fingerprint, GroupID) and the evaluator
// (Evaluation), and read-only for ranking and captioning.
type PhotoRecord struct {
	Path string // full path on disk
	Name string // base file name, used as the stable identifier in output
	Data []byte // raw file bytes, owned by the loader
	Size int64

	Meta *CaptureMeta // EXIF capture info, nil when absent

	Fingerprint    *goimagehash.ImageHash // perceptual dHash, nil if hashing failed
	GroupID        int                    // duplicate group id, -1 until grouping runs
	Representative bool                   // first-by-discovery member of its group

	Evaluation *EvaluationResult // nil until evaluated, stays nil on failure

	decoded image.Image // held between decode and fingerprinting, then released
}

// EvaluationResult is the parsed outcome of one backend evaluation.
type EvaluationResult struct {
	Score         int    // social-media appeal, always within [0,100]
	Subject       string // one-line description of the primary subject
	Analysis      string // free-form explanation from the model
	TechnicalPass bool   // sharpness/exposure gate, advisory by default
	Raw           string // unmodified backend response, kept for diagnostics
	EvaluatedAt   time.Time
}

// DuplicateGroup is a cluster of near-identical shots. Members are indices
// into the run's record slice, in discovery order.
type DuplicateGroup struct {
	ID        int
	Members   []int
	Best      int // index of the designated best member, -1 until selected
	Threshold int // similarity threshold the group was formed with
}

// RankedResult is one entry of the final ordered list.
type RankedResult struct {
	Photo        *PhotoRecord
	Evaluation   *EvaluationResult
	Rank         int      // 1-based
	Alternatives []string // file names of the other members of its group
	Caption      *Caption // set for top-N results only
}

// Caption is a ready-to-post caption derived from an evaluation.
type Caption struct {
	Text     string
	Hashtags []string // no duplicates, first-seen order
}

// FileFailure records why a photo dropped out of the run.
type FileFailure struct {
	File   string `json:"file"`
	Stage  string `json:"stage"` // "decode" or "evaluate"
	Reason string `json:"reason"`
}

// RunSummary carries per-run statistics and the failure diagnostics that are
// always available alongside any successful rankings.
type RunSummary struct {
	RunID             string
	Evaluated         int // photos with a successful evaluation
	Failed            int // photos whose evaluation failed after retries
	SkippedDuplicates int // group members excluded from the ranked output
	Groups            int
	Duration          time.Duration
	Failures          []FileFailure
}

// CurationResult is everything one run produces. Records (including failed
// ones) and groups are exposed for diagnostics; nothing is persisted between
// runs.
type CurationResult struct {
	Ranked  []RankedResult
	Groups  []DuplicateGroup
	Records []*PhotoRecord
	Summary RunSummary
}
