package autocurator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rankedDocument is the JSON shape of one run's output.
type rankedDocument struct {
	RunID   string        `json:"run_id"`
	Results []rankedEntry `json:"results"`
	Summary summaryEntry  `json:"summary"`
}

type rankedEntry struct {
	Rank          int      `json:"rank"`
	File          string   `json:"file"`
	Score         int      `json:"score"`
	TechnicalPass bool     `json:"technical_pass"`
	Subject       string   `json:"subject,omitempty"`
	Analysis      string   `json:"analysis,omitempty"`
	Alternatives  []string `json:"alternatives,omitempty"`
	Caption       string   `json:"caption,omitempty"`
	Hashtags      []string `json:"hashtags,omitempty"`
	TakenAt       string   `json:"taken_at,omitempty"`
	Camera        string   `json:"camera,omitempty"`
}

type summaryEntry struct {
	Evaluated         int           `json:"evaluated"`
	Failed            int           `json:"failed"`
	SkippedDuplicates int           `json:"skipped_duplicates"`
	Groups            int           `json:"groups"`
	Failures          []FileFailure `json:"failures,omitempty"`
}

// RenderJSON renders the ranked results and run summary as an indented JSON
// document. Writing it anywhere is the caller's business.
func RenderJSON(res *CurationResult) ([]byte, error) {
	doc := rankedDocument{
		RunID: res.Summary.RunID,
		Summary: summaryEntry{
			Evaluated:         res.Summary.Evaluated,
			Failed:            res.Summary.Failed,
			SkippedDuplicates: res.Summary.SkippedDuplicates,
			Groups:            res.Summary.Groups,
			Failures:          res.Summary.Failures,
		},
	}
	for _, r := range res.Ranked {
		entry := rankedEntry{
			Rank:          r.Rank,
			File:          r.Photo.Name,
			Score:         r.Evaluation.Score,
			TechnicalPass: r.Evaluation.TechnicalPass,
			Subject:       r.Evaluation.Subject,
			Analysis:      r.Evaluation.Analysis,
			Alternatives:  r.Alternatives,
		}
		if r.Caption != nil {
			entry.Caption = r.Caption.Text
			entry.Hashtags = r.Caption.Hashtags
		}
		if r.Photo.Meta != nil {
			if !r.Photo.Meta.TakenAt.IsZero() {
				entry.TakenAt = r.Photo.Meta.TakenAt.Format(time.RFC3339)
			}
			entry.Camera = r.Photo.Meta.Camera()
		}
		doc.Results = append(doc.Results, entry)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// RenderCaptions renders one caption block per ranked photo:
//
//	file.jpg (Score: 87)
//	caption text #tag1 #tag2
//
// separated by blank lines.
func RenderCaptions(res *CurationResult) string {
	var b strings.Builder
	for _, r := range res.Ranked {
		if r.Caption == nil {
			continue
		}
		fmt.Fprintf(&b, "%s (Score: %d)\n", r.Photo.Name, r.Evaluation.Score)
		line := r.Caption.Text
		if len(r.Caption.Hashtags) > 0 {
			line += " " + strings.Join(r.Caption.Hashtags, " ")
		}
		b.WriteString(line + "\n\n")
	}
	return b.String()
}

// RenderSummary renders the human-readable console summary, including the
// failure breakdown that accompanies every run.
func RenderSummary(res *CurationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ranked %d photo(s) from %d group(s)\n", len(res.Ranked), res.Summary.Groups)
	for _, r := range res.Ranked {
		gate := "pass"
		if !r.Evaluation.TechnicalPass {
			gate = "FAIL"
		}
		fmt.Fprintf(&b, "%2d. %s  score=%d  gate=%s", r.Rank, r.Photo.Name, r.Evaluation.Score, gate)
		if len(r.Alternatives) > 0 {
			fmt.Fprintf(&b, "  (best of %d similar shots: %s)", len(r.Alternatives)+1, strings.Join(r.Alternatives, ", "))
		}
		b.WriteString("\n")
		if r.Evaluation.Subject != "" {
			fmt.Fprintf(&b, "    subject: %s\n", r.Evaluation.Subject)
		}
	}
	fmt.Fprintf(&b, "evaluated=%d failed=%d skipped_duplicates=%d\n",
		res.Summary.Evaluated, res.Summary.Failed, res.Summary.SkippedDuplicates)
	for _, f := range res.Summary.Failures {
		fmt.Fprintf(&b, "  failed %s [%s]: %s\n", f.File, f.Stage, f.Reason)
	}
	return b.String()
}
