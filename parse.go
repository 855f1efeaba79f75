package autocurator

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Markers recognized in free-form model output. Kept together because model
// response formats drift; this file is the only place that knows about them.
var (
	scoreRe    = regexp.MustCompile(`(?i)\bscore\b\s*(?:is|of)?\s*[:=-]?\s*(\d{1,3})`)
	ratioRe    = regexp.MustCompile(`\b(\d{1,3})\s*/\s*100\b`)
	verdictRe  = regexp.MustCompile(`(?i)\bverdict\b\s*[:=-]?\s*(PASS|FAIL)`)
	subjectRe  = regexp.MustCompile(`(?im)^\s*(?:subject|main subject)\s*[:=-]\s*(.+)$`)
	analysisRe = regexp.MustCompile(`(?is)\banalysis\s*[:=-]\s*(.+)$`)
)

// technicalFailScore mirrors the prompt contract: a photo failing the
// technical requirements scores 30 or below. Used only to derive the gate
// when the response carries no explicit verdict.
const technicalFailScore = 30

// ParseEvaluation turns a raw backend response into an EvaluationResult.
// It tolerates free-form output: a JSON object (fenced or bare) is tried
// first, then marker-based extraction from plain text. If no valid score in
// [0,100] can be found, it returns a *ParseError — never a guessed score.
func ParseEvaluation(raw string) (*EvaluationResult, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, &ParseError{Reason: "empty response", Raw: raw}
	}

	if res, ok := parseJSONEvaluation(text); ok {
		if res.Score < 0 || res.Score > 100 {
			return nil, &ParseError{Reason: "score out of range", Raw: raw}
		}
		return res, nil
	}
	return parseTextEvaluation(text, raw)
}

// stripFences removes markdown code fences so fenced JSON or fenced text
// still parses.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// parseJSONEvaluation handles the structured response shape some backends
// produce: {"score": N, "main_subject": ..., "reasoning": ...}. Reports
// ok=false when the text is not a JSON object with a numeric score, letting
// the caller fall back to free-form extraction.
func parseJSONEvaluation(text string) (*EvaluationResult, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return nil, false
	}

	score, ok := jsonNumber(fields["score"])
	if !ok {
		return nil, false
	}

	res := &EvaluationResult{
		Score:    score,
		Subject:  jsonString(fields, "main_subject", "subject"),
		Analysis: jsonString(fields, "reasoning", "analysis", "social_media_appeal"),
	}
	switch v := fields["technical_pass"].(type) {
	case bool:
		res.TechnicalPass = v
	default:
		res.TechnicalPass = score > technicalFailScore
	}
	return res, true
}

func jsonNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func jsonString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// parseTextEvaluation extracts the evaluation from plain prose: the first
// integer after a score marker (or an "N/100" ratio), an optional PASS/FAIL
// verdict, a subject line and an analysis paragraph.
func parseTextEvaluation(text, raw string) (*EvaluationResult, error) {
	var score int
	var found bool
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		score, _ = strconv.Atoi(m[1])
		found = true
	} else if m := ratioRe.FindStringSubmatch(text); m != nil {
		score, _ = strconv.Atoi(m[1])
		found = true
	}
	if !found {
		return nil, &ParseError{Reason: "no score marker found", Raw: raw}
	}
	if score < 0 || score > 100 {
		return nil, &ParseError{Reason: "score out of range", Raw: raw}
	}

	res := &EvaluationResult{Score: score}

	if m := verdictRe.FindStringSubmatch(text); m != nil {
		res.TechnicalPass = strings.EqualFold(m[1], "PASS")
	} else {
		res.TechnicalPass = score > technicalFailScore
	}

	if m := subjectRe.FindStringSubmatch(text); m != nil {
		res.Subject = strings.TrimSpace(m[1])
	}

	if m := analysisRe.FindStringSubmatch(text); m != nil {
		res.Analysis = strings.TrimSpace(m[1])
	} else {
		res.Analysis = strings.TrimSpace(text)
	}
	return res, nil
}
