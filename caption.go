package autocurator

import (
	"strings"
	"unicode"
)

// DefaultHashtags are the fixed generic tags appended to every caption.
var DefaultHashtags = []string{"#carsofinstagram", "#carspotting", "#automotive"}

// maxSubjectHashtags caps the tags derived from the subject text so captions
// stay postable.
const maxSubjectHashtags = 4

// captionStopWords are filler words excluded from hashtag derivation.
var captionStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "with": true,
	"of": true, "in": true, "on": true, "at": true, "is": true,
	"its": true, "it": true, "this": true, "that": true, "for": true,
	"to": true, "from": true, "by": true, "as": true, "are": true,
	"photo": true, "image": true, "picture": true, "shot": true,
}

// GenerateCaption derives a caption and hashtag set from a ranked result's
// evaluation. Purely deterministic text derivation, no backend call: the
// subject line becomes the caption phrase and its significant tokens become
// hashtags, followed by the fixed generic tags. Duplicate tags are dropped
// while preserving first-seen order.
func GenerateCaption(r RankedResult, generic []string) Caption {
	subject := ""
	if r.Evaluation != nil {
		subject = strings.TrimSpace(r.Evaluation.Subject)
	}

	text := strings.TrimSuffix(subject, ".")
	if text == "" {
		text = "A standout shot from today's roll"
	}

	tags := make([]string, 0, maxSubjectHashtags+len(generic))
	seen := make(map[string]bool)
	for _, word := range strings.Fields(subject) {
		token := normalizeTagToken(word)
		if token == "" || captionStopWords[token] {
			continue
		}
		tag := "#" + token
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxSubjectHashtags {
			break
		}
	}
	for _, tag := range generic {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	return Caption{Text: text, Hashtags: tags}
}

// normalizeTagToken lower-cases a word and strips everything that cannot
// appear in a hashtag. Tokens shorter than 3 runes are discarded.
func normalizeTagToken(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	token := b.String()
	if len([]rune(token)) < 3 {
		return ""
	}
	return token
}
