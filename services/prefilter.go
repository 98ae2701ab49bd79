package services

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultGenericPrefilterCap applies when a caller passes no positive cap.
const DefaultGenericPrefilterCap = 150

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// QuestionTerms returns the lowercase alphanumeric tokens of the question
// longer than two characters, in order, duplicates kept.
func QuestionTerms(question string) []string {
	var terms []string
	for _, t := range nonAlphanumeric.Split(strings.ToLower(question), -1) {
		if len(t) > 2 {
			terms = append(terms, t)
		}
	}
	return terms
}

// PrefilterChunks keeps at most limit chunks, ranked by how many question
// terms each contains as a substring. Ties keep their original order. When
// the question has no usable terms, or nothing retained overlaps it at all,
// the first limit chunks are returned in original order. A non-positive
// limit means DefaultGenericPrefilterCap.
func PrefilterChunks(question string, chunks []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultGenericPrefilterCap
	}
	head := chunks
	if len(head) > limit {
		head = head[:limit]
	}

	terms := QuestionTerms(question)
	if len(terms) == 0 {
		return head
	}

	type scored struct {
		index int
		score int
	}
	ranked := make([]scored, len(chunks))
	for i, chunk := range chunks {
		lc := strings.ToLower(chunk)
		score := 0
		for _, term := range terms {
			if strings.Contains(lc, term) {
				score++
			}
		}
		ranked[i] = scored{index: i, score: score}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	// Sorted descending, so the first entry is the best score.
	if len(ranked) == 0 || ranked[0].score == 0 {
		return head
	}

	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = chunks[s.index]
	}
	return out
}
