package ingest

import (
	"regexp"
	"strconv"
)

// YearInferrer guesses a document year from its text, or returns nil.
type YearInferrer func(text string) *int

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// InferLatestYear returns the largest standalone year in 1900-2099 found in
// text. It is a heuristic with no confidence signal: a policy that cites a
// future review date will be dated by that review.
func InferLatestYear(text string) *int {
	best := 0
	for _, m := range yearPattern.FindAllString(text, -1) {
		if y, err := strconv.Atoi(m); err == nil && y > best {
			best = y
		}
	}
	if best == 0 {
		return nil
	}
	return &best
}
