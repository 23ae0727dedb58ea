package validate

import "strings"

// Suggester proposes "did you mean" corrections for unknown table names by
// Levenshtein similarity over the known names. A nil Suggester degrades to
// no suggestions.
type Suggester struct {
	names     []string
	threshold float64
}

// NewSuggester builds a suggester over the known names. Threshold is the
// minimum similarity in [0,1] a candidate must reach to be proposed.
func NewSuggester(names []string, threshold float64) *Suggester {
	return &Suggester{names: names, threshold: threshold}
}

// Suggest returns the known name closest to input, if its similarity reaches
// the threshold.
func (s *Suggester) Suggest(input string) (string, bool) {
	if s == nil || input == "" {
		return "", false
	}
	lower := strings.ToLower(input)

	best := ""
	bestScore := 0.0
	for _, name := range s.names {
		score := similarity(lower, strings.ToLower(name))
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	if bestScore < s.threshold {
		return "", false
	}
	return best, true
}

// similarity maps edit distance into [0,1]: 1 is an exact match, 0 shares
// nothing.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance is the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change one string
// into another.
func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	runesA := []rune(a)
	runesB := []rune(b)
	lenB := len(runesB)

	// Two rows at a time is enough.
	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(runesA); i++ {
		curr[0] = i
		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}
			curr[j] = minOf(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[lenB]
}

func minOf(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
