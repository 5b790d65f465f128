// Package similarity scores how closely free-text queries match address text.
package similarity

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// MaxScore is the score of two strings with identical token sets
const MaxScore = 100

// TokenSetRatio returns a score in [0, 100] describing how well query matches candidate,
// ignoring case, punctuation, token order and duplicated tokens.
//
// Both inputs are split into token sets. The shared tokens and the tokens unique to each side
// are sorted and joined into three strings:
//
//	t0 = common
//	t1 = common + onlyQuery
//	t2 = common + onlyCandidate
//
// and the best pairwise Ratio among them is returned. A query whose tokens are a subset of the
// candidate's therefore scores 100
func TokenSetRatio(query, candidate string) int {
	a, b := tokenSet(query), tokenSet(candidate)
	if len(a) == 0 || len(b) == 0 {
		if len(a) == 0 && len(b) == 0 && query == "" && candidate == "" {
			return MaxScore
		}
		return 0
	}

	common, onlyA, onlyB := partition(a, b)

	t0 := strings.Join(common, " ")
	t1 := appendTokens(t0, onlyA)
	t2 := appendTokens(t0, onlyB)

	return max(Ratio(t0, t1), Ratio(t0, t2), Ratio(t1, t2))
}

// Ratio returns the normalized indel similarity of a and b:
// 200 * matches / (len(a) + len(b)), where matches is the length of the
// longest common subsequence, measured in runes and rounded half to even.
// Two empty strings are identical and score 100
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return MaxScore
	}
	matches := longestCommonSubsequence(ra, rb)
	return int(math.RoundToEven(200 * float64(matches) / float64(total)))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func partition(a, b map[string]struct{}) (common, onlyA, onlyB []string) {
	for tok := range a {
		if _, ok := b[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range b {
		if _, ok := a[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	slices.Sort(common)
	slices.Sort(onlyA)
	slices.Sort(onlyB)
	return common, onlyA, onlyB
}

func appendTokens(prefix string, tokens []string) string {
	if len(tokens) == 0 {
		return prefix
	}
	rest := strings.Join(tokens, " ")
	if prefix == "" {
		return rest
	}
	return prefix + " " + rest
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
