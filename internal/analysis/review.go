package analysis

import "strings"

const (
	reviewMinRunes = 200
	reviewMaxRunes = 800
)

// TextLength counts runes, matching how review limits are communicated to
// players (CJK characters count as one).
func TextLength(value string) int {
	return len([]rune(value))
}

// IsReviewLengthValid reports whether a long-form post-game review sits in
// the accepted 200-800 rune window.
func IsReviewLengthValid(content string) bool {
	n := TextLength(content)
	return n >= reviewMinRunes && n <= reviewMaxRunes
}

// CoerceReviewLength forces a review into the accepted window: short text is
// padded up to the minimum, long text is cut at exactly the maximum.
func CoerceReviewLength(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > reviewMaxRunes {
		return string(runes[:reviewMaxRunes])
	}
	filler := []rune("本局对局过程紧凑，各阶段决策值得复盘。")
	for len(runes) < reviewMinRunes {
		need := reviewMinRunes - len(runes)
		if need >= len(filler) {
			runes = append(runes, filler...)
		} else {
			runes = append(runes, filler[:need]...)
		}
	}
	return string(runes)
}
