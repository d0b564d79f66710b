// Package eval applies a quality rubric to LLM vote and speech decisions
// before the game loop accepts them. The evaluator is advisory: it never
// mutates game state, it only tells the caller whether to ask the model to
// try again.
package eval

import (
	"math"
	"strings"
	"unicode/utf8"
)

type VoteDecision struct {
	Seat         float64  `json:"seat"`
	Reason       string   `json:"reason"`
	EvidenceTags []string `json:"evidence_tags"`
	Counter      string   `json:"counter"`
	Consistency  string   `json:"consistency"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

type SpeechRationale struct {
	EvidenceTags []string `json:"evidence_tags"`
	Counter      string   `json:"counter"`
	Consistency  string   `json:"consistency"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

type SpeechDecision struct {
	Speech    []string         `json:"speech"`
	Rationale *SpeechRationale `json:"rationale,omitempty"`
}

type Result struct {
	OK      bool
	Reasons []string
}

// Vocabulary that signals a vote justified purely by tone rather than
// evidence. Such a reason only passes when backed by a non-speech tag.
var attackinessKeywords = []string{
	"攻击性", "攻击", "情绪", "情绪化", "语气", "态度", "咄咄逼人", "强硬", "激进",
}

// Placeholder counter-arguments that count as effectively empty.
var emptyCounterWords = map[string]bool{
	"无": true, "没有": true, "暂无": true, "不知道": true, "不确定": true, "无反证": true,
}

var speechOnlyTags = map[string]bool{
	"speech_consistency": true,
	"today_transcript":   true,
}

func isNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

func isLikelyEmptyCounter(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return true
	}
	if utf8.RuneCountInString(trimmed) < 2 {
		return true
	}
	return emptyCounterWords[trimmed]
}

func hasEnoughEvidence(tags []string) bool {
	return len(tags) >= 2
}

func isAttackinessOnly(reason string, tags []string) bool {
	if !isNonEmpty(reason) {
		return false
	}
	found := false
	for _, k := range attackinessKeywords {
		if strings.Contains(reason, k) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for _, tag := range tags {
		if !speechOnlyTags[tag] {
			return false
		}
	}
	return true
}

func validateCommon(tags []string, counter, consistency string, confidence *float64) []string {
	var reasons []string
	if !hasEnoughEvidence(tags) {
		reasons = append(reasons, "evidence_tags_insufficient")
	}
	if isLikelyEmptyCounter(counter) {
		reasons = append(reasons, "counter_missing")
	}
	if !isNonEmpty(consistency) {
		reasons = append(reasons, "consistency_missing")
	}
	if confidence != nil {
		c := *confidence
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c > 1 {
			reasons = append(reasons, "confidence_invalid")
		}
	}
	return reasons
}

func EvaluateVote(d VoteDecision) Result {
	var reasons []string
	if math.IsNaN(d.Seat) || math.IsInf(d.Seat, 0) || d.Seat <= 0 {
		reasons = append(reasons, "seat_invalid")
	}
	if !isNonEmpty(d.Reason) {
		reasons = append(reasons, "reason_missing")
	}
	reasons = append(reasons, validateCommon(d.EvidenceTags, d.Counter, d.Consistency, d.Confidence)...)
	if isAttackinessOnly(d.Reason, d.EvidenceTags) {
		reasons = append(reasons, "attackiness_only")
	}
	return Result{OK: len(reasons) == 0, Reasons: reasons}
}

func EvaluateSpeech(d SpeechDecision) Result {
	var reasons []string
	if len(d.Speech) == 0 {
		reasons = append(reasons, "speech_missing")
	}
	r := SpeechRationale{}
	if d.Rationale != nil {
		r = *d.Rationale
	}
	reasons = append(reasons, validateCommon(r.EvidenceTags, r.Counter, r.Consistency, r.Confidence)...)
	return Result{OK: len(reasons) == 0, Reasons: reasons}
}
