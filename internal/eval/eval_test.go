package eval

import (
	"math"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func goodVote() VoteDecision {
	return VoteDecision{
		Seat:         3,
		Reason:       "他昨晚的发言与查验结果矛盾",
		EvidenceTags: []string{"seer_check", "vote_history"},
		Counter:      "他可能只是记错了",
		Consistency:  "与前两天立场一致",
		Confidence:   ptr(0.8),
	}
}

func TestEvaluateVoteAccepts(t *testing.T) {
	res := EvaluateVote(goodVote())
	if !res.OK {
		t.Fatalf("expected ok, reasons = %v", res.Reasons)
	}
}

func TestEvaluateVoteEvidenceBoundary(t *testing.T) {
	d := goodVote()
	d.EvidenceTags = []string{"seer_check"}
	res := EvaluateVote(d)
	if res.OK {
		t.Fatal("one evidence tag should fail")
	}
	if !hasReason(res, "evidence_tags_insufficient") {
		t.Fatalf("reasons = %v", res.Reasons)
	}

	d.EvidenceTags = []string{"seer_check", "vote_history"}
	if res := EvaluateVote(d); !res.OK {
		t.Fatalf("two evidence tags should pass, reasons = %v", res.Reasons)
	}
}

func TestEvaluateVoteEmptyCounter(t *testing.T) {
	for _, counter := range []string{"", " ", "无", "没有", "暂无", "不知道", "不确定", "无反证", "x"} {
		d := goodVote()
		d.Counter = counter
		res := EvaluateVote(d)
		if res.OK || !hasReason(res, "counter_missing") {
			t.Fatalf("counter %q: result = %+v", counter, res)
		}
	}
}

func TestEvaluateVoteAttackinessOnly(t *testing.T) {
	res := EvaluateVote(VoteDecision{
		Seat:         3,
		Reason:       "他太有攻击性了",
		EvidenceTags: []string{"speech_consistency"},
		Counter:      "无",
		Consistency:  "一致",
	})
	if res.OK {
		t.Fatal("attack-only vote should be rejected")
	}
	if !hasReason(res, "attackiness_only") || !hasReason(res, "evidence_tags_insufficient") {
		t.Fatalf("reasons = %v", res.Reasons)
	}
}

func TestEvaluateVoteAttackinessWithHardEvidence(t *testing.T) {
	d := goodVote()
	d.Reason = "他的攻击性发言掩盖了查验矛盾"
	d.EvidenceTags = []string{"seer_check", "speech_consistency"}
	if res := EvaluateVote(d); !res.OK {
		t.Fatalf("hard evidence should override tone wording, reasons = %v", res.Reasons)
	}
}

func TestEvaluateVoteSeatAndConfidence(t *testing.T) {
	d := goodVote()
	d.Seat = 0
	if res := EvaluateVote(d); res.OK || !hasReason(res, "seat_invalid") {
		t.Fatalf("seat 0: %+v", res)
	}

	d = goodVote()
	d.Seat = math.NaN()
	if res := EvaluateVote(d); res.OK || !hasReason(res, "seat_invalid") {
		t.Fatalf("seat NaN: %+v", res)
	}

	d = goodVote()
	d.Confidence = ptr(1.5)
	if res := EvaluateVote(d); res.OK || !hasReason(res, "confidence_invalid") {
		t.Fatalf("confidence 1.5: %+v", res)
	}

	d = goodVote()
	d.Confidence = nil
	if res := EvaluateVote(d); !res.OK {
		t.Fatalf("nil confidence should be fine, reasons = %v", res.Reasons)
	}
}

func TestEvaluateSpeech(t *testing.T) {
	res := EvaluateSpeech(SpeechDecision{
		Speech: []string{"我是平民，昨晚的刀法很奇怪。"},
		Rationale: &SpeechRationale{
			EvidenceTags: []string{"night_result", "vote_history"},
			Counter:      "刀法也可能是狼队随机的",
			Consistency:  "与昨天的发言一致",
		},
	})
	if !res.OK {
		t.Fatalf("expected ok, reasons = %v", res.Reasons)
	}

	res = EvaluateSpeech(SpeechDecision{})
	if res.OK || !hasReason(res, "speech_missing") {
		t.Fatalf("empty speech: %+v", res)
	}
}

func hasReason(r Result, want string) bool {
	for _, got := range r.Reasons {
		if got == want {
			return true
		}
	}
	return false
}
