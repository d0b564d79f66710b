package claims

import (
	"reflect"
	"strings"
	"testing"
)

func roleClaim(day, seat int, role string) Claim {
	return Claim{
		ID: "c", Day: day, Phase: "DAY_SPEECH", SpeakerSeat: seat,
		ClaimType: TypeRoleClaim, Role: role,
		Content: role + " claim", Status: StatusUnverified, Source: SourceSummary,
	}
}

func TestMergeDeduplicates(t *testing.T) {
	a := []Claim{roleClaim(1, 0, "Seer")}
	b := []Claim{roleClaim(1, 0, "Seer")}
	merged := Merge(a, b)
	if len(merged) != 1 {
		t.Fatalf("len = %d, want 1", len(merged))
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := []Claim{roleClaim(1, 0, "Seer"), roleClaim(1, 2, "Witch")}
	b := []Claim{roleClaim(1, 3, "Guard"), roleClaim(2, 0, "Seer")}
	once := Merge(a, b)
	twice := Merge(once, b)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeContestsDuplicateRoleClaims(t *testing.T) {
	a := []Claim{roleClaim(1, 0, "Seer")}
	b := []Claim{roleClaim(1, 4, "Seer")}
	merged := Merge(a, b)
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2", len(merged))
	}
	for _, c := range merged {
		if c.Status != StatusContested {
			t.Fatalf("claim from seat %d has status %s, want contested", c.SpeakerSeat, c.Status)
		}
	}
}

func TestMergeDifferentDaysNotContested(t *testing.T) {
	merged := Merge([]Claim{roleClaim(1, 0, "Seer")}, []Claim{roleClaim(2, 4, "Seer")})
	for _, c := range merged {
		if c.Status != StatusUnverified {
			t.Fatalf("status = %s, want unverified", c.Status)
		}
	}
}

func TestRenderLimitAndDisclaimer(t *testing.T) {
	var list []Claim
	for i := 0; i < 5; i++ {
		c := roleClaim(1, i, "Villager")
		c.Content = string(rune('a' + i))
		list = append(list, c)
	}
	out := Render(list, RenderOptions{
		Limit:      2,
		Header:     "Public claims so far:",
		Disclaimer: "All claims are self-reported and unverified.",
		SeatLabel:  func(seat int) string { return "P" + string(rune('0'+seat)) },
	})
	if !strings.Contains(out, "self-reported and unverified") {
		t.Fatal("disclaimer missing")
	}
	if strings.Contains(out, "- P1:") || strings.Contains(out, "- P3:") {
		t.Fatalf("older claims should be dropped:\n%s", out)
	}
	if !strings.Contains(out, "- P4: d") || !strings.Contains(out, "- P5: e") {
		t.Fatalf("latest claims missing:\n%s", out)
	}
}

func TestRenderEmpty(t *testing.T) {
	if out := Render(nil, RenderOptions{Limit: 3, Header: "h", Disclaimer: "d"}); out != "" {
		t.Fatalf("expected empty render, got %q", out)
	}
}

func TestParseExtraction(t *testing.T) {
	raw := "```json\n" + `{
		"claims": [
			{"day": 1, "speakerSeat": 3, "claimType": "role_claim", "role": "Seer", "content": "我是预言家", "phase": "DAY_SPEECH"},
			{"day": 1, "claimType": "role_claim", "content": "missing seat"},
			{"speakerSeat": 2, "claimType": "role_claim", "content": "missing day"},
			{"day": 1, "speakerSeat": 5, "claimType": "weird_type", "content": "  "},
			{"day": 2, "speakerSeat": 4, "claimType": "seer_check", "targetSeat": 6, "content": "6号是狼", "status": "disproved"}
		]
	}` + "\n```"
	got, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	first := got[0]
	if first.SpeakerSeat != 2 {
		t.Fatalf("speaker seat = %d, want 2 (0-indexed)", first.SpeakerSeat)
	}
	if first.Status != StatusUnverified {
		t.Fatalf("status default = %s", first.Status)
	}
	second := got[1]
	if second.TargetSeat == nil || *second.TargetSeat != 5 {
		t.Fatalf("target seat = %v, want 5", second.TargetSeat)
	}
	if second.Status != StatusDisproved {
		t.Fatalf("status = %s, want disproved", second.Status)
	}
}

func TestParseExtractionDefaultsRole(t *testing.T) {
	raw := `{"claims": [{"day": 1, "speakerSeat": 1, "claimType": "other", "content": "hmm"}]}`
	got, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if got[0].Role != "Unknown" {
		t.Fatalf("role = %q, want Unknown", got[0].Role)
	}
}
