package llm

import (
	"errors"
	"testing"
)

type voteOut struct {
	Seat   int    `json:"seat"`
	Reason string `json:"reason"`
}

func TestParseTolerantDirect(t *testing.T) {
	var out voteOut
	if err := ParseTolerant(`{"seat": 3, "reason": "logic"}`, &out); err != nil {
		t.Fatalf("direct parse failed: %v", err)
	}
	if out.Seat != 3 || out.Reason != "logic" {
		t.Fatalf("got %+v", out)
	}
}

func TestParseTolerantMarkdownFence(t *testing.T) {
	raw := "```json\n{\"seat\": 5, \"reason\": \"fence\"}\n```"
	var out voteOut
	if err := ParseTolerant(raw, &out); err != nil {
		t.Fatalf("fenced parse failed: %v", err)
	}
	if out.Seat != 5 {
		t.Fatalf("seat = %d, want 5", out.Seat)
	}
}

func TestParseTolerantBareJSONPrefix(t *testing.T) {
	var out voteOut
	if err := ParseTolerant(`json {"seat": 2, "reason": "prefix"}`, &out); err != nil {
		t.Fatalf("prefixed parse failed: %v", err)
	}
	if out.Seat != 2 {
		t.Fatalf("seat = %d, want 2", out.Seat)
	}
}

func TestParseTolerantTrailingComma(t *testing.T) {
	var out voteOut
	if err := ParseTolerant(`{"seat": 7, "reason": "comma",}`, &out); err != nil {
		t.Fatalf("trailing comma parse failed: %v", err)
	}
	if out.Seat != 7 {
		t.Fatalf("seat = %d, want 7", out.Seat)
	}
}

func TestParseTolerantSurroundingProse(t *testing.T) {
	raw := "Here is my decision:\n{\"seat\": 4, \"reason\": \"prose\"}\nHope that helps."
	var out voteOut
	if err := ParseTolerant(raw, &out); err != nil {
		t.Fatalf("embedded parse failed: %v", err)
	}
	if out.Seat != 4 {
		t.Fatalf("seat = %d, want 4", out.Seat)
	}
}

func TestParseTolerantUnescapedInteriorQuote(t *testing.T) {
	raw := `{"seat": 1, "reason": "he said "trust me" yesterday"}`
	var out voteOut
	if err := ParseTolerant(raw, &out); err != nil {
		t.Fatalf("quote repair failed: %v", err)
	}
	if out.Reason != `he said "trust me" yesterday` {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestParseTolerantFancyQuotes(t *testing.T) {
	raw := "{“seat”: 6, “reason”: “fancy”}"
	var out voteOut
	if err := ParseTolerant(raw, &out); err != nil {
		t.Fatalf("fancy quote parse failed: %v", err)
	}
	if out.Seat != 6 {
		t.Fatalf("seat = %d, want 6", out.Seat)
	}
}

func TestParseTolerantGivesUp(t *testing.T) {
	var out voteOut
	err := ParseTolerant("total nonsense without any braces", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrJSONParse) {
		t.Fatalf("expected ErrJSONParse, got %v", err)
	}
}

func TestExtractFirstJSONBlockRespectsStrings(t *testing.T) {
	raw := `noise {"a": "brace } in string", "b": [1, 2]} trailing`
	got := ExtractFirstJSONBlock(raw)
	want := `{"a": "brace } in string", "b": [1, 2]}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractFirstJSONBlockArray(t *testing.T) {
	got := ExtractFirstJSONBlock(`prefix [1, {"x": 2}] suffix`)
	if got != `[1, {"x": 2}]` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractFirstJSONBlockIncomplete(t *testing.T) {
	if got := ExtractFirstJSONBlock(`{"a": 1`); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestStripCodeFencesNoFence(t *testing.T) {
	if got := StripCodeFences("  plain text  "); got != "plain text" {
		t.Fatalf("got %q", got)
	}
}
