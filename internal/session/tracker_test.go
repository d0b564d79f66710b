package session

import "testing"

func TestTrackerSummaryBeforeStart(t *testing.T) {
	tr := NewTracker()
	if s := tr.Summary("", false); s != nil {
		t.Fatalf("expected nil summary before Start, got %+v", s)
	}
}

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker()
	id := tr.Start(Config{PlayerCount: 9})
	if id == "" {
		t.Fatal("expected non-empty session id")
	}
	tr.AddAICall(AICallStats{InputChars: 100, OutputChars: 40, PromptTokens: 25, CompletionTokens: 10})
	tr.AddAICall(AICallStats{InputChars: 50, OutputChars: 10})
	tr.IncrementRound()

	s := tr.Summary("wolf", true)
	if s == nil {
		t.Fatal("expected summary")
	}
	if s.AICallsCount != 2 {
		t.Fatalf("calls = %d, want 2", s.AICallsCount)
	}
	if s.AIInputChars != 150 || s.AIOutputChars != 50 {
		t.Fatalf("chars = %d/%d, want 150/50", s.AIInputChars, s.AIOutputChars)
	}
	if s.AIPromptTokens != 25 || s.AICompletionTokens != 10 {
		t.Fatalf("tokens = %d/%d, want 25/10", s.AIPromptTokens, s.AICompletionTokens)
	}
	if s.RoundsPlayed != 1 {
		t.Fatalf("rounds = %d, want 1", s.RoundsPlayed)
	}
	if s.Winner != "wolf" || !s.Completed {
		t.Fatalf("summary outcome wrong: %+v", s)
	}
}

func TestTrackerStartResets(t *testing.T) {
	tr := NewTracker()
	first := tr.Start(Config{PlayerCount: 6})
	tr.AddAICall(AICallStats{InputChars: 10, OutputChars: 10})
	second := tr.Start(Config{PlayerCount: 9})
	if first == second {
		t.Fatal("expected a fresh session id")
	}
	s := tr.Summary("", false)
	if s.AICallsCount != 0 {
		t.Fatalf("expected counters reset, got %d calls", s.AICallsCount)
	}
}
