package director

import (
	"context"
	"errors"
	"testing"

	"ai-werewolf/internal/game"
	"ai-werewolf/internal/llm"
	"ai-werewolf/internal/prompt"
)

func seat(n int) *int { return &n }

func testState() *game.GameState {
	roles := []game.Role{
		game.RoleWerewolf, game.RoleWerewolf, game.RoleWerewolf,
		game.RoleSeer, game.RoleWitch, game.RoleHunter, game.RoleGuard,
		game.RoleVillager, game.RoleVillager,
	}
	var players []game.Player
	for i, r := range roles {
		players = append(players, game.Player{
			PlayerID:    string(rune('a' + i)),
			Seat:        i,
			DisplayName: "玩家" + string(rune('0'+i)),
			Role:        r,
			Alive:       true,
		})
	}
	return game.NewGameState("g1", players)
}

// scriptedGen replays canned outputs in call order.
type scriptedGen struct {
	outputs []string
	errs    []error
	calls   int
}

func (g *scriptedGen) GenerateJSON(_ context.Context, _ llm.Request, v any) error {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return g.errs[i]
	}
	if i >= len(g.outputs) {
		return errors.New("script exhausted")
	}
	return llm.ParseTolerant(g.outputs[i], v)
}

func TestRunPhaseNight(t *testing.T) {
	s := testState()
	m := game.NewMachine(s)
	gen := &scriptedGen{outputs: []string{
		`{"seat": 4}`,                        // guard protects seat 3
		`{"seat": 8}`,                        // wolves kill seat 7
		`{"save": false, "poisonSeat": null}`, // witch passes
		`{"seat": 1}`,                        // seer checks seat 0
	}}
	d := New(m, prompt.NewBuilder(nil), gen)

	if err := d.RunPhase(context.Background()); err != nil {
		t.Fatalf("RunPhase: %v", err)
	}

	rec := s.NightHistory[0]
	if rec.GuardTarget == nil || *rec.GuardTarget != 3 {
		t.Fatalf("guard target = %v", rec.GuardTarget)
	}
	if rec.WolfTarget == nil || *rec.WolfTarget != 7 {
		t.Fatalf("wolf target = %v", rec.WolfTarget)
	}
	if !rec.WitchActed || rec.WitchSave {
		t.Fatalf("witch record = %+v", rec)
	}
	if rec.SeerResult == nil || rec.SeerResult.TargetSeat != 0 || !rec.SeerResult.IsWolf {
		t.Fatalf("seer result = %+v", rec.SeerResult)
	}
	if s.PlayerBySeat(7).Alive {
		t.Fatal("wolf target should be dead after resolution")
	}
	if s.Day != 1 || s.Phase != game.PhaseDayBadgeElection {
		t.Fatalf("day = %d phase = %s", s.Day, s.Phase)
	}
}

func TestRunPhaseVoteRegeneratesThenFallsBack(t *testing.T) {
	s := testState()
	s.Day = 1
	s.Phase = game.PhaseDayVote
	m := game.NewMachine(s)

	// Nine voters. The first submits an attack-only vote twice and falls
	// back to abstention; the rest vote seat 1 properly.
	bad := `{"seat": 1, "reason": "他太有攻击性了", "evidence_tags": ["speech_consistency"], "counter": "无", "consistency": "一致"}`
	good := `{"seat": 1, "reason": "他的发言与查验结果矛盾", "evidence_tags": ["seer_check", "vote_history"], "counter": "可能只是口误", "consistency": "与昨天立场一致"}`
	outputs := []string{bad, bad}
	for i := 0; i < 8; i++ {
		outputs = append(outputs, good)
	}
	gen := &scriptedGen{outputs: outputs}
	d := New(m, prompt.NewBuilder(nil), gen)

	if err := d.RunPhase(context.Background()); err != nil {
		t.Fatalf("RunPhase: %v", err)
	}

	votes := s.VoteHistory[1]
	if votes["a"] != -1 {
		t.Fatalf("first voter should abstain after two rejections, got %d", votes["a"])
	}
	if votes["b"] != 0 {
		t.Fatalf("vote = %d, want seat 0", votes["b"])
	}
	if s.DayHistory[1].Executed == nil || s.DayHistory[1].Executed.Seat != 0 {
		t.Fatalf("executed = %+v", s.DayHistory[1].Executed)
	}
	if gen.calls != 10 {
		t.Fatalf("calls = %d, want 10", gen.calls)
	}
}

func TestRunPhaseStopsForHuman(t *testing.T) {
	s := testState()
	s.Players[6].IsHuman = true // the guard is human
	m := game.NewMachine(s)
	gen := &scriptedGen{}
	d := New(m, prompt.NewBuilder(nil), gen)

	if err := d.RunPhase(context.Background()); err != nil {
		t.Fatalf("RunPhase: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("no AI call expected while waiting on the human, got %d", gen.calls)
	}
	if s.Phase != game.PhaseNight {
		t.Fatalf("phase = %s, should still be night", s.Phase)
	}

	// The human submits, then the AI roles continue.
	gen.outputs = []string{
		`{"seat": null}`,                      // wolves pass
		`{"save": false, "poisonSeat": null}`, // witch passes
		`{"seat": 1}`,                         // seer checks
	}
	err := d.SubmitHuman(context.Background(), game.Action{
		Type: game.ActionGuardProtect, PlayerID: "g", TargetSeat: seat(3),
	})
	if err != nil {
		t.Fatalf("SubmitHuman: %v", err)
	}
	if s.Phase != game.PhaseDayBadgeElection {
		t.Fatalf("phase = %s", s.Phase)
	}
}

func TestRunActorIllegalTargetFallsBack(t *testing.T) {
	s := testState()
	m := game.NewMachine(s)
	gen := &scriptedGen{outputs: []string{
		`{"seat": 99}`,                        // guard names a seat that does not exist
		`{"seat": null}`,                      // wolves pass
		`{"save": false, "poisonSeat": null}`, // witch passes
		`{"seat": 2}`,                         // seer checks
	}}
	d := New(m, prompt.NewBuilder(nil), gen)

	if err := d.RunPhase(context.Background()); err != nil {
		t.Fatalf("RunPhase: %v", err)
	}
	rec := s.NightHistory[0]
	if rec.GuardTarget != nil {
		t.Fatalf("guard target = %v, want pass", rec.GuardTarget)
	}
	if !rec.GuardActed {
		t.Fatal("guard step should be complete")
	}
}
