// Package director drives AI players through the phase machine: build the
// prompt, ask the model for a JSON decision, gate it through the evaluator,
// retry once, and fall back to a safe default so a failing agent never
// strands the game.
package director

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"ai-werewolf/internal/eval"
	"ai-werewolf/internal/game"
	"ai-werewolf/internal/llm"
	"ai-werewolf/internal/prompt"
)

type JSONGenerator interface {
	GenerateJSON(ctx context.Context, req llm.Request, out any) error
}

type Director struct {
	machine *game.Machine
	prompts *prompt.Builder
	gen     JSONGenerator
}

func New(machine *game.Machine, prompts *prompt.Builder, gen JSONGenerator) *Director {
	return &Director{machine: machine, prompts: prompts, gen: gen}
}

// RunPhase resolves every pending AI decision of the current phase and then
// advances the machine. It stops without advancing when the next pending
// decision belongs to the human player.
func (d *Director) RunPhase(ctx context.Context) error {
	for {
		actors := d.machine.PendingActors()
		if len(actors) == 0 {
			return d.machine.Advance()
		}
		actor := actors[0]
		if actor.Player.IsHuman {
			return nil
		}
		if err := d.runActor(ctx, actor); err != nil {
			return err
		}
	}
}

// SubmitHuman applies the human player's decision and resumes the AI loop.
func (d *Director) SubmitHuman(ctx context.Context, a game.Action) error {
	if err := d.machine.Apply(a); err != nil {
		return err
	}
	return d.RunPhase(ctx)
}

type seatDecision struct {
	Seat *float64 `json:"seat"`
}

type witchDecision struct {
	Save       bool     `json:"save"`
	PoisonSeat *float64 `json:"poisonSeat"`
}

func (d *Director) runActor(ctx context.Context, actor game.Actor) error {
	s := d.machine.State()
	built, err := d.prompts.BuildPrompt(s, actor.Player, s.Phase)
	if err != nil {
		return err
	}
	req := llm.Request{
		Model: actor.Player.AgentModel,
		Messages: []llm.Message{
			{Role: "system", Content: built.System},
			{Role: "user", Content: built.User},
		},
		Temperature: 0.7,
	}

	action, ok := d.decide(ctx, req, actor)
	if !ok {
		action = safeDefault(s, actor)
	}
	if err := d.machine.Apply(action); err != nil {
		// A structurally valid decision can still name an illegal target.
		if errors.Is(err, game.ErrInvalidAction) {
			log.Warn().Err(err).
				Int("seat", actor.Player.Seat).
				Str("kind", string(actor.Kind)).
				Msg("decision rejected, applying safe default")
			return d.machine.Apply(safeDefault(s, actor))
		}
		return err
	}
	return nil
}

// decide asks the model for a decision, with one regeneration when the
// evaluator rejects the first answer.
func (d *Director) decide(ctx context.Context, req llm.Request, actor game.Actor) (game.Action, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		action, ok := d.generateOnce(ctx, req, actor)
		if ok {
			return action, true
		}
	}
	return game.Action{}, false
}

func (d *Director) generateOnce(ctx context.Context, req llm.Request, actor game.Actor) (game.Action, bool) {
	playerID := actor.Player.PlayerID
	switch actor.Kind {
	case game.ActionVote:
		var decision eval.VoteDecision
		if err := d.gen.GenerateJSON(ctx, req, &decision); err != nil {
			return game.Action{}, false
		}
		if res := eval.EvaluateVote(decision); !res.OK {
			log.Debug().Strs("reasons", res.Reasons).Int("seat", actor.Player.Seat).Msg("vote rejected by evaluator")
			return game.Action{}, false
		}
		target := int(decision.Seat) - 1
		return game.Action{Type: game.ActionVote, PlayerID: playerID, TargetSeat: &target}, true

	case game.ActionSpeech, game.ActionLastWords:
		var decision eval.SpeechDecision
		if err := d.gen.GenerateJSON(ctx, req, &decision); err != nil {
			return game.Action{}, false
		}
		if res := eval.EvaluateSpeech(decision); !res.OK {
			log.Debug().Strs("reasons", res.Reasons).Int("seat", actor.Player.Seat).Msg("speech rejected by evaluator")
			return game.Action{}, false
		}
		return game.Action{Type: actor.Kind, PlayerID: playerID, Speech: decision.Speech}, true

	case game.ActionWitchSave:
		var decision witchDecision
		if err := d.gen.GenerateJSON(ctx, req, &decision); err != nil {
			return game.Action{}, false
		}
		if decision.Save {
			return game.Action{Type: game.ActionWitchSave, PlayerID: playerID}, true
		}
		if decision.PoisonSeat != nil {
			target := int(*decision.PoisonSeat) - 1
			return game.Action{Type: game.ActionWitchPoison, PlayerID: playerID, TargetSeat: &target}, true
		}
		return game.Action{Type: game.ActionWitchPass, PlayerID: playerID}, true

	default:
		var decision seatDecision
		if err := d.gen.GenerateJSON(ctx, req, &decision); err != nil {
			return game.Action{}, false
		}
		if decision.Seat == nil {
			return game.Action{Type: actor.Kind, PlayerID: playerID}, true
		}
		target := int(*decision.Seat) - 1
		return game.Action{Type: actor.Kind, PlayerID: playerID, TargetSeat: &target}, true
	}
}

// safeDefault is the action applied when the agent repeatedly fails: no
// kill, no potion, abstain, pass. The seer still checks somebody because a
// check has no downside; the first alive other player is deterministic.
func safeDefault(s *game.GameState, actor game.Actor) game.Action {
	playerID := actor.Player.PlayerID
	switch actor.Kind {
	case game.ActionSeerCheck:
		for _, p := range s.AlivePlayers() {
			if p.PlayerID != playerID {
				target := p.Seat
				return game.Action{Type: game.ActionSeerCheck, PlayerID: playerID, TargetSeat: &target}
			}
		}
		return game.Action{Type: game.ActionSeerCheck, PlayerID: playerID}
	case game.ActionWitchSave, game.ActionWitchPoison, game.ActionWitchPass:
		return game.Action{Type: game.ActionWitchPass, PlayerID: playerID}
	case game.ActionSpeech, game.ActionLastWords:
		return game.Action{Type: actor.Kind, PlayerID: playerID, Speech: []string{"我先过，听听大家的看法。"}}
	default:
		// guard pass, no kill, abstain, no shot
		return game.Action{Type: actor.Kind, PlayerID: playerID}
	}
}
