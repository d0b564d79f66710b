package game

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrGameFinished  = errors.New("game_finished")
)

type ActionType string

const (
	ActionGuardProtect ActionType = "guard_protect"
	ActionWolfKill     ActionType = "wolf_kill"
	ActionWitchSave    ActionType = "witch_save"
	ActionWitchPoison  ActionType = "witch_poison"
	ActionWitchPass    ActionType = "witch_pass"
	ActionSeerCheck    ActionType = "seer_check"
	ActionBadgeVote    ActionType = "badge_vote"
	ActionSpeech       ActionType = "speech"
	ActionLastWords    ActionType = "last_words"
	ActionVote         ActionType = "vote"
	ActionHunterShoot  ActionType = "hunter_shoot"
)

// Action is one player's submission for the current phase. TargetSeat is nil
// for pass/abstain. Speech carries the spoken lines for talking phases.
type Action struct {
	Type       ActionType
	PlayerID   string
	TargetSeat *int
	Speech     []string
}

// Machine drives one game. It carries no state of its own beyond the
// GameState pointer, so it can be rebuilt from a persisted state at any time.
type Machine struct {
	state *GameState
}

func NewMachine(state *GameState) *Machine {
	return &Machine{state: state}
}

func (m *Machine) State() *GameState { return m.state }

type phaseHandler interface {
	OnEnter(m *Machine) error
	HandleAction(m *Machine, a Action) error
	OnExit(m *Machine) error
}

func handlerFor(p Phase) (phaseHandler, error) {
	switch p {
	case PhaseNight:
		return nightPhase{}, nil
	case PhaseDayBadgeElection:
		return badgeElectionPhase{}, nil
	case PhaseDaySpeech:
		return speechPhase{}, nil
	case PhaseDayLastWords:
		return lastWordsPhase{}, nil
	case PhaseDayVote:
		return votePhase{}, nil
	case PhaseHunterShot:
		return hunterShotPhase{}, nil
	case PhaseGameEnd:
		return gameEndPhase{}, nil
	}
	return nil, fmt.Errorf("unknown_phase: %s", p)
}

// Apply validates and folds one action into the current phase's record.
// The state is untouched when an error is returned.
func (m *Machine) Apply(a Action) error {
	if m.state.Phase == PhaseGameEnd {
		return ErrGameFinished
	}
	h, err := handlerFor(m.state.Phase)
	if err != nil {
		return err
	}
	return h.HandleAction(m, a)
}

// Advance finalizes the current phase and enters the next one. Roles that
// never submitted an action are treated as having passed.
func (m *Machine) Advance() error {
	if m.state.Phase == PhaseGameEnd {
		return ErrGameFinished
	}
	h, err := handlerFor(m.state.Phase)
	if err != nil {
		return err
	}
	if err := h.OnExit(m); err != nil {
		return err
	}
	next := m.nextPhase()
	m.state.Phase = next
	nh, err := handlerFor(next)
	if err != nil {
		return err
	}
	return nh.OnEnter(m)
}

// nextPhase picks the successor from state alone. Priority: a decided game
// ends immediately, then pending retaliation, then pending last words, then
// the regular day/night cycle.
func (m *Machine) nextPhase() Phase {
	s := m.state
	if s.Winner != "" {
		return PhaseGameEnd
	}
	// Last words run before the hunter's shot so the shot decision can stay
	// consistent with what was said.
	if len(s.PendingLastWords) > 0 {
		return PhaseDayLastWords
	}
	if s.PendingHunter != nil {
		return PhaseHunterShot
	}
	switch s.Phase {
	case PhaseNight, PhaseHunterShot, PhaseDayLastWords:
		if m.dayPhasesDone() {
			return PhaseNight
		}
		if s.Day == 1 && s.Badge.HolderSeat == nil && len(s.Badge.VoteHistory) == 0 {
			return PhaseDayBadgeElection
		}
		if m.voteDone() {
			return PhaseNight
		}
		return PhaseDaySpeech
	case PhaseDayBadgeElection:
		return PhaseDaySpeech
	case PhaseDaySpeech:
		return PhaseDayVote
	case PhaseDayVote:
		return PhaseNight
	}
	return PhaseGameEnd
}

// dayPhasesDone reports whether the current day's vote already resolved,
// meaning interleaved phases (last words, hunter shot) return to night.
func (m *Machine) dayPhasesDone() bool {
	if m.state.Phase == PhaseNight {
		return false
	}
	return m.voteDone()
}

func (m *Machine) voteDone() bool {
	rec := m.state.DayHistory[m.state.Day]
	if rec != nil && rec.Executed != nil {
		return true
	}
	return len(m.state.VoteHistory[m.state.Day]) > 0
}

// applyDeath flips a player dead exactly once, queues last words and hunter
// retaliation where the rules allow, and runs the win check. Death after the
// game is decided is ignored.
func (m *Machine) applyDeath(seat int, reason DeathReason) {
	s := m.state
	if s.Winner != "" {
		return
	}
	p := s.PlayerBySeat(seat)
	if p == nil || !p.Alive {
		return
	}
	p.Alive = false
	if w, over := CheckWinner(s.Players); over {
		s.Winner = w
		s.PendingHunter = nil
		s.PendingLastWords = nil
		log.Info().Str("game_id", s.GameID).Str("winner", string(w)).Msg("game decided")
		return
	}
	// A poisoned hunter may not retaliate.
	if p.Role == RoleHunter && reason != DeathPoisoned {
		seatCopy := seat
		s.PendingHunter = &seatCopy
	}
	if reason == DeathExiled || reason == DeathShot {
		s.PendingLastWords = append(s.PendingLastWords, seat)
	}
}

func (m *Machine) appendSystemMessage(content string) {
	s := m.state
	s.Messages = append(s.Messages, Message{
		ID:       uuid.NewString(),
		Day:      s.Day,
		Phase:    s.Phase,
		IsSystem: true,
		Content:  content,
	})
}

func (m *Machine) appendPlayerMessage(playerID string, lines []string) {
	s := m.state
	for _, line := range lines {
		s.Messages = append(s.Messages, Message{
			ID:       uuid.NewString(),
			Day:      s.Day,
			Phase:    s.Phase,
			PlayerID: playerID,
			Content:  line,
		})
	}
}

func (m *Machine) hasSpokenIn(playerID string, day int, phase Phase) bool {
	for _, msg := range m.state.Messages {
		if !msg.IsSystem && msg.PlayerID == playerID && msg.Day == day && msg.Phase == phase {
			return true
		}
	}
	return false
}

func (m *Machine) requireAlive(playerID string) (*Player, error) {
	p := m.state.PlayerByID(playerID)
	if p == nil || !p.Alive {
		return nil, fmt.Errorf("%w: player %s is not alive", ErrInvalidAction, playerID)
	}
	return p, nil
}

func validTarget(s *GameState, seat int) bool {
	p := s.PlayerBySeat(seat)
	return p != nil && p.Alive
}

// tally returns the plurality winner of votes, or ok=false on a tie or when
// nobody voted.
func tally(votes map[string]int) (seat, count int, ok bool) {
	if len(votes) == 0 {
		return 0, 0, false
	}
	counts := map[int]int{}
	for _, target := range votes {
		if target >= 0 {
			counts[target]++
		}
	}
	if len(counts) == 0 {
		return 0, 0, false
	}
	seats := make([]int, 0, len(counts))
	for s := range counts {
		seats = append(seats, s)
	}
	sort.Ints(seats)
	best, bestCount, tied := -1, 0, false
	for _, s := range seats {
		switch {
		case counts[s] > bestCount:
			best, bestCount, tied = s, counts[s], false
		case counts[s] == bestCount:
			tied = true
		}
	}
	if tied {
		return 0, 0, false
	}
	return best, bestCount, true
}
