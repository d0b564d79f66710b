package game

import (
	"fmt"
)

// Night. Actions arrive in the fixed order guard, wolves, witch, seer
// because each later role may see the outcome of the earlier step. The
// per-step Acted flags in the NightRecord gate the ordering.
type nightPhase struct{}

func (nightPhase) OnEnter(m *Machine) error {
	m.state.ensureNight(m.state.Day)
	m.appendSystemMessage(fmt.Sprintf("第%d夜，天黑请闭眼。", m.state.Day+1))
	return nil
}

func (nightPhase) HandleAction(m *Machine, a Action) error {
	s := m.state
	rec := s.ensureNight(s.Day)
	if rec.Resolved {
		return fmt.Errorf("%w: night already resolved", ErrInvalidAction)
	}
	p, err := m.requireAlive(a.PlayerID)
	if err != nil {
		return err
	}
	switch a.Type {
	case ActionGuardProtect:
		if p.Role != RoleGuard {
			return fmt.Errorf("%w: %s cannot guard", ErrInvalidAction, p.Role)
		}
		if rec.GuardActed {
			return fmt.Errorf("%w: guard already acted", ErrInvalidAction)
		}
		if a.TargetSeat != nil {
			if !validTarget(s, *a.TargetSeat) {
				return fmt.Errorf("%w: bad guard target", ErrInvalidAction)
			}
			if prev := s.NightHistory[s.Day-1]; prev != nil && prev.GuardTarget != nil && *prev.GuardTarget == *a.TargetSeat {
				return fmt.Errorf("%w: cannot guard the same player two nights running", ErrInvalidAction)
			}
			rec.GuardTarget = a.TargetSeat
		}
		rec.GuardActed = true
	case ActionWolfKill:
		if p.Role != RoleWerewolf {
			return fmt.Errorf("%w: %s cannot choose the kill", ErrInvalidAction, p.Role)
		}
		if !m.guardStepDone(rec) {
			return fmt.Errorf("%w: guard has not acted yet", ErrInvalidAction)
		}
		if rec.WolfActed {
			return fmt.Errorf("%w: wolves already chose", ErrInvalidAction)
		}
		if a.TargetSeat != nil {
			if !validTarget(s, *a.TargetSeat) {
				return fmt.Errorf("%w: bad kill target", ErrInvalidAction)
			}
			rec.WolfTarget = a.TargetSeat
		}
		rec.WolfActed = true
	case ActionWitchSave:
		if p.Role != RoleWitch {
			return fmt.Errorf("%w: %s has no potions", ErrInvalidAction, p.Role)
		}
		if !rec.WolfActed {
			return fmt.Errorf("%w: wolves have not acted yet", ErrInvalidAction)
		}
		if rec.WitchActed {
			return fmt.Errorf("%w: witch already acted", ErrInvalidAction)
		}
		if s.WitchSaveUsed {
			return fmt.Errorf("%w: save potion already used", ErrInvalidAction)
		}
		if rec.WolfTarget == nil {
			return fmt.Errorf("%w: nobody to save tonight", ErrInvalidAction)
		}
		rec.WitchSave = true
		rec.WitchActed = true
		s.WitchSaveUsed = true
	case ActionWitchPoison:
		if p.Role != RoleWitch {
			return fmt.Errorf("%w: %s has no potions", ErrInvalidAction, p.Role)
		}
		if !rec.WolfActed {
			return fmt.Errorf("%w: wolves have not acted yet", ErrInvalidAction)
		}
		if rec.WitchActed {
			return fmt.Errorf("%w: witch already acted", ErrInvalidAction)
		}
		if s.WitchPoisonUsed {
			return fmt.Errorf("%w: poison already used", ErrInvalidAction)
		}
		if a.TargetSeat == nil || !validTarget(s, *a.TargetSeat) {
			return fmt.Errorf("%w: bad poison target", ErrInvalidAction)
		}
		rec.WitchPoison = a.TargetSeat
		rec.WitchActed = true
		s.WitchPoisonUsed = true
	case ActionWitchPass:
		if p.Role != RoleWitch {
			return fmt.Errorf("%w: %s has no potions", ErrInvalidAction, p.Role)
		}
		if !rec.WolfActed {
			return fmt.Errorf("%w: wolves have not acted yet", ErrInvalidAction)
		}
		if rec.WitchActed {
			return fmt.Errorf("%w: witch already acted", ErrInvalidAction)
		}
		rec.WitchActed = true
	case ActionSeerCheck:
		if p.Role != RoleSeer {
			return fmt.Errorf("%w: %s cannot check", ErrInvalidAction, p.Role)
		}
		if !m.witchStepDone(rec) {
			return fmt.Errorf("%w: witch has not acted yet", ErrInvalidAction)
		}
		if rec.SeerActed {
			return fmt.Errorf("%w: seer already checked", ErrInvalidAction)
		}
		if a.TargetSeat == nil || !validTarget(s, *a.TargetSeat) || *a.TargetSeat == p.Seat {
			return fmt.Errorf("%w: bad check target", ErrInvalidAction)
		}
		target := s.PlayerBySeat(*a.TargetSeat)
		rec.SeerResult = &SeerResult{
			TargetSeat: target.Seat,
			IsWolf:     target.Role.Alignment() == AlignmentWolf,
		}
		rec.SeerActed = true
	default:
		return fmt.Errorf("%w: %s not valid at night", ErrInvalidAction, a.Type)
	}
	return nil
}

// OnExit resolves the night. Precedence: a guarded or witch-saved target
// survives the wolf kill; poison is an independent cause the guard cannot
// stop; guard and save on the same target is the 同守同救 conflict, which
// still resolves to survival.
func (nightPhase) OnExit(m *Machine) error {
	s := m.state
	rec := s.ensureNight(s.Day)
	if !rec.Resolved {
		fatal := []Death{}
		if rec.WolfTarget != nil {
			t := *rec.WolfTarget
			guarded := rec.GuardTarget != nil && *rec.GuardTarget == t
			if guarded && rec.WitchSave {
				rec.GuardSaveConflict = true
			}
			if !guarded && !rec.WitchSave {
				fatal = append(fatal, Death{Seat: t, Reason: DeathKilled})
			}
		}
		if rec.WitchPoison != nil {
			dup := false
			for _, d := range fatal {
				if d.Seat == *rec.WitchPoison {
					dup = true
				}
			}
			if !dup {
				fatal = append(fatal, Death{Seat: *rec.WitchPoison, Reason: DeathPoisoned})
			}
		}
		rec.Deaths = fatal
		rec.Resolved = true
		for _, d := range fatal {
			m.applyDeath(d.Seat, d.Reason)
		}
	}
	s.Day++
	return nil
}

func (m *Machine) guardStepDone(rec *NightRecord) bool {
	return rec.GuardActed || len(m.state.AliveByRole(RoleGuard)) == 0
}

func (m *Machine) witchStepDone(rec *NightRecord) bool {
	return rec.WitchActed || len(m.state.AliveByRole(RoleWitch)) == 0
}

// Day 1 sheriff election.
type badgeElectionPhase struct{}

func (badgeElectionPhase) OnEnter(m *Machine) error {
	s := m.state
	if s.Badge.VoteHistory == nil {
		s.Badge.VoteHistory = map[int]map[string]int{}
	}
	if len(s.Badge.Candidates) == 0 {
		for _, p := range s.AlivePlayers() {
			s.Badge.Candidates = append(s.Badge.Candidates, p.Seat)
		}
	}
	m.appendSystemMessage("警徽竞选开始，请投票选出警长。")
	return nil
}

func (badgeElectionPhase) HandleAction(m *Machine, a Action) error {
	if a.Type != ActionBadgeVote {
		return fmt.Errorf("%w: %s not valid during election", ErrInvalidAction, a.Type)
	}
	s := m.state
	p, err := m.requireAlive(a.PlayerID)
	if err != nil {
		return err
	}
	if s.Badge.VoteHistory == nil {
		s.Badge.VoteHistory = map[int]map[string]int{}
	}
	day := s.Badge.VoteHistory[s.Day]
	if day == nil {
		day = map[string]int{}
		s.Badge.VoteHistory[s.Day] = day
	}
	if _, dup := day[p.PlayerID]; dup {
		return fmt.Errorf("%w: already voted in the election", ErrInvalidAction)
	}
	if a.TargetSeat == nil {
		day[p.PlayerID] = -1
		return nil
	}
	if !validTarget(s, *a.TargetSeat) {
		return fmt.Errorf("%w: bad election target", ErrInvalidAction)
	}
	day[p.PlayerID] = *a.TargetSeat
	return nil
}

func (badgeElectionPhase) OnExit(m *Machine) error {
	s := m.state
	if seat, _, ok := tally(s.Badge.VoteHistory[s.Day]); ok {
		s.Badge.HolderSeat = &seat
		if p := s.PlayerBySeat(seat); p != nil {
			m.appendSystemMessage(fmt.Sprintf("%d号 %s 当选警长。", seat+1, p.DisplayName))
		}
	} else {
		m.appendSystemMessage("警徽流失，本局没有警长。")
	}
	return nil
}

// Ordered daytime speeches.
type speechPhase struct{}

func (speechPhase) OnEnter(m *Machine) error {
	m.appendSystemMessage(fmt.Sprintf("第%d天，进入发言阶段。", m.state.Day))
	return nil
}

func (speechPhase) HandleAction(m *Machine, a Action) error {
	if a.Type != ActionSpeech {
		return fmt.Errorf("%w: %s not valid during speeches", ErrInvalidAction, a.Type)
	}
	p, err := m.requireAlive(a.PlayerID)
	if err != nil {
		return err
	}
	if m.hasSpokenIn(p.PlayerID, m.state.Day, PhaseDaySpeech) {
		return fmt.Errorf("%w: already spoke today", ErrInvalidAction)
	}
	if len(a.Speech) == 0 {
		return fmt.Errorf("%w: empty speech", ErrInvalidAction)
	}
	m.appendPlayerMessage(p.PlayerID, a.Speech)
	return nil
}

func (speechPhase) OnExit(m *Machine) error { return nil }

// Final statement of an exiled or shot player. The speaker is dead, so the
// alive check does not apply; eligibility comes from the pending list.
type lastWordsPhase struct{}

func (lastWordsPhase) OnEnter(m *Machine) error {
	m.appendSystemMessage("请留下遗言。")
	return nil
}

func (lastWordsPhase) HandleAction(m *Machine, a Action) error {
	if a.Type != ActionLastWords {
		return fmt.Errorf("%w: %s not valid during last words", ErrInvalidAction, a.Type)
	}
	s := m.state
	p := s.PlayerByID(a.PlayerID)
	if p == nil {
		return fmt.Errorf("%w: unknown player", ErrInvalidAction)
	}
	pending := false
	for _, seat := range s.PendingLastWords {
		if seat == p.Seat {
			pending = true
		}
	}
	if !pending {
		return fmt.Errorf("%w: no last words owed", ErrInvalidAction)
	}
	if len(a.Speech) == 0 {
		return fmt.Errorf("%w: empty last words", ErrInvalidAction)
	}
	m.appendPlayerMessage(p.PlayerID, a.Speech)
	remaining := s.PendingLastWords[:0]
	for _, seat := range s.PendingLastWords {
		if seat != p.Seat {
			remaining = append(remaining, seat)
		}
	}
	s.PendingLastWords = remaining
	return nil
}

func (lastWordsPhase) OnExit(m *Machine) error {
	// Whoever never spoke forfeits the statement.
	m.state.PendingLastWords = nil
	return nil
}

// Exile vote.
type votePhase struct{}

func (votePhase) OnEnter(m *Machine) error {
	s := m.state
	if s.VoteHistory == nil {
		s.VoteHistory = map[int]map[string]int{}
	}
	if s.VoteHistory[s.Day] == nil {
		s.VoteHistory[s.Day] = map[string]int{}
	}
	m.appendSystemMessage("进入投票放逐阶段。")
	return nil
}

func (votePhase) HandleAction(m *Machine, a Action) error {
	if a.Type != ActionVote {
		return fmt.Errorf("%w: %s not valid during the vote", ErrInvalidAction, a.Type)
	}
	s := m.state
	p, err := m.requireAlive(a.PlayerID)
	if err != nil {
		return err
	}
	if s.VoteHistory[s.Day] == nil {
		s.VoteHistory[s.Day] = map[string]int{}
	}
	if _, dup := s.VoteHistory[s.Day][p.PlayerID]; dup {
		return fmt.Errorf("%w: already voted today", ErrInvalidAction)
	}
	if a.TargetSeat == nil {
		s.VoteHistory[s.Day][p.PlayerID] = -1
		return nil
	}
	if !validTarget(s, *a.TargetSeat) || *a.TargetSeat == p.Seat {
		return fmt.Errorf("%w: bad vote target", ErrInvalidAction)
	}
	s.VoteHistory[s.Day][p.PlayerID] = *a.TargetSeat
	return nil
}

func (votePhase) OnExit(m *Machine) error {
	s := m.state
	rec := s.ensureDay(s.Day)
	if rec.Executed != nil {
		return nil
	}
	seat, votes, ok := tally(s.VoteHistory[s.Day])
	if !ok {
		m.appendSystemMessage("投票平票，今天无人被放逐。")
		return nil
	}
	rec.Executed = &Executed{Seat: seat, Votes: votes}
	if p := s.PlayerBySeat(seat); p != nil {
		m.appendSystemMessage(fmt.Sprintf("%d号 %s 被投票放逐。", seat+1, p.DisplayName))
	}
	m.applyDeath(seat, DeathExiled)
	return nil
}

// Hunter retaliation after being killed or exiled.
type hunterShotPhase struct{}

func (hunterShotPhase) OnEnter(m *Machine) error {
	m.appendSystemMessage("猎人倒下，可以发动开枪技能。")
	return nil
}

func (hunterShotPhase) HandleAction(m *Machine, a Action) error {
	if a.Type != ActionHunterShoot {
		return fmt.Errorf("%w: %s not valid now", ErrInvalidAction, a.Type)
	}
	s := m.state
	p := s.PlayerByID(a.PlayerID)
	if p == nil || p.Role != RoleHunter {
		return fmt.Errorf("%w: not the hunter", ErrInvalidAction)
	}
	if s.PendingHunter == nil || *s.PendingHunter != p.Seat {
		return fmt.Errorf("%w: no shot owed", ErrInvalidAction)
	}
	if a.TargetSeat == nil {
		s.PendingHunter = nil
		m.appendSystemMessage(fmt.Sprintf("%d号猎人选择不开枪。", p.Seat+1))
		return nil
	}
	if !validTarget(s, *a.TargetSeat) {
		return fmt.Errorf("%w: bad shot target", ErrInvalidAction)
	}
	s.PendingHunter = nil
	rec := s.ensureDay(s.Day)
	rec.HunterShot = &HunterShot{HunterSeat: p.Seat, TargetSeat: *a.TargetSeat}
	if t := s.PlayerBySeat(*a.TargetSeat); t != nil {
		m.appendSystemMessage(fmt.Sprintf("%d号猎人开枪带走了%d号 %s。", p.Seat+1, t.Seat+1, t.DisplayName))
	}
	m.applyDeath(*a.TargetSeat, DeathShot)
	return nil
}

func (hunterShotPhase) OnExit(m *Machine) error {
	// An unanswered shot is forfeited.
	m.state.PendingHunter = nil
	return nil
}

type gameEndPhase struct{}

func (gameEndPhase) OnEnter(m *Machine) error {
	s := m.state
	if s.Winner == AlignmentVillage {
		m.appendSystemMessage("游戏结束，好人阵营获胜。")
	} else if s.Winner == AlignmentWolf {
		m.appendSystemMessage("游戏结束，狼人阵营获胜。")
	}
	return nil
}

func (gameEndPhase) HandleAction(m *Machine, a Action) error {
	return ErrGameFinished
}

func (gameEndPhase) OnExit(m *Machine) error { return nil }
