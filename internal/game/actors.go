package game

import "sort"

// Actor is one decision the current phase is still waiting on.
type Actor struct {
	Player *Player
	Kind   ActionType
}

// PendingActors lists who still owes the current phase a decision, in the
// order they should act. Night returns only the next step in the fixed
// guard, wolves, witch, seer order because later roles see earlier results.
// Derived entirely from state, so it survives process restarts.
func (m *Machine) PendingActors() []Actor {
	s := m.state
	switch s.Phase {
	case PhaseNight:
		return m.pendingNightActors()
	case PhaseDayBadgeElection:
		var out []Actor
		for _, p := range m.speakingOrder() {
			if _, voted := s.Badge.VoteHistory[s.Day][p.PlayerID]; !voted {
				out = append(out, Actor{Player: p, Kind: ActionBadgeVote})
			}
		}
		return out
	case PhaseDaySpeech:
		var out []Actor
		for _, p := range m.speakingOrder() {
			if !m.hasSpokenIn(p.PlayerID, s.Day, PhaseDaySpeech) {
				out = append(out, Actor{Player: p, Kind: ActionSpeech})
			}
		}
		return out
	case PhaseDayLastWords:
		var out []Actor
		for _, seat := range s.PendingLastWords {
			if p := s.PlayerBySeat(seat); p != nil {
				out = append(out, Actor{Player: p, Kind: ActionLastWords})
			}
		}
		return out
	case PhaseDayVote:
		var out []Actor
		for _, p := range m.speakingOrder() {
			if _, voted := s.VoteHistory[s.Day][p.PlayerID]; !voted {
				out = append(out, Actor{Player: p, Kind: ActionVote})
			}
		}
		return out
	case PhaseHunterShot:
		if s.PendingHunter != nil {
			if p := s.PlayerBySeat(*s.PendingHunter); p != nil {
				return []Actor{{Player: p, Kind: ActionHunterShoot}}
			}
		}
	}
	return nil
}

func (m *Machine) pendingNightActors() []Actor {
	s := m.state
	rec := s.ensureNight(s.Day)
	if rec.Resolved {
		return nil
	}
	if !rec.GuardActed {
		if guards := s.AliveByRole(RoleGuard); len(guards) > 0 {
			return []Actor{{Player: guards[0], Kind: ActionGuardProtect}}
		}
	}
	if !rec.WolfActed {
		// The lowest-seat wolf submits the pack's choice.
		if wolves := s.AliveByRole(RoleWerewolf); len(wolves) > 0 {
			return []Actor{{Player: wolves[0], Kind: ActionWolfKill}}
		}
	}
	if !rec.WitchActed {
		if witches := s.AliveByRole(RoleWitch); len(witches) > 0 {
			return []Actor{{Player: witches[0], Kind: ActionWitchSave}}
		}
	}
	if !rec.SeerActed {
		if seers := s.AliveByRole(RoleSeer); len(seers) > 0 {
			return []Actor{{Player: seers[0], Kind: ActionSeerCheck}}
		}
	}
	return nil
}

// speakingOrder is the alive roster, sheriff first, then seats ascending
// from the sheriff and wrapping around.
func (m *Machine) speakingOrder() []*Player {
	s := m.state
	alive := s.AlivePlayers()
	sort.Slice(alive, func(i, j int) bool { return alive[i].Seat < alive[j].Seat })
	if s.Badge.HolderSeat == nil {
		return alive
	}
	start := 0
	for i, p := range alive {
		if p.Seat >= *s.Badge.HolderSeat {
			start = i
			break
		}
	}
	return append(append([]*Player{}, alive[start:]...), alive[:start]...)
}
