package analysis

import (
	"ai-werewolf/internal/game"
)

// statsContext aggregates the human player's history, feeding the tag rules
// and radar scores.
type statsContext struct {
	human            *game.Player
	totalDays        int
	deathDay         *int
	kills            int
	saves            int
	checksWolves     int
	checksVillagers  int
	guardsSuccess    int
	guardsTotal      int
	voteAccuracy     float64
	firstNightKilled bool
	badgeByJump      bool

	witchSavedWolf        bool
	witchPoisonedVillager bool
	sameSaveAndGuard      bool
	selfKnifeFirstNight   bool
	survivedAfterCheck    bool
	hunterShot            bool
}

// voteAccuracy is the share of the player's exile votes that landed on a
// wolf. Abstentions do not count as votes cast.
func voteAccuracy(p *game.Player, s *game.GameState) float64 {
	total, correct := 0, 0
	for _, dayVotes := range s.VoteHistory {
		target, ok := dayVotes[p.PlayerID]
		if !ok || target < 0 {
			continue
		}
		total++
		if t := s.PlayerBySeat(target); t != nil && t.Role == game.RoleWerewolf {
			correct++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func buildStatsContext(human *game.Player, s *game.GameState) *statsContext {
	ctx := &statsContext{
		human:        human,
		totalDays:    s.Day,
		voteAccuracy: voteAccuracy(human, s),
	}

	for day, night := range s.NightHistory {
		if night == nil {
			continue
		}
		if human.Role == game.RoleWitch {
			if night.WitchSave {
				ctx.saves++
				if night.WolfTarget != nil {
					if saved := s.PlayerBySeat(*night.WolfTarget); saved != nil && saved.Role == game.RoleWerewolf {
						ctx.witchSavedWolf = true
					}
				}
			}
			if night.WitchPoison != nil {
				ctx.kills++
				if poisoned := s.PlayerBySeat(*night.WitchPoison); poisoned != nil && poisoned.Role != game.RoleWerewolf {
					ctx.witchPoisonedVillager = true
				}
			}
		}
		if human.Role == game.RoleSeer && night.SeerResult != nil {
			if night.SeerResult.IsWolf {
				ctx.checksWolves++
			} else {
				ctx.checksVillagers++
			}
		}
		if human.Role == game.RoleGuard && night.GuardTarget != nil {
			ctx.guardsTotal++
			died := false
			for _, d := range night.Deaths {
				if d.Seat == *night.GuardTarget {
					died = true
				}
			}
			if night.WolfTarget != nil && *night.WolfTarget == *night.GuardTarget && !died {
				ctx.guardsSuccess++
			}
		}
		if night.GuardSaveConflict {
			ctx.sameSaveAndGuard = true
		}
		if day == 0 {
			for _, d := range night.Deaths {
				if d.Seat == human.Seat {
					ctx.firstNightKilled = true
					one := 1
					ctx.deathDay = &one
				}
			}
			if human.Role == game.RoleWerewolf && night.WolfTarget != nil &&
				*night.WolfTarget == human.Seat && night.WitchSave {
				ctx.selfKnifeFirstNight = true
			}
		}
		if ctx.deathDay == nil {
			for _, d := range night.Deaths {
				if d.Seat == human.Seat {
					dd := day + 1
					ctx.deathDay = &dd
				}
			}
		}
	}

	// A checked-out wolf that pushed a villager through the vote that day.
	if human.Role == game.RoleWerewolf {
		for day, night := range s.NightHistory {
			if night == nil || night.SeerResult == nil {
				continue
			}
			if night.SeerResult.TargetSeat != human.Seat || !night.SeerResult.IsWolf {
				continue
			}
			if rec := s.DayHistory[day+1]; rec != nil && rec.Executed != nil {
				if executed := s.PlayerBySeat(rec.Executed.Seat); executed != nil && executed.Role != game.RoleWerewolf {
					ctx.survivedAfterCheck = true
					break
				}
			}
		}
	}

	if !human.Alive && ctx.deathDay == nil {
		for day, rec := range s.DayHistory {
			if rec != nil && rec.Executed != nil && rec.Executed.Seat == human.Seat {
				dd := day
				ctx.deathDay = &dd
				break
			}
		}
	}

	if human.Role == game.RoleHunter {
		for _, rec := range s.DayHistory {
			if rec != nil && rec.HunterShot != nil && rec.HunterShot.HunterSeat == human.Seat {
				ctx.hunterShot = true
				break
			}
		}
	}

	ctx.badgeByJump = human.Role == game.RoleWerewolf &&
		s.Badge.HolderSeat != nil && *s.Badge.HolderSeat == human.Seat

	return ctx
}
