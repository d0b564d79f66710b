package analysis

import (
	"sort"

	"ai-werewolf/internal/game"
)

// tagRule is one entry of a role's ordered rule list. The single
// highest-priority matching rule decides the tag, which keeps "why did I get
// this label" answerable per rule.
type tagRule struct {
	tag       string
	priority  int
	condition func(p *game.Player, s *game.GameState, ctx *statsContext) bool
}

const defaultTag = "待评估"

var seerTags = []tagRule{
	{"天妒英才", 100, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.firstNightKilled
	}},
	{"洞悉之眼", 95, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.checksWolves >= 2
	}},
	{"初露锋芒", 90, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.checksWolves == 1
	}},
}

var witchTags = []tagRule{
	{"药物冲突", 100, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.sameSaveAndGuard
	}},
	{"致命毒药", 95, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.kills >= 1
	}},
	{"妙手回春", 90, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.saves >= 1 && !ctx.witchSavedWolf
	}},
	{"助纣为虐", 85, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.witchSavedWolf
	}},
	{"误入歧途", 80, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.witchPoisonedVillager
	}},
}

var guardTags = []tagRule{
	{"致命守护", 100, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.sameSaveAndGuard
	}},
	{"铜墙铁壁", 95, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.guardsSuccess >= 2
	}},
	{"坚实盾牌", 90, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.guardsSuccess == 1
	}},
	{"生锈盾牌", 80, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.guardsSuccess == 0 && ctx.guardsTotal > 0
	}},
}

var hunterTags = []tagRule{
	{"一枪致命", 100, func(p *game.Player, s *game.GameState, _ *statsContext) bool {
		target := hunterShotTarget(p, s)
		return target != nil && target.Role == game.RoleWerewolf
	}},
	{"擦枪走火", 90, func(p *game.Player, s *game.GameState, _ *statsContext) bool {
		target := hunterShotTarget(p, s)
		return target != nil && target.Role != game.RoleWerewolf
	}},
	{"仁慈之枪", 80, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return !ctx.hunterShot
	}},
}

var wolfTags = []tagRule{
	{"孤狼啸月", 100, func(p *game.Player, s *game.GameState, _ *statsContext) bool {
		if s.Winner != game.AlignmentWolf {
			return false
		}
		alive := s.AliveByRole(game.RoleWerewolf)
		return len(alive) == 1 && alive[0].Seat == p.Seat
	}},
	{"完美猎杀", 95, func(_ *game.Player, s *game.GameState, _ *statsContext) bool {
		if s.Winner != game.AlignmentWolf {
			return false
		}
		for _, p := range s.Players {
			if p.Role == game.RoleWerewolf && !p.Alive {
				return false
			}
		}
		return true
	}},
	{"演技大师", 90, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.badgeByJump
	}},
	{"绝命赌徒", 88, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.selfKnifeFirstNight
	}},
	{"绝地反击", 85, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.survivedAfterCheck
	}},
	{"出师未捷", 80, func(p *game.Player, s *game.GameState, _ *statsContext) bool {
		first := s.NightHistory[0]
		return first != nil && first.SeerResult != nil &&
			first.SeerResult.TargetSeat == p.Seat && first.SeerResult.IsWolf
	}},
	{"嗜血猎手", 50, func(_ *game.Player, s *game.GameState, _ *statsContext) bool {
		return s.Winner == game.AlignmentWolf
	}},
	{"长夜难明", 40, func(_ *game.Player, s *game.GameState, _ *statsContext) bool {
		return s.Winner == game.AlignmentVillage
	}},
}

var villagerTags = []tagRule{
	{"明察秋毫", 80, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.voteAccuracy >= 0.5
	}},
	{"随波逐流", 70, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.voteAccuracy > 0.35 && ctx.voteAccuracy < 0.5
	}},
	{"全场划水", 60, func(_ *game.Player, _ *game.GameState, ctx *statsContext) bool {
		return ctx.voteAccuracy <= 0.35
	}},
}

func hunterShotTarget(p *game.Player, s *game.GameState) *game.Player {
	for _, rec := range s.DayHistory {
		if rec != nil && rec.HunterShot != nil && rec.HunterShot.HunterSeat == p.Seat {
			return s.PlayerBySeat(rec.HunterShot.TargetSeat)
		}
	}
	return nil
}

func tagRulesForRole(role game.Role) []tagRule {
	switch role {
	case game.RoleSeer:
		return append(append([]tagRule{}, seerTags...), villagerTags...)
	case game.RoleWitch:
		return append(append([]tagRule{}, witchTags...), villagerTags...)
	case game.RoleGuard:
		return append(append([]tagRule{}, guardTags...), villagerTags...)
	case game.RoleHunter:
		return append(append([]tagRule{}, hunterTags...), villagerTags...)
	case game.RoleWerewolf:
		return wolfTags
	}
	return villagerTags
}

// evaluateTags assigns the single highest-priority matching tag, or the
// pending default when nothing matches.
func evaluateTags(p *game.Player, s *game.GameState, ctx *statsContext) []string {
	rules := tagRulesForRole(p.Role)
	var matched []tagRule
	for _, rule := range rules {
		if rule.condition(p, s, ctx) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return []string{defaultTag}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].priority > matched[j].priority })
	return []string{matched[0].tag}
}
