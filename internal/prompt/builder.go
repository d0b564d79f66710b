package prompt

import (
	"fmt"
	"sort"
	"strings"

	"ai-werewolf/internal/claims"
	"ai-werewolf/internal/game"
)

const defaultClaimsLimit = 20

// Segment is one piece of the system prompt. Cacheable segments stay
// byte-identical across calls for the same player, phase and day, so an
// upstream provider can apply prompt caching to them.
type Segment struct {
	Text      string
	Cacheable bool
	TTL       string
}

type Prompt struct {
	System   string
	User     string
	Segments []Segment
}

type Builder struct {
	t           Templates
	claimsLimit int
}

func NewBuilder(t Templates) *Builder {
	if t == nil {
		t = DefaultTemplates()
	}
	return &Builder{t: t, claimsLimit: defaultClaimsLimit}
}

// BuildPrompt assembles the prompt for one player's decision in the given
// phase. At night the player's role picks the builder. A living player's
// true role never appears in another living player's prompt; the only
// exceptions are the seer's own private checks and the wolf pack roster
// inside a wolf's own prompt.
func (b *Builder) BuildPrompt(s *game.GameState, p *game.Player, phase game.Phase) (Prompt, error) {
	switch phase {
	case game.PhaseNight:
		switch p.Role {
		case game.RoleGuard:
			return b.guardPrompt(s, p), nil
		case game.RoleWerewolf:
			return b.wolfPrompt(s, p), nil
		case game.RoleWitch:
			return b.witchPrompt(s, p), nil
		case game.RoleSeer:
			return b.seerPrompt(s, p), nil
		}
		return Prompt{}, fmt.Errorf("role %s has no night decision", p.Role)
	case game.PhaseDayBadgeElection:
		return b.badgePrompt(s, p), nil
	case game.PhaseDaySpeech:
		return b.speechPrompt(s, p), nil
	case game.PhaseDayLastWords:
		return b.lastWordsPrompt(s, p), nil
	case game.PhaseDayVote:
		return b.votePrompt(s, p), nil
	case game.PhaseHunterShot:
		return b.hunterPrompt(s, p), nil
	}
	return Prompt{}, fmt.Errorf("phase %s has no prompt", phase)
}

func (b *Builder) guardPrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("guard.task", map[string]any{"options": b.options(s, p)}) +
		"\n" + b.t.Render("json.night", nil)
	return b.assemble(s, p, task, "user.decision")
}

func (b *Builder) wolfPrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("wolf.task", map[string]any{"options": b.options(s, p)}) +
		"\n" + b.t.Render("json.night", nil)
	return b.assemble(s, p, task, "user.decision")
}

func (b *Builder) witchPrompt(s *game.GameState, p *game.Player) Prompt {
	victim := b.t.Render("witch.noKill", nil)
	if rec := s.NightHistory[s.Day]; rec != nil && rec.WolfTarget != nil {
		victim = b.seatLabel(s, *rec.WolfTarget)
	}
	task := b.t.Render("witch.task", map[string]any{
		"victim":     victim,
		"saveLeft":   potionLabel(!s.WitchSaveUsed),
		"poisonLeft": potionLabel(!s.WitchPoisonUsed),
		"options":    b.options(s, p),
	}) + "\n" + b.t.Render("json.witch", nil)
	return b.assemble(s, p, task, "user.decision")
}

func (b *Builder) seerPrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("seer.task", map[string]any{"options": b.options(s, p)})
	if checks := b.seerChecks(s); checks != "" {
		task += "\n" + b.t.Render("seer.history", map[string]any{"checks": checks})
	}
	task += "\n" + b.t.Render("json.night", nil)
	return b.assemble(s, p, task, "user.decision")
}

func (b *Builder) badgePrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("badge.task", map[string]any{"options": b.options(s, p)}) +
		"\n" + b.t.Render("json.badge", nil)
	return b.assemble(s, p, task, "user.decision")
}

func (b *Builder) speechPrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("speech.task", nil) + "\n" + b.t.Render("json.speech", nil)
	return b.assemble(s, p, task, "user.speech")
}

func (b *Builder) lastWordsPrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("lastwords.task", nil) + "\n" + b.t.Render("json.speech", nil)
	return b.assemble(s, p, task, "user.speech")
}

func (b *Builder) votePrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("vote.task", map[string]any{"options": b.options(s, p)}) +
		"\n" + b.t.Render("json.vote", nil)
	return b.assemble(s, p, task, "user.decision")
}

// hunterPrompt folds the hunter's recorded last words of the current day
// back into the task so the shot stays consistent with what was said.
func (b *Builder) hunterPrompt(s *game.GameState, p *game.Player) Prompt {
	task := b.t.Render("hunter.task", map[string]any{"options": b.options(s, p)})
	if lastWords := b.hunterLastWords(s, p); lastWords != "" {
		task += "\n" + b.t.Render("hunter.lastWordsContext", map[string]any{"lastWords": lastWords})
		intent := ExtractShootIntent(lastWords)
		if intent.HasIntent {
			if intent.TargetSeat != nil {
				if target := s.PlayerBySeat(*intent.TargetSeat); target != nil && target.Alive {
					task += "\n" + b.t.Render("hunter.lastWordsIntentHint", map[string]any{
						"seat": *intent.TargetSeat + 1,
						"name": target.DisplayName,
					})
				}
			} else {
				task += "\n" + b.t.Render("hunter.lastWordsPassHint", nil)
			}
		}
	}
	task += "\n" + b.t.Render("json.hunter", nil)
	return b.assemble(s, p, task, "user.decision")
}

func (b *Builder) hunterLastWords(s *game.GameState, p *game.Player) string {
	var lines []string
	for _, msg := range s.Messages {
		if !msg.IsSystem && msg.PlayerID == p.PlayerID && msg.Day == s.Day && msg.Phase == game.PhaseDayLastWords {
			lines = append(lines, msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// assemble builds the cacheable identity segment plus the dynamic task
// segment and the user turn.
func (b *Builder) assemble(s *game.GameState, p *game.Player, task, userKey string) Prompt {
	identity := b.identity(s, p)
	segments := []Segment{
		{Text: identity, Cacheable: true, TTL: "1h"},
		{Text: task},
	}
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	user := b.t.Render(userKey, map[string]any{"context": b.gameContext(s, p)})
	return Prompt{
		System:   strings.Join(texts, "\n\n"),
		User:     user,
		Segments: segments,
	}
}

func (b *Builder) identity(s *game.GameState, p *game.Player) string {
	winKey := "win.village"
	if p.Role.Alignment() == game.AlignmentWolf {
		winKey = "win.wolf"
	}
	text := b.t.Render("identity.base", map[string]any{
		"seat":         p.Seat + 1,
		"name":         p.DisplayName,
		"role":         b.t.Render("role."+string(p.Role), nil),
		"winCondition": b.t.Render(winKey, nil),
	})
	if p.Role == game.RoleWerewolf {
		var mates []string
		for i := range s.Players {
			teammate := &s.Players[i]
			if teammate.Role == game.RoleWerewolf && teammate.PlayerID != p.PlayerID {
				mates = append(mates, b.t.Render("option", map[string]any{
					"seat": teammate.Seat + 1,
					"name": teammate.DisplayName,
				}))
			}
		}
		if len(mates) > 0 {
			text += "\n" + b.t.Render("identity.wolfTeam", map[string]any{
				"teammates": strings.Join(mates, b.t.Render("optionSeparator", nil)),
			})
		}
	}
	text += "\n" + b.t.Render("difficulty.hint", nil)
	return text
}

func (b *Builder) options(s *game.GameState, p *game.Player) string {
	var opts []string
	for _, alive := range s.AlivePlayers() {
		if alive.PlayerID == p.PlayerID {
			continue
		}
		opts = append(opts, b.t.Render("option", map[string]any{
			"seat": alive.Seat + 1,
			"name": alive.DisplayName,
		}))
	}
	return strings.Join(opts, b.t.Render("optionSeparator", nil))
}

func (b *Builder) seatLabel(s *game.GameState, seat int) string {
	if p := s.PlayerBySeat(seat); p != nil {
		return b.t.Render("option", map[string]any{"seat": seat + 1, "name": p.DisplayName})
	}
	return fmt.Sprintf("%d号", seat+1)
}

func (b *Builder) seerChecks(s *game.GameState) string {
	var days []int
	for day, rec := range s.NightHistory {
		if rec.SeerResult != nil {
			days = append(days, day)
		}
	}
	sort.Ints(days)
	var out []string
	for _, day := range days {
		res := s.NightHistory[day].SeerResult
		verdict := "好人"
		if res.IsWolf {
			verdict = "狼人"
		}
		out = append(out, fmt.Sprintf("第%d夜查验%d号：%s", day+1, res.TargetSeat+1, verdict))
	}
	return strings.Join(out, "；")
}

func (b *Builder) gameContext(s *game.GameState, p *game.Player) string {
	var parts []string
	parts = append(parts, b.t.Render("context.header", map[string]any{
		"day":   s.Day,
		"phase": string(s.Phase),
	}))

	var roster []string
	for _, alive := range s.AlivePlayers() {
		roster = append(roster, b.t.Render("option", map[string]any{
			"seat": alive.Seat + 1,
			"name": alive.DisplayName,
		}))
	}
	parts = append(parts, b.t.Render("context.roster", map[string]any{
		"roster": strings.Join(roster, b.t.Render("optionSeparator", nil)),
	}))

	if s.Badge.HolderSeat != nil {
		parts = append(parts, b.t.Render("context.badge", map[string]any{
			"holder": b.seatLabel(s, *s.Badge.HolderSeat),
		}))
	} else {
		parts = append(parts, b.t.Render("context.badgeNone", nil))
	}

	if deaths := b.deathLog(s); deaths != "" {
		parts = append(parts, b.t.Render("context.deaths", map[string]any{"deaths": deaths}))
	}
	if votes := b.voteLog(s); votes != "" {
		parts = append(parts, b.t.Render("context.votes", map[string]any{"votes": votes}))
	}
	if section := b.claimsSection(s); section != "" {
		parts = append(parts, section)
	}
	if summaries := b.summaries(s); summaries != "" {
		parts = append(parts, b.t.Render("context.summaries", map[string]any{"summaries": summaries}))
	}
	return strings.Join(parts, "\n")
}

func (b *Builder) deathLog(s *game.GameState) string {
	var out []string
	for day := 0; day <= s.Day; day++ {
		if rec := s.NightHistory[day]; rec != nil && rec.Resolved {
			if len(rec.Deaths) == 0 {
				out = append(out, fmt.Sprintf("第%d夜平安夜", day+1))
			}
			for _, d := range rec.Deaths {
				out = append(out, fmt.Sprintf("第%d夜%d号死亡", day+1, d.Seat+1))
			}
		}
		if rec := s.DayHistory[day]; rec != nil {
			if rec.Executed != nil {
				out = append(out, fmt.Sprintf("第%d天%d号被放逐", day, rec.Executed.Seat+1))
			}
			if rec.HunterShot != nil {
				out = append(out, fmt.Sprintf("第%d天%d号被猎人带走", day, rec.HunterShot.TargetSeat+1))
			}
		}
	}
	return strings.Join(out, "；")
}

func (b *Builder) voteLog(s *game.GameState) string {
	var days []int
	for day := range s.VoteHistory {
		days = append(days, day)
	}
	sort.Ints(days)
	var out []string
	for _, day := range days {
		votes := s.VoteHistory[day]
		var entries []string
		for playerID, target := range votes {
			voter := s.PlayerByID(playerID)
			if voter == nil {
				continue
			}
			if target < 0 {
				entries = append(entries, fmt.Sprintf("%d号弃票", voter.Seat+1))
			} else {
				entries = append(entries, fmt.Sprintf("%d号→%d号", voter.Seat+1, target+1))
			}
		}
		sort.Strings(entries)
		if len(entries) > 0 {
			out = append(out, fmt.Sprintf("第%d天：%s", day, strings.Join(entries, "，")))
		}
	}
	return strings.Join(out, "；")
}

func (b *Builder) claimsSection(s *game.GameState) string {
	return claims.Render(s.PublicClaims, claims.RenderOptions{
		Limit:      b.claimsLimit,
		Header:     b.t.Render("claims.header", nil),
		Disclaimer: b.t.Render("claims.disclaimer", nil),
		SeatLabel:  func(seat int) string { return fmt.Sprintf("%d号", seat) },
	})
}

func (b *Builder) summaries(s *game.GameState) string {
	var days []int
	for day := range s.DailySummaries {
		days = append(days, day)
	}
	sort.Ints(days)
	var out []string
	for _, day := range days {
		for _, bullet := range s.DailySummaries[day] {
			out = append(out, fmt.Sprintf("第%d天：%s", day, bullet))
		}
	}
	return strings.Join(out, "\n")
}

func potionLabel(available bool) string {
	if available {
		return "尚可使用"
	}
	return "已用完"
}
