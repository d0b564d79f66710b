package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ai-werewolf/internal/game"
	"ai-werewolf/internal/llm"
)

var ErrNoHumanPlayer = errors.New("no_human_player")

// jsonGenerator is the one LLM dependency of the deriver.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, req llm.Request, out any) error
}

type Deriver struct {
	gen jsonGenerator
}

func NewDeriver(gen jsonGenerator) *Deriver {
	return &Deriver{gen: gen}
}

// Generate builds the full report. All statistics come from history; the LLM
// contributes only awards, the highlight quote, peer reviews and two speech
// sub-scores, and a deterministic fallback covers LLM failure so game end
// never hard-fails.
func (d *Deriver) Generate(ctx context.Context, s *game.GameState, model string, durationSeconds int) (*Report, error) {
	human := humanPlayer(s)
	if human == nil {
		return nil, ErrNoHumanPlayer
	}

	snapshots := buildSnapshots(s)
	roundStates := buildRoundStates(s, snapshots)
	timeline := buildTimeline(s)
	statsCtx := buildStatsContext(human, s)
	tags := evaluateTags(human, s, statsCtx)

	ai := d.aiCommentary(ctx, s, human, model)

	radar := calculateRadar(human, statsCtx)
	if ai.SpeechScores.Logic > 0 {
		radar.Logic = ai.SpeechScores.Logic
	}
	if ai.SpeechScores.Clarity > 0 {
		radar.Speech = ai.SpeechScores.Clarity
	}

	result := "village_win"
	if s.Winner == game.AlignmentWolf {
		result = "wolf_win"
	}

	return &Report{
		GameID:      s.GameID,
		Timestamp:   time.Now().UnixMilli(),
		Duration:    durationSeconds,
		PlayerCount: len(s.Players),
		Result:      result,
		Awards:      ai.Awards,
		Timeline:    timeline,
		Players:     snapshots,
		RoundStates: roundStates,
		PersonalStats: PersonalStats{
			Role:           human.Role,
			UserName:       human.DisplayName,
			Alignment:      human.Role.Alignment(),
			Tags:           tags,
			RadarStats:     radar,
			HighlightQuote: ai.HighlightQuote,
			TotalScore:     totalScore(radar),
		},
		Reviews: ai.Reviews,
	}, nil
}

func humanPlayer(s *game.GameState) *game.Player {
	for i := range s.Players {
		if s.Players[i].IsHuman {
			return &s.Players[i]
		}
	}
	return nil
}

// buildSnapshots attributes at most one death per player: the first matching
// event in chronological scan order wins. Nights check the recorded deaths
// first, then fall back to an unprotected wolf target, then poison; days
// check the exile then the hunter's shot.
func buildSnapshots(s *game.GameState) []PlayerSnapshot {
	var nightDays []int
	for day := range s.NightHistory {
		nightDays = append(nightDays, day)
	}
	sort.Ints(nightDays)
	var dayDays []int
	for day := range s.DayHistory {
		dayDays = append(dayDays, day)
	}
	sort.Ints(dayDays)

	out := make([]PlayerSnapshot, 0, len(s.Players))
	for i := range s.Players {
		p := &s.Players[i]
		var deathDay *int
		var cause DeathCause

	nights:
		for _, day := range nightDays {
			night := s.NightHistory[day]
			if night == nil {
				continue
			}
			label := day + 1
			for _, d := range night.Deaths {
				if d.Seat == p.Seat {
					deathDay, cause = &label, DeathCause(d.Reason)
					break nights
				}
			}
			if night.WolfTarget != nil && *night.WolfTarget == p.Seat {
				guarded := night.GuardTarget != nil && *night.GuardTarget == p.Seat
				if !night.WitchSave && !guarded {
					deathDay, cause = &label, CauseKilled
					break nights
				}
			}
			if night.WitchPoison != nil && *night.WitchPoison == p.Seat {
				deathDay, cause = &label, CausePoisoned
				break nights
			}
		}
		if deathDay == nil {
			for _, day := range dayDays {
				rec := s.DayHistory[day]
				if rec == nil {
					continue
				}
				label := day
				if rec.Executed != nil && rec.Executed.Seat == p.Seat {
					deathDay, cause = &label, CauseExiled
					break
				}
				if rec.HunterShot != nil && rec.HunterShot.TargetSeat == p.Seat {
					deathDay, cause = &label, CauseShot
					break
				}
			}
		}

		out = append(out, PlayerSnapshot{
			Seat:          p.Seat,
			Name:          p.DisplayName,
			Role:          p.Role,
			Alignment:     p.Role.Alignment(),
			IsAlive:       p.Alive,
			DeathDay:      deathDay,
			DeathCause:    cause,
			IsSheriff:     s.Badge.HolderSeat != nil && *s.Badge.HolderSeat == p.Seat,
			IsHumanPlayer: p.IsHuman,
		})
	}
	return out
}

func buildRoundStates(s *game.GameState, snapshots []PlayerSnapshot) []RoundState {
	counts := func(players []PlayerSnapshot) AliveCount {
		var c AliveCount
		for _, p := range players {
			if !p.IsAlive {
				continue
			}
			if p.Alignment == game.AlignmentWolf {
				c.Wolf++
			} else {
				c.Village++
			}
		}
		return c
	}

	day0 := make([]PlayerSnapshot, len(snapshots))
	copy(day0, snapshots)
	for i := range day0 {
		day0[i].IsAlive = true
		day0[i].DeathDay = nil
		day0[i].DeathCause = ""
	}
	rounds := []RoundState{{
		Day:        0,
		Phase:      "night",
		AliveCount: counts(day0),
		Players:    day0,
	}}

	for day := 1; day <= s.Day; day++ {
		players := make([]PlayerSnapshot, len(snapshots))
		copy(players, snapshots)
		for i := range players {
			players[i].IsAlive = players[i].DeathDay == nil || *players[i].DeathDay > day
		}
		rounds = append(rounds, RoundState{
			Day:         day,
			Phase:       "day",
			SheriffSeat: s.Badge.HolderSeat,
			AliveCount:  counts(players),
			Players:     players,
		})
	}
	return rounds
}

func seatText(seat int) string { return fmt.Sprintf("%d号", seat+1) }

func buildTimeline(s *game.GameState) []TimelineEntry {
	var entries []TimelineEntry
	for day := 1; day <= s.Day; day++ {
		night := s.NightHistory[day-1]
		rec := s.DayHistory[day]
		bullets := parseSummaryBullets(s.DailySummaries[day])

		var nightEvents []NightEvent
		if night != nil {
			if night.WolfTarget != nil {
				nightEvents = append(nightEvents, NightEvent{
					Type:    "kill",
					Source:  "狼人",
					Target:  seatText(*night.WolfTarget),
					Blocked: night.GuardTarget != nil && *night.GuardTarget == *night.WolfTarget,
				})
			}
			if night.WitchSave && night.WolfTarget != nil {
				nightEvents = append(nightEvents, NightEvent{
					Type: "save", Source: "女巫", Target: seatText(*night.WolfTarget),
				})
			}
			if night.WitchPoison != nil {
				nightEvents = append(nightEvents, NightEvent{
					Type: "poison", Source: "女巫", Target: seatText(*night.WitchPoison),
				})
			}
			if night.SeerResult != nil {
				result := "好人"
				if night.SeerResult.IsWolf {
					result = "狼人"
				}
				nightEvents = append(nightEvents, NightEvent{
					Type: "check", Source: "预言家",
					Target: seatText(night.SeerResult.TargetSeat),
					Result: result,
				})
			}
			if night.GuardTarget != nil {
				nightEvents = append(nightEvents, NightEvent{
					Type: "guard", Source: "守卫", Target: seatText(*night.GuardTarget),
				})
			}
		}

		var dayEvents []DayEvent
		if day == 1 && s.Badge.HolderSeat != nil {
			dayEvents = append(dayEvents, DayEvent{
				Type:   "badge",
				Target: seatText(*s.Badge.HolderSeat),
				Votes:  voteRecords(s, s.Badge.VoteHistory[1]),
			})
		}
		if rec != nil && rec.Executed != nil {
			dayEvents = append(dayEvents, DayEvent{
				Type:      "exile",
				Target:    seatText(rec.Executed.Seat),
				VoteCount: rec.Executed.Votes,
				Votes:     voteRecords(s, s.VoteHistory[day]),
			})
		}

		summary := strings.Join(bullets, "；")
		if summary == "" {
			summary = fmt.Sprintf("第%d天", day)
		}
		entries = append(entries, TimelineEntry{
			Day:         day,
			Summary:     summary,
			NightEvents: nightEvents,
			DayEvents:   dayEvents,
		})
	}
	return entries
}

func voteRecords(s *game.GameState, votes map[string]int) []VoteRecord {
	var out []VoteRecord
	for playerID, target := range votes {
		voter := s.PlayerByID(playerID)
		if voter == nil || target < 0 {
			continue
		}
		out = append(out, VoteRecord{VoterSeat: voter.Seat + 1, TargetSeat: target + 1})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoterSeat < out[j].VoterSeat })
	return out
}

func calculateRadar(p *game.Player, ctx *statsContext) RadarStats {
	survival := 100
	if ctx.deathDay != nil && ctx.totalDays > 0 {
		survival = int(math.Round(float64(*ctx.deathDay) / float64(ctx.totalDays) * 100))
	}

	if p.Role == game.RoleWerewolf {
		return RadarStats{
			Logic:        70,
			Speech:       75,
			Survival:     survival,
			SkillOrHide:  80,
			VoteOrTicket: int(math.Round((1 - ctx.voteAccuracy) * 100)),
		}
	}

	skill := 50
	switch p.Role {
	case game.RoleSeer:
		skill = 60
		if ctx.checksWolves > 0 {
			skill = 90
		}
	case game.RoleWitch:
		if ctx.saves > 0 || ctx.kills > 0 {
			skill = 85
		}
	case game.RoleGuard:
		skill = 40
		if ctx.guardsSuccess > 0 {
			skill = 90
		}
	}

	return RadarStats{
		Logic:        75,
		Speech:       80,
		Survival:     survival,
		SkillOrHide:  skill,
		VoteOrTicket: int(math.Round(ctx.voteAccuracy * 100)),
	}
}

var radarWeights = [5]float64{0.25, 0.20, 0.15, 0.25, 0.15}

func totalScore(r RadarStats) int {
	values := [5]int{r.Logic, r.Speech, r.Survival, r.SkillOrHide, r.VoteOrTicket}
	sum := 0.0
	for i, v := range values {
		sum += float64(v) * radarWeights[i]
	}
	return int(math.Round(sum))
}

// parseSummaryBullets tolerates the shapes daily summaries have been stored
// in over time: a bullet list, a {"bullets": [...]} object or a bare string.
func parseSummaryBullets(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type aiResult struct {
	Awards         Awards         `json:"awards"`
	HighlightQuote string         `json:"highlightQuote"`
	Reviews        []PlayerReview `json:"reviews"`
	SpeechScores   SpeechScores   `json:"speechScores"`
}

func (d *Deriver) aiCommentary(ctx context.Context, s *game.GameState, human *game.Player, model string) aiResult {
	if d.gen != nil {
		var out aiResult
		req := llm.Request{
			Model: model,
			Messages: []llm.Message{
				{Role: "system", Content: "你是专业的狼人杀游戏分析师，擅长评价玩家表现并生成有趣的复盘内容。"},
				{Role: "user", Content: buildCommentaryPrompt(s, human)},
			},
			Temperature: 0.7,
			MaxTokens:   2000,
		}
		if err := d.gen.GenerateJSON(ctx, req, &out); err == nil && len(out.Reviews) > 0 {
			return out
		} else if err != nil {
			log.Warn().Err(err).Str("game_id", s.GameID).Msg("ai commentary failed, using fallback")
		}
	}
	return fallbackCommentary(s, human)
}

func buildCommentaryPrompt(s *game.GameState, human *game.Player) string {
	winner, loser := "好人", "狼人"
	if s.Winner == game.AlignmentWolf {
		winner, loser = "狼人", "好人"
	}

	var roster []string
	for _, p := range s.Players {
		status := ""
		if !p.Alive {
			status = "，已出局"
		}
		roster = append(roster, fmt.Sprintf("%d号 %s（%s%s）", p.Seat+1, p.DisplayName, p.Role, status))
	}

	var allies, enemies []string
	for _, p := range s.Players {
		if p.PlayerID == human.PlayerID {
			continue
		}
		label := fmt.Sprintf("%d号 %s", p.Seat+1, p.DisplayName)
		if p.Role.Alignment() == human.Role.Alignment() {
			allies = append(allies, label)
		} else {
			enemies = append(enemies, label)
		}
	}

	var history []string
	var days []int
	for day := range s.DailySummaries {
		days = append(days, day)
	}
	sort.Ints(days)
	for _, day := range days {
		history = append(history, fmt.Sprintf("第%d天：%s", day, strings.Join(s.DailySummaries[day], "；")))
	}

	var speeches []string
	for _, m := range s.Messages {
		if !m.IsSystem && m.PlayerID == human.PlayerID {
			speeches = append(speeches, m.Content)
		}
	}
	speechText := strings.Join(speeches, "\n")
	if speechText == "" {
		speechText = "（无发言记录）"
	}

	return fmt.Sprintf(`你是狼人杀游戏分析师。请根据以下游戏信息生成分析数据。

## 游戏结果
%s阵营获胜

## 玩家列表
%s

## 被评价玩家信息
- 玩家：%s（%d号），角色：%s
- 队友（同阵营）：%s
- 对手（敌对阵营）：%s

## 游戏历史
%s

## 玩家的全部发言
%s

请输出JSON，包含 awards（mvp与svp，各含playerId、playerName、reason、role）、highlightQuote（玩家原话中最精彩的一句）、reviews（2条队友ally评价+1条对手enemy评价，各含fromPlayerId、fromCharacterName、content、relation、role）、speechScores（logic与clarity，0-100整数）。
要求：MVP从%s阵营选，SVP从%s阵营选；队友只能从同阵营成员中选择；无发言记录时speechScores两项均为50。`,
		winner,
		strings.Join(roster, "\n"),
		human.DisplayName, human.Seat+1, human.Role,
		strings.Join(allies, "、"),
		strings.Join(enemies, "、"),
		strings.Join(history, "\n"),
		speechText,
		winner, loser)
}

// fallbackCommentary is the deterministic substitute when the LLM call
// fails: first alive winner and loser become MVP and SVP, reviews come from
// the first two allies and the first enemy.
func fallbackCommentary(s *game.GameState, human *game.Player) aiResult {
	winnerAlignment := game.AlignmentVillage
	if s.Winner == game.AlignmentWolf {
		winnerAlignment = game.AlignmentWolf
	}

	pick := func(alignment game.Alignment) *game.Player {
		var first *game.Player
		for i := range s.Players {
			p := &s.Players[i]
			if p.Role.Alignment() != alignment {
				continue
			}
			if first == nil {
				first = p
			}
			if p.Alive {
				return p
			}
		}
		return first
	}

	mvp := pick(winnerAlignment)
	svp := pick(opposite(winnerAlignment))

	mvpReason := "守护村庄胜利"
	if winnerAlignment == game.AlignmentWolf {
		mvpReason = "带领狼队获胜"
	}

	res := aiResult{
		HighlightQuote: "这局游戏很精彩！",
		SpeechScores:   SpeechScores{Logic: 50, Clarity: 50},
	}
	if mvp != nil {
		res.Awards.MVP = PlayerAward{
			PlayerID: mvp.PlayerID, PlayerName: mvp.DisplayName,
			Reason: mvpReason, Role: string(mvp.Role),
		}
	}
	if svp != nil {
		res.Awards.SVP = PlayerAward{
			PlayerID: svp.PlayerID, PlayerName: svp.DisplayName,
			Reason: "虽败犹荣", Role: string(svp.Role),
		}
	}

	allies, enemies := 0, 0
	for i := range s.Players {
		p := &s.Players[i]
		if p.PlayerID == human.PlayerID {
			continue
		}
		if p.Role.Alignment() == human.Role.Alignment() && allies < 2 {
			allies++
			res.Reviews = append(res.Reviews, PlayerReview{
				FromPlayerID: p.PlayerID, FromCharacterName: p.DisplayName,
				Content: "和你配合很默契！", Relation: "ally", Role: string(p.Role),
			})
		} else if p.Role.Alignment() != human.Role.Alignment() && enemies < 1 {
			enemies++
			res.Reviews = append(res.Reviews, PlayerReview{
				FromPlayerID: p.PlayerID, FromCharacterName: p.DisplayName,
				Content: "你是个难缠的对手。", Relation: "enemy", Role: string(p.Role),
			})
		}
	}
	return res
}

func opposite(a game.Alignment) game.Alignment {
	if a == game.AlignmentWolf {
		return game.AlignmentVillage
	}
	return game.AlignmentWolf
}
