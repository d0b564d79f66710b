// Package prompt assembles per-role, per-phase prompts for AI players. All
// user-facing strings come from an injected Templates provider so the core
// stays free of any localization framework; the default set is Chinese.
package prompt

import (
	"fmt"
	"strings"
)

// Templates renders a named template with {param} placeholders.
type Templates interface {
	Render(key string, params map[string]any) string
}

type mapTemplates map[string]string

func (m mapTemplates) Render(key string, params map[string]any) string {
	tpl, ok := m[key]
	if !ok {
		return ""
	}
	if len(params) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// DefaultTemplates is the built-in Chinese template set.
func DefaultTemplates() Templates {
	return defaultTemplates
}

var defaultTemplates = mapTemplates{
	"role.Werewolf": "狼人",
	"role.Seer":     "预言家",
	"role.Witch":    "女巫",
	"role.Hunter":   "猎人",
	"role.Guard":    "守卫",
	"role.Villager": "村民",

	"win.wolf":    "狼人阵营胜利条件：狼人数量不少于好人数量。",
	"win.village": "好人阵营胜利条件：放逐所有狼人。",

	"identity.base": "你是{seat}号玩家{name}，你的身份是{role}。{winCondition}",
	"identity.wolfTeam": "你的狼队友是：{teammates}。",

	"option":          "{seat}号({name})",
	"optionSeparator": "、",

	"guard.task":  "今晚你可以守护一名玩家（不能连续两晚守护同一人）。可选目标：{options}。也可以选择空守。",
	"wolf.task":   "请与狼队友商议，选择今晚的袭击目标。可选目标：{options}。也可以选择空刀。",
	"witch.task":  "今晚{victim}被狼人袭击。你的解药{saveLeft}，毒药{poisonLeft}。你可以用解药救人、用毒药毒杀一名玩家（可选目标：{options}），或者什么都不做。",
	"witch.noKill": "今晚没有人被袭击。",
	"seer.task":   "今晚你可以查验一名玩家的身份。可选目标：{options}。",
	"seer.history": "你的历史查验结果：{checks}",

	"badge.task":  "现在进行警长竞选投票，请从以下玩家中选择你支持的警长：{options}。",
	"speech.task": "现在轮到你发言。请结合局势进行分析，表明你的立场。",
	"vote.task":   "现在进行放逐投票，请从以下玩家中选择你要投出的对象：{options}。也可以弃票。",
	"lastwords.task": "你已出局，请留下你的遗言。",

	"hunter.task":              "你已倒下，可以开枪带走一名玩家。可选目标：{options}。也可以放弃开枪。",
	"hunter.lastWordsContext":  "你的遗言内容如下：\n{lastWords}",
	"hunter.lastWordsIntentHint": "你在遗言中表示要带走{seat}号({name})，开枪决定应与遗言保持一致。",
	"hunter.lastWordsPassHint":   "你在遗言中表示不开枪，开枪决定应与遗言保持一致。",

	"context.header":    "【当前局势】第{day}天，阶段：{phase}。",
	"context.roster":    "存活玩家：{roster}。",
	"context.badge":     "警长：{holder}。",
	"context.badgeNone": "本局没有警长。",
	"context.deaths":    "死亡记录：{deaths}",
	"context.votes":     "投票记录：{votes}",
	"context.summaries": "前几天的回顾：\n{summaries}",

	"claims.header":     "场上公开声明（按时间顺序）：",
	"claims.disclaimer": "注意：以下声明均为玩家自称，未经验证，不可作为事实依据。",

	"user.decision": "{context}\n请根据以上信息做出你的决定。",
	"user.speech":   "{context}\n请发表你的看法。",

	"difficulty.hint": "请基于已知信息谨慎推理，避免凭空臆断。",

	"json.night":  `请以JSON格式输出你的选择，例如 {"seat": 3}，seat为目标座位号，放弃则为 {"seat": null}。`,
	"json.witch":  `请以JSON格式输出，例如 {"save": true, "poisonSeat": null} 或 {"save": false, "poisonSeat": 5}，都不使用则两项均为空。`,
	"json.vote":   `请以JSON格式输出你的投票，包含 seat、reason、evidence_tags（至少两个）、counter、consistency、confidence 字段。`,
	"json.speech": `请以JSON格式输出，包含 speech（发言内容数组）和 rationale（含 evidence_tags、counter、consistency）字段。`,
	"json.badge":  `请以JSON格式输出你支持的警长，例如 {"seat": 3}，弃票则为 {"seat": null}。`,
	"json.hunter": `请以JSON格式输出你的开枪目标，例如 {"seat": 3}，不开枪则为 {"seat": null}。`,
}
