// Package analysis derives the post-game report: a structured timeline,
// per-player snapshots, round-by-round alive counts and the human player's
// performance tags and scores. Everything factual is computed from history;
// a single LLM call adds the qualitative commentary.
package analysis

import (
	"ai-werewolf/internal/game"
)

type DeathCause string

const (
	CauseKilled   DeathCause = "killed"
	CausePoisoned DeathCause = "poisoned"
	CauseExiled   DeathCause = "exiled"
	CauseShot     DeathCause = "shot"
)

type PlayerSnapshot struct {
	Seat          int            `json:"seat"`
	Name          string         `json:"name"`
	Role          game.Role      `json:"role"`
	Alignment     game.Alignment `json:"alignment"`
	IsAlive       bool           `json:"isAlive"`
	DeathDay      *int           `json:"deathDay,omitempty"`
	DeathCause    DeathCause     `json:"deathCause,omitempty"`
	IsSheriff     bool           `json:"isSheriff"`
	IsHumanPlayer bool           `json:"isHumanPlayer"`
}

type NightEvent struct {
	Type    string `json:"type"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Result  string `json:"result,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
}

type VoteRecord struct {
	VoterSeat  int `json:"voterSeat"`
	TargetSeat int `json:"targetSeat"`
}

type DayEvent struct {
	Type      string       `json:"type"`
	Target    string       `json:"target"`
	VoteCount int          `json:"voteCount,omitempty"`
	Votes     []VoteRecord `json:"votes,omitempty"`
}

type TimelineEntry struct {
	Day         int          `json:"day"`
	Summary     string       `json:"summary"`
	NightEvents []NightEvent `json:"nightEvents"`
	DayEvents   []DayEvent   `json:"dayEvents"`
}

type AliveCount struct {
	Village int `json:"village"`
	Wolf    int `json:"wolf"`
}

type RoundState struct {
	Day         int              `json:"day"`
	Phase       string           `json:"phase"`
	SheriffSeat *int             `json:"sheriffSeat,omitempty"`
	AliveCount  AliveCount       `json:"aliveCount"`
	Players     []PlayerSnapshot `json:"players"`
}

type RadarStats struct {
	Logic        int `json:"logic"`
	Speech       int `json:"speech"`
	Survival     int `json:"survival"`
	SkillOrHide  int `json:"skillOrHide"`
	VoteOrTicket int `json:"voteOrTicket"`
}

type PersonalStats struct {
	Role           game.Role      `json:"role"`
	UserName       string         `json:"userName"`
	Alignment      game.Alignment `json:"alignment"`
	Tags           []string       `json:"tags"`
	RadarStats     RadarStats     `json:"radarStats"`
	HighlightQuote string         `json:"highlightQuote"`
	TotalScore     int            `json:"totalScore"`
}

type PlayerAward struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Reason     string `json:"reason"`
	Role       string `json:"role"`
}

type Awards struct {
	MVP PlayerAward `json:"mvp"`
	SVP PlayerAward `json:"svp"`
}

type PlayerReview struct {
	FromPlayerID      string `json:"fromPlayerId"`
	FromCharacterName string `json:"fromCharacterName"`
	Content           string `json:"content"`
	Relation          string `json:"relation"`
	Role              string `json:"role"`
}

type SpeechScores struct {
	Logic   int `json:"logic"`
	Clarity int `json:"clarity"`
}

// Report is immutable once generated. It can always be regenerated from the
// final GameState, but callers persist it to avoid the repeat LLM cost.
type Report struct {
	GameID        string           `json:"gameId"`
	Timestamp     int64            `json:"timestamp"`
	Duration      int              `json:"duration"`
	PlayerCount   int              `json:"playerCount"`
	Result        string           `json:"result"`
	Awards        Awards           `json:"awards"`
	Timeline      []TimelineEntry  `json:"timeline"`
	Players       []PlayerSnapshot `json:"players"`
	RoundStates   []RoundState     `json:"roundStates"`
	PersonalStats PersonalStats    `json:"personalStats"`
	Reviews       []PlayerReview   `json:"reviews"`
}
