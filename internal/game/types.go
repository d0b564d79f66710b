// Package game holds the werewolf game state and the phase state machine
// that drives the night/day loop. The machine owns all mutation of GameState;
// other packages get read-only views.
package game

import (
	"ai-werewolf/internal/claims"
)

type Role string

const (
	RoleWerewolf Role = "Werewolf"
	RoleSeer     Role = "Seer"
	RoleWitch    Role = "Witch"
	RoleHunter   Role = "Hunter"
	RoleGuard    Role = "Guard"
	RoleVillager Role = "Villager"
)

type Alignment string

const (
	AlignmentWolf    Alignment = "wolf"
	AlignmentVillage Alignment = "village"
)

// Alignment is a pure function of role.
func (r Role) Alignment() Alignment {
	if r == RoleWerewolf {
		return AlignmentWolf
	}
	return AlignmentVillage
}

type Phase string

const (
	PhaseNight            Phase = "NIGHT"
	PhaseDayBadgeElection Phase = "DAY_BADGE_ELECTION"
	PhaseDaySpeech        Phase = "DAY_SPEECH"
	PhaseDayLastWords     Phase = "DAY_LAST_WORDS"
	PhaseDayVote          Phase = "DAY_VOTE"
	PhaseHunterShot       Phase = "HUNTER_SHOT"
	PhaseGameEnd          Phase = "GAME_END"
)

type DeathReason string

const (
	DeathKilled   DeathReason = "killed"
	DeathPoisoned DeathReason = "poisoned"
	DeathExiled   DeathReason = "exiled"
	DeathShot     DeathReason = "shot"
)

type Player struct {
	PlayerID    string `json:"playerId"`
	Seat        int    `json:"seat"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Alive       bool   `json:"alive"`
	IsHuman     bool   `json:"isHuman"`
	AgentModel  string `json:"agentModel,omitempty"`
}

type Death struct {
	Seat   int         `json:"seat"`
	Reason DeathReason `json:"reason"`
}

type SeerResult struct {
	TargetSeat int  `json:"targetSeat"`
	IsWolf     bool `json:"isWolf"`
}

// NightRecord accumulates the night's actions as they are submitted, then is
// frozen by night resolution. The *Acted flags record that a role finished
// its step even when it chose to do nothing, so a restarted process can tell
// which step the night is on from the record alone.
type NightRecord struct {
	GuardTarget *int        `json:"guardTarget,omitempty"`
	GuardActed  bool        `json:"guardActed,omitempty"`
	WolfTarget  *int        `json:"wolfTarget,omitempty"`
	WolfActed   bool        `json:"wolfActed,omitempty"`
	WitchSave   bool        `json:"witchSave,omitempty"`
	WitchPoison *int        `json:"witchPoison,omitempty"`
	WitchActed  bool        `json:"witchActed,omitempty"`
	SeerResult  *SeerResult `json:"seerResult,omitempty"`
	SeerActed   bool        `json:"seerActed,omitempty"`
	Deaths      []Death     `json:"deaths"`
	// GuardSaveConflict marks the 同守同救 night: guard and witch both
	// covered the wolf target. The target survives; analysis tags it.
	GuardSaveConflict bool `json:"guardSaveConflict,omitempty"`
	Resolved          bool `json:"resolved,omitempty"`
}

type Executed struct {
	Seat  int `json:"seat"`
	Votes int `json:"votes"`
}

type HunterShot struct {
	HunterSeat int `json:"hunterSeat"`
	TargetSeat int `json:"targetSeat"`
}

type DayRecord struct {
	Executed   *Executed   `json:"executed,omitempty"`
	HunterShot *HunterShot `json:"hunterShot,omitempty"`
}

// Badge tracks the sheriff. Vote-weight mechanics live outside the core;
// only the holder and the election record are kept here.
type Badge struct {
	HolderSeat  *int                   `json:"holderSeat,omitempty"`
	Candidates  []int                  `json:"candidates,omitempty"`
	VoteHistory map[int]map[string]int `json:"voteHistory,omitempty"`
}

type Message struct {
	ID       string `json:"id"`
	Day      int    `json:"day"`
	Phase    Phase  `json:"phase"`
	PlayerID string `json:"playerId,omitempty"`
	IsSystem bool   `json:"isSystem,omitempty"`
	Content  string `json:"content"`
}

// GameState is the root aggregate, one mutable document per game.
type GameState struct {
	GameID  string    `json:"gameId"`
	Day     int       `json:"day"`
	Phase   Phase     `json:"phase"`
	Players []Player  `json:"players"`
	Winner  Alignment `json:"winner,omitempty"`

	NightHistory map[int]*NightRecord   `json:"nightHistory"`
	DayHistory   map[int]*DayRecord     `json:"dayHistory"`
	VoteHistory  map[int]map[string]int `json:"voteHistory"`
	Badge        Badge                  `json:"badge"`
	Messages     []Message              `json:"messages"`
	PublicClaims []claims.Claim         `json:"publicClaims,omitempty"`

	DailySummaries    map[int][]string `json:"dailySummaries,omitempty"`
	DailySummaryFacts map[int][]string `json:"dailySummaryFacts,omitempty"`

	// Single-use witch potions.
	WitchSaveUsed   bool `json:"witchSaveUsed,omitempty"`
	WitchPoisonUsed bool `json:"witchPoisonUsed,omitempty"`

	// Seats owed a final statement, and a hunter owed a retaliation shot.
	PendingLastWords []int `json:"pendingLastWords,omitempty"`
	PendingHunter    *int  `json:"pendingHunter,omitempty"`
}

func NewGameState(gameID string, players []Player) *GameState {
	return &GameState{
		GameID:       gameID,
		Day:          0,
		Phase:        PhaseNight,
		Players:      players,
		NightHistory: map[int]*NightRecord{},
		DayHistory:   map[int]*DayRecord{},
		VoteHistory:  map[int]map[string]int{},
	}
}

func (s *GameState) PlayerBySeat(seat int) *Player {
	for i := range s.Players {
		if s.Players[i].Seat == seat {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *GameState) PlayerByID(id string) *Player {
	for i := range s.Players {
		if s.Players[i].PlayerID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *GameState) AlivePlayers() []*Player {
	var out []*Player
	for i := range s.Players {
		if s.Players[i].Alive {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

func (s *GameState) AliveByRole(role Role) []*Player {
	var out []*Player
	for i := range s.Players {
		if s.Players[i].Alive && s.Players[i].Role == role {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

func (s *GameState) ensureNight(day int) *NightRecord {
	if s.NightHistory == nil {
		s.NightHistory = map[int]*NightRecord{}
	}
	rec, ok := s.NightHistory[day]
	if !ok {
		rec = &NightRecord{Deaths: []Death{}}
		s.NightHistory[day] = rec
	}
	return rec
}

func (s *GameState) ensureDay(day int) *DayRecord {
	if s.DayHistory == nil {
		s.DayHistory = map[int]*DayRecord{}
	}
	rec, ok := s.DayHistory[day]
	if !ok {
		rec = &DayRecord{}
		s.DayHistory[day] = rec
	}
	return rec
}

// CheckWinner reports whether either alignment's elimination condition holds:
// all wolves dead means village wins, wolves matching or outnumbering the
// remaining village players means the wolves win.
func CheckWinner(players []Player) (Alignment, bool) {
	wolves, village := 0, 0
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if p.Role.Alignment() == AlignmentWolf {
			wolves++
		} else {
			village++
		}
	}
	if wolves == 0 {
		return AlignmentVillage, true
	}
	if wolves >= village {
		return AlignmentWolf, true
	}
	return "", false
}
