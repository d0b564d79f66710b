package claims

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusUnverified   Status = "unverified"
	StatusContested    Status = "contested"
	StatusCorroborated Status = "corroborated"
	StatusDisproved    Status = "disproved"
)

type Type string

const (
	TypeRoleClaim          Type = "role_claim"
	TypeSeerCheck          Type = "seer_check"
	TypeWitchSave          Type = "witch_save"
	TypeWitchPoison        Type = "witch_poison"
	TypeGuardProtect       Type = "guard_protect"
	TypeAlignmentStatement Type = "alignment_statement"
	TypeOther              Type = "other"
)

type Source string

const (
	SourceSummary Source = "summary"
	SourceRegex   Source = "regex"
	SourceManual  Source = "manual"
)

// Claim is one self-reported public statement. Claims are tracked but never
// trusted as ground truth.
type Claim struct {
	ID          string `json:"id"`
	Day         int    `json:"day"`
	Phase       string `json:"phase"`
	SpeakerSeat int    `json:"speakerSeat"`
	ClaimType   Type   `json:"claimType"`
	Role        string `json:"role,omitempty"`
	TargetSeat  *int   `json:"targetSeat,omitempty"`
	Content     string `json:"content"`
	Status      Status `json:"status"`
	Source      Source `json:"source"`
}

// key is the dedup identity: same day, phase, speaker, type, role and target
// mean the same claim regardless of wording.
func key(c Claim) string {
	target := ""
	if c.TargetSeat != nil {
		target = fmt.Sprintf("%d", *c.TargetSeat)
	}
	return fmt.Sprintf("%d|%s|%d|%s|%s|%s", c.Day, c.Phase, c.SpeakerSeat, c.ClaimType, c.Role, target)
}

// Merge combines existing and incoming claims. Already-seen incoming claims
// are dropped, so Merge(Merge(a,b), b) == Merge(a,b). When two or more
// role_claims name the same role on the same day, every one of them flips to
// contested: two players cannot both truthfully claim Seer.
func Merge(existing, incoming []Claim) []Claim {
	merged := make([]Claim, 0, len(existing)+len(incoming))
	seen := map[string]int{}
	for _, c := range existing {
		k := key(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range incoming {
		k := key(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = len(merged)
		merged = append(merged, c)
	}

	byDayRole := map[string][]int{}
	for i, c := range merged {
		if c.ClaimType != TypeRoleClaim {
			continue
		}
		role := c.Role
		if role == "" {
			role = "Unknown"
		}
		k := fmt.Sprintf("%d|%s", c.Day, role)
		byDayRole[k] = append(byDayRole[k], i)
	}
	for _, idxs := range byDayRole {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			merged[i].Status = StatusContested
		}
	}
	return merged
}

type RenderOptions struct {
	Limit      int
	Header     string
	Disclaimer string
	// SeatLabel converts a 1-indexed seat number to the human-facing label.
	SeatLabel func(seat int) string
}

// Render emits the prompt section for the most recent claims, always led by
// the disclaimer so downstream prompts never treat claims as ground truth.
func Render(list []Claim, opts RenderOptions) string {
	if opts.Limit > 0 && len(list) > opts.Limit {
		list = list[len(list)-opts.Limit:]
	}
	if len(list) == 0 {
		return ""
	}
	label := opts.SeatLabel
	if label == nil {
		label = func(seat int) string { return fmt.Sprintf("%d", seat) }
	}
	var b strings.Builder
	b.WriteString("<public_claims>\n")
	b.WriteString(opts.Header)
	b.WriteString("\n")
	b.WriteString(opts.Disclaimer)
	b.WriteString("\n")
	for _, c := range list {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", label(c.SpeakerSeat+1), c.Content, c.Status)
	}
	b.WriteString("</public_claims>")
	return b.String()
}
