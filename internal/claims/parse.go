package claims

import (
	"encoding/json"
	"strings"

	"ai-werewolf/internal/llm"
)

// rawClaim mirrors the loose shape produced by the claim-extraction model.
// Numbers arrive as json.Number-ish floats, seats use the 1-indexed text
// convention, and most fields are optional.
type rawClaim struct {
	ID          string   `json:"id"`
	Day         *float64 `json:"day"`
	Phase       string   `json:"phase"`
	SpeakerSeat *float64 `json:"speakerSeat"`
	ClaimType   string   `json:"claimType"`
	Role        string   `json:"role"`
	TargetSeat  *float64 `json:"targetSeat"`
	Content     string   `json:"content"`
	Status      string   `json:"status"`
	Source      string   `json:"source"`
}

type extractionEnvelope struct {
	Claims []json.RawMessage `json:"claims"`
}

var validTypes = map[Type]bool{
	TypeRoleClaim: true, TypeSeerCheck: true, TypeWitchSave: true,
	TypeWitchPoison: true, TypeGuardProtect: true, TypeAlignmentStatement: true,
	TypeOther: true,
}

var validStatuses = map[Status]bool{
	StatusUnverified: true, StatusContested: true,
	StatusCorroborated: true, StatusDisproved: true,
}

// ParseExtraction decodes an untrusted {"claims": [...]} envelope from model
// output. Elements without a numeric day or speakerSeat are dropped, as are
// claims whose content trims to nothing. Text-convention 1-indexed seats are
// converted to internal 0-indexed seats.
func ParseExtraction(raw string) ([]Claim, error) {
	var env extractionEnvelope
	if err := llm.ParseTolerant(raw, &env); err != nil {
		return nil, err
	}
	out := make([]Claim, 0, len(env.Claims))
	for _, item := range env.Claims {
		var rc rawClaim
		if err := json.Unmarshal(item, &rc); err != nil {
			continue
		}
		if rc.Day == nil || rc.SpeakerSeat == nil {
			continue
		}
		content := strings.TrimSpace(rc.Content)
		if content == "" {
			continue
		}
		c := Claim{
			ID:          rc.ID,
			Day:         int(*rc.Day),
			Phase:       rc.Phase,
			SpeakerSeat: int(*rc.SpeakerSeat) - 1,
			ClaimType:   Type(rc.ClaimType),
			Role:        rc.Role,
			Content:     content,
			Status:      Status(rc.Status),
			Source:      SourceSummary,
		}
		if c.SpeakerSeat < 0 {
			continue
		}
		if !validTypes[c.ClaimType] {
			c.ClaimType = TypeOther
		}
		if !validStatuses[c.Status] {
			c.Status = StatusUnverified
		}
		if c.Role == "" {
			c.Role = "Unknown"
		}
		if rc.TargetSeat != nil {
			t := int(*rc.TargetSeat) - 1
			if t >= 0 {
				c.TargetSeat = &t
			}
		}
		if rc.Source != "" {
			c.Source = Source(rc.Source)
		}
		out = append(out, c)
	}
	return out, nil
}
