package prompt

import (
	"regexp"
	"strconv"
	"strings"
)

// Shoot-intent phrasings in order of precedence; the first match wins.
// Seats are 1-indexed in running text and converted to 0-indexed seats.
var shootPatterns = []*regexp.Regexp{
	regexp.MustCompile(`开枪.*?(\d+)\s*号`),
	regexp.MustCompile(`带走.*?(\d+)\s*号`),
	regexp.MustCompile(`打.*?(\d+)\s*号`),
	regexp.MustCompile(`(\d+)\s*号.*?开枪`),
	regexp.MustCompile(`锁.*?(\d+)\s*号`),
}

var passPhrases = []string{"不开枪", "pass", "放弃开枪"}

// ShootIntent is what the hunter's last words say about the retaliation
// shot. HasIntent false means the last words were silent on the matter.
type ShootIntent struct {
	TargetSeat *int
	HasIntent  bool
}

func ExtractShootIntent(lastWords string) ShootIntent {
	for _, pattern := range shootPatterns {
		m := pattern.FindStringSubmatch(lastWords)
		if m == nil {
			continue
		}
		seat, err := strconv.Atoi(m[1])
		if err != nil || seat <= 0 {
			continue
		}
		target := seat - 1
		return ShootIntent{TargetSeat: &target, HasIntent: true}
	}
	for _, phrase := range passPhrases {
		if strings.Contains(lastWords, phrase) {
			return ShootIntent{HasIntent: true}
		}
	}
	return ShootIntent{}
}
