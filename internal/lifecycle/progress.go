package lifecycle

import (
	"regexp"
	"strconv"

	"github.com/five82/reel/internal/fal"
)

var diffusingPattern = regexp.MustCompile(`Diffusing:\s+(\d+)%`)

// ExtractProgress reads a "Diffusing: N%" percentage from the newest log
// entry. Earlier entries are never consulted.
func ExtractProgress(logs []fal.LogEntry) (int, bool) {
	if len(logs) == 0 {
		return 0, false
	}
	msg := logs[len(logs)-1].Message
	if msg == "" {
		return 0, false
	}
	match := diffusingPattern.FindStringSubmatch(msg)
	if match == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return min(pct, 100), true
}
