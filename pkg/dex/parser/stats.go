package parser

import (
	"strconv"
	"strings"
)

// parseLineStats extracts trailing key:value counters from a log line's
// stats segment. Non-integer values and the literal "locks(micros)" marker
// are skipped, per §4.3.
func parseLineStats(statString string) map[string]int {
	stats := make(map[string]int)
	for _, token := range strings.Fields(statString) {
		if token == "" || token == "locks(micros)" {
			continue
		}
		parts := strings.SplitN(token, ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		stats[parts[0]] = n
	}
	return stats
}
