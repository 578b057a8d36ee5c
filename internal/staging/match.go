package staging

import (
	"os"
	"strings"
)

type match struct {
	status     MatchStatus
	name       string
	candidates []string
}

// findSubmission looks in dir for the single entry whose name contains id.
// Entries are visited in name order. A name only counts when id is not part
// of a longer digit run; more than one counting name is ambiguous.
func findSubmission(dir, id string) (match, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return match{}, err
	}

	var hits []string
	for _, entry := range entries {
		if strings.Contains(entry.Name(), id) {
			hits = append(hits, entry.Name())
		}
	}

	if len(hits) == 0 {
		return match{status: MatchNotFound}, nil
	}

	var standalone []string
	for _, name := range hits {
		if containsStandalone(name, id) {
			standalone = append(standalone, name)
		}
	}

	var candidates []string
	if len(hits) > 1 || len(standalone) == 0 {
		candidates = hits
	}

	switch len(standalone) {
	case 0:
		return match{status: MatchNotFound, candidates: candidates}, nil
	case 1:
		return match{status: MatchFound, name: standalone[0], candidates: candidates}, nil
	default:
		return match{status: MatchAmbiguous, candidates: candidates}, nil
	}
}

// containsStandalone reports whether id occurs in name without a digit
// directly before or after it.
func containsStandalone(name, id string) bool {
	for offset := 0; offset <= len(name)-len(id); {
		i := strings.Index(name[offset:], id)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(id)
		if (start == 0 || !isDigit(name[start-1])) && (end == len(name) || !isDigit(name[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
