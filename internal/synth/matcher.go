package synth

import (
	"strings"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
)

// matchThreshold is the minimum template score; anything below it falls back
// to dynamic synthesis.
const matchThreshold = 5

type idBonus struct {
	keyword     string
	idSubstring string
	points      int
}

var idBonuses = []idBonus{
	{"variance", "variance", 4},
	{"duplicate", "duplicate", 4},
	{"aged", "aged", 4},
	{"journal", "weekend", 3},
	{"round", "round", 4},
	{"cutoff", "cutoff", 4},
}

// matchTemplate scores every catalog template against the query and returns
// the best one, or ok=false when no template reaches the threshold.
func matchTemplate(queryText string, fc FocusContext, templates []catalog.Template) (catalog.Template, bool) {
	lower := strings.ToLower(queryText)
	words := scoringWords(lower)

	var best catalog.Template
	bestScore := -1

	for _, tmpl := range templates {
		score := scoreTemplate(lower, words, fc, tmpl)
		if score > bestScore {
			bestScore = score
			best = tmpl
		}
	}

	if bestScore < matchThreshold {
		return catalog.Template{}, false
	}
	return best, true
}

func scoreTemplate(lowerQuery string, words []string, fc FocusContext, tmpl catalog.Template) int {
	score := 0

	example := strings.ToLower(tmpl.Example)
	for _, word := range words {
		if strings.Contains(example, word) {
			score++
		}
	}

	for _, area := range fc.FocusAreas {
		if area == tmpl.FocusArea || strings.Contains(string(area), string(tmpl.FocusArea)) {
			score += 5
			break
		}
	}

	for _, bonus := range idBonuses {
		if strings.Contains(lowerQuery, bonus.keyword) && strings.Contains(tmpl.ID, bonus.idSubstring) {
			score += bonus.points
		}
	}

	return score
}

// scoringWords returns the query words longer than three characters, with
// punctuation stripped.
func scoringWords(lowerQuery string) []string {
	fields := strings.FieldsFunc(lowerQuery, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var words []string
	for _, f := range fields {
		if len(f) > 3 {
			words = append(words, f)
		}
	}
	return words
}
