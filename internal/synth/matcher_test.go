package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

func TestMatchTemplateThresholdBoundary(t *testing.T) {
	// Four overlapping words score 4, one short of the threshold.
	fourWords := "alpha bravo charlie delta"
	fiveWords := fourWords + " eagle"

	tmpl := catalog.Template{
		ID:        "tmpl_one",
		FocusArea: models.FocusLarge,
		Example:   fiveWords,
	}

	_, ok := matchTemplate(fourWords, Analyze(fourWords), []catalog.Template{tmpl})
	assert.False(t, ok, "score 4 must not match")

	matched, ok := matchTemplate(fiveWords, Analyze(fiveWords), []catalog.Template{tmpl})
	assert.True(t, ok, "score 5 must match")
	assert.Equal(t, "tmpl_one", matched.ID)
}

func TestScoreTemplateFocusAreaBonus(t *testing.T) {
	query := "show variance"
	fc := Analyze(query)
	tmpl := catalog.Template{ID: "t1", FocusArea: models.FocusVariance}

	// +5 focus area, +4 keyword/id bonus ("variance" appears in both).
	tmplVarianceID := catalog.Template{ID: "some_variance_check", FocusArea: models.FocusVariance}

	lower := strings.ToLower(query)
	words := scoringWords(lower)
	assert.Equal(t, 5, scoreTemplate(lower, words, fc, tmpl))
	assert.Equal(t, 9, scoreTemplate(lower, words, fc, tmplVarianceID))
}

func TestScoreTemplateKeywordIDBonuses(t *testing.T) {
	tests := []struct {
		query string
		id    string
		bonus int
	}{
		{"journal entries on saturday", "weekend_journal_entries", 3},
		{"duplicate invoices", "duplicate_payment_detection", 4},
		{"aged balances", "aged_receivables_review", 4},
		{"round figures", "round_amount_transactions", 4},
		{"cutoff review", "period_cutoff_testing", 4},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			lower := strings.ToLower(tt.query)
			words := scoringWords(lower)
			// Empty example and mismatched focus isolate the id bonus.
			tmpl := catalog.Template{ID: tt.id, FocusArea: models.FocusArea("none")}
			fc := FocusContext{FocusAreas: []models.FocusArea{models.FocusGeneral}}
			assert.Equal(t, tt.bonus, scoreTemplate(lower, words, fc, tmpl))
		})
	}
}

func TestMatchTemplatePicksBestScore(t *testing.T) {
	query := "find duplicate payments with the same payee amount and date"
	fc := Analyze(query)

	templates := []catalog.Template{
		{ID: "aged_receivables_review", FocusArea: models.FocusAged, Example: "aged receivables overdue"},
		{ID: "duplicate_payment_detection", FocusArea: models.FocusDuplicate,
			Example: "Find duplicate payments with the same payee amount and date"},
	}

	matched, ok := matchTemplate(query, fc, templates)
	assert.True(t, ok)
	assert.Equal(t, "duplicate_payment_detection", matched.ID)
}

func TestScoringWordsDropShortWords(t *testing.T) {
	words := scoringWords("up or down by 10% versus prior-period amounts")
	assert.Equal(t, []string{"down", "versus", "prior", "period", "amounts"}, words)
}
