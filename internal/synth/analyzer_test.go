package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

func TestAnalyzeFocusAreas(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []models.FocusArea
	}{
		{
			name:  "variance from versus keyword",
			query: "Identify transactions more than 10% up or down versus prior period",
			want:  []models.FocusArea{models.FocusVariance},
		},
		{
			name:  "duplicate",
			query: "find duplicate payments to the same vendor",
			want:  []models.FocusArea{models.FocusDuplicate},
		},
		{
			name:  "aged",
			query: "show overdue receivables by aging bucket",
			want:  []models.FocusArea{models.FocusAged},
		},
		{
			name:  "multiple areas keep detection order",
			query: "large manual journal adjustments near the cutoff",
			want:  []models.FocusArea{models.FocusLarge, models.FocusUnusual, models.FocusCutoff},
		},
		{
			name:  "no signal falls back to general",
			query: "what happened with the books",
			want:  []models.FocusArea{models.FocusGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := Analyze(tt.query)
			assert.Equal(t, tt.want, fc.FocusAreas)
		})
	}
}

func TestAnalyzeTimeframe(t *testing.T) {
	tests := []struct {
		query          string
		wantTimeframe  models.Timeframe
		wantLatestSnap bool
	}{
		{"balances right now", models.TimeframeCurrent, true},
		{"totals for the quarter", models.TimeframePeriod, true},
		{"spending trend over time", models.TimeframeHistorical, false},
		{"journal entries posted in 2023", models.TimeframeCustom, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			fc := Analyze(tt.query)
			assert.Equal(t, tt.wantTimeframe, fc.Timeframe)
			assert.Equal(t, tt.wantLatestSnap, fc.UseLatestSnapshot)
		})
	}
}

func TestAnalyzeDetailPreference(t *testing.T) {
	assert.True(t, Analyze("list each payment").WantsDetail)
	assert.False(t, Analyze("summarize payments by account").WantsDetail)
	// Summary keywords win when both appear.
	assert.False(t, Analyze("show a total by account").WantsDetail)
	// Detail is the default.
	assert.True(t, Analyze("payments").WantsDetail)
}

func TestAnalyzeRiskHint(t *testing.T) {
	assert.Equal(t, models.RiskHigh, Analyze("flag suspicious round amounts").RiskHint)
	assert.Equal(t, models.RiskMedium, Analyze("balances of concern").RiskHint)
	assert.Equal(t, models.RiskSeverity(""), Analyze("monthly totals").RiskHint)
}
