package synth

import (
	"regexp"
	"strings"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

// FocusContext is the synthesizer's reading of a request. It is computed once
// per request and never mutated afterwards.
type FocusContext struct {
	FocusAreas        []models.FocusArea
	Timeframe         models.Timeframe
	WantsDetail       bool
	UseLatestSnapshot bool
	RiskHint          models.RiskSeverity
}

type focusFamily struct {
	area     models.FocusArea
	keywords []string
}

// Detection order is preserved in the resulting focus-area list.
var focusFamilies = []focusFamily{
	{models.FocusVariance, []string{"variance", "change", "fluctuation", "versus", "prior period", "compared"}},
	{models.FocusLarge, []string{"large", "significant", "material"}},
	{models.FocusAged, []string{"aged", "aging", "overdue"}},
	{models.FocusUnusual, []string{"journal", "manual", "adjustment"}},
	{models.FocusRound, []string{"round"}},
	{models.FocusDuplicate, []string{"duplicate"}},
	{models.FocusCutoff, []string{"period-end", "period end", "cutoff", "cut-off"}},
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func Analyze(queryText string) FocusContext {
	lower := strings.ToLower(queryText)

	var areas []models.FocusArea
	for _, family := range focusFamilies {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				areas = append(areas, family.area)
				break
			}
		}
	}
	if len(areas) == 0 {
		areas = []models.FocusArea{models.FocusGeneral}
	}

	fc := FocusContext{
		FocusAreas:        areas,
		Timeframe:         detectTimeframe(lower),
		WantsDetail:       detectDetail(lower),
		UseLatestSnapshot: true,
	}
	if fc.Timeframe == models.TimeframeHistorical {
		fc.UseLatestSnapshot = false
	}

	switch {
	case strings.Contains(lower, "fraud") || strings.Contains(lower, "suspicious"):
		fc.RiskHint = models.RiskHigh
	case strings.Contains(lower, "risk") || strings.Contains(lower, "concern"):
		fc.RiskHint = models.RiskMedium
	}

	return fc
}

func detectTimeframe(lower string) models.Timeframe {
	if yearPattern.MatchString(lower) {
		return models.TimeframeCustom
	}
	for _, kw := range []string{"history", "historical", "trend", "over time"} {
		if strings.Contains(lower, kw) {
			return models.TimeframeHistorical
		}
	}
	for _, kw := range []string{"month", "quarter", "year", "period"} {
		if strings.Contains(lower, kw) {
			return models.TimeframePeriod
		}
	}
	return models.TimeframeCurrent
}

func detectDetail(lower string) bool {
	for _, kw := range []string{"summary", "summarize", "total", "overview", "aggregate"} {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range []string{"detail", "each", "individual", "list", "every", "show"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return true
}
