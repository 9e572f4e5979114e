package synth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

const (
	ErrMissingTenantFilter = "MISSING_TENANT_FILTER"
	ErrMissingEntityFilter = "MISSING_ENTITY_FILTER"

	WarnMissingUploadScope  = "MISSING_UPLOAD_SCOPE"
	WarnHeaderWithoutDetail = "HEADER_WITHOUT_DETAIL"
	WarnMissingMateriality  = "MISSING_MATERIALITY"
	WarnMissingRowLimit     = "MISSING_ROW_LIMIT"
)

type ValidationResult struct {
	Valid            bool
	Errors           []string
	Warnings         []string
	PerformanceScore int
}

func (v ValidationResult) hasError(code string) bool {
	for _, e := range v.Errors {
		if e == code {
			return true
		}
	}
	return false
}

func (v ValidationResult) hasWarning(code string) bool {
	for _, w := range v.Warnings {
		if w == code {
			return true
		}
	}
	return false
}

var (
	tenantFilterPattern = regexp.MustCompile(`(?i)tenant_id\s*=\s*'`)
	materialityPattern  = regexp.MustCompile(`(?i)(amount|balance|total)[a-z_)]*\s*(>=|>)\s*[0-9]`)
	notInSubqueryPattern = regexp.MustCompile(`(?i)NOT\s+IN\s*\(\s*SELECT`)
	distinctPattern      = regexp.MustCompile(`(?i)\bDISTINCT\b`)
	groupByPattern       = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
)

// validate checks the synthesized SQL for the mandatory isolation filters and
// a set of soft quality signals, and scores expected performance 0-10.
func (s *Synthesizer) validate(sql string, req *models.QueryRequest) ValidationResult {
	result := ValidationResult{Valid: true, PerformanceScore: 10}
	lower := strings.ToLower(sql)

	if !tenantFilterPattern.MatchString(sql) {
		result.Valid = false
		result.Errors = append(result.Errors, ErrMissingTenantFilter)
	}

	if s.cfg.EntityScoped && req.EntityName != "" {
		if !strings.Contains(lower, strings.ToLower(quoteLiteral(req.EntityName))) {
			result.Valid = false
			result.Errors = append(result.Errors, ErrMissingEntityFilter)
		}
	}

	if !strings.Contains(lower, "upload_id") {
		result.Warnings = append(result.Warnings, WarnMissingUploadScope)
		result.PerformanceScore -= 2
	}

	for header, detail := range s.cfg.Schema.HeaderDetailPairs() {
		if strings.Contains(lower, header) && !strings.Contains(lower, detail) {
			result.Warnings = append(result.Warnings, WarnHeaderWithoutDetail)
			break
		}
	}

	if !materialityPattern.MatchString(sql) {
		result.Warnings = append(result.Warnings, WarnMissingMateriality)
	}

	if !hasRowLimit(sql) {
		result.Warnings = append(result.Warnings, WarnMissingRowLimit)
		result.PerformanceScore--
	}

	if distinctPattern.MatchString(sql) && groupByPattern.MatchString(sql) {
		result.PerformanceScore--
	}
	if notInSubqueryPattern.MatchString(sql) {
		result.PerformanceScore -= 2
	}
	if !strings.Contains(lower, "latest_upload") {
		result.PerformanceScore--
	}
	if result.PerformanceScore < 0 {
		result.PerformanceScore = 0
	}

	return result
}

var wherePattern = regexp.MustCompile(`(?i)\bWHERE\b`)

// autoFix repairs the hard errors and the row-limit warning in place. Each
// fix only fires when its finding is present, so re-running it on repaired
// SQL changes nothing. Fixes only add filters; they never remove or loosen
// an existing one.
func (s *Synthesizer) autoFix(sql string, result ValidationResult, req *models.QueryRequest) string {
	if result.hasError(ErrMissingTenantFilter) {
		sql = injectWhereCondition(sql, fmt.Sprintf("tenant_id = %s", quoteLiteral(req.TenantID)))
	}

	if result.hasError(ErrMissingEntityFilter) {
		sql = injectWhereCondition(sql, fmt.Sprintf("LOWER(%s) = LOWER(%s)",
			s.cfg.EntityColumn, quoteLiteral(req.EntityName)))
	}

	if result.hasWarning(WarnMissingRowLimit) {
		limit := req.MaxResults
		if limit <= 0 {
			limit = s.cfg.DefaultRowLimit
		}
		if limit > 0 && !hasRowLimit(sql) {
			sql = insertRowLimit(sql, limit)
		}
	}

	return sql
}

// injectWhereCondition prepends a condition right after the first WHERE, or
// appends a new WHERE clause when the query has none.
func injectWhereCondition(sql, condition string) string {
	loc := wherePattern.FindStringIndex(sql)
	if loc == nil {
		return sql + "\nWHERE " + condition
	}
	return sql[:loc[1]] + " " + condition + " AND" + sql[loc[1]:]
}
