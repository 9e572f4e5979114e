package optimizer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

type Options struct {
	MaxRowLimit int
}

// RuleOptimizer applies a small set of deterministic rewrites and checks to
// synthesized SQL. It never executes anything.
type RuleOptimizer struct {
	maxRowLimit int
}

func NewRuleOptimizer(maxRowLimit int) *RuleOptimizer {
	if maxRowLimit == 0 {
		maxRowLimit = 1000
	}
	return &RuleOptimizer{maxRowLimit: maxRowLimit}
}

var (
	tenantFilterPattern  = regexp.MustCompile(`(?i)tenant_id\s*=\s*'`)
	selectStarPattern    = regexp.MustCompile(`(?i)SELECT\s+(TOP\s*\(?\s*\d+\s*\)?\s+)?\*`)
	notInSubqueryPattern = regexp.MustCompile(`(?i)NOT\s+IN\s*\(\s*SELECT`)
	topClausePattern     = regexp.MustCompile(`(?i)TOP\s*\(?\s*(\d+)\s*\)?`)
)

func (o *RuleOptimizer) Optimize(ctx context.Context, sql, tenantID string, opts Options) (*models.OptimizationResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	limit := opts.MaxRowLimit
	if limit == 0 {
		limit = o.maxRowLimit
	}

	result := &models.OptimizationResult{IsValid: true}

	optimized := strings.TrimSpace(sql)
	optimized = strings.TrimSuffix(optimized, ";")

	if !tenantFilterPattern.MatchString(optimized) {
		result.IsValid = false
		result.Errors = append(result.Errors, "query has no tenant_id filter")
		result.OptimizedSQL = optimized
		return result, nil
	}

	if selectStarPattern.MatchString(optimized) {
		result.Warnings = append(result.Warnings, "SELECT * projection; name the required columns")
	}
	if notInSubqueryPattern.MatchString(optimized) {
		result.Warnings = append(result.Warnings, "NOT IN subquery; NOT EXISTS usually performs better")
	}

	if idx := outerSelectIndex(optimized); idx >= 0 {
		at := idx + len("select")
		rest := optimized[at:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")

		if strings.HasPrefix(strings.ToLower(trimmed), "top") {
			if m := topClausePattern.FindStringSubmatchIndex(trimmed); m != nil && m[0] == 0 {
				current, err := strconv.Atoi(trimmed[m[2]:m[3]])
				if err == nil && current > limit {
					clamped := fmt.Sprintf("TOP (%d) ", limit) + strings.TrimLeft(trimmed[m[1]:], " \t")
					optimized = optimized[:at] + rest[:len(rest)-len(trimmed)] + clamped
					result.Warnings = append(result.Warnings, fmt.Sprintf("row limit reduced to the configured maximum of %d", limit))
				}
			}
		} else {
			optimized = optimized[:at] + fmt.Sprintf(" TOP (%d)", limit) + optimized[at:]
			result.Warnings = append(result.Warnings, fmt.Sprintf("row limit of %d applied", limit))
		}
	}

	result.OptimizedSQL = optimized

	logger.Debug("Query optimized",
		zap.String("tenant_id", tenantID),
		zap.Int("warnings", len(result.Warnings)),
	)

	return result, nil
}

func (o *RuleOptimizer) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// outerSelectIndex finds the SELECT that starts the outermost query: the
// first one at parenthesis depth zero outside string literals.
func outerSelectIndex(sql string) int {
	depth := 0
	inString := false
	lower := strings.ToLower(sql)

	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if inString {
			if c == '\'' {
				inString = false
			}
			continue
		}
		switch c {
		case '\'':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		case 's':
			if depth == 0 && strings.HasPrefix(lower[i:], "select") {
				before := i == 0 || !isIdentChar(lower[i-1])
				after := i+6 >= len(lower) || !isIdentChar(lower[i+6])
				if before && after {
					return i
				}
			}
		}
	}
	return -1
}

func isIdentChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}
