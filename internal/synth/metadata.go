package synth

import (
	"regexp"
	"sort"
	"strings"
)

var (
	tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	cteDefPattern   = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s+AS\s*\(`)
	identPattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

var projectionNoise = map[string]bool{
	"top": true, "distinct": true, "all": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"as": true,
}

// extractMetadata parses the involved tables and the outermost projection
// columns out of the synthesized SQL. CTE names (the scoping CTE included)
// are not tables and are filtered out of the table set.
func extractMetadata(sql string) (tables []string, columns []string) {
	cteNames := map[string]bool{"latest_upload": true}
	for _, m := range cteDefPattern.FindAllStringSubmatch(sql, -1) {
		cteNames[strings.ToLower(m[1])] = true
	}

	tableSet := map[string]bool{}
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		if cteNames[name] {
			continue
		}
		tableSet[name] = true
	}

	columnSet := map[string]bool{}
	for _, expr := range outerProjection(sql) {
		if col, ok := resolveColumn(expr); ok {
			columnSet[col] = true
		}
	}

	return sortedKeys(tableSet), sortedKeys(columnSet)
}

// outerProjection returns the select-list expressions of the outermost
// SELECT, split on top-level commas.
func outerProjection(sql string) []string {
	start := outerSelectIndex(sql)
	if start < 0 {
		return nil
	}
	start += len("select")

	lower := strings.ToLower(sql)
	depth := 0
	end := len(sql)
	for i := start; i < len(sql); i++ {
		switch sql[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(lower[i:], "from") && isWordBoundary(lower, i, i+4) {
			end = i
			break
		}
	}

	var exprs []string
	depth = 0
	segment := strings.Builder{}
	for i := start; i < end; i++ {
		c := sql[i]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				exprs = append(exprs, segment.String())
				segment.Reset()
				continue
			}
		}
		segment.WriteByte(c)
	}
	if s := strings.TrimSpace(segment.String()); s != "" {
		exprs = append(exprs, s)
	}
	return exprs
}

// resolveColumn maps one projection expression to its output column name:
// the alias after AS, the column part of alias.column, or the bare
// identifier. Keyword noise is dropped.
func resolveColumn(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", false
	}

	lower := strings.ToLower(expr)
	if idx := strings.LastIndex(lower, " as "); idx >= 0 {
		alias := strings.TrimSpace(expr[idx+4:])
		if identPattern.MatchString(alias) && !projectionNoise[strings.ToLower(alias)] {
			return strings.ToLower(alias), true
		}
	}

	fields := strings.Fields(expr)
	candidate := fields[len(fields)-1]
	if dot := strings.LastIndex(candidate, "."); dot >= 0 {
		candidate = candidate[dot+1:]
	}
	candidate = strings.ToLower(candidate)
	if !identPattern.MatchString(candidate) || projectionNoise[candidate] {
		return "", false
	}
	return candidate, true
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
