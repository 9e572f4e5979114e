package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

// adaptTemplate substitutes request values into a template's placeholders and
// applies the caller's row cap. Catalog templates are never mutated; the
// adapted SQL is a fresh string.
func adaptTemplate(tmpl catalog.Template, req *models.QueryRequest) string {
	sql := tmpl.SQL

	sql = strings.ReplaceAll(sql, "@tenant_id", quoteLiteral(req.TenantID))
	if req.EntityName != "" {
		sql = strings.ReplaceAll(sql, "@entity_name", quoteLiteral(req.EntityName))
	}

	for name, value := range req.Parameters {
		placeholder := "@" + name
		if !strings.Contains(sql, placeholder) {
			continue
		}
		if isNumeric(value) {
			sql = strings.ReplaceAll(sql, placeholder, value)
		} else {
			sql = strings.ReplaceAll(sql, placeholder, quoteLiteral(value))
		}
	}

	if req.MaxResults > 0 && !hasRowLimit(sql) {
		sql = insertRowLimit(sql, req.MaxResults)
	}

	return sql
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func isNumeric(value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

// outerSelectIndex returns the byte offset of the SELECT keyword that starts
// the outermost query: the first SELECT at parenthesis depth zero. For a
// query with leading CTEs every CTE body sits inside parentheses, so this is
// the final SELECT of the statement.
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
			if depth == 0 && strings.HasPrefix(lower[i:], "select") && isWordBoundary(lower, i, i+6) {
				return i
			}
		}
	}
	return -1
}

func isWordBoundary(lower string, start, end int) bool {
	if start > 0 && isIdentChar(lower[start-1]) {
		return false
	}
	if end < len(lower) && isIdentChar(lower[end]) {
		return false
	}
	return true
}

func isIdentChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

// hasRowLimit reports whether the outermost SELECT carries a TOP clause.
// Scoping CTEs legitimately use TOP 1 internally, so a whole-string search
// would be wrong here.
func hasRowLimit(sql string) bool {
	idx := outerSelectIndex(sql)
	if idx < 0 {
		return false
	}
	rest := strings.TrimLeft(sql[idx+len("select"):], " \t\r\n")
	return len(rest) >= 3 && strings.EqualFold(rest[:3], "top")
}

// insertRowLimit injects TOP (n) into the outermost SELECT, leaving any CTE
// SELECTs untouched.
func insertRowLimit(sql string, n int) string {
	idx := outerSelectIndex(sql)
	if idx < 0 {
		return sql
	}
	at := idx + len("select")
	return sql[:at] + fmt.Sprintf(" TOP (%d)", n) + sql[at:]
}
