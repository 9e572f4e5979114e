package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

const ctePrefixedSQL = `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = 't1'
    ORDER BY upload_date DESC
)
SELECT t.transaction_id, t.amount
FROM gl_transactions t
JOIN latest_upload lu ON t.upload_id = lu.upload_id
WHERE t.tenant_id = 't1'`

func TestHasRowLimitIgnoresScopingCTE(t *testing.T) {
	// The scoping CTE's TOP 1 must not count as a row limit on the query.
	assert.False(t, hasRowLimit(ctePrefixedSQL))

	limited := insertRowLimit(ctePrefixedSQL, 50)
	assert.True(t, hasRowLimit(limited))
	assert.Contains(t, limited, "SELECT TOP (50) t.transaction_id")
	assert.Equal(t, 1, strings.Count(limited, "TOP (50)"))
}

func TestOuterSelectIndexSkipsStringLiterals(t *testing.T) {
	sql := `WITH x AS (SELECT 1 AS n) SELECT 'select from nowhere' AS label, n FROM x`
	idx := outerSelectIndex(sql)
	assert.True(t, idx > strings.Index(sql, ")"), "outer SELECT sits after the CTE close paren")
	assert.True(t, strings.HasPrefix(strings.ToLower(sql[idx:]), "select 'select"))
}

func TestAdaptTemplateSubstitution(t *testing.T) {
	tmpl := catalog.Template{
		ID: "stub",
		SQL: `SELECT t.amount
FROM gl_transactions t
WHERE t.tenant_id = @tenant_id
  AND LOWER(t.client_name) = LOWER(@entity_name)
  AND ABS(t.amount) >= @threshold
  AND t.region = @region`,
	}

	req := &models.QueryRequest{
		Query:      "large items",
		TenantID:   "t1",
		EntityName: "O'Brien Ltd",
		MaxResults: 25,
		Parameters: map[string]string{
			"threshold": "500",
			"region":    "north",
		},
	}

	sql := adaptTemplate(tmpl, req)

	assert.Contains(t, sql, "t.tenant_id = 't1'")
	assert.Contains(t, sql, "LOWER('O''Brien Ltd')", "single quotes are doubled")
	assert.Contains(t, sql, "ABS(t.amount) >= 500", "numeric parameters stay bare")
	assert.Contains(t, sql, "t.region = 'north'", "string parameters are quoted")
	assert.Contains(t, sql, "SELECT TOP (25) t.amount")
	assert.NotContains(t, sql, "@")
}

func TestAdaptTemplateKeepsExistingRowLimit(t *testing.T) {
	tmpl := catalog.Template{
		ID:  "stub",
		SQL: "SELECT TOP 10 t.amount FROM gl_transactions t WHERE t.tenant_id = @tenant_id",
	}
	req := &models.QueryRequest{Query: "q", TenantID: "t1", MaxResults: 25}

	sql := adaptTemplate(tmpl, req)
	assert.Contains(t, sql, "TOP 10")
	assert.NotContains(t, sql, "TOP (25)")
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", quoteLiteral("plain"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}
