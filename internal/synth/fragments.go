package synth

import (
	"fmt"
	"strings"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

// VarianceBuilder compares current-period amounts per grouping key against
// the trailing twelve-period mean and flags deviation bands.
type VarianceBuilder struct {
	Table     string
	KeyCol    string
	NameCol   string
	AmountCol string
	PeriodCol string
}

func (v VarianceBuilder) FocusArea() models.FocusArea { return models.FocusVariance }

func (v VarianceBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	deviation := fmt.Sprintf("(SUM(t.%s) - ph.avg_amount) / NULLIF(ABS(ph.avg_amount), 0)", v.AmountCol)

	history := fmt.Sprintf(`    SELECT h.%s,
           AVG(h.%s) AS avg_amount,
           STDEV(h.%s) AS stdev_amount
    FROM %s h
    JOIN latest_upload lu ON h.upload_id = lu.upload_id
    WHERE h.tenant_id = %s
      AND h.%s BETWEEN 1 AND 12
    GROUP BY h.%s`,
		v.KeyCol, v.AmountCol, v.AmountCol, v.Table,
		quoteLiteral(req.TenantID), v.PeriodCol, v.KeyCol)

	return fragmentParts{
		CTEs: []namedCTE{{Name: "period_history", Body: history}},
		Columns: []string{
			"t." + v.KeyCol,
			"t." + v.NameCol,
			fmt.Sprintf("SUM(t.%s) AS current_amount", v.AmountCol),
			"ph.avg_amount",
			"ph.stdev_amount",
			deviation + " * 100 AS variance_pct",
			fmt.Sprintf(`CASE
           WHEN ABS(%[1]s) > 0.50 THEN 'HIGH'
           WHEN ABS(%[1]s) > 0.25 THEN 'MEDIUM'
           WHEN ABS(%[1]s) > 0.10 THEN 'LOW'
           ELSE 'NONE'
       END AS deviation_band`, deviation),
		},
		From:  v.Table,
		Alias: "t",
		Joins: []string{fmt.Sprintf("JOIN period_history ph ON ph.%s = t.%s", v.KeyCol, v.KeyCol)},
		Where: []string{
			fmt.Sprintf("t.%s = 0", v.PeriodCol),
			fmt.Sprintf("ABS(t.%s) >= 1000", v.AmountCol),
		},
		GroupBy: []string{"t." + v.KeyCol, "t." + v.NameCol, "ph.avg_amount", "ph.stdev_amount"},
		OrderBy: fmt.Sprintf("ABS(%s) DESC", deviation),
	}
}

// LargeItemBuilder flags items whose magnitude exceeds a fixed share of the
// scoped total.
type LargeItemBuilder struct {
	Table        string
	LabelCols    []string
	AmountCol    string
	Share        float64
	PortfolioCol string
}

func (l LargeItemBuilder) FocusArea() models.FocusArea { return models.FocusLarge }

func (l LargeItemBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	share := l.Share
	if share == 0 {
		share = 0.05
	}

	total := fmt.Sprintf(`    SELECT SUM(ABS(%s)) AS total_amount
    FROM %s x
    JOIN latest_upload lu ON x.upload_id = lu.upload_id
    WHERE x.tenant_id = %s`,
		l.AmountCol, l.Table, quoteLiteral(req.TenantID))

	columns := prefixAll("t.", l.LabelCols)
	columns = append(columns,
		"t."+l.AmountCol,
		fmt.Sprintf("ABS(t.%s) / NULLIF(tot.total_amount, 0) * 100 AS share_of_total_pct", l.AmountCol),
	)

	where := []string{fmt.Sprintf("ABS(t.%s) > tot.total_amount * %.2f", l.AmountCol, share)}
	if l.PortfolioCol != "" && req.Portfolio != "" {
		where = append(where, fmt.Sprintf("t.%s = %s", l.PortfolioCol, quoteLiteral(req.Portfolio)))
	}

	return fragmentParts{
		CTEs:    []namedCTE{{Name: "amount_total", Body: total}},
		Columns: columns,
		From:    l.Table,
		Alias:   "t",
		Joins:   []string{"CROSS JOIN amount_total tot"},
		Where:   where,
		OrderBy: fmt.Sprintf("ABS(t.%s) DESC", l.AmountCol),
	}
}

// AgedItemBuilder buckets overdue items at 30/60/90/120 days.
type AgedItemBuilder struct {
	Table        string
	LabelCols    []string
	AmountCol    string
	DueDateCol   string
	PortfolioCol string
}

func (a AgedItemBuilder) FocusArea() models.FocusArea { return models.FocusAged }

func (a AgedItemBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	overdue := fmt.Sprintf("DATEDIFF(day, t.%s, GETDATE())", a.DueDateCol)

	columns := prefixAll("t.", a.LabelCols)
	columns = append(columns,
		"t."+a.AmountCol,
		overdue+" AS days_overdue",
		fmt.Sprintf(`CASE
           WHEN %[1]s > 120 THEN '120+'
           WHEN %[1]s > 90 THEN '91-120'
           WHEN %[1]s > 60 THEN '61-90'
           WHEN %[1]s > 30 THEN '31-60'
           ELSE '0-30'
       END AS aging_bucket`, overdue),
	)

	where := []string{
		overdue + " > 0",
		fmt.Sprintf("t.%s >= 100", a.AmountCol),
	}
	if a.PortfolioCol != "" && req.Portfolio != "" {
		where = append(where, fmt.Sprintf("t.%s = %s", a.PortfolioCol, quoteLiteral(req.Portfolio)))
	}

	return fragmentParts{
		Columns: columns,
		From:    a.Table,
		Alias:   "t",
		Where:   where,
		OrderBy: fmt.Sprintf("%s DESC, t.%s DESC", overdue, a.AmountCol),
	}
}

// UnusualEntryBuilder restricts to manual and adjustment entry types.
type UnusualEntryBuilder struct {
	Table        string
	LabelCols    []string
	AmountCol    string
	EntryTypeCol string
}

func (u UnusualEntryBuilder) FocusArea() models.FocusArea { return models.FocusUnusual }

func (u UnusualEntryBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	columns := prefixAll("t.", u.LabelCols)
	columns = append(columns, "t."+u.EntryTypeCol, "t."+u.AmountCol)

	return fragmentParts{
		Columns: columns,
		From:    u.Table,
		Alias:   "t",
		Where: []string{
			fmt.Sprintf("t.%s IN ('MANUAL', 'ADJUSTMENT')", u.EntryTypeCol),
			fmt.Sprintf("ABS(t.%s) >= 500", u.AmountCol),
		},
		OrderBy: fmt.Sprintf("ABS(t.%s) DESC", u.AmountCol),
	}
}

// DuplicateBuilder groups by payer, amount, and date; groups with more than
// one member are candidate duplicates and the overpayment estimate is
// (count-1) x amount.
type DuplicateBuilder struct {
	Table     string
	PayerCol  string
	AmountCol string
	DateCol   string
}

func (d DuplicateBuilder) FocusArea() models.FocusArea { return models.FocusDuplicate }

func (d DuplicateBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	overpayment := fmt.Sprintf("(COUNT(*) - 1) * t.%s", d.AmountCol)

	return fragmentParts{
		Columns: []string{
			"t." + d.PayerCol,
			"t." + d.AmountCol,
			"t." + d.DateCol,
			"COUNT(*) AS occurrence_count",
			overpayment + " AS potential_overpayment",
		},
		From:  d.Table,
		Alias: "t",
		Where: []string{
			fmt.Sprintf("ABS(t.%s) >= 100", d.AmountCol),
		},
		GroupBy: []string{"t." + d.PayerCol, "t." + d.AmountCol, "t." + d.DateCol},
		Having:  []string{"COUNT(*) > 1"},
		OrderBy: overpayment + " DESC",
	}
}

// CutoffBuilder reviews transactions inside a window around the period end
// and classifies recognition timing.
type CutoffBuilder struct {
	Table      string
	LabelCols  []string
	AmountCol  string
	TxnDateCol string
	PostDueCol string
	WindowDays int
}

func (c CutoffBuilder) FocusArea() models.FocusArea { return models.FocusCutoff }

func (c CutoffBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	window := c.WindowDays
	if window == 0 {
		window = 3
	}

	columns := prefixAll("t.", c.LabelCols)
	columns = append(columns,
		"t."+c.TxnDateCol,
		"t."+c.PostDueCol,
		"t."+c.AmountCol,
		fmt.Sprintf(`CASE
           WHEN t.%[1]s > u.period_end AND t.%[2]s <= u.period_end THEN 'EARLY_RECOGNITION'
           WHEN t.%[1]s <= u.period_end AND t.%[2]s > u.period_end THEN 'LATE_RECOGNITION'
           ELSE 'PROPER'
       END AS recognition_class`, c.TxnDateCol, c.PostDueCol),
	)

	return fragmentParts{
		Columns: columns,
		From:    c.Table,
		Alias:   "t",
		Joins:   []string{"JOIN uploads u ON u.upload_id = lu.upload_id"},
		Where: []string{
			fmt.Sprintf("t.%s BETWEEN DATEADD(day, -%d, u.period_end) AND DATEADD(day, %d, u.period_end)",
				c.TxnDateCol, window, window),
			fmt.Sprintf("ABS(t.%s) >= 500", c.AmountCol),
		},
		OrderBy: fmt.Sprintf("ABS(t.%s) DESC", c.AmountCol),
	}
}

// GeneralBuilder is the default fragment when no dedicated builder covers the
// focus area: a metrics listing or summary over the scoped data.
type GeneralBuilder struct {
	Table        string
	LabelCols    []string
	AmountCol    string
	GroupCol     string
	PortfolioCol string
}

func (g GeneralBuilder) FocusArea() models.FocusArea { return models.FocusGeneral }

func (g GeneralBuilder) Build(req *models.QueryRequest, fc FocusContext) fragmentParts {
	where := []string{fmt.Sprintf("ABS(t.%s) >= 100", g.AmountCol)}
	if g.PortfolioCol != "" && req.Portfolio != "" {
		where = append(where, fmt.Sprintf("t.%s = %s", g.PortfolioCol, quoteLiteral(req.Portfolio)))
	}

	if !fc.WantsDetail {
		return fragmentParts{
			Columns: []string{
				"t." + g.GroupCol,
				"COUNT(*) AS item_count",
				fmt.Sprintf("SUM(t.%s) AS total_amount", g.AmountCol),
				fmt.Sprintf("AVG(t.%s) AS avg_amount", g.AmountCol),
				fmt.Sprintf("MIN(t.%s) AS min_amount", g.AmountCol),
				fmt.Sprintf("MAX(t.%s) AS max_amount", g.AmountCol),
			},
			From:    g.Table,
			Alias:   "t",
			Where:   where,
			GroupBy: []string{"t." + g.GroupCol},
			OrderBy: fmt.Sprintf("SUM(t.%s) DESC", g.AmountCol),
		}
	}

	columns := prefixAll("t.", g.LabelCols)
	columns = append(columns, "t."+g.AmountCol)

	return fragmentParts{
		Columns: columns,
		From:    g.Table,
		Alias:   "t",
		Where:   where,
		OrderBy: fmt.Sprintf("ABS(t.%s) DESC", g.AmountCol),
	}
}

func prefixAll(prefix string, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if strings.Contains(c, ".") || strings.Contains(c, "(") {
			out = append(out, c)
			continue
		}
		out = append(out, prefix+c)
	}
	return out
}
