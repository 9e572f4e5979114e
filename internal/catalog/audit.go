package catalog

import (
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

func auditTemplates() []Template {
	return []Template{
		{
			ID:        "monthly_variance_analysis",
			Name:      "Monthly Variance Analysis",
			FocusArea: models.FocusVariance,
			Example:   "Identify transactions more than 10% up or down versus prior period amounts for each account",
			Parameters: []string{
				"tenant_id", "entity_name",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
      AND LOWER(client_name) = LOWER(@entity_name)
    ORDER BY upload_date DESC
),
period_history AS (
    SELECT t.account_code,
           AVG(t.amount) AS avg_amount,
           STDEV(t.amount) AS stdev_amount
    FROM gl_transactions t
    JOIN latest_upload lu ON t.upload_id = lu.upload_id
    WHERE t.tenant_id = @tenant_id
      AND t.period_offset BETWEEN 1 AND 12
    GROUP BY t.account_code
)
SELECT t.account_code,
       t.account_name,
       SUM(t.amount) AS current_amount,
       h.avg_amount,
       (SUM(t.amount) - h.avg_amount) / NULLIF(ABS(h.avg_amount), 0) * 100 AS variance_pct,
       CASE
           WHEN ABS((SUM(t.amount) - h.avg_amount) / NULLIF(ABS(h.avg_amount), 0)) > 0.50 THEN 'HIGH'
           WHEN ABS((SUM(t.amount) - h.avg_amount) / NULLIF(ABS(h.avg_amount), 0)) > 0.25 THEN 'MEDIUM'
           WHEN ABS((SUM(t.amount) - h.avg_amount) / NULLIF(ABS(h.avg_amount), 0)) > 0.10 THEN 'LOW'
           ELSE 'NONE'
       END AS deviation_band
FROM gl_transactions t
JOIN latest_upload lu ON t.upload_id = lu.upload_id
JOIN period_history h ON h.account_code = t.account_code
WHERE t.tenant_id = @tenant_id
  AND t.period_offset = 0
  AND ABS(t.amount) >= 1000
GROUP BY t.account_code, t.account_name, h.avg_amount
ORDER BY ABS((SUM(t.amount) - h.avg_amount) / NULLIF(ABS(h.avg_amount), 0)) DESC`,
		},
		{
			ID:        "duplicate_payment_detection",
			Name:      "Duplicate Payment Detection",
			FocusArea: models.FocusDuplicate,
			Example:   "Find duplicate payments with the same payee amount and date that could indicate overpayment",
			Parameters: []string{
				"tenant_id", "entity_name",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
      AND LOWER(client_name) = LOWER(@entity_name)
    ORDER BY upload_date DESC
)
SELECT p.payee_name,
       p.amount,
       p.payment_date,
       COUNT(*) AS occurrence_count,
       (COUNT(*) - 1) * p.amount AS potential_overpayment
FROM payments p
JOIN latest_upload lu ON p.upload_id = lu.upload_id
WHERE p.tenant_id = @tenant_id
  AND ABS(p.amount) >= 100
GROUP BY p.payee_name, p.amount, p.payment_date
HAVING COUNT(*) > 1
ORDER BY (COUNT(*) - 1) * p.amount DESC`,
		},
		{
			ID:        "aged_receivables_review",
			Name:      "Aged Receivables Review",
			FocusArea: models.FocusAged,
			Example:   "Show aged receivables that are overdue past their due date bucketed by days outstanding",
			Parameters: []string{
				"tenant_id", "entity_name",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
      AND LOWER(client_name) = LOWER(@entity_name)
    ORDER BY upload_date DESC
)
SELECT r.customer_name,
       r.invoice_number,
       r.amount,
       DATEDIFF(day, r.due_date, GETDATE()) AS days_overdue,
       CASE
           WHEN DATEDIFF(day, r.due_date, GETDATE()) > 120 THEN '120+'
           WHEN DATEDIFF(day, r.due_date, GETDATE()) > 90 THEN '91-120'
           WHEN DATEDIFF(day, r.due_date, GETDATE()) > 60 THEN '61-90'
           WHEN DATEDIFF(day, r.due_date, GETDATE()) > 30 THEN '31-60'
           ELSE '0-30'
       END AS aging_bucket
FROM receivables r
JOIN latest_upload lu ON r.upload_id = lu.upload_id
WHERE r.tenant_id = @tenant_id
  AND r.amount >= 100
  AND DATEDIFF(day, r.due_date, GETDATE()) > 0
ORDER BY DATEDIFF(day, r.due_date, GETDATE()) DESC, r.amount DESC`,
		},
		{
			ID:        "weekend_journal_entries",
			Name:      "Weekend Journal Entries",
			FocusArea: models.FocusUnusual,
			Example:   "List manual journal entries posted on weekends or outside normal business hours",
			Parameters: []string{
				"tenant_id", "entity_name",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
      AND LOWER(client_name) = LOWER(@entity_name)
    ORDER BY upload_date DESC
)
SELECT j.journal_id,
       j.entry_type,
       j.posted_by,
       j.posting_date,
       j.amount,
       DATENAME(weekday, j.posting_date) AS posting_day
FROM journal_entries j
JOIN latest_upload lu ON j.upload_id = lu.upload_id
WHERE j.tenant_id = @tenant_id
  AND j.entry_type IN ('MANUAL', 'ADJUSTMENT')
  AND DATEPART(weekday, j.posting_date) IN (1, 7)
  AND ABS(j.amount) >= 500
ORDER BY ABS(j.amount) DESC`,
		},
		{
			ID:        "round_amount_transactions",
			Name:      "Round Amount Transactions",
			FocusArea: models.FocusRound,
			Example:   "Flag round amount transactions that are exact multiples of one thousand",
			Parameters: []string{
				"tenant_id", "entity_name",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
      AND LOWER(client_name) = LOWER(@entity_name)
    ORDER BY upload_date DESC
)
SELECT t.transaction_id,
       t.account_code,
       t.description,
       t.transaction_date,
       t.amount
FROM gl_transactions t
JOIN latest_upload lu ON t.upload_id = lu.upload_id
WHERE t.tenant_id = @tenant_id
  AND ABS(t.amount) >= 1000
  AND t.amount % 1000 = 0
ORDER BY ABS(t.amount) DESC`,
		},
		{
			ID:        "period_cutoff_testing",
			Name:      "Period Cutoff Testing",
			FocusArea: models.FocusCutoff,
			Example:   "Review transactions recorded around the period end cutoff date for early or late recognition",
			Parameters: []string{
				"tenant_id", "entity_name",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
      AND LOWER(client_name) = LOWER(@entity_name)
    ORDER BY upload_date DESC
)
SELECT t.transaction_id,
       t.account_code,
       t.transaction_date,
       t.posting_date,
       t.amount,
       CASE
           WHEN t.transaction_date > u.period_end AND t.posting_date <= u.period_end THEN 'EARLY_RECOGNITION'
           WHEN t.transaction_date <= u.period_end AND t.posting_date > u.period_end THEN 'LATE_RECOGNITION'
           ELSE 'PROPER'
       END AS recognition_class
FROM gl_transactions t
JOIN latest_upload lu ON t.upload_id = lu.upload_id
JOIN uploads u ON u.upload_id = lu.upload_id
WHERE t.tenant_id = @tenant_id
  AND t.transaction_date BETWEEN DATEADD(day, -3, u.period_end) AND DATEADD(day, 3, u.period_end)
  AND ABS(t.amount) >= 500
ORDER BY ABS(t.amount) DESC`,
		},
	}
}
