package catalog

import (
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

func lendingTemplates() []Template {
	return []Template{
		{
			ID:        "aged_loan_arrears",
			Name:      "Aged Loan Arrears",
			FocusArea: models.FocusAged,
			Example:   "Show loans in arrears that are overdue bucketed by days past their payment date",
			Parameters: []string{
				"tenant_id",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
    ORDER BY upload_date DESC
)
SELECT l.borrower_name,
       l.loan_reference,
       l.outstanding_balance,
       DATEDIFF(day, l.next_payment_date, GETDATE()) AS days_overdue,
       CASE
           WHEN DATEDIFF(day, l.next_payment_date, GETDATE()) > 120 THEN '120+'
           WHEN DATEDIFF(day, l.next_payment_date, GETDATE()) > 90 THEN '91-120'
           WHEN DATEDIFF(day, l.next_payment_date, GETDATE()) > 60 THEN '61-90'
           WHEN DATEDIFF(day, l.next_payment_date, GETDATE()) > 30 THEN '31-60'
           ELSE '0-30'
       END AS arrears_bucket
FROM loans l
JOIN latest_upload lu ON l.upload_id = lu.upload_id
WHERE l.tenant_id = @tenant_id
  AND l.outstanding_balance >= 100
  AND DATEDIFF(day, l.next_payment_date, GETDATE()) > 0
ORDER BY DATEDIFF(day, l.next_payment_date, GETDATE()) DESC, l.outstanding_balance DESC`,
		},
		{
			ID:        "portfolio_concentration",
			Name:      "Portfolio Concentration",
			FocusArea: models.FocusLarge,
			Example:   "Identify large borrower exposures that represent a significant share of the total portfolio balance",
			Parameters: []string{
				"tenant_id",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
    ORDER BY upload_date DESC
),
portfolio_total AS (
    SELECT SUM(outstanding_balance) AS total_balance
    FROM loans l
    JOIN latest_upload lu ON l.upload_id = lu.upload_id
    WHERE l.tenant_id = @tenant_id
)
SELECT l.borrower_name,
       SUM(l.outstanding_balance) AS borrower_balance,
       SUM(l.outstanding_balance) / NULLIF(pt.total_balance, 0) * 100 AS portfolio_share_pct
FROM loans l
JOIN latest_upload lu ON l.upload_id = lu.upload_id
CROSS JOIN portfolio_total pt
WHERE l.tenant_id = @tenant_id
  AND l.outstanding_balance >= 1000
GROUP BY l.borrower_name, pt.total_balance
HAVING SUM(l.outstanding_balance) / NULLIF(pt.total_balance, 0) > 0.05
ORDER BY SUM(l.outstanding_balance) DESC`,
		},
		{
			ID:        "duplicate_borrower_payments",
			Name:      "Duplicate Borrower Payments",
			FocusArea: models.FocusDuplicate,
			Example:   "Find duplicate borrower repayments sharing the same payer amount and date",
			Parameters: []string{
				"tenant_id",
			},
			SQL: `WITH latest_upload AS (
    SELECT TOP 1 upload_id
    FROM uploads
    WHERE tenant_id = @tenant_id
    ORDER BY upload_date DESC
)
SELECT p.payer_name,
       p.amount,
       p.payment_date,
       COUNT(*) AS occurrence_count,
       (COUNT(*) - 1) * p.amount AS potential_overpayment
FROM loan_payments p
JOIN latest_upload lu ON p.upload_id = lu.upload_id
WHERE p.tenant_id = @tenant_id
  AND ABS(p.amount) >= 100
GROUP BY p.payer_name, p.amount, p.payment_date
HAVING COUNT(*) > 1
ORDER BY (COUNT(*) - 1) * p.amount DESC`,
		},
	}
}
