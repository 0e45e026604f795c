package receivables

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteOverdueCSV renders the overdue listing as CSV, amounts formatted with
// thousands separators.
func WriteOverdueCSV(w io.Writer, accounts []AccountDetail, currency string) error {
	cw := csv.NewWriter(w)
	printer := message.NewPrinter(language.English)

	header := []string{"invoice_number", "client_name", "due_date", "days_overdue", "total_amount", "outstanding_balance", "currency"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, acc := range accounts {
		record := []string{
			acc.InvoiceNumber,
			acc.ClientName,
			acc.DueDate.Format("2006-01-02"),
			fmt.Sprintf("%d", acc.DaysOverdue),
			printer.Sprintf("%.2f", acc.TotalAmount),
			printer.Sprintf("%.2f", acc.OutstandingBalance),
			currency,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAgingCSV renders the per-client aging breakdown as CSV.
func WriteAgingCSV(w io.Writer, report AgingReport, currency string) error {
	cw := csv.NewWriter(w)
	printer := message.NewPrinter(language.English)

	if err := cw.Write([]string{"as_of", report.AsOf.Format(time.RFC3339), "currency", currency}); err != nil {
		return fmt.Errorf("write csv preamble: %w", err)
	}
	header := []string{"client_name", "current", "days_1_30", "days_31_60", "days_61_90", "days_90_plus", "total"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, ca := range report.ByClient {
		record := []string{
			ca.ClientName,
			printer.Sprintf("%.2f", ca.Buckets.Current),
			printer.Sprintf("%.2f", ca.Buckets.Days1To30),
			printer.Sprintf("%.2f", ca.Buckets.Days31To60),
			printer.Sprintf("%.2f", ca.Buckets.Days61To90),
			printer.Sprintf("%.2f", ca.Buckets.Days90Plus),
			printer.Sprintf("%.2f", ca.Buckets.Total()),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
