package receivables

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteOverdueCSV(t *testing.T) {
	due := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	accounts := []AccountDetail{
		{
			ReceivableAccount: ReceivableAccount{TotalAmount: 1250000, OutstandingBalance: 450000.50, DueDate: due},
			InvoiceNumber:     "F000042",
			ClientName:        "Acme Ltda",
			DaysOverdue:       47,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOverdueCSV(&buf, accounts, "COP"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "invoice_number")
	require.Contains(t, lines[1], "F000042")
	require.Contains(t, lines[1], "Acme Ltda")
	require.Contains(t, lines[1], "2026-07-15")
	require.Contains(t, lines[1], "47")
	require.Contains(t, lines[1], "COP")
}

func TestWriteAgingCSV(t *testing.T) {
	report := AgingReport{
		AsOf: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		ByClient: []ClientAging{
			{ClientID: 1, ClientName: "Acme Ltda", Buckets: AgingBuckets{Current: 100, Days1To30: 50}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAgingCSV(&buf, report, "COP"))

	out := buf.String()
	require.Contains(t, out, "as_of")
	require.Contains(t, out, "Acme Ltda")
	require.Contains(t, out, "days_90_plus")
}
