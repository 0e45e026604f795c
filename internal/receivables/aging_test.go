package receivables

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func detail(clientID int64, name string, balance float64, due time.Time) AccountDetail {
	return AccountDetail{
		ReceivableAccount: ReceivableAccount{
			ClientID:           clientID,
			OutstandingBalance: balance,
			DueDate:            due,
		},
		ClientName: name,
	}
}

func TestDaysPastDue(t *testing.T) {
	asOf := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

	require.Equal(t, 0, DaysPastDue(asOf, asOf))
	require.Equal(t, 1, DaysPastDue(asOf.AddDate(0, 0, -1), asOf))
	require.Equal(t, -5, DaysPastDue(asOf.AddDate(0, 0, 5), asOf))
}

func TestBuildAgingReportBuckets(t *testing.T) {
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	accounts := []AccountDetail{
		detail(1, "Acme", 100, asOf.AddDate(0, 0, 10)),      // not yet due
		detail(1, "Acme", 200, asOf.AddDate(0, 0, -15)),     // 1-30
		detail(2, "Bravo", 300, asOf.AddDate(0, 0, -45)),    // 31-60
		detail(2, "Bravo", 400, asOf.AddDate(0, 0, -75)),    // 61-90
		detail(3, "Charlie", 500, asOf.AddDate(0, 0, -120)), // 90+
	}

	report := BuildAgingReport(accounts, asOf)

	require.Equal(t, 100.0, report.Buckets.Current)
	require.Equal(t, 200.0, report.Buckets.Days1To30)
	require.Equal(t, 300.0, report.Buckets.Days31To60)
	require.Equal(t, 400.0, report.Buckets.Days61To90)
	require.Equal(t, 500.0, report.Buckets.Days90Plus)
	require.Equal(t, 1500.0, report.Buckets.Total())

	require.Len(t, report.ByClient, 3)
	// Sorted by total outstanding, largest first.
	require.Equal(t, "Bravo", report.ByClient[0].ClientName)
	require.Equal(t, 700.0, report.ByClient[0].Buckets.Total())
	require.Equal(t, "Charlie", report.ByClient[1].ClientName)
	require.Equal(t, "Acme", report.ByClient[2].ClientName)
}

func TestBuildAgingReportBoundaries(t *testing.T) {
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	accounts := []AccountDetail{
		detail(1, "A", 10, asOf.AddDate(0, 0, -30)),
		detail(1, "A", 20, asOf.AddDate(0, 0, -31)),
		detail(1, "A", 30, asOf.AddDate(0, 0, -60)),
		detail(1, "A", 40, asOf.AddDate(0, 0, -61)),
		detail(1, "A", 50, asOf.AddDate(0, 0, -90)),
		detail(1, "A", 60, asOf.AddDate(0, 0, -91)),
	}

	report := BuildAgingReport(accounts, asOf)
	require.Equal(t, 10.0, report.Buckets.Days1To30)
	require.Equal(t, 50.0, report.Buckets.Days31To60)
	require.Equal(t, 90.0, report.Buckets.Days61To90)
	require.Equal(t, 60.0, report.Buckets.Days90Plus)
}

func TestBuildAgingReportEmpty(t *testing.T) {
	report := BuildAgingReport(nil, time.Now())
	require.Equal(t, 0.0, report.Buckets.Total())
	require.Empty(t, report.ByClient)
}
