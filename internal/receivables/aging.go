package receivables

import (
	"sort"
	"time"
)

// AccountDetail is a receivable account joined with the invoice number and
// client name it belongs to.
type AccountDetail struct {
	ReceivableAccount
	InvoiceNumber string `json:"invoice_number"`
	ClientName    string `json:"client_name"`
	DaysOverdue   int    `json:"days_overdue"`
}

// ClientAging breaks a client's outstanding balance into aging buckets.
type ClientAging struct {
	ClientID   int64        `json:"client_id"`
	ClientName string       `json:"client_name"`
	Buckets    AgingBuckets `json:"buckets"`
}

// AgingReport summarises all open receivables by days past due.
type AgingReport struct {
	AsOf     time.Time     `json:"as_of"`
	Buckets  AgingBuckets  `json:"buckets"`
	ByClient []ClientAging `json:"by_client"`
}

// DaysPastDue returns how many whole days the due date lies behind asOf.
// Zero or negative means the account is not yet due.
func DaysPastDue(dueDate, asOf time.Time) int {
	due := dueDate.Truncate(24 * time.Hour)
	at := asOf.Truncate(24 * time.Hour)
	return int(at.Sub(due).Hours() / 24)
}

func (b *AgingBuckets) add(days int, amount float64) {
	switch {
	case days <= 0:
		b.Current += amount
	case days <= 30:
		b.Days1To30 += amount
	case days <= 60:
		b.Days31To60 += amount
	case days <= 90:
		b.Days61To90 += amount
	default:
		b.Days90Plus += amount
	}
}

// BuildAgingReport buckets every open account by days past due as of the
// given date, overall and per client.
func BuildAgingReport(accounts []AccountDetail, asOf time.Time) AgingReport {
	report := AgingReport{AsOf: asOf}
	perClient := make(map[int64]*ClientAging)

	for _, acc := range accounts {
		days := DaysPastDue(acc.DueDate, asOf)
		report.Buckets.add(days, acc.OutstandingBalance)

		ca, ok := perClient[acc.ClientID]
		if !ok {
			ca = &ClientAging{ClientID: acc.ClientID, ClientName: acc.ClientName}
			perClient[acc.ClientID] = ca
		}
		ca.Buckets.add(days, acc.OutstandingBalance)
	}

	for _, ca := range perClient {
		report.ByClient = append(report.ByClient, *ca)
	}
	sort.Slice(report.ByClient, func(i, j int) bool {
		return report.ByClient[i].Buckets.Total() > report.ByClient[j].Buckets.Total()
	})
	return report
}
