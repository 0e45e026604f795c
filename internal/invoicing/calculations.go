package invoicing

import "math"

// roundCents rounds to two decimal places, half away from zero. Applied after
// every arithmetic step so totals accumulate without drift.
func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

// lineSubtotal computes quantity times the snapshot unit price.
func lineSubtotal(quantity int, unitPrice float64) float64 {
	return roundCents(float64(quantity) * unitPrice)
}

// computeTotals recomputes subtotal, tax and total from scratch over all
// lines. The engine always recomputes fully rather than adjusting
// incrementally, so totals stay consistent with the lines no matter the
// sequence of mutations that produced them.
func computeTotals(lines []InvoiceLine, taxRate float64) (subtotal, tax, total float64) {
	for _, ln := range lines {
		subtotal = roundCents(subtotal + ln.LineSubtotal)
	}
	tax = roundCents(subtotal * taxRate)
	total = roundCents(subtotal + tax)
	return subtotal, tax, total
}
