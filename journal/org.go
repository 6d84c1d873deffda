package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatRunOrg renders a run and its orders as an Org-mode block. Structured
// facts live in a PROPERTIES drawer so they stay searchable.
func FormatRunOrg(r RunRecord, orders []OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Run: %s %s (%s)\n", r.Instrument, r.Outcome, shortID(r.RunID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", r.RunID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", r.Instrument)
	if r.Strategy != "" {
		fmt.Fprintf(&b, ":STRATEGY: %s\n", r.Strategy)
	}
	fmt.Fprintf(&b, ":STARTED: %s\n", r.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":FINISHED: %s\n", r.Finished.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":STATE: %s\n", r.State)
	fmt.Fprintf(&b, ":OUTCOME: %s\n", r.Outcome)
	fmt.Fprintf(&b, ":SIGNAL: %s\n", r.Signal)
	fmt.Fprintf(&b, ":SHORT_AVG: %.5f\n", r.ShortAvg)
	fmt.Fprintf(&b, ":LONG_AVG: %.5f\n", r.LongAvg)
	fmt.Fprintf(&b, ":BARS: %d\n", r.Bars)
	if r.Error != "" {
		fmt.Fprintf(&b, ":ERROR: %s\n", r.Error)
	}
	b.WriteString(":END:\n")

	if len(orders) > 0 {
		b.WriteString("\n*** Orders\n")
		b.WriteString("| Order | Side | Amount | Price | Status | Error |\n")
		b.WriteString("|-------+------+--------+-------+--------+-------|\n")
		for _, o := range orders {
			fmt.Fprintf(&b, "| %s | %s | %s | %.5f | %s | %s |\n",
				shortID(o.OrderID), o.Side, o.Amount, o.Price, o.Status, o.Error)
		}
	}
	return b.String()
}

// FormatRunsOrg renders runs separated by blank lines. orders maps run IDs
// to their order attempts and may be nil.
func FormatRunsOrg(runs []RunRecord, orders map[string][]OrderRecord) string {
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatRunOrg(r, orders[r.RunID]))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
