package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	run := sampleRun("01HQ3K9ZABCDEFGHJKMNPQRSTV", started)
	orders := []OrderRecord{{
		OrderID: "01HQ3KA0ABCDEFGHJKMNPQRSTV", RunID: run.RunID, Side: "BUY",
		Amount: "1000", Price: 1.085, Status: StatusFilled,
	}}

	result := FormatRunOrg(run, orders)

	assert.Contains(t, result, "** Run: EUR_USD ORDER_PLACED (01HQ3K9Z)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":RUN_ID: 01HQ3K9ZABCDEFGHJKMNPQRSTV")
	assert.Contains(t, result, ":STRATEGY: SMA(5)/SMA(20)")
	assert.Contains(t, result, ":STARTED: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":FINISHED: 2024-03-15T10:30:48Z")
	assert.Contains(t, result, ":SIGNAL: BUY")
	assert.Contains(t, result, ":SHORT_AVG: 1.10512")
	assert.Contains(t, result, ":BARS: 390")
	assert.Contains(t, result, ":END:")
	assert.NotContains(t, result, ":ERROR:")

	assert.Contains(t, result, "*** Orders")
	assert.Contains(t, result, "| 01HQ3KA0 | BUY | 1000 | 1.08500 | FILLED |  |")
}

func TestFormatRunOrgError(t *testing.T) {
	t.Parallel()

	run := RunRecord{RunID: "short", Instrument: "GBP_USD", State: "LOGIN", Outcome: "ABORTED", Error: "authentication failed"}
	result := FormatRunOrg(run, nil)

	assert.Contains(t, result, "** Run: GBP_USD ABORTED (short)")
	assert.Contains(t, result, ":ERROR: authentication failed")
	assert.NotContains(t, result, "*** Orders")
}

func TestFormatRunsOrg(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	runs := []RunRecord{sampleRun("run-001", started), sampleRun("run-002", started.Add(time.Hour))}
	orders := map[string][]OrderRecord{
		"run-002": {{OrderID: "order-1", RunID: "run-002", Side: "SELL", Amount: "5", Status: StatusFilled}},
	}

	result := FormatRunsOrg(runs, orders)

	assert.Contains(t, result, "run-001")
	assert.Contains(t, result, "run-002")
	assert.Equal(t, 1, strings.Count(result, "*** Orders"))

	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "runs are separated by blank lines")

	assert.Empty(t, FormatRunsOrg(nil, nil))
}
