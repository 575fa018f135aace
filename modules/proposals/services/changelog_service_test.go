package services_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gcir/gms/modules/proposals/domain/aggregates/proposal"
	"github.com/gcir/gms/modules/proposals/services"
)

var (
	weekStart = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	weekEnd   = time.Date(2025, time.March, 16, 23, 59, 59, 0, time.UTC)
)

func TestWeekBounds(t *testing.T) {
	f := newFixture(t)
	start, end := f.changelog.WeekBounds(time.Date(2025, time.March, 10, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, weekStart, start)
	assert.Equal(t, weekEnd, end)

	ist := time.FixedZone("IST", 5*3600+1800)
	svc := services.NewChangeLogService(f.repos.ChangeLog, services.ReportSettings{Location: ist})
	start, end = svc.WeekBounds(time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, ist), start)
	assert.Equal(t, time.Date(2025, time.March, 16, 23, 59, 59, 0, ist), end)

	for _, day := range []time.Time{
		time.Date(2025, time.March, 13, 9, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 16, 23, 59, 59, 0, time.UTC),
	} {
		start, end = f.changelog.WeekBounds(day)
		assert.Equal(t, weekStart, start, day.Weekday().String())
		assert.Equal(t, weekEnd, end, day.Weekday().String())
	}
	start, _ = f.changelog.WeekBounds(time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, weekStart.AddDate(0, 0, 7), start)
}

func TestWeeklyChangeLog_ClosedIntervalAtSecondGranularity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Set(weekStart.Add(-time.Second))
	before := f.create(t, "CS", "IND").Code().String()

	f.clock.Set(weekStart)
	first := f.create(t, "EE", "COL").Code().String()

	f.clock.Set(weekEnd.Add(500 * time.Millisecond))
	f.transition(t, first, proposal.StatusPermissionPrepared)

	f.clock.Set(weekEnd.Add(time.Second))
	f.transition(t, before, proposal.StatusPermissionPrepared)

	entries, err := f.changelog.WeeklyChangeLog(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.Equal(t, first, e.ProposalCode)
		assert.False(t, e.Timestamp.Before(weekStart))
		assert.True(t, e.Timestamp.Before(weekEnd.Add(time.Second)))
		if i > 0 {
			prev := entries[i-1]
			assert.True(t, prev.Timestamp.Before(e.Timestamp) ||
				(prev.Timestamp.Equal(e.Timestamp) && prev.ID < e.ID))
		}
	}
	last := entries[len(entries)-1]
	assert.Equal(t, "status", last.FieldName)
	assert.Equal(t, "PermissionPrepared", *last.NewValue)
}

func TestWeeklyChangeLog_InvalidRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.changelog.WeeklyChangeLog(context.Background(), weekEnd, weekStart)
	requireServiceError(t, err, services.CodeInvalidField)
}

func approvedWeek(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.clock.Set(weekStart.Add(2 * time.Hour))
	code := f.create(t, "CS", "IND").Code().String()
	f.transition(t, code, proposal.StatusPermissionPrepared, proposal.StatusSubmitted)
	_, err := f.proposals.TransitionStatus(context.Background(), code, proposal.StatusApproved, proposal.TransitionFields{
		SanctionLetterNumber: "SL-1",
		FinalSanctionedCost:  decimal.NewNullDecimal(decimal.RequireFromString("1500.25")),
	}, "")
	require.NoError(t, err)
	return f
}

func TestWeeklyReport_Text(t *testing.T) {
	f := approvedWeek(t)
	f.clock.Set(weekEnd.Add(time.Hour))

	report, err := f.changelog.WeeklyReport(context.Background(), weekStart.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "gcir_changelog_20250310_20250316.txt", report.Filename("txt"))

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "GCIR-GMS Weekly Changelog Report\n"+strings.Repeat("=", 50)+"\n"))
	assert.Contains(t, out, "Period: 2025-03-10 00:00 to 2025-03-16 23:59")
	assert.Contains(t, out, "Generated on: 2025-03-17 00:59:59")
	assert.Contains(t, out, "GCIR Code: G-2025-CS-IND-001")
	assert.Contains(t, out, "] CREATED")
	assert.Contains(t, out, "] MODIFIED")
	assert.Contains(t, out, "Changed by: alice")
	assert.Contains(t, out, "Changed by: System")
	assert.Contains(t, out, "₹")
	assert.Contains(t, out, "Total changes found: ")
}

func TestWeeklyReport_TextEmpty(t *testing.T) {
	f := newFixture(t)
	report, err := f.changelog.WeeklyReport(context.Background(), weekStart)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))
	assert.Contains(t, buf.String(), "No changes found in the past week.")
}

func TestWeeklyReport_XLSX(t *testing.T) {
	f := approvedWeek(t)
	report, err := f.changelog.WeeklyReport(context.Background(), weekStart)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = book.Close() }()
	rows, err := book.GetRows("Changelog")
	require.NoError(t, err)
	require.Len(t, rows, len(report.Entries)+1)
	assert.Equal(t, "GCIR Code", rows[0][1])
	assert.Equal(t, "G-2025-CS-IND-001", rows[1][1])
	assert.Equal(t, "CREATED", rows[1][2])
}

func TestWeeklyReport_DisplayValue(t *testing.T) {
	f := newFixture(t)
	report, err := f.changelog.WeeklyReport(context.Background(), weekStart)
	require.NoError(t, err)

	v := "1500.25"
	assert.Equal(t, "-", report.DisplayValue("title", nil))
	assert.Equal(t, "1500.25", report.DisplayValue("title", &v))
	assert.Contains(t, report.DisplayValue("final_sanctioned_cost", &v), "1,500.25")

	cases := map[string]string{
		"INR": "\u20b91,500.25",
		"USD": "$1,500.25",
		"JPY": "\u00a51,500",
		"KWD": "1,500.250 .\u062f.\u0643",
		"XXX": "1500.25",
	}
	for currency, want := range cases {
		svc := services.NewChangeLogService(f.repos.ChangeLog, services.ReportSettings{Location: time.UTC, Currency: currency})
		report, err := svc.WeeklyReport(context.Background(), weekStart)
		require.NoError(t, err)
		assert.Equal(t, want, report.DisplayValue("final_sanctioned_cost", &v), currency)
	}
}
