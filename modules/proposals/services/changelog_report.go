package services

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/gcir/gms/modules/proposals/domain/entities/changelog"
	"github.com/gcir/gms/pkg/constants"
)

const (
	reportTitle     = "GCIR-GMS Weekly Changelog Report"
	reportSheet     = "Changelog"
	reportRule      = 50
	reportDayLayout = "20060102"
	costField       = "final_sanctioned_cost"
)

var reportHeader = []interface{}{
	"Timestamp", "GCIR Code", "Change", "Field", "Old value", "New value", "Changed by",
}

type WeeklyReport struct {
	Start       time.Time
	End         time.Time
	GeneratedAt time.Time
	Entries     []*changelog.Entry

	settings ReportSettings
}

// Filename is the download name, e.g. gcir_changelog_20250106_20250112.txt.
func (r *WeeklyReport) Filename(ext string) string {
	return fmt.Sprintf("gcir_changelog_%s_%s.%s",
		r.Start.Format(reportDayLayout), r.End.Format(reportDayLayout), strings.TrimPrefix(ext, "."))
}

func (r *WeeklyReport) local(t time.Time) time.Time {
	if r.settings.Location == nil {
		return t.UTC()
	}
	return t.In(r.settings.Location)
}

// changedBy renders the actor; system changes show as "System".
func changedBy(actor string) string {
	if actor == "" || actor == constants.SystemActor {
		return "System"
	}
	return actor
}

// DisplayValue renders a stored field value for people. Amounts are shown
// in the report currency.
func (r *WeeklyReport) DisplayValue(field string, v *string) string {
	if v == nil {
		return "-"
	}
	if field != costField {
		return *v
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return *v
	}
	return FormatAmount(d, r.settings.Currency)
}

// FormatAmount renders d with the symbol, thousands grouping and minor
// digits of currency. Unknown currencies fall back to the plain decimal.
func FormatAmount(d decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return d.StringFixed(2)
	}
	minor := int32(c.Fraction)
	return money.New(d.Round(minor).Shift(minor).IntPart(), c.Code).Display()
}

// groups orders proposals by their first change in the window.
func (r *WeeklyReport) groups() ([]string, map[string][]*changelog.Entry) {
	var order []string
	byCode := map[string][]*changelog.Entry{}
	for _, e := range r.Entries {
		if _, ok := byCode[e.ProposalCode]; !ok {
			order = append(order, e.ProposalCode)
		}
		byCode[e.ProposalCode] = append(byCode[e.ProposalCode], e)
	}
	return order, byCode
}

func (r *WeeklyReport) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	line(reportTitle)
	line(strings.Repeat("=", reportRule))
	line("Period: %s to %s", r.local(r.Start).Format("2006-01-02 15:04"), r.local(r.End).Format("2006-01-02 15:04"))
	line("Generated on: %s", r.local(r.GeneratedAt).Format("2006-01-02 15:04:05"))
	line("")

	if len(r.Entries) == 0 {
		line("No changes found in the past week.")
		return bw.Flush()
	}

	order, byCode := r.groups()
	line("Total changes found: %d", len(r.Entries))
	line("Proposals changed: %d", len(order))
	line("")
	for _, code := range order {
		line("GCIR Code: %s", code)
		line(strings.Repeat("-", reportRule))
		for _, e := range byCode[code] {
			line("[%s] %s", r.local(e.Timestamp).Format("2006-01-02 15:04:05"), e.Label())
			line("  Field: %s", e.FieldName)
			if e.ChangeType == changelog.ChangeModified {
				line("  Old: %s", r.DisplayValue(e.FieldName, e.OldValue))
			}
			line("  New: %s", r.DisplayValue(e.FieldName, e.NewValue))
			line("  Changed by: %s", changedBy(e.Actor))
		}
		line("")
	}
	return bw.Flush()
}

// WriteXLSX renders the report as a single-sheet workbook, one row per entry.
func (r *WeeklyReport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	last, err := excelize.CoordinatesToCellName(len(reportHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A1", last, bold); err != nil {
		return errors.Wrap(err, "apply header style")
	}

	for i, e := range r.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.local(e.Timestamp).Format("2006-01-02 15:04:05"),
			e.ProposalCode,
			e.Label(),
			e.FieldName,
			r.DisplayValue(e.FieldName, e.OldValue),
			r.DisplayValue(e.FieldName, e.NewValue),
			changedBy(e.Actor),
		}
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}
	if err := f.SetColWidth(reportSheet, "A", "G", 22); err != nil {
		return errors.Wrap(err, "set column width")
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
