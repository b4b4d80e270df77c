// Package report exports extraction results to an XLSX workbook with a Notes
// sheet for bound notes and a Diagnostics sheet for everything that failed.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/notewise/internal/extract"
	"github.com/jackzampolin/notewise/internal/notes"
)

// Sheet names.
const (
	NotesSheet       = "Notes"
	DiagnosticsSheet = "Diagnostics"
)

// percentFormat is the built-in "0.00%" number format.
const percentFormat = 10

// Entry is the outcome of extracting one source. Err is set when the whole
// call failed; otherwise Result holds the per-record outcomes.
type Entry struct {
	Source string
	Result *extract.Result
	Err    error
}

// Build creates the workbook in memory.
func Build(entries []Entry) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", NotesSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(DiagnosticsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: percentFormat})
	if err != nil {
		return nil, fmt.Errorf("creating percent style: %w", err)
	}

	// Coupon, Barrier and Autocall columns hold fractions.
	for _, col := range []string{"E", "G", "I"} {
		if err := f.SetColStyle(NotesSheet, col, percent); err != nil {
			return nil, fmt.Errorf("styling column %s: %w", col, err)
		}
	}
	if err := writeRows(f, NotesSheet, buildNotes(entries), header); err != nil {
		return nil, err
	}
	if err := writeRows(f, DiagnosticsSheet, buildDiagnostics(entries), header); err != nil {
		return nil, err
	}

	return f, nil
}

// Write builds the workbook and saves it to path.
func Write(path string, entries []Entry) (err error) {
	f, err := Build(entries)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return nil
}

// buildNotes builds the Notes sheet data.
// Columns: Source | N | Issuer | Underlyings | Coupon | Frequency | Barrier |
// Barrier Type | Autocall | Memory | Strike | Maturity | Currency | Risk
func buildNotes(entries []Entry) [][]any {
	data := [][]any{{
		"Source", "N", "Issuer", "Underlyings", "Coupon", "Frequency", "Barrier",
		"Barrier Type", "Autocall", "Memory", "Strike", "Maturity", "Currency", "Risk",
	}}

	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		for _, o := range e.Result.Outcomes {
			if o.Note == nil {
				continue
			}
			n := o.Note
			data = append(data, []any{
				e.Source,
				o.Index + 1,
				n.IssuerBank,
				strings.Join(n.Tickers(), ", "),
				n.CouponRateAnnual,
				n.CouponFrequency,
				n.BarrierLevel,
				n.BarrierType,
				optionalFloat(n.AutocallLevel),
				n.MemoryFeature,
				optionalDate(n.StrikeDate),
				optionalDate(n.MaturityDate),
				string(n.Currency),
				n.RiskScore(),
			})
		}
	}
	return data
}

// buildDiagnostics builds the Diagnostics sheet data: one row per issue of
// each rejected record, and one row per failed call.
// Columns: Source | N | Field | Reason | Raw
func buildDiagnostics(entries []Entry) [][]any {
	data := [][]any{{"Source", "N", "Field", "Reason", "Raw"}}

	for _, e := range entries {
		if e.Err != nil {
			data = append(data, []any{e.Source, "", "call", e.Err.Error(), ""})
			continue
		}
		if e.Result == nil {
			continue
		}
		failed := lo.Filter(e.Result.Outcomes, func(o extract.Outcome, _ int) bool { return o.Err != nil })
		for _, o := range failed {
			raw := rawJSON(o.Err)
			for _, issue := range o.Err.Issues {
				data = append(data, []any{e.Source, o.Index + 1, issue.Field, issue.Reason, raw})
			}
		}
	}
	return data
}

func optionalFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalDate(d *notes.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func rawJSON(verr *notes.ValidationError) string {
	if verr.Raw == nil {
		return ""
	}
	b, err := json.Marshal(verr.Raw)
	if err != nil {
		return fmt.Sprintf("%v", verr.Raw)
	}
	return string(b)
}
