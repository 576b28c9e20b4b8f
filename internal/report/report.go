// Package report renders link budgets and constellation mappings as terminal
// tables and JSON documents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/roman-kulish/link-budget/internal/budget"
	"github.com/roman-kulish/link-budget/internal/constellation"
	"github.com/roman-kulish/link-budget/internal/storage"
)

const notAvailable = "-"

// FormatSI formats v with an SI prefix and unit, e.g. 33.33 MBd
func FormatSI(v float64, unit string) string {
	return humanize.SIWithDigits(v, 2, unit)
}

// FormatDB formats a decibel value
func FormatDB(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " dB"
}

type TableWriter struct {
	w       io.Writer
	color   bool
	caption string
}

// WithColor enables ANSI colours for failed entries. Colours are also
// suppressed when fatih/color detects a non-terminal output.
func WithColor(enabled bool) func(t *TableWriter) {
	return func(t *TableWriter) {
		t.color = enabled
	}
}

func WithCaption(caption string) func(t *TableWriter) {
	return func(t *TableWriter) {
		t.caption = caption
	}
}

func NewTableWriter(w io.Writer, options ...func(*TableWriter)) *TableWriter {
	t := &TableWriter{w: w, color: true}
	for _, option := range options {
		option(t)
	}
	return t
}

func (t *TableWriter) newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(t.w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetRowLine(true)
	if t.caption != "" {
		table.SetCaption(true, t.caption)
	}
	return table
}

func (t *TableWriter) failed(s string) string {
	if !t.color {
		return s
	}
	return color.New(color.FgRed).Sprint(s)
}

func (t *TableWriter) ok(s string) string {
	if !t.color {
		return s
	}
	return color.New(color.FgGreen).Sprint(s)
}

// WriteBudget writes one row per entry. Failed entries keep their row and
// show the failure reason in the status column.
func (t *TableWriter) WriteBudget(entries budget.Entries) error {
	header := []string{"Order (M)", "Bits/Symbol", "Baud Rate", "SNR Required", "Bandwidth", "Effective Throughput", "Status"}
	table := t.newTable(header)

	for _, e := range entries {
		if e.Err != nil {
			table.Append([]string{
				strconv.Itoa(e.Order),
				notAvailable, notAvailable, notAvailable, notAvailable, notAvailable,
				t.failed(e.Err.Error()),
			})
			continue
		}

		r := e.Result
		table.Append([]string{
			strconv.Itoa(r.Order),
			strconv.Itoa(r.BitsPerSymbol),
			FormatSI(r.BaudRate, "Bd"),
			FormatDB(r.SNRRequiredDB),
			FormatSI(r.BandwidthHz, "Hz"),
			FormatSI(r.EffectiveThroughputBps, "bps"),
			t.ok("ok"),
		})
	}

	table.Render()
	return nil
}

// WriteMappings writes one row per symbol in input order
func (t *TableWriter) WriteMappings(mappings []constellation.Mapping) error {
	table := t.newTable([]string{"#", "Bits", "Value", "X", "Y", "Status"})

	for i, m := range mappings {
		value := notAvailable
		if v, err := strconv.ParseUint(m.Bits, 2, 64); err == nil {
			value = strconv.FormatUint(v, 10)
		}

		if m.Err != nil {
			table.Append([]string{strconv.Itoa(i), m.Bits, value, notAvailable, notAvailable, t.failed(m.Err.Error())})
			continue
		}

		table.Append([]string{
			strconv.Itoa(i),
			m.Bits,
			value,
			strconv.FormatFloat(m.Point.X, 'f', 4, 64),
			strconv.FormatFloat(m.Point.Y, 'f', 4, 64),
			t.ok("ok"),
		})
	}

	table.Render()
	return nil
}

// WriteRuns lists archived runs in the order returned by the store
func (t *TableWriter) WriteRuns(runs []*storage.Run) error {
	table := t.newTable([]string{"Run", "Created", "Formula", "Data Rate", "Parameters"})

	for _, r := range runs {
		params := notAvailable
		if r.Config != nil {
			params = *r.Config
		}
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Local().Format(time.DateTime),
			r.Formula,
			FormatSI(r.DataRateBps, "bps"),
			params,
		})
	}

	table.Render()
	return nil
}

type field struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

type jsonEntry struct {
	Order  int            `json:"order"`
	Result *budget.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type jsonBudget struct {
	Fields  []field     `json:"fields"`
	Entries []jsonEntry `json:"entries"`
}

// WriteJSON writes entries with the unit of every result field attached
func WriteJSON(w io.Writer, entries budget.Entries) error {
	doc := jsonBudget{Entries: make([]jsonEntry, len(entries))}
	for _, f := range budget.Fields() {
		doc.Fields = append(doc.Fields, field{Name: f.Name, Unit: f.Unit, Description: f.Description})
	}

	for i, e := range entries {
		doc.Entries[i] = jsonEntry{Order: e.Order, Result: e.Result}
		if e.Err != nil {
			doc.Entries[i].Error = e.Err.Error()
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding link budget: %w", err)
	}
	return nil
}
