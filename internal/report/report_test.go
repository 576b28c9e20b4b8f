package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/link-budget/internal/budget"
	"github.com/roman-kulish/link-budget/internal/constellation"
	"github.com/roman-kulish/link-budget/internal/modulation"
	"github.com/roman-kulish/link-budget/internal/snr"
	"github.com/roman-kulish/link-budget/internal/storage"
)

func computeEntries(t *testing.T) budget.Entries {
	t.Helper()

	entries, err := budget.New().Compute(100e6, []int{1, 2, 8}, snr.SimplifiedLog, budget.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to compute link budget: %v", err)
	}
	return entries
}

func TestFormatSI(t *testing.T) {
	tests := []struct {
		v        float64
		unit     string
		expected string
	}{
		{100e6 / 3, "Bd", "33.33 MBd"},
		{100e6, "bps", "100 Mbps"},
		{2.5e3, "Hz", "2.5 kHz"},
	}

	for _, tt := range tests {
		if got := FormatSI(tt.v, tt.unit); got != tt.expected {
			t.Errorf("FormatSI(%g, %s): expected %q, got %q", tt.v, tt.unit, tt.expected, got)
		}
	}
}

func TestTableWriter_WriteBudget(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTableWriter(&buf, WithColor(false), WithCaption("SimplifiedLog at 100 Mbps"))

	if err := tw.WriteBudget(computeEntries(t)); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Order (M)",
		"3.01 dB",
		"9.03 dB",
		"33.33 MBd",
		"100 Mbps",
		"invalid modulation order",
		"SimplifiedLog at 100 Mbps",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Expected no ANSI escapes with colour disabled")
	}
}

func TestTableWriter_WriteMappings(t *testing.T) {
	var buf bytes.Buffer
	mappings := constellation.MapAll([]string{"0000", "101"}, modulation.QAM)

	if err := NewTableWriter(&buf, WithColor(false)).WriteMappings(mappings); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"0000", "-1.5000", "101", "even number of bits"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, computeEntries(t)); err != nil {
		t.Fatalf("Failed to write JSON: %v", err)
	}

	var doc struct {
		Fields []struct {
			Name string `json:"name"`
			Unit string `json:"unit"`
		} `json:"fields"`
		Entries []struct {
			Order  int            `json:"order"`
			Result *budget.Result `json:"result"`
			Error  string         `json:"error"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if len(doc.Fields) != len(budget.Fields()) {
		t.Errorf("Expected %d fields, got %d", len(budget.Fields()), len(doc.Fields))
	}
	if len(doc.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[0].Error == "" || doc.Entries[0].Result != nil {
		t.Errorf("Expected order 1 to carry an error only, got %+v", doc.Entries[0])
	}
	if r := doc.Entries[2].Result; r == nil || r.Order != 8 || r.BitsPerSymbol != 3 {
		t.Errorf("Expected result for order 8, got %+v", r)
	}
}

func TestTableWriter_WriteRuns(t *testing.T) {
	params := `{"operatingSnrDb":20}`
	runs := []*storage.Run{
		{ID: 1, CreatedAt: time.Now(), Formula: "shannon", DataRateBps: 100e6, Config: &params},
		{ID: 2, CreatedAt: time.Now(), Formula: "psk-ser", DataRateBps: 1e6},
	}

	var buf bytes.Buffer
	if err := NewTableWriter(&buf, WithColor(false)).WriteRuns(runs); err != nil {
		t.Fatalf("WriteRuns failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"shannon", "psk-ser", "100 Mbps", "1 Mbps", params} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}
