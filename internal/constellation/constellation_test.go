package constellation

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/roman-kulish/link-budget/internal/modulation"
)

const tolerance = 1e-9

func TestMap(t *testing.T) {
	tests := []struct {
		name     string
		bits     string
		family   modulation.Family
		expected Point
	}{
		{"QAM 0000 is the lower left corner", "0000", modulation.QAM, Point{-1.5, -1.5}},
		{"QAM 1111 is the upper right corner", "1111", modulation.QAM, Point{1.5, 1.5}},
		{"QAM 0110", "0110", modulation.QAM, Point{-0.5, 0.5}},
		{"QAM 2 bits", "10", modulation.QAM, Point{0.5, -0.5}},
		{"PSK value 0", "00", modulation.PSK, Point{1, 0}},
		{"PSK value 1", "01", modulation.PSK, Point{0, 1}},
		{"PSK value 2", "10", modulation.PSK, Point{-1, 0}},
		{"PSK value 3", "11", modulation.PSK, Point{0, -1}},
		{"ASK lowest", "000", modulation.ASK, Point{-1, 0}},
		{"ASK highest", "111", modulation.ASK, Point{1, 0}},
		{"ASK single bit high", "1", modulation.ASK, Point{1, 0}},
		{"FSK raw value", "01100001", modulation.FSK, Point{97, 0}},
		{"CSS grid", "01100001", modulation.CSS, Point{2, 19}},
		{"CSS origin", "0000", modulation.CSS, Point{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Map(tt.bits, tt.family)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got.X-tt.expected.X) > tolerance || math.Abs(got.Y-tt.expected.Y) > tolerance {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		bits    string
		family  modulation.Family
		wantErr error
	}{
		{"odd length QAM", "011", modulation.QAM, ErrOddLengthForQAM},
		{"unknown family", "0101", modulation.Family("OFDM"), ErrUnsupportedFamily},
		{"empty", "", modulation.PSK, ErrInvalidBits},
		{"non-binary digit", "0120", modulation.PSK, ErrInvalidBits},
		{"too long", "1000000000000000000000000000000000000000000000000000000000000000", modulation.FSK, ErrInvalidBits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Map(tt.bits, tt.family); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMap_PSKOnUnitCircle(t *testing.T) {
	for _, bits := range TextSymbols("antenna") {
		p, err := Map(bits, modulation.PSK)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if r := math.Hypot(p.X, p.Y); math.Abs(r-1) > tolerance {
			t.Errorf("%s: expected unit radius, got %g", bits, r)
		}
	}
}

func TestMapAll(t *testing.T) {
	symbols := []string{"00", "011", "11", "10"}
	got := MapAll(symbols, modulation.QAM)

	if len(got) != len(symbols) {
		t.Fatalf("Expected %d mappings, got %d", len(symbols), len(got))
	}
	for i, m := range got {
		if m.Bits != symbols[i] {
			t.Errorf("Slot %d: expected %s, got %s", i, symbols[i], m.Bits)
		}
	}
	if !errors.Is(got[1].Err, ErrOddLengthForQAM) {
		t.Errorf("Expected ErrOddLengthForQAM in slot 1, got %v", got[1].Err)
	}
	for _, i := range []int{0, 2, 3} {
		if got[i].Err != nil {
			t.Errorf("Slot %d: unexpected error: %v", i, got[i].Err)
		}
	}
	if got[2].Point != (Point{0.5, 0.5}) {
		t.Errorf("Expected (0.5, 0.5) for 11, got %v", got[2].Point)
	}
}

func TestTextSymbols(t *testing.T) {
	got := TextSymbols("an")
	expected := []string{"01100001", "01101110"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSymbols(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		bits     int
		expected []string
	}{
		{"nibbles", []byte{0xA5}, 4, []string{"1010", "0101"}},
		{"pairs", []byte{0x1B}, 2, []string{"00", "01", "10", "11"}},
		{"padding", []byte{0xFF}, 3, []string{"111", "111", "110"}},
		{"bytes", []byte("a"), 8, []string{"01100001"}},
		{"empty", nil, 4, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Symbols(tt.data, tt.bits)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	if _, err := Symbols([]byte{1}, 0); !errors.Is(err, ErrInvalidBits) {
		t.Errorf("Expected ErrInvalidBits for zero bits per symbol, got %v", err)
	}
}
