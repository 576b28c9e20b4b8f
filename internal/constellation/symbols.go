package constellation

import (
	"fmt"
	"strings"
)

// TextSymbols returns one 8-bit symbol per byte of text
func TextSymbols(text string) []string {
	out := make([]string, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = fmt.Sprintf("%08b", text[i])
	}
	return out
}

// Symbols re-chunks data into symbols of bitsPerSymbol bits, most significant
// bit first. The last symbol is padded with zero bits.
func Symbols(data []byte, bitsPerSymbol int) ([]string, error) {
	if bitsPerSymbol < 1 || bitsPerSymbol > MaxBits {
		return nil, fmt.Errorf("%w: bits per symbol must be in [1, %d]: %d given", ErrInvalidBits, MaxBits, bitsPerSymbol)
	}

	var stream strings.Builder
	stream.Grow(len(data) * 8)
	for _, b := range data {
		fmt.Fprintf(&stream, "%08b", b)
	}

	bits := stream.String()
	if rem := len(bits) % bitsPerSymbol; rem != 0 {
		bits += strings.Repeat("0", bitsPerSymbol-rem)
	}

	out := make([]string, 0, len(bits)/bitsPerSymbol)
	for i := 0; i < len(bits); i += bitsPerSymbol {
		out = append(out, bits[i:i+bitsPerSymbol])
	}
	return out, nil
}
