package deflate

import "testing"

// krafSum returns the Kraft sum sum(2^-len) over the non-zero lengths: at
// most 1 for any valid prefix code, and exactly 1 for a complete one.
func krafSum(lengths []uint8) float64 {
	sum := 0.0
	for _, l := range lengths {
		if l == 0 {
			continue
		}
		sum += 1.0 / float64(uint64(1)<<uint(l))
	}
	return sum
}

func TestBuildHuffmanCode_SingleSymbol(t *testing.T) {
	hist := make([]uint32, 8)
	hist[3] = 100
	code := BuildHuffmanCode(hist, 15)
	if code.CodeLengths[3] != 1 {
		t.Errorf("single present symbol should get code length 1, got %d", code.CodeLengths[3])
	}
}

func TestBuildHuffmanCode_TwoSymbols(t *testing.T) {
	hist := make([]uint32, 8)
	hist[1] = 10
	hist[5] = 20
	code := BuildHuffmanCode(hist, 15)
	if code.CodeLengths[1] != 1 || code.CodeLengths[5] != 1 {
		t.Errorf("two present symbols should each get code length 1, got %d and %d",
			code.CodeLengths[1], code.CodeLengths[5])
	}
}

func TestBuildHuffmanCode_KraftEquality(t *testing.T) {
	hist := []uint32{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 1, 1, 1, 1, 1, 1}
	code := BuildHuffmanCode(hist, 15)
	sum := krafSum(code.CodeLengths)
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("Kraft sum = %v, want ~1.0 for a complete code", sum)
	}
}

func TestBuildHuffmanCode_RespectsMaxLength(t *testing.T) {
	// A skewed Fibonacci-like histogram that would need long codes under an
	// unbounded Huffman tree.
	hist := make([]uint32, 20)
	a, b := uint32(1), uint32(1)
	for i := range hist {
		hist[i] = a
		a, b = b, a+b
	}
	const maxLen = 7
	code := BuildHuffmanCode(hist, maxLen)
	for sym, l := range code.CodeLengths {
		if int(l) > maxLen {
			t.Errorf("symbol %d: code length %d exceeds max %d", sym, l, maxLen)
		}
	}
}

func TestBuildHuffmanCode_ClampsToSymbolCount(t *testing.T) {
	// Only 3 present symbols: maxLength must clamp to len(present)-1 = 2.
	hist := make([]uint32, 10)
	hist[0], hist[4], hist[9] = 1, 1, 1
	code := BuildHuffmanCode(hist, 15)
	for sym, l := range code.CodeLengths {
		if int(l) > 2 {
			t.Errorf("symbol %d: code length %d, want <= 2 for a 3-symbol alphabet", sym, l)
		}
	}
}

func TestBuildHuffmanCode_MoreWeightShorterOrEqualCode(t *testing.T) {
	hist := []uint32{1, 2, 4, 8, 16, 32, 64, 128}
	code := BuildHuffmanCode(hist, 15)
	for sym := 1; sym < len(hist); sym++ {
		if code.CodeLengths[sym] > code.CodeLengths[sym-1] {
			t.Errorf("symbol %d (weight %d) got a longer code (%d bits) than symbol %d (weight %d, %d bits)",
				sym, hist[sym], code.CodeLengths[sym], sym-1, hist[sym-1], code.CodeLengths[sym-1])
		}
	}
}
