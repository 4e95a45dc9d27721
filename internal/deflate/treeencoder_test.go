package deflate

import "testing"

// decodeTokens reverses buildCodeLengthTokens, reconstructing the original
// code-length sequence from an RLE token stream.
func decodeTokens(tokens []TreeToken) []uint8 {
	var out []uint8
	var prev uint8
	for _, t := range tokens {
		switch t.Code {
		case 16:
			count := int(t.ExtraBits) + 3
			for i := 0; i < count; i++ {
				out = append(out, prev)
			}
		case 17:
			count := int(t.ExtraBits) + 3
			for i := 0; i < count; i++ {
				out = append(out, 0)
			}
		case 18:
			count := int(t.ExtraBits) + 11
			for i := 0; i < count; i++ {
				out = append(out, 0)
			}
		default:
			out = append(out, t.Code)
			prev = t.Code
		}
	}
	return out
}

func equalLengths(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRLEVariants_Count(t *testing.T) {
	variants := rleVariants()
	if len(variants) != 32 {
		t.Fatalf("rleVariants: got %d variants, want 32", len(variants))
	}
	seen := make(map[rleToggles]bool, 32)
	for _, v := range variants {
		if seen[v] {
			t.Errorf("duplicate toggle combination: %+v", v)
		}
		seen[v] = true
	}
}

func TestBuildCodeLengthTokens_RoundTrip(t *testing.T) {
	lengths := []uint8{0, 0, 0, 0, 0, 0, 0, 0, 3, 3, 3, 3, 3, 3, 3, 3, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5}
	for _, toggle := range rleVariants() {
		tokens := buildCodeLengthTokens(lengths, toggle)
		got := decodeTokens(tokens)
		if !equalLengths(got, lengths) {
			t.Errorf("toggles %+v: round-trip mismatch, got %v want %v", toggle, got, lengths)
		}
	}
}

func TestBuildCodeLengthTokens_FuseRaisesLiteralFloor(t *testing.T) {
	lengths := make([]uint8, 5) // a zero run of length 5: in [3,7)

	tokens := buildCodeLengthTokens(lengths, rleToggles{useRep17: true})
	foundRep17 := false
	for _, tok := range tokens {
		if tok.Code == 17 {
			foundRep17 = true
		}
	}
	if !foundRep17 {
		t.Errorf("fuse7 off: a run of length 5 should use code 17, got %v", tokens)
	}

	fusedTokens := buildCodeLengthTokens(lengths, rleToggles{useRep17: true, fuse7: true})
	for _, tok := range fusedTokens {
		if tok.Code == 17 || tok.Code == 18 {
			t.Errorf("fuse7 on: run of length 5 should stay literal, got repeat code %d", tok.Code)
		}
	}
}

func TestBuildTreeHeader_PicksCheapestVariant(t *testing.T) {
	llLengths := make([]uint8, 288)
	for i := 0; i < 8; i++ {
		llLengths[i] = 8
	}
	llLengths[257] = 5 // force hlit above the 257 trim floor
	dLengths := make([]uint8, 30)
	dLengths[0], dLengths[1] = 1, 1

	header := BuildTreeHeader(llLengths, dLengths)
	if header.HLit < 257 {
		t.Errorf("HLit = %d, want >= 257", header.HLit)
	}
	if header.HCLen < 4 {
		t.Errorf("HCLen = %d, want >= 4", header.HCLen)
	}

	// The chosen variant must be at least as cheap as the plain,
	// all-repeat-codes-enabled baseline.
	baseline := buildCodeLengthTokens(append(append([]uint8(nil), llLengths[:header.HLit]...), dLengths[:header.HDist]...),
		rleToggles{useRep16: true, useRep17: true, useRep18: true})
	baseHist := histogramOfTokens(baseline)
	baseCode := BuildHuffmanCode(baseHist[:], 7)
	baseBits := headerCost(baseline, baseCode)
	bestBits := headerCost(header.Tokens, header.CLCode)
	if bestBits > baseBits {
		t.Errorf("BuildTreeHeader chose a variant costing %d bits, worse than the %d-bit baseline", bestBits, baseBits)
	}
}

func TestBuildTreeHeader_TwoDistanceCodeWorkaround(t *testing.T) {
	llLengths := make([]uint8, 257)
	llLengths[0] = 1
	dLengths := make([]uint8, 1) // fewer than two distance codes

	header := BuildTreeHeader(llLengths, dLengths)
	if header.HDist < 2 {
		t.Errorf("HDist = %d, want >= 2 after the buggy-decoder workaround", header.HDist)
	}
}
