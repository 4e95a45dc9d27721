package deflate

import "math"

// AdvancedLengths: before emitting a block's dynamic Huffman trees, try
// several frequency pre-processings plus a maxbits sweep and keep
// whichever combination yields the smallest estimated total size (tree
// header + body).
//
// optimizeCountsForRle below is estimator (b) — detect runs of >=4 similar
// counts, collapse to their mean so the RLE header shrinks. Estimator (c)
// is the simpler equality-stride variant, and (a) is the raw,
// no-preprocessing baseline; all three are swept alongside a maxbits
// sweep.

// optimizeCountsForRlezop is the simpler equality-stride variant of
// estimator (c): unlike optimizeCountsForRle's arithmetic-mean collapsing
// of near-equal runs, it only collapses runs of exactly equal counts,
// trading some RLE-friendliness for a cheaper, non-lossy pass.
func optimizeCountsForRlezop(counts []uint32) []uint32 {
	out := append([]uint32(nil), counts...)
	length := len(out)
	for length > 0 && out[length-1] == 0 {
		length--
	}
	if length == 0 {
		return out
	}
	i := 0
	for i < length {
		j := i + 1
		for j < length && out[j] == out[i] {
			j++
		}
		stride := j - i
		if stride >= 4 {
			for k := i; k < j; k++ {
				out[k] = out[i]
			}
		}
		i = j
	}
	return out
}

// optimizeCountsForRle trims trailing zeros, marks strides already good
// for RLE, then collapses similar (within 4) valued strides to their
// arithmetic mean via smoothCountsForRle.
func optimizeCountsForRle(counts []uint32) []uint32 {
	out := append([]uint32(nil), counts...)
	return smoothCountsForRle(out)
}

// blockSizeEstimator computes the estimated total bits (tree headers for
// both alphabets plus body) for a given pair of LL/distance histograms at a
// fixed maxbits, used to compare AdvancedLengths variants.
func blockSizeEstimator(llCounts, dCounts []uint32, maxbits int) (bits float64, llCode, dCode *HuffmanCode) {
	llCode = BuildHuffmanCode(llCounts, maxbits)
	dCode = BuildHuffmanCode(dCounts, maxbits)

	for sym, c := range llCounts {
		if c > 0 {
			bits += float64(c) * float64(llCode.CodeLengths[sym])
			if sym > EndOfBlockSymbol && sym-257 < len(lengthExtraBits) {
				bits += float64(c) * float64(lengthExtraBits[sym-257])
			}
		}
	}
	for sym, c := range dCounts {
		if c > 0 {
			bits += float64(c) * float64(dCode.CodeLengths[sym])
			if sym < len(distanceExtraBits) {
				bits += float64(c) * float64(distanceExtraBits[sym])
			}
		}
	}

	header := BuildTreeHeader(llCode.CodeLengths, dCode.CodeLengths)
	bits += float64(headerCost(header.Tokens, header.CLCode))
	bits += float64(header.HCLen) * 3
	bits += 14 // HLIT(5) + HDIST(5) + HCLEN(4)

	return bits, llCode, dCode
}

// AdvancedLengthsResult holds the winning trees from the preprocessing
// and maxbits sweep.
type AdvancedLengthsResult struct {
	LLCode       *HuffmanCode
	DCode        *HuffmanCode
	EstimateBits float64
}

// BuildAdvancedLengths runs the four-estimator, maxbits-swept search and
// returns the smallest-estimated-size tree pair.
func BuildAdvancedLengths(llCounts, dCounts []uint32) *AdvancedLengthsResult {
	variants := [][]uint32{
		llCounts,
		optimizeCountsForRle(llCounts),
		optimizeCountsForRlezop(llCounts),
	}

	var best *AdvancedLengthsResult
	for _, v := range variants {
		prevBits := math.MaxFloat64
		worseStreak := 0
		for maxbits := 15; maxbits >= 9; maxbits-- {
			bits, llCode, dCode := blockSizeEstimator(v, dCounts, maxbits)
			if best == nil || bits < best.EstimateBits {
				best = &AdvancedLengthsResult{LLCode: llCode, DCode: dCode, EstimateBits: bits}
			}
			if bits >= prevBits {
				worseStreak++
				if worseStreak >= 2 {
					break
				}
			} else {
				worseStreak = 0
			}
			prevBits = bits
		}
	}
	return best
}
