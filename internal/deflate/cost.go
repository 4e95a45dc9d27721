package deflate

import "math"

// SymbolStats holds the two frequency histograms that drive the cost model
// used by the optimal parser, plus their derived per-symbol bit costs.
//
// Modeled on a BitsEntropy-style histogram cost estimator, adapted from
// VP8L's five interleaved histograms (green+length,
// red, blue, alpha, distance) down to DEFLATE's two (literal/length,
// distance), since DEFLATE has a single byte-literal alphabet rather than
// four color-channel alphabets.
type SymbolStats struct {
	LLCounts [NumLiteralLengthSymbols]uint32
	DCounts  [NumDistanceSymbols]uint32

	LLCost [NumLiteralLengthSymbols]float64
	DCost  [NumDistanceSymbols]float64
}

// Clear zeroes all counts (costs are left until the next ComputeCosts call).
func (s *SymbolStats) Clear() {
	*s = SymbolStats{}
}

// AddLiteral records one occurrence of a literal byte.
func (s *SymbolStats) AddLiteral(b byte) { s.LLCounts[b]++ }

// AddLengthDistance records one occurrence of a (length, distance) token.
func (s *SymbolStats) AddLengthDistance(length, distance int) {
	s.LLCounts[LengthSymbol(length)]++
	s.DCounts[DistanceSymbol(distance)]++
}

// AddEnd records the mandatory end-of-block symbol.
func (s *SymbolStats) AddEnd() { s.LLCounts[EndOfBlockSymbol]++ }

// shannonBits returns the Shannon self-information (-log2 p) in bits for a
// symbol with count `count` out of `total` occurrences.
func shannonBits(count, total uint32) float64 {
	if count == 0 {
		return 0
	}
	if total == 0 {
		total = 1
	}
	return -math.Log2(float64(count) / float64(total))
}

// ComputeCosts derives LLCost/DCost from the current histograms using
// Shannon-entropy estimates — the optimal parser iterates using the
// cheaper entropy estimate so every relax step is one table lookup.
func (s *SymbolStats) ComputeCosts() {
	var llTotal, dTotal uint32
	for _, c := range s.LLCounts {
		llTotal += c
	}
	for _, c := range s.DCounts {
		dTotal += c
	}
	if llTotal == 0 {
		llTotal = 1
	}
	if dTotal == 0 {
		dTotal = 1
	}
	for i, c := range s.LLCounts {
		if c == 0 {
			s.LLCost[i] = math.Log2(float64(llTotal)) + 1 // unseen symbol: pessimistic
			continue
		}
		s.LLCost[i] = shannonBits(c, llTotal)
	}
	for i, c := range s.DCounts {
		if c == 0 {
			s.DCost[i] = math.Log2(float64(dTotal)) + 1
			continue
		}
		s.DCost[i] = shannonBits(c, dTotal)
	}
}

// ApplyPNGCalibration applies empirically-tuned additive corrections used
// only when encoding raw PNG scanline streams (smaller, more repetitive
// alphabets than general-purpose DEFLATE input).
func (s *SymbolStats) ApplyPNGCalibration(blockSize int) {
	adjust := -0.4
	if blockSize < 1000 {
		adjust -= 0.2
	}
	for i := 0; i < 256; i++ {
		s.LLCost[i] += adjust
	}
	s.LLCost[0] -= 1
	s.DCost[0] -= 1.5
	if len(s.DCost) > 3 {
		s.DCost[3] -= 1.4
	}
	s.LLCost[255] -= 0.5
	s.LLCost[257] -= 1.2
	s.LLCost[258] += 0.3
	s.LLCost[272] += 1.2
	s.LLCost[282] += 0.2
	s.LLCost[283] += 0.2
	s.LLCost[284] += 0.4

	// No real distance symbol lies past a block longer than the window.
	cutoff := NumDistanceSymbols - 2
	if blockSize <= WindowSize {
		cutoff = DistanceSymbol(blockSize)
	}
	for i := cutoff; i < NumDistanceSymbols; i++ {
		if i >= 0 {
			s.DCost[i] += 0.5
		}
	}

	for i := range s.LLCost {
		if s.LLCost[i] < 0 {
			s.LLCost[i] = 0
		}
	}
	for i := range s.DCost {
		if s.DCost[i] < 0 {
			s.DCost[i] = 0
		}
	}
}

// LitLenCost returns the cost in bits of emitting a length symbol plus its
// extra bits for the given match length, pre-added so the optimal parser's
// inner loop is one table lookup per length.
func (s *SymbolStats) LitLenCost(length int) float64 {
	sym := LengthSymbol(length)
	nbits, _ := LengthExtraBitsValue(length)
	return s.LLCost[sym] + float64(nbits)
}

// DistCost returns the cost in bits of emitting a distance symbol plus its
// extra bits for the given distance.
func (s *SymbolStats) DistCost(distance int) float64 {
	sym := DistanceSymbol(distance)
	nbits, _ := DistanceExtraBitsValue(distance)
	return s.DCost[sym] + float64(nbits)
}

// Merge adds another SymbolStats' counts into s (used to combine greedy
// seed stats with a prior iteration's stats, or to sum two half-block
// histograms during block-split cost estimation).
func (s *SymbolStats) Merge(other *SymbolStats) {
	for i := range s.LLCounts {
		s.LLCounts[i] += other.LLCounts[i]
	}
	for i := range s.DCounts {
		s.DCounts[i] += other.DCounts[i]
	}
}
