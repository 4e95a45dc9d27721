package deflate

import "sort"

// HuffmanCode holds a complete canonical Huffman code for one alphabet: for
// each symbol, a code length and a bit-reversed codeword ready for emission.
//
// Kept to a (NumSymbols, CodeLengths, Codes) shape with canonical-assignment
// and bit-reversal helpers (generateCanonicalCodes, reverseBits) in the
// style of libwebp's GenerateOptimalTree, but the tree-build algorithm is
// different: rather than doubling count_min and rebuilding a plain Huffman
// tree until depths fit the limit, this implementation runs bounded
// package-merge (Katajainen/Moffat/Turpin), which produces an exactly
// length-limited, minimum-redundancy code in one pass.
type HuffmanCode struct {
	NumSymbols  int
	CodeLengths []uint8
	Codes       []uint16
}

// packageMergeItem is one item in a package-merge coin collection: either an
// original symbol's leaf weight, or a "package" formed by combining two
// items from the previous level.
type packageMergeItem struct {
	weight  uint64
	symbols []int // original symbol indices folded into this item
}

// weightedSymbol pairs a symbol index with its histogram count, used to
// build the sorted leaf list package-merge operates over.
type weightedSymbol struct {
	symbol int
	count  uint32
}

// BuildHuffmanCode constructs a canonical, length-limited Huffman code from a
// symbol histogram using bounded package-merge: given symbol frequencies
// and a maximum code length L, it builds a minimum-redundancy prefix code
// whose longest codeword is <= L, using the package-merge / coin-collector
// algorithm rather than Huffman-tree depth limiting with frequency
// clamping.
func BuildHuffmanCode(histogram []uint32, maxLength int) *HuffmanCode {
	n := len(histogram)
	code := &HuffmanCode{
		NumSymbols:  n,
		CodeLengths: make([]uint8, n),
		Codes:       make([]uint16, n),
	}

	var present []weightedSymbol
	for i, c := range histogram {
		if c > 0 {
			present = append(present, weightedSymbol{i, c})
		}
	}

	switch len(present) {
	case 0:
		return code
	case 1:
		code.CodeLengths[present[0].symbol] = 1
		generateCanonicalHuffmanCodes(code)
		return code
	case 2:
		code.CodeLengths[present[0].symbol] = 1
		code.CodeLengths[present[1].symbol] = 1
		generateCanonicalHuffmanCodes(code)
		return code
	}

	// Clamp maxbits when numsymbols-1 < maxbits, since a code over fewer
	// than maxbits+1 symbols can never need that many bits.
	if maxLength > len(present)-1 {
		maxLength = len(present) - 1
	}
	if maxLength < 1 {
		maxLength = 1
	}
	lengths := packageMerge(present, maxLength)
	for i, sc := range present {
		code.CodeLengths[sc.symbol] = lengths[i]
	}
	generateCanonicalHuffmanCodes(code)
	return code
}

// packageMerge runs bounded package-merge over symbols sorted by weight and
// returns the code length assigned to each symbol, in the same order as
// `symbols`. This is the classic coin-collector formulation: build
// maxLength levels of items, where level k's items are leaves (weight =
// symbol frequency) merged pairwise with level k-1's packages; after all
// levels are built, take the cheapest 2*(numSymbols-1) items from the final
// (merged, sorted) list and each symbol's code length is the number of
// times it appears across the taken items.
func packageMerge(present []weightedSymbol, maxLength int) []uint8 {
	n := len(present)
	lengths := make([]uint8, n)

	sorted := make([]int, n) // indices into present, sorted by count asc
	for i := range sorted {
		sorted[i] = i
	}
	sort.Slice(sorted, func(a, b int) bool {
		return present[sorted[a]].count < present[sorted[b]].count
	})

	// leaves[k] is the list of single-symbol items, constant across levels.
	leaves := make([]packageMergeItem, n)
	for i, idx := range sorted {
		leaves[i] = packageMergeItem{weight: uint64(present[idx].count), symbols: []int{idx}}
	}

	// prevLevel starts as the leaves themselves (level 1 uses leaves directly).
	type level = []packageMergeItem
	var prev level = leaves

	// counts[idx] accumulates how many times symbol `idx` is selected across
	// all maxLength levels.
	counts := make([]int, n)

	for l := 1; l <= maxLength; l++ {
		var cur level
		if l == 1 {
			cur = append(level(nil), leaves...)
		} else {
			// Package prev pairwise.
			var packages level
			for i := 0; i+1 < len(prev); i += 2 {
				merged := packageMergeItem{
					weight: prev[i].weight + prev[i+1].weight,
				}
				merged.symbols = append(merged.symbols, prev[i].symbols...)
				merged.symbols = append(merged.symbols, prev[i+1].symbols...)
				packages = append(packages, merged)
			}
			cur = append(level(nil), leaves...)
			cur = append(cur, packages...)
			sort.SliceStable(cur, func(a, b int) bool { return cur[a].weight < cur[b].weight })
		}
		prev = cur
	}

	// Take the 2*(n-1) cheapest items from the final level and tally symbol
	// occurrences; each occurrence adds one to that symbol's code length.
	take := 2 * (n - 1)
	if take > len(prev) {
		take = len(prev)
	}
	for i := 0; i < take; i++ {
		for _, sidx := range prev[i].symbols {
			counts[sidx]++
		}
	}

	for _, idx := range sorted {
		l := counts[idx]
		if l == 0 {
			l = 1
		}
		lengths[idx] = uint8(l)
	}
	return lengths
}

// generateCanonicalHuffmanCodes assigns canonical (lowest-code-first,
// symbol-order tiebreak) codewords from code lengths and bit-reverses them
// to the LSB-first order DEFLATE transmits.
func generateCanonicalHuffmanCodes(code *HuffmanCode) {
	maxLen := 0
	for _, cl := range code.CodeLengths {
		if int(cl) > maxLen {
			maxLen = int(cl)
		}
	}
	if maxLen == 0 {
		return
	}

	type symLen struct {
		symbol int
		length uint8
	}
	var symbols []symLen
	for i, cl := range code.CodeLengths {
		if cl > 0 {
			symbols = append(symbols, symLen{i, cl})
		}
	}
	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].length != symbols[j].length {
			return symbols[i].length < symbols[j].length
		}
		return symbols[i].symbol < symbols[j].symbol
	})

	next := uint32(0)
	prevLen := uint8(0)
	for _, s := range symbols {
		if s.length > prevLen {
			next <<= (s.length - prevLen)
			prevLen = s.length
		}
		code.Codes[s.symbol] = reverseHuffmanBits(next, int(s.length))
		next++
	}
}

// reverseHuffmanBits reverses the low nBits bits of v, matching the
// teacher's reverseBits (internal/lossless/encode_huffman.go) — DEFLATE
// Huffman codes are packed MSB-of-codeword-first within an LSB-first bit
// stream, so the packed bit order is the code's bit-reverse.
func reverseHuffmanBits(v uint32, nBits int) uint16 {
	var result uint32
	for i := 0; i < nBits; i++ {
		result = (result << 1) | (v & 1)
		v >>= 1
	}
	return uint16(result)
}
