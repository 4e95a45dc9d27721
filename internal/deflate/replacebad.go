package deflate

// ReplaceBadCodes is an optional post-parse refinement pass that expands
// short back-references back into literals when the current block's
// Huffman trees make that cheaper, without changing the decoded output.
//
// Modeled on a BackwardReferencesTraceBackwards-style iterative
// refinement that re-walks a finished token stream using the final cost
// model rather than the search-time heuristic one, applying the same
// "re-walk with the real cost model, replace where cheaper" idea to short
// copies instead of recomputing the whole backward-reference graph.
//
// data/positions let a copy token be expanded back to the literal bytes it
// represents: positions[i] is the input offset token[i] starts at, so the
// expanded bytes are data[positions[i] : positions[i]+tokens[i].Length].
func ReplaceBadCodes(tokens []Token, positions []int, data []byte, llCode, dCode *HuffmanCode, maxIterations int) ([]Token, []int, bool) {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	current, curPos := tokens, positions
	changedAny := false

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		next := make([]Token, 0, len(current))
		nextPos := make([]int, 0, len(current))
		for i, t := range current {
			if t.IsLiteral || t.Length > 7 {
				next = append(next, t)
				nextPos = append(nextPos, curPos[i])
				continue
			}

			copyBits := float64(llCode.CodeLengths[LengthSymbol(t.Length)])
			if n, _ := LengthExtraBitsValue(t.Length); n > 0 {
				copyBits += float64(n)
			}
			copyBits += float64(dCode.CodeLengths[DistanceSymbol(t.Distance)])
			if n, _ := DistanceExtraBitsValue(t.Distance); n > 0 {
				copyBits += float64(n)
			}

			pos := curPos[i]
			litBits := 0.0
			for k := 0; k < t.Length; k++ {
				litBits += float64(llCode.CodeLengths[data[pos+k]])
			}

			if litBits < copyBits {
				for k := 0; k < t.Length; k++ {
					next = append(next, Token{IsLiteral: true, Literal: data[pos+k]})
					nextPos = append(nextPos, pos+k)
				}
				changed = true
				changedAny = true
			} else {
				next = append(next, t)
				nextPos = append(nextPos, pos)
			}
		}
		current, curPos = next, nextPos
		if !changed {
			break
		}
	}
	return current, curPos, changedAny
}
