// Package deflate implements a from-scratch DEFLATE (RFC 1951) re-encoder:
// hash-chain LZ77 parsing in three modes (greedy, lazy, optimal shortest-
// path), bounded package-merge Huffman construction, a dynamic-tree header
// encoder, entropy-driven block-layout search, and a bit-exact emitter.
package deflate

import (
	"runtime"
	"sync"
)

// Level maps a compression level (1-9) to concrete parser tuning:
// iteration count for the optimal parser and the match finder's
// chain-length cap.
type Level struct {
	Iterations     int
	MaxChainLength int
	NiceMatch      int
	Mode           ParseMode
}

// ParseMode selects which LZ77Parser strategy a master block uses.
type ParseMode int

const (
	ModeGreedy ParseMode = iota
	ModeLazy
	ModeOptimal
)

// levels maps 1-9 to iteration counts and match-finder chain lengths:
// levels 1-2 use the cheap greedy/lazy parsers, 3-9 scale the optimal
// parser's iteration budget and chain length.
var levels = [10]Level{
	1: {Iterations: 0, MaxChainLength: 16, NiceMatch: 32, Mode: ModeGreedy},
	2: {Iterations: 0, MaxChainLength: 32, NiceMatch: 64, Mode: ModeLazy},
	3: {Iterations: 1, MaxChainLength: 64, NiceMatch: 128, Mode: ModeOptimal},
	4: {Iterations: 3, MaxChainLength: 128, NiceMatch: 158, Mode: ModeOptimal},
	5: {Iterations: 5, MaxChainLength: 256, NiceMatch: 200, Mode: ModeOptimal},
	6: {Iterations: 8, MaxChainLength: 512, NiceMatch: 258, Mode: ModeOptimal},
	7: {Iterations: 15, MaxChainLength: 1024, NiceMatch: 258, Mode: ModeOptimal},
	8: {Iterations: 25, MaxChainLength: 2048, NiceMatch: 258, Mode: ModeOptimal},
	9: {Iterations: 50, MaxChainLength: 4096, NiceMatch: 258, Mode: ModeOptimal},
}

// LevelFor returns the tuning for a 1-9 compression level, clamping out of
// range values.
func LevelFor(n int) Level {
	if n < 1 {
		n = 1
	}
	if n > 9 {
		n = 9
	}
	return levels[n]
}

// Options configures one Compress call.
type Options struct {
	Level              Level
	MasterBlockSize    int  // default 5<<20
	MaxBlocksPerMaster int  // block-layout search fan-out cap
	BlockSplitScans    int  // golden-section probe count per split, default 9
	ReplaceCodesPasses int  // ReplaceBadCodes iteration cap; 0 disables
	PNGCostModel       bool // apply the PNG cost-model calibration
	Multithreading     int  // worker count; 0 or 1 disables parallelism
}

// DefaultOptions returns the default tuning for the given level.
func DefaultOptions(level int) Options {
	return Options{
		Level:              LevelFor(level),
		MasterBlockSize:    5 << 20,
		MaxBlocksPerMaster: 16,
		BlockSplitScans:    9,
		ReplaceCodesPasses: 1,
		Multithreading:     1,
	}
}

// Compress runs the full pipeline over `input` and returns a complete
// DEFLATE bitstream: master-block chunking, per-block LZ77 parsing,
// block-layout search, Huffman construction, and bit emission, dispatched
// across Options.Multithreading workers via a mutex-guarded shared index
// rather than work-stealing or nested fork/join.
func Compress(input []byte, opt Options) []byte {
	if len(input) == 0 {
		bw := NewBlockWriter(2)
		bw.EmitBlock(nil, true, true, nil, nil)
		return bw.Finish()
	}

	blockSize := opt.MasterBlockSize
	if blockSize <= 0 {
		blockSize = 5 << 20
	}
	var bounds []int
	for start := 0; start < len(input); start += blockSize {
		bounds = append(bounds, start)
	}
	bounds = append(bounds, len(input))
	numMasterBlocks := len(bounds) - 1

	results := make([][]byte, numMasterBlocks)

	workers := opt.Multithreading
	if workers < 1 {
		workers = 1
	}
	if workers > runtime.GOMAXPROCS(0) {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > numMasterBlocks {
		workers = numMasterBlocks
	}

	var nextIndex int
	var dispatchMu sync.Mutex
	take := func() (idx int, ok bool) {
		dispatchMu.Lock()
		defer dispatchMu.Unlock()
		if nextIndex >= numMasterBlocks {
			return 0, false
		}
		idx = nextIndex
		nextIndex++
		return idx, true
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				idx, ok := take()
				if !ok {
					return
				}
				start, end := bounds[idx], bounds[idx+1]
				isFinal := idx == numMasterBlocks-1
				results[idx] = compressMasterBlock(input, start, end, opt, isFinal)
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]byte, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// compressMasterBlock runs one master block's worth of window/hash-chain
// setup, LZ77 parsing, block splitting, and emission. Each master block's
// emission is self-contained: no deflate block straddles a master-block
// boundary, BFINAL is set only on the last block of the last master block,
// and every other master block ends with an empty stored block so that its
// bytes end on a byte boundary and can be concatenated with the next.
//
// The hash chain and match cache are released back to their pools on
// return, so a worker running through several master blocks reuses the
// same handful of backing arrays instead of reallocating them per block.
func compressMasterBlock(input []byte, start, end int, opt Options, isFinalMaster bool) []byte {
	win := NewWindow(input)
	chain := NewHashChain(win)
	defer chain.Release()
	cache := NewLongestMatchCache(end - start)
	defer cache.Release()
	mf := NewMatchFinder(win, chain, cache, MatchFinderConfig{
		MaxChainLength: opt.Level.MaxChainLength,
		NiceMatch:      opt.Level.NiceMatch,
	})

	// Warm the hash chain over any preceding bytes still in the window so
	// matches can reach back across the master-block boundary.
	warmStart := start - WindowSize
	if warmStart < 0 {
		warmStart = 0
	}
	for p := warmStart; p < start; p++ {
		chain.Update(p)
	}

	store := NewLZ77Store(end - start)
	switch opt.Level.Mode {
	case ModeGreedy:
		ParseGreedy(win, chain, mf, start, end, store)
	case ModeLazy:
		ParseLazy(win, chain, mf, start, end, store)
	default:
		op := NewOptimalParser(win, chain, mf)
		store, _ = op.Parse(start, end, OptimalParseConfig{
			NumIterations: opt.Level.Iterations,
			PNGMode:       opt.PNGCostModel,
		})
	}

	tokens := store.Tokens()
	tokenBounds := SplitBlocks(tokens, opt.MaxBlocksPerMaster, opt.BlockSplitScans)
	data := win.Bytes()

	bw := NewBlockWriter(end - start)
	for i := 0; i < len(tokenBounds)-1; i++ {
		lo, hi := tokenBounds[i], tokenBounds[i+1]
		blockTokens := tokens[lo:hi]
		byteStart := store.PosAt(lo)
		byteEnd := end
		if hi < store.Len() {
			byteEnd = store.PosAt(hi)
		}
		emitOneBlock(bw, blockTokens, data, byteStart, byteEnd, opt, isFinalMaster && i == len(tokenBounds)-2)
	}
	if !isFinalMaster {
		// An empty stored block ends on a byte boundary, so the next master
		// block's bytes can be appended directly after this one's.
		bw.EmitStoredBlock(nil, false)
	}
	return bw.Finish()
}

// emitOneBlock builds the best-scoring tree pair for one deflate block
// (applying the ReplaceBadCodes refinement first), compares stored /
// fixed / dynamic encodings, and emits the smallest. byteStart/byteEnd
// bound the input range this token slice covers, needed both for the
// ReplaceBadCodes literal lookup and for a stored-block fallback.
func emitOneBlock(bw *BlockWriter, tokens []Token, data []byte, byteStart, byteEnd int, opt Options, isFinal bool) {
	llCounts, dCounts := histogramTokens(tokens)
	adv := BuildAdvancedLengths(llCounts[:], dCounts[:])

	if opt.ReplaceCodesPasses > 0 {
		positions := make([]int, len(tokens))
		pos := byteStart
		for i, t := range tokens {
			positions[i] = pos
			if t.IsLiteral {
				pos++
			} else {
				pos += t.Length
			}
		}
		refined, _, changed := ReplaceBadCodes(tokens, positions, data, adv.LLCode, adv.DCode, opt.ReplaceCodesPasses)
		if changed {
			tokens = refined
			llc, dc := histogramTokens(tokens)
			adv = BuildAdvancedLengths(llc[:], dc[:])
		}
	}

	dynamicBits := adv.EstimateBits
	fixedBits := estimateFixedBits(tokens)
	storedBits := float64((byteEnd - byteStart + 5) * 8) // 5-byte header, byte-aligned

	switch {
	case storedBits < dynamicBits && storedBits < fixedBits:
		bw.EmitStoredBlock(data[byteStart:byteEnd], isFinal)
	case fixedBits <= dynamicBits:
		bw.EmitBlock(tokens, isFinal, true, nil, nil)
	default:
		bw.EmitBlock(tokens, isFinal, false, adv.LLCode, adv.DCode)
	}
}

func histogramTokens(tokens []Token) (llCounts [NumLiteralLengthSymbols]uint32, dCounts [NumDistanceSymbols]uint32) {
	for _, t := range tokens {
		if t.IsLiteral {
			llCounts[t.Literal]++
		} else {
			llCounts[LengthSymbol(t.Length)]++
			dCounts[DistanceSymbol(t.Distance)]++
		}
	}
	llCounts[EndOfBlockSymbol]++
	return
}

func estimateFixedBits(tokens []Token) float64 {
	bitsTotal := 0
	for _, t := range tokens {
		if t.IsLiteral {
			bitsTotal += int(fixedLLCode.CodeLengths[t.Literal])
			continue
		}
		bitsTotal += int(fixedLLCode.CodeLengths[LengthSymbol(t.Length)])
		n, _ := LengthExtraBitsValue(t.Length)
		bitsTotal += n
		bitsTotal += int(fixedDCode.CodeLengths[DistanceSymbol(t.Distance)])
		dn, _ := DistanceExtraBitsValue(t.Distance)
		bitsTotal += dn
	}
	bitsTotal += int(fixedLLCode.CodeLengths[EndOfBlockSymbol])
	return float64(bitsTotal)
}

