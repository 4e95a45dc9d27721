package deflate

import "math"

// OptimalParser runs a shortest-path DP parser: for each position it
// relaxes a literal edge and every reachable back-reference edge, using
// SymbolStats-derived per-symbol costs, then back-traces the cheapest
// path and iterates, rebuilding stats from the previous iteration's token
// stream.
//
// Modeled on a forward cost array filled start-to-end (cost[0]=0, relax
// forward edges) with a DP recurrence and a parallel choice array for
// backtracing, using real Huffman-derived/Shannon-estimated per-symbol
// bit costs rather than a fixed exp-Golomb bit-cost formula.
type OptimalParser struct {
	win   *Window
	chain *HashChain
	mf    *MatchFinder

	// mwc is the multiply-with-carry PRNG state used to escape local minima
	// by randomizing stats every 7th non-improving iteration.
	mwcZ, mwcW uint32
}

// NewOptimalParser builds a parser over one master block.
func NewOptimalParser(win *Window, chain *HashChain, mf *MatchFinder) *OptimalParser {
	return &OptimalParser{win: win, chain: chain, mf: mf, mwcZ: 362436069, mwcW: 521288629}
}

func (p *OptimalParser) mwcNext() uint32 {
	p.mwcZ = 36969*(p.mwcZ&0xffff) + (p.mwcZ >> 16)
	p.mwcW = 18000*(p.mwcW&0xffff) + (p.mwcW >> 16)
	return (p.mwcZ << 16) + p.mwcW
}

// randomizeStats replaces roughly a third of the frequency counts with
// those of other randomly chosen symbols — the escape hatch run every
// 7th iteration that fails to improve.
func (p *OptimalParser) randomizeStats(stats *SymbolStats) {
	n := len(stats.LLCounts)
	for i := 0; i < n; i++ {
		if p.mwcNext()%3 == 0 {
			src := int(p.mwcNext()) % n
			if src < 0 {
				src = -src
			}
			stats.LLCounts[i] = stats.LLCounts[src%n]
		}
	}
	nd := len(stats.DCounts)
	for i := 0; i < nd; i++ {
		if p.mwcNext()%3 == 0 {
			src := int(p.mwcNext()) % nd
			if src < 0 {
				src = -src
			}
			stats.DCounts[i] = stats.DCounts[src%nd]
		}
	}
}

type edgeChoice struct {
	length int // 0 means "reached via a literal"
	dist   int
}

// runDP fills cost/choice for [start,end) given stats, and returns the
// total cost of reaching end.
func (p *OptimalParser) runDP(stats *SymbolStats, start, end int, cost []float64, choice []edgeChoice) float64 {
	data := p.win.Bytes()
	n := end - start
	for i := range cost {
		cost[i] = math.MaxFloat64
	}
	cost[0] = 0

	for i := 0; i < n; i++ {
		pos := start + i
		if cost[i] == math.MaxFloat64 {
			continue
		}
		// Literal edge.
		litCost := cost[i] + stats.LLCost[data[pos]]
		if litCost < cost[i+1] {
			cost[i+1] = litCost
			choice[i+1] = edgeChoice{length: 0}
		}

		limit := n - i
		if limit > MaxMatch {
			limit = MaxMatch
		}
		if limit < MinMatch {
			continue
		}
		bestLength, _, sublen := p.mf.Find(pos, limit, true)
		if bestLength < MinMatch {
			continue
		}
		for length := MinMatch; length <= bestLength && length <= MaxMatch; length++ {
			dist := int(sublen[length])
			if dist == 0 {
				continue
			}
			edgeCost := cost[i] + stats.LitLenCost(length) + stats.DistCost(dist)
			if i+length <= n && edgeCost < cost[i+length] {
				cost[i+length] = edgeCost
				choice[i+length] = edgeChoice{length: length, dist: dist}
			}
		}
	}
	return cost[n]
}

// backtrace walks choice from the end back to the start, producing tokens
// in forward order.
func backtrace(data []byte, start, end int, choice []edgeChoice, store *LZ77Store) {
	n := end - start
	var rev []Token
	i := n
	for i > 0 {
		c := choice[i]
		if c.length == 0 {
			rev = append(rev, Token{IsLiteral: true, Literal: data[start+i-1]})
			i--
		} else {
			rev = append(rev, Token{Length: c.length, Distance: c.dist})
			i -= c.length
		}
	}
	pos := start
	for k := len(rev) - 1; k >= 0; k-- {
		t := rev[k]
		if t.IsLiteral {
			store.addLiteral(pos, t.Literal)
			pos++
		} else {
			store.addLengthDistance(pos, t.Length, t.Distance)
			pos += t.Length
		}
	}
}

// OptimalParseConfig controls iteration effort, mapped from the
// compression level: levels 1-9 map to iteration counts.
type OptimalParseConfig struct {
	NumIterations int
	PNGMode       bool // apply the PNG cost-model calibration
}

// Parse runs the greedy-seed + iterative-optimal procedure over
// [start,end) and returns the best token stream found (by total
// estimated bits) together with a SymbolStats holding that stream's
// symbol counts (costs not computed).
func (p *OptimalParser) Parse(start, end int, cfg OptimalParseConfig) (*LZ77Store, *SymbolStats) {
	n := end - start

	// Seed stats with a greedy pass.
	seedStore := NewLZ77Store(n)
	ParseGreedy(p.win, p.chain, p.mf, start, end, seedStore)
	stats := &SymbolStats{}
	seedStore.AddToStats(stats)
	stats.ComputeCosts()
	if cfg.PNGMode {
		stats.ApplyPNGCalibration(n)
	}

	cost := make([]float64, n+1)
	choice := make([]edgeChoice, n+1)
	data := p.win.Bytes()

	var best *LZ77Store
	bestCost := math.MaxFloat64
	lastCost := math.MaxFloat64
	sinceImprovement := 0

	iterations := cfg.NumIterations
	if iterations <= 0 {
		iterations = 1
	}

	for iter := 0; iter < iterations; iter++ {
		total := p.runDP(stats, start, end, cost, choice)

		trial := NewLZ77Store(n)
		backtrace(data, start, end, choice, trial)

		if total < bestCost {
			bestCost = total
			best = trial
		}
		if total < lastCost-1e-9 {
			sinceImprovement = 0
		} else {
			sinceImprovement++
		}
		lastCost = total

		// Rebuild stats from this iteration's tokens for the next pass.
		stats = &SymbolStats{}
		trial.AddToStats(stats)
		if sinceImprovement > 0 && sinceImprovement%7 == 0 {
			p.randomizeStats(stats)
		}
		stats.ComputeCosts()
		if cfg.PNGMode {
			stats.ApplyPNGCalibration(n)
		}
	}

	if best == nil {
		best = NewLZ77Store(n)
		ParseGreedy(p.win, p.chain, p.mf, start, end, best)
	}
	finalStats := &SymbolStats{}
	best.AddToStats(finalStats)
	return best, finalStats
}
