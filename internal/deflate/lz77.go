package deflate

// Token is one LZ77Store entry: either a literal byte (IsLiteral, Literal
// set) or a (length, distance) back-reference.
//
// Modeled on a PixOrCopy-style literal-or-copy tag plus payload packed
// into one struct, kept to the same two-variant shape but raw-mode only
// (length/distance explicit) — costs are computed from length/distance
// directly via constants.go's symbol tables, so there is no need for a
// separate packed "symbol mode" representation.
type Token struct {
	IsLiteral bool
	Literal   byte
	Length    int // valid when !IsLiteral, in [MinMatch, MaxMatch]
	Distance  int // valid when !IsLiteral, in [1, WindowSize]
}

// LZ77Store is an ordered sequence of literal/back-reference tokens
// covering one contiguous input range, plus the byte position each token
// starts at (needed by the block splitter to map token-stream cut points
// back to byte offsets for cost estimation).
//
// Modeled on a BackwardRefs-style thin growable slice wrapper with
// Add/Reset/Len/Refs.
type LZ77Store struct {
	tokens []Token
	pos    []int
}

// NewLZ77Store allocates a store with room for `capacity` tokens.
func NewLZ77Store(capacity int) *LZ77Store {
	return &LZ77Store{
		tokens: make([]Token, 0, capacity),
		pos:    make([]int, 0, capacity),
	}
}

func (s *LZ77Store) Reset() {
	s.tokens = s.tokens[:0]
	s.pos = s.pos[:0]
}

func (s *LZ77Store) Len() int { return len(s.tokens) }

func (s *LZ77Store) Tokens() []Token { return s.tokens }

// PosAt returns the input byte offset at which token i begins.
func (s *LZ77Store) PosAt(i int) int { return s.pos[i] }

func (s *LZ77Store) addLiteral(pos int, b byte) {
	s.tokens = append(s.tokens, Token{IsLiteral: true, Literal: b})
	s.pos = append(s.pos, pos)
}

func (s *LZ77Store) addLengthDistance(pos, length, distance int) {
	s.tokens = append(s.tokens, Token{Length: length, Distance: distance})
	s.pos = append(s.pos, pos)
}

// AddToStats feeds every token in the store into a SymbolStats histogram.
func (s *LZ77Store) AddToStats(stats *SymbolStats) {
	for _, t := range s.tokens {
		if t.IsLiteral {
			stats.AddLiteral(t.Literal)
		} else {
			stats.AddLengthDistance(t.Length, t.Distance)
		}
	}
	stats.AddEnd()
}

// ParseGreedy takes, at each position, the longest match the finder
// returns if >= MinMatch, else emits a literal; it then advances by the
// match length.
func ParseGreedy(win *Window, chain *HashChain, mf *MatchFinder, start, end int, store *LZ77Store) {
	data := win.Bytes()
	pos := start
	for pos < end {
		limit := end - pos
		if limit > MaxMatch {
			limit = MaxMatch
		}
		chain.Update(pos)
		length, distance, _ := mf.Find(pos, limit, false)
		if length >= MinMatch {
			store.addLengthDistance(pos, length, distance)
			for k := 1; k < length && pos+k < end; k++ {
				chain.Update(pos + k)
			}
			pos += length
		} else {
			store.addLiteral(pos, data[pos])
			pos++
		}
	}
}

// lazyScoreAdjust knocks 1 off a match's effective score in specific
// length/distance combinations where the distance code would be expensive
// enough to favor the literal tie-break.
func lazyScoreAdjust(length, distance int) int {
	score := length
	switch {
	case length == 3 && distance > 1024:
		score--
	case length == 4 && distance > 2048:
		score--
	case length == 5 && distance > 4096:
		score--
	}
	return score
}

// GreedyThreshold is the match length at or above which the lazy parser
// commits immediately instead of looking one position ahead.
const GreedyThreshold = 128

// lazyFindAt performs the hash-insert-then-search step shared by every position
// visited once by the lazy parser, so a position is never hashed twice.
func lazyFindAt(win *Window, chain *HashChain, mf *MatchFinder, pos, end int) (length, distance int) {
	limit := end - pos
	if limit > MaxMatch {
		limit = MaxMatch
	}
	chain.Update(pos)
	length, distance, _ = mf.Find(pos, limit, false)
	return
}

// ParseLazy is a one-step lookahead parser. Every position is hashed
// exactly once, in increasing order, so a pending candidate match found
// at p is carried forward rather than re-derived.
func ParseLazy(win *Window, chain *HashChain, mf *MatchFinder, start, end int, store *LZ77Store) {
	data := win.Bytes()
	pos := start
	haveMatch := false
	var curLength, curDistance int

	for pos < end {
		var length, distance int
		if haveMatch {
			length, distance = curLength, curDistance
		} else {
			length, distance = lazyFindAt(win, chain, mf, pos, end)
		}

		if length < MinMatch {
			store.addLiteral(pos, data[pos])
			pos++
			haveMatch = false
			continue
		}
		if length >= GreedyThreshold || pos+1 >= end {
			store.addLengthDistance(pos, length, distance)
			for k := 1; k < length && pos+k < end; k++ {
				chain.Update(pos + k)
			}
			pos += length
			haveMatch = false
			continue
		}

		// Look one position ahead without consuming it twice.
		nextLength, nextDistance := lazyFindAt(win, chain, mf, pos+1, end)
		if lazyScoreAdjust(nextLength, nextDistance) > lazyScoreAdjust(length, distance) {
			store.addLiteral(pos, data[pos])
			pos++
			curLength, curDistance = nextLength, nextDistance
			haveMatch = nextLength >= MinMatch
			continue
		}

		store.addLengthDistance(pos, length, distance)
		for k := 1; k < length && pos+k < end; k++ {
			if pos+k == pos+1 {
				continue // already hashed by the one-ahead lookup above
			}
			chain.Update(pos + k)
		}
		pos += length
		haveMatch = false
	}
}
