package deflate

import (
	"encoding/binary"
	"math/bits"
)

// Sublen is the per-length best-distance table: Sublen[length] holds the
// smallest distance at which a match of exactly that length was found at
// the current position. Indexed directly by length (0..MaxMatch); entries
// below MinMatch are unused.
type Sublen [MaxMatch + 1]uint32

// MatchFinderConfig bounds the cost of a single Find call.
type MatchFinderConfig struct {
	MaxChainLength int // chain-walk budget (from compression level / speed mode)
	NiceMatch      int // stop early once a match at least this long is found
}

// MatchFinder walks a HashChain to find the longest LZ77 match at a given
// position, optionally filling in the full per-length sublen table used by
// the optimal parser.
//
// Adapted from a HashChain.Fill-style match search that folds hash
// building and match searching into a single right-to-left pass with a
// left-extension optimization specific to a whole-image one-shot encode.
// DEFLATE's optimal parser instead calls the finder repeatedly as
// positions are inserted left-to-right (hash chains only see strictly
// earlier data), so this keeps the cheap best-byte-first rejection and
// 8-byte batch compare but drops the dedicated left-extension loop.
type MatchFinder struct {
	win    *Window
	chain  *HashChain
	cache  *LongestMatchCache
	config MatchFinderConfig
}

// NewMatchFinder builds a finder over win using chain for candidate lookup
// and, optionally, cache for memoization (nil disables caching).
func NewMatchFinder(win *Window, chain *HashChain, cache *LongestMatchCache, config MatchFinderConfig) *MatchFinder {
	return &MatchFinder{win: win, chain: chain, cache: cache, config: config}
}

// matchLength extends a match between two positions up to limit bytes,
// comparing 8 bytes at a time via XOR and counting trailing zero bytes.
func matchLength(data []byte, a, b, limit int) int {
	n := 0
	for n+8 <= limit {
		x := binary.LittleEndian.Uint64(data[a+n:]) ^ binary.LittleEndian.Uint64(data[b+n:])
		if x != 0 {
			return n + bits.TrailingZeros64(x)/8
		}
		n += 8
	}
	for n < limit && data[a+n] == data[b+n] {
		n++
	}
	return n
}

// Find returns the longest match at pos (best_length, best_distance) and,
// if wantSublen, a populated Sublen table. limit bounds the match length
// (normally MaxMatch, or less near the end of the input).
func (mf *MatchFinder) Find(pos, limit int, wantSublen bool) (bestLength int, bestDistance int, sublen *Sublen) {
	if mf.cache != nil {
		if l, d, s, ok := mf.cache.Lookup(pos, limit, wantSublen); ok {
			return l, d, s
		}
	}

	data := mf.win.Bytes()
	maxDist := mf.win.MaxBackwardDistance(pos)
	if limit > len(data)-pos {
		limit = len(data) - pos
	}
	if limit < MinMatch || maxDist == 0 {
		if mf.cache != nil {
			mf.cache.Store(pos, limit, 0, 0, nil)
		}
		return 0, 0, nil
	}

	if wantSublen {
		sublen = &Sublen{}
	}

	chain := mf.chain
	useSecondary := false
	cand := chain.Head(pos)
	iter := mf.config.MaxChainLength
	if iter <= 0 {
		iter = 1
	}

	for cand != noPos && iter > 0 {
		iter--
		distance := pos - int(cand)
		if distance <= 0 || distance > maxDist {
			break
		}
		if !useSecondary && bestLength >= chain.Same(pos) && chain.Same(pos) > 0 {
			useSecondary = true
			cand = chain.Head2(pos)
			continue
		}

		// Cheap rejection: compare the byte at the current best length
		// before attempting a full extension.
		if bestLength > 0 {
			if pos+bestLength >= len(data) || int(cand)+bestLength >= len(data) ||
				data[pos+bestLength] != data[int(cand)+bestLength] {
				if useSecondary {
					cand = chain.Prev2At(int(cand))
				} else {
					cand = chain.Prev1At(int(cand))
				}
				continue
			}
		}

		l := matchLength(data, int(cand), pos, limit)
		if l >= MinMatch && l > bestLength {
			if wantSublen {
				for k := bestLength + 1; k <= l && k <= MaxMatch; k++ {
					sublen[k] = uint32(distance)
				}
			}
			bestLength = l
			bestDistance = distance
			if bestLength >= mf.config.NiceMatch || bestLength >= limit {
				break
			}
		}

		if useSecondary {
			cand = chain.Prev2At(int(cand))
		} else {
			cand = chain.Prev1At(int(cand))
		}
	}

	if mf.cache != nil {
		mf.cache.Store(pos, limit, bestLength, bestDistance, sublen)
	}
	return bestLength, bestDistance, sublen
}

// Prev1At and Prev2At expose chain-walk steps to the match finder without
// re-deriving the hash bucket.
func (hc *HashChain) Prev1At(pos int) int32 { return hc.prev[pos] }
func (hc *HashChain) Prev2At(pos int) int32 { return hc.prev2[pos] }
