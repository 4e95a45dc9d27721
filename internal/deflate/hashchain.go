package deflate

import "github.com/go-condense/condense/internal/pool"

// HashChain implements the sliding-window 3-byte rolling hash used to find
// LZ77 match candidates, plus a secondary hash keyed on run length that lets
// the match finder skip over long runs of identical bytes efficiently.
//
// Adapted from a VP8L-style two-pixel hash chain (HashChain, Fill,
// getPixPairHash64), which hashes pairs of 32-bit pixels with a
// multiplicative hash and walks a prev-pointer chain capped by an
// iteration budget. This hash instead follows the DEFLATE reference
// rolling hash (shift-xor over 3 bytes) and keeps hashing and matching as
// separate phases, rather than fusing them in one Fill pass, because
// DEFLATE's streaming-friendly interface needs a distinct warmup step for
// partial hash state that VP8L never does.
const (
	hashBits = 15
	hashSize = 1 << hashBits
	hashMask = hashSize - 1

	// noPos is the chain-termination sentinel stored in head/prev for a
	// hash bucket or position with no earlier occurrence.
	noPos = -1
)

// HashChain tracks, for every 3-byte prefix value, the most recent position
// at which it occurred, plus a backward linked list (via prev) of earlier
// occurrences. A second, independent chain is keyed on the combination of
// hash and same-byte run length so the match finder can jump directly to
// positions inside long runs without walking every intermediate one.
type HashChain struct {
	win *Window

	head     []int32 // hash -> most recent position (primary)
	prev     []int32 // position -> earlier position with same hash (primary)
	head2    []int32 // hash -> most recent position (secondary, run-keyed)
	prev2    []int32 // position -> earlier position (secondary)
	hashVal  []int32 // position -> primary hash value at that position
	same     []uint16

	val int // rolling hash accumulator
}

// NewHashChain allocates chain tables sized for an input of the given
// length (bounded to the addressable window). The backing arrays come from
// internal/pool rather than make, since a worker processing several master
// blocks in sequence would otherwise re-allocate these same few tables
// (two hashSize-length ones plus four input-length ones) for every block;
// the caller must call Release when the chain is no longer needed so the
// arrays return to the pool for the next master block.
func NewHashChain(win *Window) *HashChain {
	n := win.Len()
	hc := &HashChain{
		win:     win,
		head:    pool.GetInt32(hashSize),
		prev:    pool.GetInt32(n),
		head2:   pool.GetInt32(hashSize),
		prev2:   pool.GetInt32(n),
		hashVal: pool.GetInt32(n),
		same:    pool.GetUint16(n),
	}
	for i := range hc.head {
		hc.head[i] = noPos
		hc.head2[i] = noPos
	}
	return hc
}

// Reset clears the chain for reuse across master blocks: the chain is
// owned and reused by one worker per master block rather than
// reallocated.
func (hc *HashChain) Reset() {
	for i := range hc.head {
		hc.head[i] = noPos
		hc.head2[i] = noPos
	}
	hc.val = 0
}

// Release returns the chain's backing arrays to internal/pool. hc must not
// be used again afterward.
func (hc *HashChain) Release() {
	pool.PutInt32(hc.head)
	pool.PutInt32(hc.prev)
	pool.PutInt32(hc.head2)
	pool.PutInt32(hc.prev2)
	pool.PutInt32(hc.hashVal)
	pool.PutUint16(hc.same)
	hc.head, hc.prev, hc.head2, hc.prev2, hc.hashVal, hc.same = nil, nil, nil, nil, nil, nil
}

func updateHash(h int, b byte) int {
	return ((h << 5) ^ int(b)) & hashMask
}

// Warmup pre-seeds the rolling hash with the two bytes at pos and pos+1
// without inserting any position into the chain.
func (hc *HashChain) Warmup(pos int) {
	data := hc.win.Bytes()
	hc.val = 0
	if pos < len(data) {
		hc.val = updateHash(hc.val, data[pos])
	}
	if pos+1 < len(data) {
		hc.val = updateHash(hc.val, data[pos+1])
	}
}

// sameRunLength returns same[pos], computing it on first touch by
// extending from same[pos-1]: same[pos] = max(0, same[pos-1]-1), then
// extended by direct comparison.
func (hc *HashChain) sameRunLength(pos int) int {
	data := hc.win.Bytes()
	n := len(data)
	s := 0
	if pos > 0 {
		s = int(hc.same[pos-1])
		if s > 0 {
			s--
		}
	}
	limit := n - pos - 1
	for s < limit && data[pos] == data[pos+1+s] {
		s++
	}
	if s > 0xFFFF {
		s = 0xFFFF
	}
	return s
}

// Update inserts the 3-byte prefix at pos into both chains and advances the
// rolling hash to cover input[pos+2].
func (hc *HashChain) Update(pos int) {
	data := hc.win.Bytes()
	if pos+2 < len(data) {
		hc.val = updateHash(hc.val, data[pos+2])
	} else {
		hc.val = updateHash(hc.val, 0)
	}
	h := hc.val & hashMask
	hc.hashVal[pos] = int32(h)

	hc.prev[pos] = hc.head[h]
	hc.head[h] = int32(pos)

	same := hc.sameRunLength(pos)
	hc.same[pos] = uint16(same)

	h2 := (((same - MinMatch) & 0xff) ^ h) & hashMask
	hc.prev2[pos] = hc.head2[h2]
	hc.head2[h2] = int32(pos)
}

// Head returns the most recent earlier position sharing pos's 3-byte
// prefix, or noPos if there is none. pos must already have been inserted
// with Update; the answer is the bucket head Update(pos) displaced.
func (hc *HashChain) Head(pos int) int32 {
	return hc.prev[pos]
}

// Head2 returns the most recent earlier position in the run-length-keyed
// secondary chain for pos. pos must already have been inserted with Update.
func (hc *HashChain) Head2(pos int) int32 {
	return hc.prev2[pos]
}

// Same returns the precomputed same-byte run length at pos.
func (hc *HashChain) Same(pos int) int { return int(hc.same[pos]) }
