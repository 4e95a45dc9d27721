package deflate

import "sync"

// LongestMatchCache memoizes (length, distance, sublen) per input position
// within one master block so that repeated optimal-parser iterations never
// recompute a match search whose result cannot have changed (the hash
// chains are immutable once the master block has been hashed).
//
// Modeled on a per-encode scratch-buffer reuse pattern (hash chain, best
// refs, and Huffman scratch pooled and reset rather than reallocated
// across encodes), with actual memoization added on top: a one-shot
// encoder that never iterates its backward-reference search has no need
// for this, but the optimal DEFLATE parser re-derives matches every
// iteration.
//
// The sublen table is compressed to CacheLength distinct length/distance
// break points plus a capped max length. Invalid sentinel: length==1 &&
// distance==0.
const CacheLength = 8

type cacheEntry struct {
	length    uint16
	distance  uint16
	sublength [CacheLength * 2]uint16 // interleaved (lengthBreak, distance) pairs, length-sorted
}

func (c *cacheEntry) valid() bool {
	return !(c.length == 1 && c.distance == 0)
}

// LongestMatchCache stores one cacheEntry per position in a master block.
type LongestMatchCache struct {
	entries []cacheEntry
}

// cachePool holds released *LongestMatchCache instances for reuse by a
// worker's next master block, entries slice and all, rather than
// reallocating the (potentially several-megabyte) entries table from
// scratch for every block.
var cachePool = sync.Pool{
	New: func() any { return new(LongestMatchCache) },
}

// NewLongestMatchCache returns a cache for a master block of size n,
// pulling from cachePool when a released instance with enough capacity is
// available. The caller must call Release when done with it.
func NewLongestMatchCache(n int) *LongestMatchCache {
	c := cachePool.Get().(*LongestMatchCache)
	if cap(c.entries) < n {
		c.entries = make([]cacheEntry, n)
	} else {
		c.entries = c.entries[:n]
	}
	for i := range c.entries {
		c.entries[i].length = 1
		c.entries[i].distance = 0
	}
	return c
}

// Release returns c to cachePool for reuse by a later master block. c must
// not be used again afterward.
func (c *LongestMatchCache) Release() {
	cachePool.Put(c)
}

// Lookup returns a cached result for pos if one exists, with the length
// clipped to `limit`. The limit of the stored search is not recorded. A
// request for a sublen table misses when the entry holds a match but was
// stored without one.
func (c *LongestMatchCache) Lookup(pos, limit int, wantSublen bool) (length, distance int, sublen *Sublen, ok bool) {
	if pos < 0 || pos >= len(c.entries) {
		return 0, 0, nil, false
	}
	e := &c.entries[pos]
	if !e.valid() {
		return 0, 0, nil, false
	}
	if wantSublen && e.length >= MinMatch && e.sublength[0] == 0 {
		return 0, 0, nil, false
	}
	// A cached entry was always computed at the maximum limit (MaxMatch or
	// input-bound); it is reusable for any requested limit <= that.
	cachedLen := int(e.length)
	if cachedLen > limit {
		cachedLen = limit
	}
	if wantSublen {
		s := &Sublen{}
		expandSublen(e, s)
		return cachedLen, int(e.distance), s, true
	}
	return cachedLen, int(e.distance), nil, true
}

// Store records a match search result at pos, compressing the sublen table
// to at most CacheLength break points.
func (c *LongestMatchCache) Store(pos, limit, length, distance int, sublen *Sublen) {
	if pos < 0 || pos >= len(c.entries) {
		return
	}
	e := &c.entries[pos]
	e.length = uint16(length)
	e.distance = uint16(distance)
	for i := range e.sublength {
		e.sublength[i] = 0
	}
	if sublen == nil {
		return
	}
	// Walk the sublen table and record up to CacheLength points at which
	// the best distance changes, each extended to the last length sharing
	// its distance; lengths past the CacheLength-th distance are dropped.
	n := 0
	var lastDist uint32
	for l := MinMatch; l <= length && l <= MaxMatch; l++ {
		d := sublen[l]
		if d == 0 {
			continue
		}
		if d != lastDist {
			if n >= CacheLength {
				break
			}
			e.sublength[n*2] = uint16(l)
			e.sublength[n*2+1] = uint16(d)
			n++
			lastDist = d
		} else if n > 0 {
			e.sublength[(n-1)*2] = uint16(l)
		}
	}
}

// expandSublen reconstructs a monotone Sublen table from the compressed
// break-point representation.
func expandSublen(e *cacheEntry, s *Sublen) {
	prevLen := MinMatch - 1
	var dist uint16
	for i := 0; i < CacheLength; i++ {
		brk := int(e.sublength[i*2])
		d := e.sublength[i*2+1]
		if brk == 0 {
			break
		}
		for l := prevLen + 1; l <= brk && l <= MaxMatch; l++ {
			s[l] = uint32(d)
		}
		prevLen = brk
		dist = d
	}
	_ = dist
}
