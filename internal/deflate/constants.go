package deflate

// RFC 1951 §3.2.5 length and distance code tables. These replace VP8L's
// plane-code distance table (teacher: internal/lossless/hashchain.go,
// CodeToPlane/DistanceToPlaneCode) with the fixed DEFLATE symbol alphabet:
// 256 literals + EOB(256) + 29 length codes (257..285), and 30 distance
// codes (0..29).
const (
	NumLiteralLengthSymbols = 288
	NumDistanceSymbols      = 32
	EndOfBlockSymbol        = 256
	MaxAllowedCodeLength    = 15
)

// lengthExtraBits[i] is the number of extra bits for length code 257+i.
var lengthExtraBits = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// lengthBase[i] is the smallest match length encoded by length code 257+i.
var lengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

// distanceExtraBits[i] is the number of extra bits for distance code i.
var distanceExtraBits = [30]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// distanceBase[i] is the smallest distance encoded by distance code i.
var distanceBase = [30]uint32{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
	8193, 12289, 16385, 24577,
}

// lengthToSymbolTable[length-3] gives the length symbol (257..285) for a
// match length in [3,258]. Built once at init as an inverse lookup of
// the length-code table, avoiding a linear scan per match.
var lengthToSymbolTable [MaxMatch - MinMatch + 1]uint16

func init() {
	for i := 0; i < 29; i++ {
		lo := int(lengthBase[i])
		hi := lo + (1 << lengthExtraBits[i]) - 1
		if i == 28 {
			hi = MaxMatch
		}
		for l := lo; l <= hi && l <= MaxMatch; l++ {
			lengthToSymbolTable[l-MinMatch] = uint16(257 + i)
		}
	}
}

// LengthSymbol returns the length symbol (257..285) for a match length.
func LengthSymbol(length int) int {
	return int(lengthToSymbolTable[length-MinMatch])
}

// LengthExtraBitsValue returns the number of extra bits and their value for the
// given match length.
func LengthExtraBitsValue(length int) (nbits int, value uint32) {
	sym := LengthSymbol(length) - 257
	nbits = int(lengthExtraBits[sym])
	value = uint32(length) - uint32(lengthBase[sym])
	return
}

// distSymbolLUT maps the low 256 distances directly; distances beyond that
// are resolved via distSymbolLUTHigh indexed by (dist-1)>>7, mirroring
// zlib's classic _dist_code split table (small distances need per-value
// resolution, large ones only need 7 bits of precision once past code 16).
var distSymbolLUT [256]uint8
var distSymbolLUTHigh [256]uint8

func init() {
	sym := 0
	for d := 0; d < 256; d++ {
		for sym < 29 && int(distanceBase[sym+1]) <= d+1 {
			sym++
		}
		distSymbolLUT[d] = uint8(sym)
	}
	sym = 0
	for i := 0; i < 256; i++ {
		d := i << 7 // representative low end of the 128-wide bucket
		for sym < 29 && int(distanceBase[sym+1]) <= d+1 {
			sym++
		}
		distSymbolLUTHigh[i] = uint8(sym)
	}
}

// DistanceSymbol returns the distance code (0..29) for a back-reference
// distance in [1,32768].
func DistanceSymbol(dist int) int {
	d := dist - 1
	if d < 256 {
		return int(distSymbolLUT[d])
	}
	return int(distSymbolLUTHigh[d>>7])
}

// DistanceExtraBitsValue returns the extra-bit count and value for dist.
func DistanceExtraBitsValue(dist int) (nbits int, value uint32) {
	sym := DistanceSymbol(dist)
	nbits = int(distanceExtraBits[sym])
	value = uint32(dist) - distanceBase[sym]
	return
}
