package condense

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-condense/condense/internal/pngopt"
)

// buildTestPNG assembles a minimal valid 8-bit truecolor PNG: an IHDR, one
// zlib-wrapped IDAT holding filter-type-0 scanlines, and IEND — just enough
// structure for pngopt.Optimize to exercise its full inflate → re-filter →
// re-deflate → rebuild path.
func buildTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	ihdr := pngopt.IHDR{Width: uint32(width), Height: uint32(height), BitDepth: 8, ColorType: 2}

	raw := make([]byte, 0, height*(1+width*3))
	for y := 0; y < height; y++ {
		raw = append(raw, 0) // filter type None
		for x := 0; x < width; x++ {
			raw = append(raw, byte(x), byte(y), byte(x+y))
		}
	}

	idat := zlibWrapForTest(t, raw)
	chunks := []pngopt.Chunk{
		{Type: [4]byte{'I', 'H', 'D', 'R'}, Payload: ihdr.Encode()},
		{Type: [4]byte{'I', 'D', 'A', 'T'}, Payload: idat},
		{Type: [4]byte{'I', 'E', 'N', 'D'}},
	}
	return pngopt.WriteChunks(chunks)
}

func zlibWrapForTest(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, 0x78, 0x01) // CMF/FLG, fastest compression
	// A valid, if not optimal, zlib stream: store blocks are trivial to
	// hand-construct and pngopt.Optimize only requires a decodable stream.
	for off := 0; off < len(raw); {
		n := len(raw) - off
		final := byte(1)
		if n > 65535 {
			n = 65535
			final = 0
		}
		buf = append(buf, final)
		buf = append(buf, byte(n), byte(n>>8), byte(^uint16(n)), byte(^uint16(n)>>8))
		buf = append(buf, raw[off:off+n]...)
		off += n
	}
	adler := adler32For(raw)
	buf = append(buf, byte(adler>>24), byte(adler>>16), byte(adler>>8), byte(adler))
	return buf
}

func adler32For(data []byte) uint32 {
	const mod = 65521
	a, b := uint32(1), uint32(0)
	for _, c := range data {
		a = (a + uint32(c)) % mod
		b = (b + a) % mod
	}
	return b<<16 | a
}

func TestOptimize_PNGRoundTripKeepsValidStructure(t *testing.T) {
	input := buildTestPNG(t, 16, 16)

	out, err := Optimize(input, DefaultOptions(6))
	if err != nil {
		require.ErrorIs(t, err, ErrOutputNotSmaller, "Optimize failed for a reason other than not shrinking: %v", err)
		out = input
	}

	chunks, err := pngopt.ParseChunks(out)
	require.NoError(t, err, "optimized output must still be a valid PNG")
	require.NotEmpty(t, chunks, "must have at least one chunk")
	require.Equal(t, "IHDR", chunks[0].TypeString(), "first chunk must be IHDR")

	ihdr, err := pngopt.ParseIHDR(chunks[0].Payload)
	require.NoError(t, err)
	require.EqualValues(t, 16, ihdr.Width)
	require.EqualValues(t, 16, ihdr.Height)

	idat := pngopt.CollectIDAT(chunks)
	require.NotEmpty(t, idat, "optimized PNG must carry IDAT data")
}
