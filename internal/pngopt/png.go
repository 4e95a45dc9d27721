package pngopt

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/go-condense/condense/internal/deflate"
)

// Options configures one Optimize call.
type Options struct {
	Level       deflate.Options
	Strategy    Strategy
	FixedFilter int
	Genetic     *GeneticConfig // non-nil selects the genetic strategy
	CleanAlpha  bool           // opt-in transparent-pixel cleaning
	PaletteSort PaletteSortOrder
	Strip       bool // drop ancillary chunks, as optipng's -strip does

	// FullEstimate ranks brute-force filter candidates with a full deflate
	// pass at Level instead of the cheap quickEstimatorOptions probe.
	FullEstimate bool
}

// ancillaryChunkTypes lists the chunk types Strip removes: textual, color
// management, and timestamp metadata that decoders may ignore, matching
// optipng's -strip semantics.
var ancillaryChunkTypes = map[[4]byte]bool{
	{'t', 'E', 'X', 't'}: true,
	{'z', 'T', 'X', 't'}: true,
	{'i', 'T', 'X', 't'}: true,
	{'g', 'A', 'M', 'A'}: true,
	{'c', 'H', 'R', 'M'}: true,
	{'s', 'R', 'G', 'B'}: true,
	{'i', 'C', 'C', 'P'}: true,
	{'b', 'K', 'G', 'D'}: true,
	{'p', 'H', 'Y', 's'}: true,
	{'s', 'B', 'I', 'T'}: true,
	{'h', 'I', 'S', 'T'}: true,
	{'t', 'I', 'M', 'E'}: true,
}

// stripAncillary removes chunks in ancillaryChunkTypes, keeping IHDR, PLTE,
// tRNS, IDAT, and IEND (and any chunk type not in the strip list) untouched.
func stripAncillary(chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if ancillaryChunkTypes[c.Type] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// DefaultOptions returns a reasonable Optimize configuration at the given
// compression level.
func DefaultOptions(level int) Options {
	return Options{
		Level:    deflate.DefaultOptions(level),
		Strategy: StrategyEntropy,
	}
}

// Optimize parses chunks, re-filters and re-deflates the IDAT stream,
// optionally reduces the color model, and returns the rebuilt PNG byte
// stream. It does not compare that stream with the input; callers comparing
// lengths decide whether the attempt actually shrank.
//
// Scope: 8-bit-depth, non-interlaced scanlines are fully re-filtered and
// re-deflated; other bit depths/interlacing are deflate-recoded in place
// (same filter bytes, stronger Huffman/LZ77) without the filter-chooser or
// color-model passes, since the per-row predictor math above assumes an
// 8-bit channel ("clean" scanline bytes).
func Optimize(pngBytes []byte, opt Options) ([]byte, error) {
	chunks, err := ParseChunks(pngBytes)
	if err != nil {
		return nil, fmt.Errorf("pngopt: %w", err)
	}
	if opt.Strip {
		chunks = stripAncillary(chunks)
	}

	var ihdrChunk *Chunk
	for i := range chunks {
		if chunks[i].Type == [4]byte{'I', 'H', 'D', 'R'} {
			ihdrChunk = &chunks[i]
			break
		}
	}
	if ihdrChunk == nil {
		return nil, ErrMissingIHDR
	}
	ihdr, err := ParseIHDR(ihdrChunk.Payload)
	if err != nil {
		return nil, err
	}

	rawIDAT := CollectIDAT(chunks)
	if len(rawIDAT) == 0 {
		return nil, ErrMissingIDAT
	}

	zr, err := zlib.NewReader(bytes.NewReader(rawIDAT))
	if err != nil {
		return nil, fmt.Errorf("pngopt: inflating IDAT: %w", err)
	}
	var scanlines bytes.Buffer
	if _, err := scanlines.ReadFrom(zr); err != nil {
		return nil, fmt.Errorf("pngopt: inflating IDAT: %w", err)
	}
	zr.Close()

	var newIDAT, plte, trns []byte
	newIHDR := ihdr
	colorModelChanged := false
	if ihdr.BitDepth == 8 && ihdr.InterlaceMethod == 0 {
		newIDAT, newIHDR, plte, trns, colorModelChanged, err = reencodeScanlines(scanlines.Bytes(), ihdr, opt)
	} else {
		newIDAT, err = redeflateOnly(scanlines.Bytes(), opt.Level)
	}
	if err != nil {
		return nil, err
	}

	// colorModelInvalidated lists the chunk types that describe samples in
	// the old color model and must be dropped when the model changes: a
	// PLTE/tRNS/bKGD/hIST/sBIT left over from the original truecolor or
	// indexed layout would no longer describe the re-encoded samples.
	colorModelInvalidated := map[[4]byte]bool{
		{'P', 'L', 'T', 'E'}: true,
		{'t', 'R', 'N', 'S'}: true,
		{'b', 'K', 'G', 'D'}: true,
		{'h', 'I', 'S', 'T'}: true,
		{'s', 'B', 'I', 'T'}: true,
	}

	out := make([]Chunk, 0, len(chunks)+2)
	wroteIDAT := false
	for _, c := range chunks {
		switch {
		case c.Type == [4]byte{'I', 'H', 'D', 'R'}:
			out = append(out, Chunk{Type: c.Type, Payload: newIHDR.Encode()})
			if colorModelChanged {
				if plte != nil {
					out = append(out, Chunk{Type: [4]byte{'P', 'L', 'T', 'E'}, Payload: plte})
				}
				if trns != nil {
					out = append(out, Chunk{Type: [4]byte{'t', 'R', 'N', 'S'}, Payload: trns})
				}
			}
		case colorModelChanged && colorModelInvalidated[c.Type]:
			continue
		case c.Type == [4]byte{'I', 'D', 'A', 'T'}:
			if wroteIDAT {
				continue // collapse multiple IDAT chunks into one
			}
			out = append(out, Chunk{Type: c.Type, Payload: newIDAT})
			wroteIDAT = true
		default:
			out = append(out, c)
		}
	}
	return WriteChunks(out), nil
}

// reencodeScanlines unpacks filter bytes, reduces the color model when a
// narrower one wins, re-chooses filters per opt.Strategy over whichever
// model was kept, then re-deflates with internal/deflate. changed reports
// whether the color model was narrowed, in which case newIHDR/plte/trns
// describe the new IHDR fields and palette/transparency chunks the caller
// must splice in.
func reencodeScanlines(raw []byte, ihdr IHDR, opt Options) (idat []byte, newIHDR IHDR, plte, trns []byte, changed bool, err error) {
	bpp := ihdr.BytesPerPixel()
	rowBytes := ihdr.BytesPerRow()
	height := int(ihdr.Height)
	stride := rowBytes + 1

	if len(raw) < stride*height {
		return nil, ihdr, nil, nil, false, ErrTruncated
	}

	rows := make([][]byte, height)
	var prev []byte
	for y := 0; y < height; y++ {
		filtered := raw[y*stride+1 : y*stride+stride]
		filterType := int(raw[y*stride])
		row := make([]byte, rowBytes)
		unapplyFilter(filterType, filtered, prev, bpp, row)
		rows[y] = row
		prev = row
	}

	if opt.CleanAlpha {
		CleanAlpha(rows, ihdr.ColorType, bpp)
	}

	estimatorOpts := quickEstimatorOptions()
	if opt.FullEstimate {
		estimatorOpts = opt.Level
	}
	estimate := func(data []byte) int {
		return len(deflate.Compress(data, estimatorOpts))
	}

	newIHDR = ihdr
	if reducedRows, reducedIHDR, reducedPLTE, reducedTRNS, ok := reduceColorModel(rows, ihdr, opt, estimate); ok {
		rows = reducedRows
		newIHDR = reducedIHDR
		plte, trns = reducedPLTE, reducedTRNS
		changed = true
		bpp = newIHDR.BytesPerPixel()
	}

	var newFiltered []byte
	if opt.Genetic != nil {
		newFiltered, _ = ChooseFiltersGenetic(rows, bpp, *opt.Genetic, estimate)
	} else {
		newFiltered, _ = ChooseFilters(rows, bpp, opt.Strategy, opt.FixedFilter, estimate)
	}

	idat, err = zlibWrap(newFiltered, opt.Level)
	return idat, newIHDR, plte, trns, changed, err
}

// redeflateOnly re-deflates an already-filtered scanline stream without
// touching filter bytes, used for bit depths the filter chooser does not
// support.
func redeflateOnly(raw []byte, level deflate.Options) ([]byte, error) {
	return zlibWrap(raw, level)
}

// quickEstimatorOptions returns a cheap, low-iteration configuration used
// only to rank filter/color-model candidates by estimated size — a cheap
// deflate at level 3, not the final emission.
func quickEstimatorOptions() deflate.Options {
	o := deflate.DefaultOptions(3)
	o.Multithreading = 1
	return o
}

// zlibWrap deflates `data` with internal/deflate and wraps it in a zlib
// container (2-byte header + Adler-32 trailer), matching PNG's
// zlib-wrapped IDAT requirement.
func zlibWrap(data []byte, level deflate.Options) ([]byte, error) {
	body := deflate.Compress(data, level)

	var buf bytes.Buffer
	buf.WriteByte(0x78) // CMF: deflate, 32K window
	buf.WriteByte(0x9c) // FLG: default compression, no dict, valid checksum
	buf.Write(body)

	adler := adler32Checksum(data)
	buf.WriteByte(byte(adler >> 24))
	buf.WriteByte(byte(adler >> 16))
	buf.WriteByte(byte(adler >> 8))
	buf.WriteByte(byte(adler))
	return buf.Bytes(), nil
}
