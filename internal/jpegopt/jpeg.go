// Package jpegopt handles the two JPEG-specific responsibilities the
// orchestrator delegates around the core DEFLATE engine: pruning optional
// metadata markers, and routing actual entropy re-coding to an external
// JPEG library. JPEG re-entropy-coding is a thin call into a JPEG library
// and stays out of core scope — this package only implements the
// marker-pruning half and defines the interface an external transcoder
// would satisfy.
package jpegopt

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var ErrNotJPEG = errors.New("jpegopt: missing JPEG SOI marker")

// Marker byte values relevant to metadata stripping.
const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerAPP0 = 0xe0
	markerAPPF = 0xef
	markerCOM  = 0xfe
)

// EntropyTranscoder is an interface injected at construction in place of
// a function-pointer callback. It stands in for a thin call into a JPEG
// library that performs lossless entropy re-coding (e.g. Huffman-table
// optimization, progressive/baseline conversion); this package ships no
// implementation — callers that have one wire it in via StripMetadata's
// transcoder hook.
type EntropyTranscoder interface {
	Transcode(scanData []byte) ([]byte, error)
}

// Options controls which metadata markers StripMetadata removes.
type Options struct {
	StripAPPn      bool // remove APPn (0xE0-0xEF) markers except APP0/JFIF
	StripComments  bool // remove COM markers
	KeepEXIF       bool // preserve APP1/EXIF even when StripAPPn is set
	Transcoder     EntropyTranscoder
}

// StripMetadata walks a JPEG byte stream marker-by-marker and removes
// optional segments per Options, passing scan data through unmodified
// (or through Transcoder, if supplied) and copying every other required
// marker (SOF, DHT, DQT, SOS, EOI) verbatim.
func StripMetadata(jpegBytes []byte, opt Options) ([]byte, error) {
	if len(jpegBytes) < 2 || jpegBytes[0] != 0xff || jpegBytes[1] != markerSOI {
		return nil, ErrNotJPEG
	}

	var out bytes.Buffer
	out.Write(jpegBytes[:2])
	pos := 2

	for pos < len(jpegBytes) {
		if jpegBytes[pos] != 0xff {
			// Stray byte inside what should be marker space; copy through.
			out.WriteByte(jpegBytes[pos])
			pos++
			continue
		}
		marker := jpegBytes[pos+1]
		if marker == 0x00 || marker == 0xff {
			out.Write(jpegBytes[pos : pos+2])
			pos += 2
			continue
		}
		if marker == markerEOI {
			out.Write(jpegBytes[pos : pos+2])
			pos += 2
			break
		}
		if marker == markerSOS {
			// Scan data runs from here to the next real marker (0xFF not
			// followed by 0x00 or another entropy-coded 0xFF..); copy
			// through unless a transcoder is configured.
			segLen := int(binary.BigEndian.Uint16(jpegBytes[pos+2 : pos+4]))
			sosEnd := pos + 2 + segLen
			scanStart := sosEnd
			scanEnd := findScanEnd(jpegBytes, scanStart)

			out.Write(jpegBytes[pos:scanStart])
			scanData := jpegBytes[scanStart:scanEnd]
			if opt.Transcoder != nil {
				transcoded, err := opt.Transcoder.Transcode(scanData)
				if err != nil {
					return nil, err
				}
				out.Write(transcoded)
			} else {
				out.Write(scanData)
			}
			pos = scanEnd
			continue
		}

		segLen := int(binary.BigEndian.Uint16(jpegBytes[pos+2 : pos+4]))
		segEnd := pos + 2 + segLen

		if opt.StripComments && marker == markerCOM {
			pos = segEnd
			continue
		}
		if opt.StripAPPn && marker >= markerAPP0 && marker <= markerAPPF {
			isJFIF := marker == markerAPP0
			isEXIF := marker == 0xe1 && opt.KeepEXIF
			if !isJFIF && !isEXIF {
				pos = segEnd
				continue
			}
		}

		out.Write(jpegBytes[pos:segEnd])
		pos = segEnd
	}
	return out.Bytes(), nil
}

// findScanEnd scans entropy-coded data for the next marker that is not a
// byte-stuffed 0xFF00 or a restart marker (0xFFD0-0xFFD7).
func findScanEnd(data []byte, start int) int {
	i := start
	for i+1 < len(data) {
		if data[i] == 0xff {
			next := data[i+1]
			if next == 0x00 {
				i += 2
				continue
			}
			if next >= 0xd0 && next <= 0xd7 {
				i += 2
				continue
			}
			return i
		}
		i++
	}
	return len(data)
}
