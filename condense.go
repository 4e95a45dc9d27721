// Package condense implements a lossless file-size optimizer for
// DEFLATE-based container formats: PNG, GZIP, and ZIP are fully
// re-encoded; JPEG is handled at the envelope level (metadata pruning
// only — entropy re-coding stays an external-collaborator concern).
//
// Optimize never changes a container's decoded semantics, with one
// explicit opt-in exception: Options.PNGCleanAlpha may rewrite the color
// channels of fully-transparent PNG pixels, which are invisible under
// any standard alpha-compositing rule but are not byte-identical to the
// input.
package condense

import (
	"bytes"
	"fmt"

	"github.com/go-condense/condense/internal/gzipopt"
	"github.com/go-condense/condense/internal/jpegopt"
	"github.com/go-condense/condense/internal/pngopt"
	"github.com/go-condense/condense/internal/zipopt"
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

// detectFormat sniffs a container format from its magic bytes, the same
// approach image.RegisterFormat's sniff hooks rely on.
func detectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(data, gzipMagic):
		return FormatGZIP
	case bytes.HasPrefix(data, zipMagic):
		return FormatZIP
	case bytes.HasPrefix(data, jpegMagic):
		return FormatJPEG
	default:
		return FormatUnknown
	}
}

// Optimize re-encodes input, returning a byte-for-byte
// losslessly-equivalent (see package doc for the one opt-in exception)
// but smaller-or-equal-sized output. When the optimized form is not
// smaller than the input, Optimize returns the original bytes and an
// error wrapping ErrOutputNotSmaller — callers that only want the bytes
// when they shrank should check for that error.
func Optimize(input []byte, opt Options) ([]byte, error) {
	return OptimizeFormat(input, detectFormat(input), opt)
}

// OptimizeFormat behaves like Optimize but trusts the caller's format
// instead of sniffing magic bytes — for callers (such as the CLI's -zip
// and -gzip flags) that already know a file's true container format and
// want to bypass extension/content sniffing.
func OptimizeFormat(input []byte, format Format, opt Options) ([]byte, error) {
	var out []byte
	var err error

	switch format {
	case FormatPNG:
		out, err = pngopt.Optimize(input, opt.pngOptions())
	case FormatGZIP:
		out, err = gzipopt.Optimize(input, opt.deflateOptions())
	case FormatZIP:
		out, err = zipOptimize(input, opt)
	case FormatJPEG:
		out, err = jpegopt.StripMetadata(input, jpegOptionsFrom(opt))
	default:
		return nil, newError(KindUnsupported, "", fmt.Errorf("%w: unrecognized container format", ErrUnsupported))
	}

	if err != nil {
		return nil, newError(kindFromFormatError(format, err), "", err)
	}

	if len(out) >= len(input) {
		return input, newError(KindOutputNotSmaller, "", ErrOutputNotSmaller)
	}
	return out, nil
}

// zipOptimize wraps internal/zipopt, optionally recursing into nested
// archive entries per Options.Recurse by sniffing each entry's content
// rather than trusting its file extension, the way leanify recurses into
// nested archives.
func zipOptimize(input []byte, opt Options) ([]byte, error) {
	if !opt.Recurse {
		return zipopt.Optimize(input, opt.deflateOptions())
	}
	recurse := func(entry []byte) []byte {
		optimized, err := Optimize(entry, opt)
		if err != nil {
			return entry
		}
		return optimized
	}
	return zipopt.OptimizeWithRecurse(input, opt.deflateOptions(), recurse)
}

func jpegOptionsFrom(opt Options) jpegopt.Options {
	return jpegopt.Options{
		StripAPPn:     opt.Strip,
		StripComments: opt.Strip,
	}
}

func kindFromFormatError(format Format, err error) ErrorKind {
	switch format {
	case FormatUnknown:
		return KindUnsupported
	default:
		return kindForSentinel(err)
	}
}
