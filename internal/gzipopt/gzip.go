// Package gzipopt re-deflates the payload of a GZIP (RFC 1952) file,
// treating the envelope itself as an external collaborator: envelope
// framing and CRC/Adler checksum computation stay out of scope for the
// core encoder. This package is the thin envelope-handling layer that
// calls into internal/deflate for the actual recompression, decoding the
// existing stream with klauspost/compress/gzip rather than stdlib
// compress/gzip.
package gzipopt

import (
	"bytes"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/gzip"

	"github.com/go-condense/condense/internal/deflate"
)

// Optimize decodes a GZIP file's header and payload, re-deflates the
// payload with internal/deflate, and re-wraps it with the original
// header's modification time, OS byte, and name/comment fields preserved.
func Optimize(gzipBytes []byte, level deflate.Options) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(gzipBytes))
	if err != nil {
		return nil, fmt.Errorf("gzipopt: %w", err)
	}
	var payload bytes.Buffer
	if _, err := payload.ReadFrom(zr); err != nil {
		return nil, fmt.Errorf("gzipopt: decompressing: %w", err)
	}
	header := zr.Header
	zr.Close()

	compressed := deflate.Compress(payload.Bytes(), level)
	crc := crc32.ChecksumIEEE(payload.Bytes())
	return assembleGzip(header, compressed, crc, uint32(payload.Len())), nil
}

// assembleGzip builds a complete GZIP byte stream from a parsed header, an
// already-deflated body, and the trailer fields RFC 1952 requires (CRC-32
// and the uncompressed size mod 2^32).
func assembleGzip(h gzip.Header, deflated []byte, crc uint32, isize uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x1f)
	buf.WriteByte(0x8b)
	buf.WriteByte(8) // CM = deflate

	flg := byte(0)
	if h.Name != "" {
		flg |= 1 << 3
	}
	if h.Comment != "" {
		flg |= 1 << 4
	}
	if h.Extra != nil {
		flg |= 1 << 2
	}
	buf.WriteByte(flg)

	mtime := uint32(h.ModTime.Unix())
	if h.ModTime.IsZero() {
		mtime = 0
	}
	buf.WriteByte(byte(mtime))
	buf.WriteByte(byte(mtime >> 8))
	buf.WriteByte(byte(mtime >> 16))
	buf.WriteByte(byte(mtime >> 24))

	buf.WriteByte(0) // XFL
	buf.WriteByte(h.OS)

	if h.Extra != nil {
		buf.WriteByte(byte(len(h.Extra)))
		buf.WriteByte(byte(len(h.Extra) >> 8))
		buf.Write(h.Extra)
	}
	if h.Name != "" {
		buf.WriteString(h.Name)
		buf.WriteByte(0)
	}
	if h.Comment != "" {
		buf.WriteString(h.Comment)
		buf.WriteByte(0)
	}

	buf.Write(deflated)

	buf.WriteByte(byte(crc))
	buf.WriteByte(byte(crc >> 8))
	buf.WriteByte(byte(crc >> 16))
	buf.WriteByte(byte(crc >> 24))
	buf.WriteByte(byte(isize))
	buf.WriteByte(byte(isize >> 8))
	buf.WriteByte(byte(isize >> 16))
	buf.WriteByte(byte(isize >> 24))
	return buf.Bytes()
}
