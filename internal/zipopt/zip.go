// Package zipopt re-deflates the individual compressed entries of a ZIP
// (PKWARE APPNOTE) archive, leaving directory structure, entry names, and
// timestamps untouched. ZIP envelope framing stays an external concern;
// this package only feeds deflate streams to the core encoder and splices
// the recompressed bytes back into each entry. Existing Deflate entries
// are decoded with klauspost/compress/flate, registered on the
// archive/zip reader in place of its stdlib compress/flate decompressor.
package zipopt

import (
	"archive/zip"
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/go-condense/condense/internal/deflate"
)

// Optimize reads every entry of a ZIP archive, re-deflates any entry using
// method 8 (deflate), and rewrites the archive with the re-deflated streams
// (entries already stored, or using another compression method, are
// copied through unchanged). Each re-deflated stream replaces the original
// without a per-entry size comparison. Equivalent to OptimizeWithRecurse(zipBytes,
// level, nil).
func Optimize(zipBytes []byte, level deflate.Options) ([]byte, error) {
	return OptimizeWithRecurse(zipBytes, level, nil)
}

// OptimizeWithRecurse behaves like Optimize, but additionally passes each
// Deflate entry's decompressed bytes through recurse (when non-nil) before
// re-deflating — leanify-style nested-archive recursion, letting a caller
// re-optimize a PNG/GZIP/ZIP file stored inside this ZIP archive by
// content sniffing rather than by file extension. recurse
// should return its input unchanged if the entry is not itself a
// recognized container, or if re-optimizing it did not help.
func OptimizeWithRecurse(zipBytes []byte, level deflate.Options, recurse func([]byte) []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("zipopt: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			if err := copyEntryRaw(zw, f); err != nil {
				return nil, err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("zipopt: opening %s: %w", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("zipopt: reading %s: %w", f.Name, err)
		}

		if recurse != nil {
			raw = recurse(raw)
		}

		compressed := deflate.Compress(raw, level)

		hdr := f.FileHeader
		hdr.Method = zip.Deflate
		hdr.CRC32 = crc32.ChecksumIEEE(raw)
		hdr.CompressedSize64 = uint64(len(compressed))
		hdr.UncompressedSize64 = uint64(len(raw))
		w, err := zw.CreateRaw(&hdr)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(compressed); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// copyEntryRaw passes a non-deflate entry through byte-for-byte using the
// archive/zip raw-write path, so stored or otherwise-encoded entries are
// never touched.
func copyEntryRaw(zw *zip.Writer, f *zip.File) error {
	rc, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("zipopt: opening raw %s: %w", f.Name, err)
	}
	raw, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("zipopt: reading raw %s: %w", f.Name, err)
	}
	w, err := zw.CreateRaw(&f.FileHeader)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}
