package deflate

import (
	"bytes"
	"compress/flate"
	"io"
	"math/rand"
	"strings"
	"testing"
)

// roundTrip compresses input at the given level and decodes the result
// with the standard library's RFC 1951 reader, the only independent check
// available without a reference encoder: any bitstream our own reader
// might accept could hide the same bug our own writer has, but
// compress/flate is a widely-used RFC 1951 implementation unrelated to
// this package's code.
func roundTrip(t *testing.T, input []byte, level int) {
	t.Helper()
	out := Compress(input, DefaultOptions(level))

	fr := flate.NewReader(bytes.NewReader(out))
	defer fr.Close()
	got, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("level %d: decoding compressed output: %v", level, err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("level %d: round trip mismatch: got %d bytes, want %d bytes", level, len(got), len(input))
	}
}

func TestCompress_RoundTrip_Empty(t *testing.T) {
	for level := 1; level <= 9; level++ {
		roundTrip(t, nil, level)
	}
}

func TestCompress_RoundTrip_Text(t *testing.T) {
	input := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200))
	for level := 1; level <= 9; level++ {
		roundTrip(t, input, level)
	}
}

func TestCompress_RoundTrip_Random(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	input := make([]byte, 17000)
	r.Read(input)
	for _, level := range []int{1, 3, 6, 9} {
		roundTrip(t, input, level)
	}
}

func TestCompress_RoundTrip_HighlyRepetitive(t *testing.T) {
	input := bytes.Repeat([]byte{0x42}, 1<<16)
	roundTrip(t, input, 9)
}

func TestCompress_RoundTrip_AcrossMasterBlockBoundary(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	input := make([]byte, 200000)
	r.Read(input)
	opt := DefaultOptions(6)
	opt.MasterBlockSize = 64 * 1024
	out := Compress(input, opt)

	fr := flate.NewReader(bytes.NewReader(out))
	defer fr.Close()
	got, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch across master-block boundaries")
	}
}

func TestCompress_RoundTrip_Multithreaded(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	input := make([]byte, 300000)
	r.Read(input)
	opt := DefaultOptions(3)
	opt.MasterBlockSize = 32 * 1024
	opt.Multithreading = 4
	out := Compress(input, opt)

	fr := flate.NewReader(bytes.NewReader(out))
	defer fr.Close()
	got, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch with multithreaded dispatch")
	}
}

func TestLevelFor_Clamps(t *testing.T) {
	if LevelFor(0) != LevelFor(1) {
		t.Errorf("LevelFor(0) should clamp to level 1")
	}
	if LevelFor(20) != LevelFor(9) {
		t.Errorf("LevelFor(20) should clamp to level 9")
	}
}
