package jpegopt

import (
	"bytes"
	"testing"
)

// minimalJPEG builds a tiny synthetic JPEG-shaped byte stream: SOI, an
// APP0/JFIF marker, a COM marker, a fake SOS with inline scan bytes
// (including a byte-stuffed 0xFF00 and a restart marker to exercise
// findScanEnd), and EOI. It is not a decodable image — StripMetadata only
// needs valid marker framing, not valid entropy-coded content.
func minimalJPEG() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8}) // SOI

	buf.Write([]byte{0xff, 0xe0, 0x00, 0x10}) // APP0, length 16 (incl. length bytes)
	buf.Write([]byte("JFIF\x00"))
	buf.Write(make([]byte, 9))

	buf.Write([]byte{0xff, 0xfe, 0x00, 0x06}) // COM, length 6 (2 length bytes + 4 payload)
	buf.Write([]byte("hi"))
	buf.Write([]byte{0, 0})

	buf.Write([]byte{0xff, 0xda, 0x00, 0x04, 0x00, 0x00}) // SOS, length 4, 2 dummy bytes
	buf.Write([]byte{0x12, 0xff, 0x00, 0x34, 0xff, 0xd0, 0x56}) // scan data w/ stuffed FF and RST0
	buf.Write([]byte{0xff, 0xd9})                              // EOI

	return buf.Bytes()
}

func TestStripMetadata_RejectsNonJPEG(t *testing.T) {
	_, err := StripMetadata([]byte("not a jpeg"), Options{})
	if err != ErrNotJPEG {
		t.Fatalf("got err = %v, want ErrNotJPEG", err)
	}
}

func TestStripMetadata_NoOpByDefault(t *testing.T) {
	input := minimalJPEG()
	out, err := StripMetadata(input, Options{})
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Errorf("default Options should pass every marker through unchanged")
	}
}

func TestStripMetadata_StripsCOM(t *testing.T) {
	input := minimalJPEG()
	out, err := StripMetadata(input, Options{StripComments: true})
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if bytes.Contains(out, []byte("hi")) {
		t.Errorf("COM segment should have been stripped")
	}
	if !bytes.Contains(out, []byte("JFIF")) {
		t.Errorf("APP0/JFIF should be kept when StripComments is set without StripAPPn")
	}
}

func TestStripMetadata_StripsAPPnButKeepsJFIF(t *testing.T) {
	input := minimalJPEG()
	out, err := StripMetadata(input, Options{StripAPPn: true})
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !bytes.Contains(out, []byte("JFIF")) {
		t.Errorf("APP0/JFIF must be kept even with StripAPPn set")
	}
}

func TestStripMetadata_PreservesScanDataAndEOI(t *testing.T) {
	input := minimalJPEG()
	out, err := StripMetadata(input, Options{StripAPPn: true, StripComments: true})
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !bytes.HasSuffix(out, []byte{0xff, 0xd9}) {
		t.Errorf("output should still end with EOI")
	}
	if !bytes.Contains(out, []byte{0x12, 0xff, 0x00, 0x34, 0xff, 0xd0, 0x56}) {
		t.Errorf("scan data (including stuffed/restart bytes) should pass through unchanged")
	}
}

type recordingTranscoder struct{ called bool }

func (u *recordingTranscoder) Transcode(scan []byte) ([]byte, error) {
	u.called = true
	return scan, nil
}

func TestStripMetadata_InvokesTranscoder(t *testing.T) {
	input := minimalJPEG()
	tc := &recordingTranscoder{}
	_, err := StripMetadata(input, Options{Transcoder: tc})
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !tc.called {
		t.Error("Transcoder.Transcode was never invoked")
	}
}
