package deflate

import "github.com/go-condense/condense/internal/bitio"

// BlockWriter emits DEFLATE blocks onto a bit-accumulator writer:
// BFINAL(1) + BTYPE(2), then either a fixed-tree body or a serialized
// dynamic tree header followed by LZ77 symbols and the end-of-block code.
// Bit packing is LSB-first within each byte; Huffman codeword bits are
// MSB-of-codeword-first, which is why treeencoder.go's canonical codes
// are pre-reversed before being stored in HuffmanCode.Codes.
//
// Built on bitio.LosslessWriter, a 64-bit accumulator flushed 32 bits at a
// time in little-endian order. That writer is reused unmodified —
// DEFLATE's bit order (LSB-first) is the same convention it already
// implements, so only the caller here differs, not the underlying writer.
type BlockWriter struct {
	w         *bitio.LosslessWriter
	totalBits int
}

// NewBlockWriter wraps a fresh accumulator sized for expectedSize output
// bytes.
func NewBlockWriter(expectedSize int) *BlockWriter {
	return &BlockWriter{w: bitio.NewLosslessWriter(expectedSize)}
}

func (bw *BlockWriter) writeBits(v uint32, n int) {
	for n > 32 {
		bw.w.WriteBits(v&0xffffffff, 32)
		v >>= 32
		n -= 32
		bw.totalBits += 32
	}
	bw.w.WriteBits(v, n)
	bw.totalBits += n
}

// alignToByte pads with zero bits up to the next byte boundary, as
// required before a stored (BTYPE=0) block's LEN/NLEN header.
func (bw *BlockWriter) alignToByte() {
	if pad := bw.totalBits % 8; pad != 0 {
		bw.writeBits(0, 8-pad)
	}
}

// writeHuffmanSymbol writes one symbol's pre-reversed canonical codeword.
func (bw *BlockWriter) writeHuffmanSymbol(code *HuffmanCode, symbol int) {
	length := int(code.CodeLengths[symbol])
	bw.writeBits(uint32(code.Codes[symbol]), length)
}

// Finish flushes the accumulator and returns the encoded bytes.
func (bw *BlockWriter) Finish() []byte { return bw.w.Finish() }

// fixedLLCode and fixedDCode are RFC 1951 §3.2.6's fixed Huffman codes,
// built once at init via the same canonical-code machinery dynamic blocks
// use.
var fixedLLCode *HuffmanCode
var fixedDCode *HuffmanCode

func init() {
	lengths := make([]uint8, NumLiteralLengthSymbols)
	for i := 0; i < 144; i++ {
		lengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		lengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		lengths[i] = 7
	}
	for i := 280; i < 288; i++ {
		lengths[i] = 8
	}
	fixedLLCode = &HuffmanCode{NumSymbols: NumLiteralLengthSymbols, CodeLengths: lengths, Codes: make([]uint16, NumLiteralLengthSymbols)}
	generateCanonicalHuffmanCodes(fixedLLCode)

	dLengths := make([]uint8, NumDistanceSymbols)
	for i := range dLengths {
		dLengths[i] = 5
	}
	fixedDCode = &HuffmanCode{NumSymbols: NumDistanceSymbols, CodeLengths: dLengths, Codes: make([]uint16, NumDistanceSymbols)}
	generateCanonicalHuffmanCodes(fixedDCode)
}

// EmitBlock writes one DEFLATE block's worth of tokens. isFinal sets
// BFINAL. useFixed selects BTYPE=1 (fixed Huffman) over BTYPE=2 (dynamic).
// When useFixed is false, llCode/dCode must already be built (via
// BuildAdvancedLengths or a direct package-merge call) from this block's
// own token stream.
func (bw *BlockWriter) EmitBlock(tokens []Token, isFinal bool, useFixed bool, llCode, dCode *HuffmanCode) {
	final := uint32(0)
	if isFinal {
		final = 1
	}
	bw.writeBits(final, 1)

	if useFixed {
		bw.writeBits(1, 2)
		bw.emitSymbols(tokens, fixedLLCode, fixedDCode)
		return
	}

	bw.writeBits(2, 2)
	// Give the distance code at least two non-zero lengths before the header
	// is built, and derive the emitted codewords from those same lengths.
	nonZeroD := 0
	for _, l := range dCode.CodeLengths {
		if l > 0 {
			nonZeroD++
		}
	}
	if nonZeroD < 2 {
		patched := &HuffmanCode{NumSymbols: dCode.NumSymbols, CodeLengths: append([]uint8(nil), dCode.CodeLengths...), Codes: make([]uint16, len(dCode.Codes))}
		switch {
		case nonZeroD == 0:
			patched.CodeLengths[0], patched.CodeLengths[1] = 1, 1
		case patched.CodeLengths[0] == 0:
			patched.CodeLengths[0] = 1
		default:
			patched.CodeLengths[1] = 1
		}
		generateCanonicalHuffmanCodes(patched)
		dCode = patched
	}
	header := BuildTreeHeader(llCode.CodeLengths, dCode.CodeLengths)
	bw.writeBits(uint32(header.HLit-257), 5)
	bw.writeBits(uint32(header.HDist-1), 5)
	bw.writeBits(uint32(header.HCLen-4), 4)
	for i := 0; i < header.HCLen; i++ {
		bw.writeBits(uint32(header.CLCode.CodeLengths[clOrder[i]]), 3)
	}
	for _, t := range header.Tokens {
		bw.writeHuffmanSymbol(header.CLCode, int(t.Code))
		switch t.Code {
		case 16:
			bw.writeBits(uint32(t.ExtraBits), 2)
		case 17:
			bw.writeBits(uint32(t.ExtraBits), 3)
		case 18:
			bw.writeBits(uint32(t.ExtraBits), 7)
		}
	}
	bw.emitSymbols(tokens, llCode, dCode)
}

func (bw *BlockWriter) emitSymbols(tokens []Token, llCode, dCode *HuffmanCode) {
	for _, t := range tokens {
		if t.IsLiteral {
			bw.writeHuffmanSymbol(llCode, int(t.Literal))
			continue
		}
		sym := LengthSymbol(t.Length)
		bw.writeHuffmanSymbol(llCode, sym)
		nbits, value := LengthExtraBitsValue(t.Length)
		if nbits > 0 {
			bw.writeBits(value, nbits)
		}
		dsym := DistanceSymbol(t.Distance)
		bw.writeHuffmanSymbol(dCode, dsym)
		dnbits, dvalue := DistanceExtraBitsValue(t.Distance)
		if dnbits > 0 {
			bw.writeBits(dvalue, dnbits)
		}
	}
	bw.writeHuffmanSymbol(llCode, EndOfBlockSymbol)
}

// EmitStoredBlock writes an uncompressed (BTYPE=0) block, used when a
// master block is small or incompressible enough that both fixed and
// dynamic encodings would expand it. Data longer than 65535 bytes (the
// limit of the 16-bit LEN field) is written as consecutive stored blocks,
// only the last of which carries BFINAL.
func (bw *BlockWriter) EmitStoredBlock(data []byte, isFinal bool) {
	for {
		chunk := data
		if len(chunk) > 65535 {
			chunk = chunk[:65535]
		}
		data = data[len(chunk):]
		final := uint32(0)
		if isFinal && len(data) == 0 {
			final = 1
		}
		bw.writeBits(final, 1)
		bw.writeBits(0, 2)
		bw.alignToByte()

		length := len(chunk)
		bw.writeBits(uint32(length&0xff), 8)
		bw.writeBits(uint32((length>>8)&0xff), 8)
		nlen := ^uint16(length)
		bw.writeBits(uint32(nlen&0xff), 8)
		bw.writeBits(uint32((nlen>>8)&0xff), 8)
		for _, b := range chunk {
			bw.writeBits(uint32(b), 8)
		}
		if len(data) == 0 {
			return
		}
	}
}
