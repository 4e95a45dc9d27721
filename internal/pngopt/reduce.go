package pngopt

// reduceColorModel analyzes a truecolor (ColorType 2 or 6) image's decoded
// rows and, when ReduceColorModel's decision rule picks a narrower model,
// returns the re-encoded rows in that model plus the IHDR/PLTE/tRNS changes
// needed to make it valid. applied is false when the original model already
// won (grayscale/indexed inputs are left to the caller untouched, since this
// reducer only ever widens scope down from truecolor).
func reduceColorModel(rows [][]byte, ihdr IHDR, opt Options, estimate DeflateEstimator) (newRows [][]byte, newIHDR IHDR, plte, trns []byte, applied bool) {
	var channels int
	switch ihdr.ColorType {
	case 2:
		channels = 3
	case 6:
		channels = 4
	default:
		return nil, ihdr, nil, nil, false
	}
	width, height := int(ihdr.Width), int(ihdr.Height)
	if width == 0 || height == 0 || len(rows) != height {
		return nil, ihdr, nil, nil, false
	}

	pixels := rowsToRGBA(rows, width, channels)
	analysis := AnalyzeColors(pixels)

	raw := make([]byte, 0, height*len(rows[0]))
	for _, r := range rows {
		raw = append(raw, r...)
	}
	model := ReduceColorModel(analysis, estimate(raw))

	newIHDR = ihdr
	switch model {
	case ModelPalette:
		palette, counts := analysis.Palette, analysis.Counts
		if opt.PaletteSort != SortNone {
			palette, _ = SortPalette(palette, counts, opt.PaletteSort, opt.PaletteSort == SortPopularity)
		}
		colorToIndex := make(map[RGBA]int, len(palette))
		for i, c := range palette {
			colorToIndex[c] = i
		}
		newIHDR.ColorType = 3
		newIHDR.BitDepth = uint8(analysis.MinBitDepth)
		newRows = packIndexRows(pixels, width, height, colorToIndex, analysis.MinBitDepth)
		plte = buildPLTE(palette)
		trns = buildTRNS(palette)
		applied = true
	case ModelGrayscale:
		newIHDR.ColorType = 0
		newIHDR.BitDepth = 8
		newRows = packGrayRows(pixels, width, height)
		applied = true
	case ModelGrayscaleAlpha:
		newIHDR.ColorType = 4
		newIHDR.BitDepth = 8
		newRows = packGrayAlphaRows(pixels, width, height)
		applied = true
	case ModelColorKey:
		newIHDR.ColorType = 2
		newIHDR.BitDepth = 8
		newRows = packRGBRows(pixels, width, height)
		k := analysis.ColorKey
		trns = []byte{0, k.R, 0, k.G, 0, k.B}
		applied = true
	default:
		return nil, ihdr, nil, nil, false
	}
	return newRows, newIHDR, plte, trns, applied
}

// rowsToRGBA flattens unfiltered scanline rows into one pixel slice,
// channels being 3 (ColorType 2) or 4 (ColorType 6) 8-bit samples/pixel.
func rowsToRGBA(rows [][]byte, width, channels int) []RGBA {
	out := make([]RGBA, 0, len(rows)*width)
	for _, row := range rows {
		for x := 0; x < width; x++ {
			switch channels {
			case 3:
				i := x * 3
				out = append(out, RGBA{row[i], row[i+1], row[i+2], 255})
			case 4:
				i := x * 4
				out = append(out, RGBA{row[i], row[i+1], row[i+2], row[i+3]})
			}
		}
	}
	return out
}

// packIndexRows maps each pixel to its palette index and bit-packs the
// indices into scanlines at bitDepth (1, 2, 4, or 8), MSB-first, matching
// PNG's indexed-color scanline layout.
func packIndexRows(pixels []RGBA, width, height int, colorToIndex map[RGBA]int, bitDepth int) [][]byte {
	rowBytes := (width*bitDepth + 7) / 8
	rows := make([][]byte, height)
	for y := 0; y < height; y++ {
		row := make([]byte, rowBytes)
		for x := 0; x < width; x++ {
			idx := byte(colorToIndex[pixels[y*width+x]])
			switch bitDepth {
			case 8:
				row[x] = idx
			case 4:
				row[x/2] |= idx << uint(4-4*(x%2))
			case 2:
				row[x/4] |= idx << uint(6-2*(x%4))
			case 1:
				row[x/8] |= idx << uint(7-x%8)
			}
		}
		rows[y] = row
	}
	return rows
}

func packGrayRows(pixels []RGBA, width, height int) [][]byte {
	rows := make([][]byte, height)
	for y := 0; y < height; y++ {
		row := make([]byte, width)
		for x := 0; x < width; x++ {
			row[x] = pixels[y*width+x].R
		}
		rows[y] = row
	}
	return rows
}

func packGrayAlphaRows(pixels []RGBA, width, height int) [][]byte {
	rows := make([][]byte, height)
	for y := 0; y < height; y++ {
		row := make([]byte, width*2)
		for x := 0; x < width; x++ {
			p := pixels[y*width+x]
			row[2*x], row[2*x+1] = p.R, p.A
		}
		rows[y] = row
	}
	return rows
}

func packRGBRows(pixels []RGBA, width, height int) [][]byte {
	rows := make([][]byte, height)
	for y := 0; y < height; y++ {
		row := make([]byte, width*3)
		for x := 0; x < width; x++ {
			p := pixels[y*width+x]
			row[3*x], row[3*x+1], row[3*x+2] = p.R, p.G, p.B
		}
		rows[y] = row
	}
	return rows
}
