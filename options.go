package condense

import (
	"github.com/go-condense/condense/internal/deflate"
	"github.com/go-condense/condense/internal/pngopt"
)

// Format identifies which container an input byte stream holds, detected
// by Optimize via magic-byte sniffing (see detectFormat in condense.go).
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatGZIP
	FormatZIP
	FormatJPEG
)

// Options configures one Optimize call, composed from each
// format-specific sub-package's own Options, the way an encoder's
// top-level Options composes sub-configs (filter strategy, search
// strategy, recursion...) into a single struct passed down the stack.
type Options struct {
	// Level selects the DEFLATE compression effort, 1 (fastest) through 9
	// (most thorough), mirroring gwebp's -m flag.
	Level int

	// Strip removes optional/ancillary metadata: PNG ancillary chunks and
	// JPEG APPn/COM markers. GZIP header fields are always kept.
	Strip bool

	// Progressive requests JPEG progressive re-encoding where supported.
	// Has no effect on PNG/GZIP/ZIP inputs.
	Progressive bool

	// Recurse re-optimizes ZIP entries that are themselves PNG/GZIP/ZIP
	// files (by content sniffing, not just the .zip extension), matching
	// leanify's nested-archive recursion.
	Recurse bool

	// PNGFilterStrategy and PNGGenetic configure internal/pngopt's filter
	// chooser. PNGGenetic, if non-nil, takes precedence over
	// PNGFilterStrategy.
	PNGFilterStrategy pngopt.Strategy
	PNGFixedFilter    int
	PNGGenetic        *pngopt.GeneticConfig
	PNGPaletteSort    pngopt.PaletteSortOrder
	PNGCleanAlpha     bool

	// PNGFullEstimate switches the brute-force filter chooser's per-row
	// size probe from a cheap low-effort deflate pass to a full pass at
	// Level — slower, but ranks candidate filters by the same encoder
	// settings the final IDAT is written with.
	PNGFullEstimate bool

	// ReplaceCodesPasses bounds internal/deflate's post-parse
	// ReplaceBadCodes refinement iterations.
	ReplaceCodesPasses int

	// Multithreading sets the number of master-block workers; 0 means the
	// orchestrator's own default (GOMAXPROCS-bounded single worker set by
	// DefaultOptions).
	Multithreading int
}

// DefaultOptions returns Options for a given compression level (1-9),
// mirroring gwebp's preset-then-override construction.
func DefaultOptions(level int) Options {
	return Options{
		Level:              level,
		PNGFilterStrategy:  pngopt.StrategyEntropy,
		ReplaceCodesPasses: 1,
		Multithreading:     1,
	}
}

// deflateOptions builds the internal/deflate.Options this Options value
// implies.
func (o Options) deflateOptions() deflate.Options {
	d := deflate.DefaultOptions(o.Level)
	d.ReplaceCodesPasses = o.ReplaceCodesPasses
	if o.Multithreading > 0 {
		d.Multithreading = o.Multithreading
	}
	return d
}

// pngOptions builds the internal/pngopt.Options this Options value
// implies.
func (o Options) pngOptions() pngopt.Options {
	p := pngopt.DefaultOptions(o.Level)
	p.Level = o.deflateOptions()
	p.Strategy = o.PNGFilterStrategy
	p.FixedFilter = o.PNGFixedFilter
	p.Genetic = o.PNGGenetic
	p.CleanAlpha = o.PNGCleanAlpha
	p.PaletteSort = o.PNGPaletteSort
	p.Strip = o.Strip
	p.FullEstimate = o.PNGFullEstimate
	return p
}
