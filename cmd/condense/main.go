// Command condense losslessly re-encodes PNG, GZIP, ZIP, and JPEG files to
// a smaller or equal size.
//
// Usage:
//
//	condense [options] <input> [<input> ...]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-condense/condense"
	"github.com/go-condense/condense/internal/pngopt"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "condense: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("condense", flag.ContinueOnError)
	level := fs.Int("level", 9, "compression level 1-9")
	strip := fs.Bool("strip", false, "strip optional metadata (PNG ancillary chunks, JPEG APPn/COM); GZIP header fields are always kept")
	progressive := fs.Bool("progressive", false, "re-encode JPEG as progressive where supported")
	recurse := fs.Bool("recurse", false, "recurse into nested archive entries inside ZIP files")
	zipOnly := fs.Bool("zip", false, "treat input as ZIP regardless of extension")
	gzipOnly := fs.Bool("gzip", false, "treat input as GZIP regardless of extension")
	quiet := fs.Bool("quiet", false, "suppress per-file progress output")
	strict := fs.Bool("strict", false, "exit non-zero if any input fails to shrink")
	allFilters := fs.Bool("allfilters", false, "try all 5 PNG filter types per row and keep the smallest (brute-force)")
	allFiltersB := fs.Bool("allfilters-b", false, "like -allfilters, but rank candidates with a full deflate pass at -level instead of a cheap estimate")
	palSort := fs.Int("pal_sort", -1, "PNG palette sort order: 0=none 1=popularity 2=rgb 3=yuv (-1=don't sort)")
	mtDeflate := fs.String("mt-deflate", "", "enable multithreaded DEFLATE master-block dispatch, optionally =N workers")
	arithmetic := fs.Bool("arithmetic", false, "reserved: arithmetic coding is out of scope, flag accepted for CLI parity")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("missing input file\nUsage: condense [options] <input> [<input> ...]")
	}
	if *arithmetic && !*quiet {
		fmt.Fprintln(os.Stderr, "condense: -arithmetic has no effect (arithmetic coding is out of scope)")
	}

	opt := condense.DefaultOptions(*level)
	opt.Strip = *strip
	opt.Progressive = *progressive
	opt.Recurse = *recurse

	switch {
	case *allFiltersB:
		// Ranks candidates with a full deflate pass at -level instead of
		// the cheap low-effort probe -allfilters uses, at higher cost.
		opt.PNGFilterStrategy = pngopt.StrategyBruteForce
		opt.PNGFullEstimate = true
	case *allFilters:
		opt.PNGFilterStrategy = pngopt.StrategyBruteForce
	}
	if *palSort >= 0 {
		opt.PNGPaletteSort = pngopt.PaletteSortOrder(*palSort)
	}
	if *mtDeflate != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(*mtDeflate, "="))
		if err != nil || n < 1 {
			n = 4
		}
		opt.Multithreading = n
	}

	var failed bool
	for _, path := range fs.Args() {
		if err := optimizeFile(path, opt, *quiet, *zipOnly, *gzipOnly); err != nil {
			if errors.Is(err, condense.ErrOutputNotSmaller) {
				if !*quiet {
					fmt.Fprintf(os.Stderr, "condense: %s: already optimal\n", path)
				}
				if *strict {
					failed = true
				}
				continue
			}
			fmt.Fprintf(os.Stderr, "condense: %s: %v\n", path, err)
			failed = true
			continue
		}
	}
	if failed {
		return errors.New("one or more inputs failed")
	}
	return nil
}

func optimizeFile(path string, opt condense.Options, quiet, zipOnly, gzipOnly bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var out []byte
	switch {
	case zipOnly:
		out, err = condense.OptimizeFormat(data, condense.FormatZIP, opt)
	case gzipOnly:
		out, err = condense.OptimizeFormat(data, condense.FormatGZIP, opt)
	default:
		out, err = condense.Optimize(data, opt)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}

	if !quiet {
		saved := len(data) - len(out)
		pct := 100 * float64(saved) / float64(len(data))
		fmt.Fprintf(os.Stderr, "%s: %d → %d bytes (-%.1f%%)\n", filepath.Base(path), len(data), len(out), pct)
	}
	return nil
}
