package pngopt

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestApplyUnapplyFilter_RoundTrip(t *testing.T) {
	const bpp = 4
	r := rand.New(rand.NewSource(1))
	rows := make([][]byte, 8)
	for i := range rows {
		row := make([]byte, 40)
		r.Read(row)
		rows[i] = row
	}

	for ft := 0; ft < numFilters; ft++ {
		var prev []byte
		for i, row := range rows {
			filtered := make([]byte, len(row))
			applyFilter(ft, row, prev, bpp, filtered)
			back := make([]byte, len(row))
			unapplyFilter(ft, filtered, prev, bpp, back)
			if !bytes.Equal(back, row) {
				t.Fatalf("filter %d, row %d: round trip mismatch", ft, i)
			}
			prev = row
		}
	}
}

func TestChooseFilters_Fixed(t *testing.T) {
	rows := [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	filtered, types := ChooseFilters(rows, 1, StrategyFixed, FilterUp, nil)
	for _, ft := range types {
		if ft != FilterUp {
			t.Errorf("StrategyFixed with FilterUp: got filter type %d, want %d", ft, FilterUp)
		}
	}
	if len(filtered) != len(rows)*(len(rows[0])+1) {
		t.Errorf("filtered length = %d, want %d", len(filtered), len(rows)*(len(rows[0])+1))
	}
}

func TestChooseFilters_MinSumPicksNoneForZeroRow(t *testing.T) {
	rows := [][]byte{make([]byte, 16)}
	_, types := ChooseFilters(rows, 4, StrategyMinSum, 0, nil)
	if types[0] != FilterNone {
		t.Errorf("an all-zero row should filter best with FilterNone, got %d", types[0])
	}
}

func TestChooseFilters_BruteForceFallsBackWithoutEstimator(t *testing.T) {
	rows := [][]byte{{10, 20, 30, 40, 50, 60, 70, 80}}
	// Should not panic even with a nil estimator.
	_, types := ChooseFilters(rows, 2, StrategyBruteForce, 0, nil)
	if len(types) != 1 {
		t.Fatalf("expected one filter type, got %d", len(types))
	}
}

func TestCleanAlpha_ZeroesRGBOnlyWhenFullyTransparent(t *testing.T) {
	// colorType 6 (truecolor+alpha), bpp 4: R G B A per pixel.
	rows := [][]byte{
		{10, 20, 30, 0, 40, 50, 60, 255},
	}
	CleanAlpha(rows, 6, 4)
	want := []byte{0, 0, 0, 0, 40, 50, 60, 255}
	if !bytes.Equal(rows[0], want) {
		t.Errorf("CleanAlpha: got %v, want %v", rows[0], want)
	}
}

func TestCleanAlpha_NoOpForOpaqueColorType(t *testing.T) {
	rows := [][]byte{{1, 2, 3}}
	orig := append([]byte(nil), rows[0]...)
	CleanAlpha(rows, 2, 3) // colorType 2 (truecolor, no alpha): no-op
	if !bytes.Equal(rows[0], orig) {
		t.Errorf("CleanAlpha should be a no-op for colorType without alpha")
	}
}

func TestDistinctBytes(t *testing.T) {
	if n := DistinctBytes([]byte{1, 1, 2, 2, 3}); n != 3 {
		t.Errorf("DistinctBytes = %d, want 3", n)
	}
}

func TestDistinctBigrams(t *testing.T) {
	// (1,2) and (2,1) alternate; no other pair ever appears.
	if n := DistinctBigrams([]byte{1, 2, 1, 2, 1, 2}); n != 2 {
		t.Errorf("DistinctBigrams = %d, want 2", n)
	}
}
