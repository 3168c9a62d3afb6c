package board

import (
	"strconv"
	"testing"
)

func TestEveryValueAppearsTwice(t *testing.T) {
	b := New()

	counts := make(map[string]int)
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			counts[b.ValueAt(x, y)]++
		}
	}

	if len(counts) != TotalPairs {
		t.Fatalf("board holds %d distinct values, want %d", len(counts), TotalPairs)
	}
	for v := 1; v <= TotalPairs; v++ {
		key := strconv.Itoa(v)
		if counts[key] != 2 {
			t.Errorf("value %s appears %d times, want 2", key, counts[key])
		}
	}
}

func TestValueAtOutOfRange(t *testing.T) {
	b := New()

	coords := [][2]int{{-1, 0}, {0, -1}, {Cols, 0}, {0, Rows}, {100, 100}}
	for _, c := range coords {
		if got := b.ValueAt(c[0], c[1]); got != "" {
			t.Errorf("ValueAt(%d, %d) = %q, want empty sentinel", c[0], c[1], got)
		}
	}
}

func TestVerifyPairSelfSelect(t *testing.T) {
	b := New()
	v := b.ValueAt(0, 0)

	if b.VerifyPair(0, 0, v, 0, 0, v) {
		t.Error("pairing a cell with itself must fail")
	}
	if b.PairsFound() != 0 {
		t.Errorf("pairsFound = %d after self-select, want 0", b.PairsFound())
	}
}

func TestVerifyPairEmptySentinel(t *testing.T) {
	b := New()

	if b.VerifyPair(-1, 0, "", 0, 0, b.ValueAt(0, 0)) {
		t.Error("empty sentinel must never match")
	}
	if b.VerifyPair(-1, 0, "", -2, 0, "") {
		t.Error("two empty sentinels must never match")
	}
}

// findPairs scans the grid and returns every value's two cell coordinates.
func findPairs(b *Board) map[string][][2]int {
	pairs := make(map[string][][2]int)
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			v := b.ValueAt(x, y)
			pairs[v] = append(pairs[v], [2]int{x, y})
		}
	}
	return pairs
}

func TestVerifyPairMarksCells(t *testing.T) {
	b := New()
	pairs := findPairs(b)

	for v, cells := range pairs {
		c1, c2 := cells[0], cells[1]
		if !b.VerifyPair(c1[0], c1[1], v, c2[0], c2[1], v) {
			t.Fatalf("true pair %s at %v/%v not accepted", v, c1, c2)
		}
		if !b.IsMatched(c1[0], c1[1]) || !b.IsMatched(c2[0], c2[1]) {
			t.Fatalf("cells %v/%v not marked matched", c1, c2)
		}
		// Replaying an already-matched pair must not double count.
		if b.VerifyPair(c1[0], c1[1], v, c2[0], c2[1], v) {
			t.Fatalf("already-matched pair %s accepted twice", v)
		}
		break
	}

	if b.PairsFound() != 1 {
		t.Errorf("pairsFound = %d, want 1", b.PairsFound())
	}
}

func TestFullGameCompletion(t *testing.T) {
	b := New()

	found := 0
	for v, cells := range findPairs(b) {
		if b.FullyMatched() {
			t.Fatal("board reported full before all pairs matched")
		}
		c1, c2 := cells[0], cells[1]
		if !b.VerifyPair(c1[0], c1[1], v, c2[0], c2[1], v) {
			t.Fatalf("pair %s rejected", v)
		}
		found++
		if b.PairsFound() != found {
			t.Fatalf("pairsFound = %d, want %d", b.PairsFound(), found)
		}
	}

	if found != TotalPairs {
		t.Fatalf("matched %d pairs, want %d", found, TotalPairs)
	}
	if !b.FullyMatched() {
		t.Error("board not reported full after matching every pair")
	}
}

func TestResetClearsMatches(t *testing.T) {
	b := New()
	for v, cells := range findPairs(b) {
		b.VerifyPair(cells[0][0], cells[0][1], v, cells[1][0], cells[1][1], v)
		break
	}
	if b.PairsFound() != 1 {
		t.Fatalf("setup failed, pairsFound = %d", b.PairsFound())
	}

	b.Reset()

	if b.PairsFound() != 0 {
		t.Errorf("pairsFound = %d after reset, want 0", b.PairsFound())
	}
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			if b.IsMatched(x, y) {
				t.Errorf("cell (%d, %d) still matched after reset", x, y)
			}
		}
	}
}
