// Package board holds the authoritative Concéntrese card grid: a 5×8
// matrix of pair values and the set of cells already matched.
package board

import (
	"math/rand"
	"strconv"
	"sync"
)

const (
	Cols       = 8
	Rows       = 5
	TotalPairs = Cols * Rows / 2
)

type cell struct {
	x, y int
}

// Board is safe for concurrent use. Coordinates are 0-based; the wire
// protocol's 1-based coordinates are converted before reaching here.
type Board struct {
	mu         sync.Mutex
	grid       [Rows][Cols]int
	matched    map[cell]bool
	pairsFound int
}

// New returns a freshly shuffled board.
func New() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reset reshuffles the grid and clears all matches, starting a new game.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	values := make([]int, 0, Rows*Cols)
	for v := 1; v <= TotalPairs; v++ {
		values = append(values, v, v)
	}
	rand.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			b.grid[y][x] = values[y*Cols+x]
		}
	}
	b.matched = make(map[cell]bool)
	b.pairsFound = 0
}

// ValueAt returns the card value at (x, y), or the empty string when the
// coordinates fall outside the grid. Callers treat the sentinel as an
// invalid selection, never as an I/O error.
func (b *Board) ValueAt(x, y int) string {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return strconv.Itoa(b.grid[y][x])
}

// IsMatched reports whether the cell has already been paired.
func (b *Board) IsMatched(x, y int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.matched[cell{x, y}]
}

// VerifyPair checks whether two selected cells form a new pair. A cell
// cannot pair with itself, an empty sentinel never matches, and cells
// already matched are not offered again. On success both cells join the
// matched set and the pair counter advances; this mutation is the single
// point of truth for win detection.
func (b *Board) VerifyPair(x1, y1 int, v1 string, x2, y2 int, v2 string) bool {
	if x1 == x2 && y1 == y2 {
		return false
	}
	if v1 == "" || v2 == "" || v1 != v2 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c1, c2 := cell{x1, y1}, cell{x2, y2}
	if b.matched[c1] || b.matched[c2] {
		return false
	}
	b.matched[c1] = true
	b.matched[c2] = true
	b.pairsFound++
	return true
}

// PairsFound returns how many pairs have been matched so far.
func (b *Board) PairsFound() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pairsFound
}

// FullyMatched reports whether every pair on the board has been found.
func (b *Board) FullyMatched() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pairsFound >= TotalPairs
}
