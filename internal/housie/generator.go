// Package housie generates valid 3x9 housie ticket grids.
package housie

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/housiehub/housie-backend/internal/models"
)

// Caps on the retry loops. Generation converges almost immediately in
// practice; the caps guard against a pathological random stream near
// decade saturation (column 8 holds only 11 values and supplies 3).
const (
	maxGridAttempts = 20
	maxDrawTries    = 64
	maxRepairPasses = 64
)

// ColumnRange returns the inclusive decade bounds for a column:
// column 0 is 1-9, column 1 is 10-19, ..., column 8 is 80-90.
func ColumnRange(col int) (lo, hi int) {
	switch col {
	case 0:
		return 1, 9
	case models.TicketCols - 1:
		return 80, 90
	default:
		return col * 10, col*10 + 9
	}
}

// Generate produces a random ticket grid satisfying the housie invariants:
// exactly 5 numbers per row (15 total), no duplicates, every number within
// its column's decade. Zero marks an empty cell.
func Generate(r *rand.Rand) ([models.TicketRows][models.TicketCols]int, error) {
	for attempt := 0; attempt < maxGridAttempts; attempt++ {
		if grid, ok := tryGenerate(r); ok {
			return grid, nil
		}
	}
	var zero [models.TicketRows][models.TicketCols]int
	return zero, errors.New("ticket generation did not converge")
}

func tryGenerate(r *rand.Rand) ([models.TicketRows][models.TicketCols]int, bool) {
	var grid [models.TicketRows][models.TicketCols]int
	used := make(map[int]bool, models.NumbersPerTicket)

	// Column stage: 1-2 numbers per column, column 8 always 3, sorted
	// ascending and placed top to bottom.
	for col := 0; col < models.TicketCols; col++ {
		count := 1 + r.Intn(2)
		if col == models.TicketCols-1 {
			count = 3
		}
		vals, ok := drawDistinct(r, col, count, used)
		if !ok {
			return grid, false
		}
		sort.Ints(vals)
		for i, v := range vals {
			grid[i][col] = v
		}
	}

	if !repairRows(r, &grid, used) {
		return grid, false
	}
	sortColumns(&grid)
	return grid, true
}

// drawDistinct draws count distinct unused numbers from the column's decade.
func drawDistinct(r *rand.Rand, col, count int, used map[int]bool) ([]int, bool) {
	lo, hi := ColumnRange(col)
	vals := make([]int, 0, count)
	for tries := 0; len(vals) < count && tries < maxDrawTries; tries++ {
		v := lo + r.Intn(hi-lo+1)
		if used[v] {
			continue
		}
		used[v] = true
		vals = append(vals, v)
	}
	return vals, len(vals) == count
}

// repairRows trims overfull rows and tops up underfull rows until every row
// holds exactly NumbersPerRow cells.
func repairRows(r *rand.Rand, grid *[models.TicketRows][models.TicketCols]int, used map[int]bool) bool {
	for pass := 0; pass < maxRepairPasses; pass++ {
		row, excess := findRow(grid, func(c int) bool { return c > models.NumbersPerRow })
		if excess {
			cols := filledCols(grid, row)
			col := cols[r.Intn(len(cols))]
			delete(used, grid[row][col])
			grid[row][col] = 0
			continue
		}
		row, short := findRow(grid, func(c int) bool { return c < models.NumbersPerRow })
		if !short {
			return true
		}
		if !fillCell(r, grid, row, used) {
			return false
		}
	}
	return false
}

func fillCell(r *rand.Rand, grid *[models.TicketRows][models.TicketCols]int, row int, used map[int]bool) bool {
	cols := emptyCols(grid, row)
	// Random column order; skip columns whose decade is exhausted.
	r.Shuffle(len(cols), func(i, j int) { cols[i], cols[j] = cols[j], cols[i] })
	for _, col := range cols {
		if vals, ok := drawDistinct(r, col, 1, used); ok {
			grid[row][col] = vals[0]
			return true
		}
	}
	return false
}

func findRow(grid *[models.TicketRows][models.TicketCols]int, match func(int) bool) (int, bool) {
	for row := 0; row < models.TicketRows; row++ {
		count := 0
		for _, n := range grid[row] {
			if n != 0 {
				count++
			}
		}
		if match(count) {
			return row, true
		}
	}
	return 0, false
}

func filledCols(grid *[models.TicketRows][models.TicketCols]int, row int) []int {
	var cols []int
	for col, n := range grid[row] {
		if n != 0 {
			cols = append(cols, col)
		}
	}
	return cols
}

func emptyCols(grid *[models.TicketRows][models.TicketCols]int, row int) []int {
	var cols []int
	for col, n := range grid[row] {
		if n == 0 {
			cols = append(cols, col)
		}
	}
	return cols
}

// sortColumns reorders each column's values ascending top to bottom without
// moving which cells are filled.
func sortColumns(grid *[models.TicketRows][models.TicketCols]int) {
	for col := 0; col < models.TicketCols; col++ {
		var rows, vals []int
		for row := 0; row < models.TicketRows; row++ {
			if grid[row][col] != 0 {
				rows = append(rows, row)
				vals = append(vals, grid[row][col])
			}
		}
		sort.Ints(vals)
		for i, row := range rows {
			grid[row][col] = vals[i]
		}
	}
}

// Validate checks the housie grid invariants.
func Validate(grid [models.TicketRows][models.TicketCols]int) error {
	seen := make(map[int]bool, models.NumbersPerTicket)
	total := 0
	for row := 0; row < models.TicketRows; row++ {
		count := 0
		for col := 0; col < models.TicketCols; col++ {
			n := grid[row][col]
			if n == 0 {
				continue
			}
			lo, hi := ColumnRange(col)
			if n < lo || n > hi {
				return fmt.Errorf("cell (%d,%d)=%d outside decade %d-%d", row, col, n, lo, hi)
			}
			if seen[n] {
				return fmt.Errorf("duplicate number %d", n)
			}
			seen[n] = true
			count++
			total++
		}
		if count != models.NumbersPerRow {
			return fmt.Errorf("row %d has %d numbers, want %d", row, count, models.NumbersPerRow)
		}
	}
	if total != models.NumbersPerTicket {
		return fmt.Errorf("ticket has %d numbers, want %d", total, models.NumbersPerTicket)
	}
	return nil
}
