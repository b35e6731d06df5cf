package housie

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housiehub/housie-backend/internal/models"
)

func TestGenerateGridInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		grid, err := Generate(rng)
		require.NoError(t, err)
		require.NoError(t, Validate(grid))

		// Exactly five numbers per row.
		for row := 0; row < models.TicketRows; row++ {
			count := 0
			for col := 0; col < models.TicketCols; col++ {
				if grid[row][col] != 0 {
					count++
				}
			}
			assert.Equal(t, models.NumbersPerRow, count, "row %d", row)
		}

		seen := make(map[int]bool)
		for col := 0; col < models.TicketCols; col++ {
			lo, hi := ColumnRange(col)
			filled := 0
			prev := 0
			for row := 0; row < models.TicketRows; row++ {
				n := grid[row][col]
				if n == 0 {
					continue
				}
				filled++

				// Column range and no duplicates across the ticket.
				assert.GreaterOrEqual(t, n, lo)
				assert.LessOrEqual(t, n, hi)
				assert.False(t, seen[n], "duplicate %d", n)
				seen[n] = true

				// Ascending top to bottom within the column.
				if prev != 0 {
					assert.Greater(t, n, prev, "column %d not sorted", col)
				}
				prev = n
			}
			assert.GreaterOrEqual(t, filled, 1, "column %d empty", col)
			assert.LessOrEqual(t, filled, models.TicketRows)
		}
		assert.Len(t, seen, models.NumbersPerTicket)
	}
}

func TestColumnRange(t *testing.T) {
	lo, hi := ColumnRange(0)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 9, hi)

	lo, hi = ColumnRange(4)
	assert.Equal(t, 40, lo)
	assert.Equal(t, 49, hi)

	// The last column absorbs 90.
	lo, hi = ColumnRange(8)
	assert.Equal(t, 80, lo)
	assert.Equal(t, 90, hi)
}

func TestValidateRejectsBadGrids(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	grid, err := Generate(rng)
	require.NoError(t, err)

	// 89 can never live in the first column; if the cell was empty the row
	// count breaks instead. Either way the grid is invalid.
	bad := grid
	bad[0][0] = 89
	assert.Error(t, Validate(bad))

	// A row with too few numbers.
	bad = grid
	for col := 0; col < models.TicketCols; col++ {
		bad[1][col] = 0
	}
	assert.Error(t, Validate(bad))
}
