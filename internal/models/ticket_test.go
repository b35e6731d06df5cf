package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testGrid is a fixed valid layout used across the pattern tests.
//
//	 4 12  .  . 45  . 62  . 87
//	 .  . 23 31  . 51  . 74 89
//	 6  . 27  . 48  . 67 78  .
func testTicket() *Ticket {
	t := &Ticket{
		Numbers: [TicketRows][TicketCols]int{
			{4, 12, 0, 0, 45, 0, 62, 0, 87},
			{0, 0, 23, 31, 0, 51, 0, 74, 89},
			{6, 0, 27, 0, 48, 0, 67, 78, 0},
		},
	}
	t.AllNumbers = FlattenGrid(t.Numbers)
	return t
}

func markAll(t *Ticket, nums ...int) {
	for _, n := range nums {
		t.Mark(n)
	}
}

func TestMarkIgnoresOffGridAndRepeats(t *testing.T) {
	tk := testTicket()
	tk.Mark(4)
	tk.Mark(4)
	tk.Mark(5) // not on the grid
	assert.Equal(t, []int{4}, tk.MarkedNumbers)
}

func TestCheckPatternEarlyFive(t *testing.T) {
	tk := testTicket()
	markAll(tk, 4, 12, 23, 31)
	assert.False(t, tk.CheckPattern(PatternEarlyFive))

	tk.Mark(48)
	assert.True(t, tk.CheckPattern(PatternEarlyFive))
}

func TestCheckPatternLines(t *testing.T) {
	tk := testTicket()
	markAll(tk, 4, 12, 45, 62, 87)
	assert.True(t, tk.CheckPattern(PatternTopLine))
	assert.False(t, tk.CheckPattern(PatternMiddleLine))
	assert.False(t, tk.CheckPattern(PatternBottomLine))

	markAll(tk, 23, 31, 51, 74, 89)
	assert.True(t, tk.CheckPattern(PatternMiddleLine))

	markAll(tk, 6, 27, 48, 67, 78)
	assert.True(t, tk.CheckPattern(PatternBottomLine))
	assert.True(t, tk.CheckPattern(PatternFullHouse))
}

func TestCheckPatternExtraMarksDoNotInvalidate(t *testing.T) {
	tk := testTicket()
	// The full top line plus stray marks elsewhere.
	markAll(tk, 4, 12, 45, 62, 87, 23, 48)
	assert.True(t, tk.CheckPattern(PatternTopLine))
}

func TestCheckPatternIncomplete(t *testing.T) {
	tk := testTicket()
	markAll(tk, 4, 12, 45, 62)
	assert.False(t, tk.CheckPattern(PatternTopLine))
	assert.False(t, tk.CheckPattern(PatternFullHouse))
}

func TestFlattenGrid(t *testing.T) {
	tk := testTicket()
	assert.Len(t, tk.AllNumbers, NumbersPerTicket)
	assert.Contains(t, tk.AllNumbers, 89)
	assert.NotContains(t, tk.AllNumbers, 0)
}
